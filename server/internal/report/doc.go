// Package report turns a metrics result into something a person reads.
//
// New assembles a Report from the result, the coercion issues met while
// reading the tables and the rules that fired, and derives diagnostic
// hints from them. The report renders as an HTML page, a PDF document,
// plain text or JSON.
package report
