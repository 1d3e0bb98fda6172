// Package types defines the canonical in-memory records shared by the
// ingest, compute and report packages: typed order and inventory rows, the
// per-request MetricsResult, and the tagged error variants returned when an
// analysis cannot be completed.
package types
