// Package rules evaluates configured threshold rules against a metrics
// result and reports the ones that fire as flags.
//
// A rule condition has the form "field op value", for example
// "expired_pct > 20". Fields that carry no data for a result, such as the
// combo AOV when no combo orders were seen, never fire.
//
// Flags can be pushed to Slack, Teams or a plain HTTP endpoint. Delivery runs
// in the background and its failures are only logged.
package rules
