// Package compute derives the order and inventory metrics for one analysis.
//
// aggregate.go holds the four independent passes as pure functions:
// OneTimeUserPct, AverageOrderValues, ExpiredStock and TopExpired.
//
// engine.go provides Engine.Compute, which runs the passes over typed
// records and assembles a types.MetricsResult. now is passed explicitly so
// the result is deterministic for a given input.
//
// Percentages and means use decimal arithmetic and are rounded half away
// from zero to two places. A zero denominator returns
// *types.DivisionByZeroError; an empty combo/regular partition yields an
// invalid types.Mean rather than an error.
package compute
