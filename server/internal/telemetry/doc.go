// Package telemetry holds the Prometheus instrumentation for storelens and
// serves it on /metrics.
package telemetry
