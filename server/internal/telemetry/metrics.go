package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/storelens/storelens/pkg/types"
)

// Outcome labels for AnalysesTotal.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics contains all Prometheus metrics for the storelens service. They
// live on a private registry so tests and multiple servers never share
// global state.
type Metrics struct {
	reg *prometheus.Registry

	AnalysesTotal    *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	CoercionIssues   *prometheus.CounterVec
	RulesFired       *prometheus.CounterVec
	ComputeLatencyMs prometheus.Histogram
	UploadBytes      *prometheus.HistogramVec
	StagedFiles      prometheus.Gauge
}

// New creates and registers all metrics, plus the Go runtime and process
// collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,

		AnalysesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storelens_analyses_total",
			Help: "Total number of analysis requests by outcome",
		}, []string{"outcome"}),

		ErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storelens_errors_total",
			Help: "Total number of failed analyses by error kind",
		}, []string{"kind"}),

		CoercionIssues: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storelens_coercion_issues_total",
			Help: "Cells that could not be converted, by table and field",
		}, []string{"table", "field"}),

		RulesFired: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storelens_rules_fired_total",
			Help: "Threshold rules that fired, by rule and severity",
		}, []string{"rule", "severity"}),

		ComputeLatencyMs: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "storelens_compute_latency_ms",
			Help:    "Time to compute metrics for one analysis in milliseconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),

		UploadBytes: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storelens_upload_bytes",
			Help:    "Size of uploaded tables in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		}, []string{"table"}),

		StagedFiles: f.NewGauge(prometheus.GaugeOpts{
			Name: "storelens_staged_files",
			Help: "Uploads currently held in the staging directory",
		}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// RecordAnalysis counts a finished analysis. A nil err is a success;
// otherwise the error kind is counted as well.
func (m *Metrics) RecordAnalysis(err error) {
	if err == nil {
		m.AnalysesTotal.WithLabelValues(OutcomeOK).Inc()
		return
	}
	m.AnalysesTotal.WithLabelValues(OutcomeError).Inc()
	m.ErrorsTotal.WithLabelValues(types.KindOf(err).String()).Inc()
}

// RecordIssues counts coercion issues by table and field.
func (m *Metrics) RecordIssues(issues []types.CoercionIssue) {
	for _, is := range issues {
		m.CoercionIssues.WithLabelValues(is.Table, is.Field).Inc()
	}
}

// RecordRule counts one fired rule.
func (m *Metrics) RecordRule(rule, severity string) {
	m.RulesFired.WithLabelValues(rule, severity).Inc()
}

// RecordComputeLatency records the time a computation took.
func (m *Metrics) RecordComputeLatency(d time.Duration) {
	m.ComputeLatencyMs.Observe(float64(d) / float64(time.Millisecond))
}

// RecordUpload records the size of one uploaded table.
func (m *Metrics) RecordUpload(table string, size int64) {
	m.UploadBytes.WithLabelValues(table).Observe(float64(size))
}

// SetStagedFiles records the current staging area occupancy.
func (m *Metrics) SetStagedFiles(n int) {
	m.StagedFiles.Set(float64(n))
}
