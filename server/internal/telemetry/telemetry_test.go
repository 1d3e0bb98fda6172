package telemetry

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/storelens/storelens/pkg/types"
)

// family returns the gathered family called name, or nil.
func family(t *testing.T, m *Metrics, name string) *dto.MetricFamily {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

// counterValue returns the value of the counter in mf whose labels match.
func counterValue(mf *dto.MetricFamily, labels map[string]string) float64 {
	if mf == nil {
		return 0
	}
	for _, m := range mf.GetMetric() {
		match := true
		for _, lp := range m.GetLabel() {
			if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
				match = false
			}
		}
		if match {
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestRecordAnalysis(t *testing.T) {
	m := New()
	m.RecordAnalysis(nil)
	m.RecordAnalysis(nil)
	m.RecordAnalysis(fmt.Errorf("ingest: %w", &types.SchemaError{Table: "orders", Missing: []string{"amount"}}))
	m.RecordAnalysis(&types.DivisionByZeroError{Metric: "expired_pct", Denominator: "total_qty"})
	m.RecordAnalysis(errors.New("disk on fire"))

	analyses := family(t, m, "storelens_analyses_total")
	if got := counterValue(analyses, map[string]string{"outcome": OutcomeOK}); got != 2 {
		t.Errorf("ok analyses: got %v, want 2", got)
	}
	if got := counterValue(analyses, map[string]string{"outcome": OutcomeError}); got != 3 {
		t.Errorf("failed analyses: got %v, want 3", got)
	}

	errs := family(t, m, "storelens_errors_total")
	for kind, want := range map[string]float64{"schema_error": 1, "division_by_zero": 1, "unexpected": 1} {
		if got := counterValue(errs, map[string]string{"kind": kind}); got != want {
			t.Errorf("errors{kind=%s}: got %v, want %v", kind, got, want)
		}
	}
}

func TestRecordIssues(t *testing.T) {
	m := New()
	m.RecordIssues([]types.CoercionIssue{
		{Table: "orders", Field: "amount", Row: 1, Value: "abc"},
		{Table: "orders", Field: "amount", Row: 4, Value: "?"},
		{Table: "inventory", Field: "expiration_date", Row: 2, Value: "soon"},
	})
	mf := family(t, m, "storelens_coercion_issues_total")
	if got := counterValue(mf, map[string]string{"table": "orders", "field": "amount"}); got != 2 {
		t.Errorf("orders.amount: got %v, want 2", got)
	}
	if got := counterValue(mf, map[string]string{"table": "inventory", "field": "expiration_date"}); got != 1 {
		t.Errorf("inventory.expiration_date: got %v, want 1", got)
	}
}

func TestLatencyAndGauge(t *testing.T) {
	m := New()
	m.RecordComputeLatency(3 * time.Millisecond)
	m.SetStagedFiles(4)

	h := family(t, m, "storelens_compute_latency_ms")
	if h == nil || h.GetMetric()[0].GetHistogram().GetSampleCount() != 1 {
		t.Fatalf("latency histogram not observed: %v", h)
	}
	if got := h.GetMetric()[0].GetHistogram().GetSampleSum(); got != 3 {
		t.Errorf("latency sum: got %v, want 3", got)
	}

	g := family(t, m, "storelens_staged_files")
	if g == nil || g.GetMetric()[0].GetGauge().GetValue() != 4 {
		t.Errorf("staged files gauge: %v", g)
	}
}

func TestHandler_Text(t *testing.T) {
	m := New()
	m.RecordAnalysis(nil)
	m.RecordRule("heavy-expiry", "critical")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type: got %q, want text/plain", ct)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`storelens_analyses_total{outcome="ok"} 1`,
		`storelens_rules_fired_total{rule="heavy-expiry",severity="critical"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

// brokenCollector always fails to collect.
type brokenCollector struct{ desc *prometheus.Desc }

func (c brokenCollector) Describe(ch chan<- *prometheus.Desc) { ch <- c.desc }

func (c brokenCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.NewInvalidMetric(c.desc, errors.New("source unavailable"))
}

func TestHandler_GatherErrorIs500(t *testing.T) {
	m := New()
	m.RecordAnalysis(nil)
	m.Registry().MustRegister(brokenCollector{
		desc: prometheus.NewDesc("storelens_broken", "always fails", nil, nil),
	})

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "storelens_analyses_total") {
		t.Error("partial exposition served alongside the error")
	}
}

func TestHandler_Protobuf(t *testing.T) {
	m := New()
	m.RecordUpload("orders", 2048)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept", "application/vnd.google.protobuf;proto=io.prometheus.client.MetricFamily;encoding=delimited")
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, req)

	format := expfmt.Format(rr.Header().Get("Content-Type"))
	if format.FormatType() != expfmt.TypeProtoDelim {
		t.Fatalf("negotiated %q, want delimited protobuf", format)
	}

	dec := expfmt.NewDecoder(rr.Body, format)
	found := false
	for {
		var mf dto.MetricFamily
		if err := dec.Decode(&mf); err != nil {
			if err == io.EOF {
				break
			}
			t.Fatalf("Decode: %v", err)
		}
		if mf.GetName() == "storelens_upload_bytes" {
			found = true
		}
	}
	if !found {
		t.Error("storelens_upload_bytes not in protobuf exposition")
	}
}

func TestNew_Independent(t *testing.T) {
	a, b := New(), New()
	a.RecordAnalysis(nil)
	if got := counterValue(family(t, b, "storelens_analyses_total"), map[string]string{"outcome": OutcomeOK}); got != 0 {
		t.Errorf("registries share state: got %v", got)
	}
}
