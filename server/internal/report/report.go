package report

import (
	"encoding/json"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/storelens/storelens/pkg/types"
	"github.com/storelens/storelens/server/internal/rules"
)

// Report is one rendered analysis: the computed metrics plus everything a
// reader needs to judge them.
type Report struct {
	ID          string                `json:"id"`
	GeneratedAt time.Time             `json:"generated_at"`
	Result      types.MetricsResult   `json:"result"`
	Issues      []types.CoercionIssue `json:"coercion_issues"`
	Flags       []rules.Flag          `json:"flags"`
	Diagnostics []DiagnosticHint      `json:"diagnostics"`
}

// IssueCount is the number of coercion issues for one table column.
type IssueCount struct {
	Table string `json:"table"`
	Field string `json:"field"`
	Count int    `json:"count"`
}

// New assembles a Report. An empty id is replaced with a fresh UUID.
// Nil slices are normalised to empty ones so JSON always carries arrays.
func New(id string, res types.MetricsResult, issues []types.CoercionIssue, flags []rules.Flag) *Report {
	if id == "" {
		id = uuid.NewString()
	}
	if issues == nil {
		issues = []types.CoercionIssue{}
	}
	if flags == nil {
		flags = []rules.Flag{}
	}
	if res.TopExpired == nil {
		res.TopExpired = []types.ProductQuantity{}
	}
	r := &Report{
		ID:          id,
		GeneratedAt: res.ComputedAt,
		Result:      res,
		Issues:      issues,
		Flags:       flags,
	}
	r.Diagnostics = computeDiagnostics(r)
	return r
}

// IssueCounts groups the coercion issues by table and field, in table then
// field order.
func (r *Report) IssueCounts() []IssueCount {
	idx := map[[2]string]int{}
	var out []IssueCount
	for _, is := range r.Issues {
		k := [2]string{is.Table, is.Field}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, IssueCount{Table: is.Table, Field: is.Field})
		}
		out[i].Count++
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Table != out[j].Table {
			return out[i].Table > out[j].Table // orders before inventory
		}
		return out[i].Field < out[j].Field
	})
	return out
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
