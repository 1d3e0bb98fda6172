package report

import (
	"fmt"
	"sort"
)

// DiagnosticHint is one human-readable note about a report. The results
// page shows these under the metrics; Detail explains the number in plain
// English.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier.
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label.
	Title string `json:"title"`
	// Detail is the full explanation.
	Detail string `json:"detail"`
	// Value is an optional number associated with this hint.
	Value *float64 `json:"value,omitempty"`
}

// Thresholds for the expired stock hints, in percent of total quantity.
const (
	expiredWarnPct     = 5.0
	expiredCriticalPct = 20.0
)

// computeDiagnostics derives hints from a report.
// Hints are ordered: critical first, then warnings, then info, then ok.
func computeDiagnostics(r *Report) []DiagnosticHint {
	res := r.Result
	var hints []DiagnosticHint

	// ── Data quality ─────────────────────────────────────────────────────────
	if n := len(r.Issues); n > 0 {
		v := float64(n)
		hints = append(hints, DiagnosticHint{
			Key:   "coercion_issues",
			Level: "warning",
			Title: fmt.Sprintf("%d unreadable cell(s)", n),
			Detail: fmt.Sprintf(
				"%d cell(s) could not be read as a number or date and were treated as missing. "+
					"Missing amounts are left out of the averages and missing quantities out of the totals, "+
					"but the rows still count as orders and stock lines. "+
					"Check the listed rows if the numbers look off.",
				n,
			),
			Value: &v,
		})
	}

	// ── Combo vs regular partitions ──────────────────────────────────────────
	if res.ComboOrders == 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "no_combo_orders",
			Level: "info",
			Title: "No combo orders",
			Detail: "No order had is_combo set to \"yes\", so the combo average order value " +
				"cannot be computed and is shown as n/a.",
		})
	}
	if res.RegularOrders == 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "no_regular_orders",
			Level: "info",
			Title: "No regular orders",
			Detail: "No order had is_combo set to \"no\", so the regular average order value " +
				"cannot be computed and is shown as n/a.",
		})
	}
	if other := res.Orders - res.ComboOrders - res.RegularOrders; other > 0 {
		v := float64(other)
		hints = append(hints, DiagnosticHint{
			Key:   "unclassified_orders",
			Level: "info",
			Title: fmt.Sprintf("%d unclassified order(s)", other),
			Detail: fmt.Sprintf(
				"%d order(s) had an is_combo value other than yes or no. "+
					"They count toward the user statistics but belong to neither average.",
				other,
			),
			Value: &v,
		})
	}
	if gap, ok := res.AOVGap(); ok && gap < 0 {
		v := gap
		hints = append(hints, DiagnosticHint{
			Key:   "combo_below_regular",
			Level: "warning",
			Title: "Combos sell below regular",
			Detail: fmt.Sprintf(
				"The average combo order (%s) is %.2f below the average regular order (%s). "+
					"Combos usually exist to lift basket size; check whether the bundle discount is too deep.",
				res.ComboAOV, -gap, res.RegularAOV,
			),
			Value: &v,
		})
	}

	// ── Retention ────────────────────────────────────────────────────────────
	if res.Users > 0 && res.OneTimeUsers == res.Users {
		v := res.OneTimeUserPct
		hints = append(hints, DiagnosticHint{
			Key:    "no_repeat_users",
			Level:  "info",
			Title:  "No repeat customers",
			Detail: "Every user in this file ordered exactly once. Either the file covers a short window or nobody came back.",
			Value:  &v,
		})
	}

	// ── Expired stock ────────────────────────────────────────────────────────
	switch pct := res.ExpiredPct; {
	case pct >= expiredCriticalPct:
		v := pct
		hints = append(hints, DiagnosticHint{
			Key:   "heavy_expiry",
			Level: "critical",
			Title: fmt.Sprintf("%.2f%% of stock expired", pct),
			Detail: fmt.Sprintf(
				"%.2f%% of all stock on hand is past its expiration date. "+
					"Pull the products listed under top expired first and review reorder quantities.",
				pct,
			),
			Value: &v,
		})
	case pct >= expiredWarnPct:
		v := pct
		hints = append(hints, DiagnosticHint{
			Key:    "some_expiry",
			Level:  "warning",
			Title:  fmt.Sprintf("%.2f%% of stock expired", pct),
			Detail: fmt.Sprintf("%.2f%% of stock on hand is past its expiration date.", pct),
			Value:  &v,
		})
	case res.ExpiredQuantity == 0:
		hints = append(hints, DiagnosticHint{
			Key:    "no_expired_stock",
			Level:  "ok",
			Title:  "No expired stock",
			Detail: "No stock line with a readable date is past its expiration date.",
		})
	}

	sort.SliceStable(hints, func(i, j int) bool {
		return levelRank(hints[i].Level) < levelRank(hints[j].Level)
	})
	return hints
}

func levelRank(level string) int {
	switch level {
	case "critical":
		return 0
	case "warning":
		return 1
	case "info":
		return 2
	default:
		return 3
	}
}
