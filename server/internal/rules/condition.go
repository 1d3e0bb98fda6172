package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/storelens/storelens/pkg/types"
)

// condition is a parsed "field op value" expression.
type condition struct {
	field     string
	op        string
	threshold float64
}

// Fields lists the result fields a condition may reference.
var Fields = []string{
	"one_time_user_pct",
	"combo_aov",
	"regular_aov",
	"aov_gap",
	"expired_pct",
	"expired_quantity",
	"total_quantity",
	"users",
	"orders",
}

// parseCondition parses a rule condition string.
//
// Supported expressions (field operator value):
//
//	expired_pct > 20
//	one_time_user_pct >= 50
//	combo_aov < 15
//	aov_gap < 0
//	orders == 0
func parseCondition(s string) (condition, error) {
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return condition{}, fmt.Errorf("condition %q: want \"field op value\"", s)
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	if !knownField(field) {
		return condition{}, fmt.Errorf("condition %q: unknown field %q", s, field)
	}
	switch op {
	case ">", ">=", "<", "<=", "==":
	default:
		return condition{}, fmt.Errorf("condition %q: unknown operator %q", s, op)
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return condition{}, fmt.Errorf("condition %q: bad threshold: %w", s, err)
	}
	return condition{field: field, op: op, threshold: threshold}, nil
}

func knownField(f string) bool {
	for _, k := range Fields {
		if k == f {
			return true
		}
	}
	return false
}

// eval reports whether the condition holds for res and the value it saw.
// A field with no data (an empty AOV partition) never fires.
func (c condition) eval(res types.MetricsResult) (bool, float64) {
	v, ok := numericField(c.field, res)
	if !ok {
		return false, 0
	}
	return compareFloat(v, c.op, c.threshold), v
}

// numericField maps a field name to its value in the result.
func numericField(field string, res types.MetricsResult) (float64, bool) {
	switch field {
	case "one_time_user_pct":
		return res.OneTimeUserPct, true
	case "combo_aov":
		return res.ComboAOV.Value, res.ComboAOV.Valid
	case "regular_aov":
		return res.RegularAOV.Value, res.RegularAOV.Valid
	case "aov_gap":
		return res.AOVGap()
	case "expired_pct":
		return res.ExpiredPct, true
	case "expired_quantity":
		return res.ExpiredQuantity, true
	case "total_quantity":
		return res.TotalQuantity, true
	case "users":
		return float64(res.Users), true
	case "orders":
		return float64(res.Orders), true
	default:
		return 0, false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}
