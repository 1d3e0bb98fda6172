package types

import (
	"encoding/json"
	"strconv"
	"time"
)

// Mean is an average that may be undefined. An empty partition yields
// Valid == false, which serialises to JSON null and prints as "n/a".
type Mean struct {
	Value float64
	Valid bool
}

// MarshalJSON encodes an invalid Mean as null.
func (m Mean) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON accepts a number or null.
func (m *Mean) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = Mean{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*m = Mean{Value: v, Valid: true}
	return nil
}

func (m Mean) String() string {
	if !m.Valid {
		return "n/a"
	}
	return strconv.FormatFloat(m.Value, 'f', 2, 64)
}

// ProductQuantity is one entry of the top expired products list.
type ProductQuantity struct {
	ProductID string  `json:"product_id"`
	Quantity  float64 `json:"quantity"`
}

// MetricsResult is the outcome of one analysis. It is built once per
// request and never modified afterwards.
type MetricsResult struct {
	OneTimeUserPct float64           `json:"one_time_user_pct"`
	ComboAOV       Mean              `json:"combo_aov"`
	RegularAOV     Mean              `json:"regular_aov"`
	ExpiredPct     float64           `json:"expired_pct"`
	TopExpired     []ProductQuantity `json:"top_expired"`

	// Supporting counts from the same passes.
	Orders          int     `json:"orders"`
	Users           int     `json:"users"`
	OneTimeUsers    int     `json:"one_time_users"`
	ComboOrders     int     `json:"combo_orders"`
	RegularOrders   int     `json:"regular_orders"`
	InventoryRows   int     `json:"inventory_rows"`
	TotalQuantity   float64 `json:"total_quantity"`
	ExpiredQuantity float64 `json:"expired_quantity"`

	ComputedAt time.Time `json:"computed_at"`
}

// AOVGap returns combo minus regular AOV. ok is false when either side
// has no data.
func (r MetricsResult) AOVGap() (gap float64, ok bool) {
	if !r.ComboAOV.Valid || !r.RegularAOV.Valid {
		return 0, false
	}
	return r.ComboAOV.Value - r.RegularAOV.Value, true
}
