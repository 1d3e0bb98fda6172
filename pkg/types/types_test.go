package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"schema", &SchemaError{Table: TableOrders, Missing: []string{"amount"}}, KindSchema},
		{"wrapped schema", fmt.Errorf("ingest: %w", &SchemaError{Table: TableInventory}), KindSchema},
		{"division", &DivisionByZeroError{Metric: "expired_pct", Denominator: "total_qty"}, KindDivisionByZero},
		{"coercion", &CoercionError{Issue: CoercionIssue{Table: TableOrders, Field: "amount", Row: 2, Value: "abc"}}, KindCoercion},
		{"input", fmt.Errorf("ingest: %w", &InputError{Table: TableOrders, Err: io.ErrUnexpectedEOF}), KindInput},
		{"schema inside input", &InputError{Table: TableOrders, Err: &SchemaError{Table: TableOrders}}, KindSchema},
		{"plain", errors.New("boom"), KindUnexpected},
		{"io", io.ErrUnexpectedEOF, KindUnexpected},
	}
	for _, tc := range tests {
		if got := KindOf(tc.err); got != tc.want {
			t.Errorf("%s: KindOf = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSchemaError_Message(t *testing.T) {
	err := &SchemaError{Table: TableOrders, Missing: []string{"amount", "is_combo"}}
	want := "orders: missing required column(s): amount, is_combo"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestMean_JSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Mean `json:"a"`
		B Mean `json:"b"`
	}{A: Mean{Value: 12.5, Valid: true}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `{"a":12.5,"b":null}` {
		t.Errorf("json = %s", b)
	}

	var m Mean
	if err := json.Unmarshal([]byte("null"), &m); err != nil || m.Valid {
		t.Errorf("null: got %+v, %v", m, err)
	}
	if err := json.Unmarshal([]byte("7.25"), &m); err != nil || !m.Valid || m.Value != 7.25 {
		t.Errorf("number: got %+v, %v", m, err)
	}
}

func TestMean_String(t *testing.T) {
	if s := (Mean{}).String(); s != "n/a" {
		t.Errorf("invalid mean String() = %q, want n/a", s)
	}
	if s := (Mean{Value: 10, Valid: true}).String(); s != "10.00" {
		t.Errorf("String() = %q, want 10.00", s)
	}
}

func TestInventoryRecord_ExpiredAt(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		rec  InventoryRecord
		want bool
	}{
		{"past", InventoryRecord{ExpirationDate: now.Add(-time.Hour), HasExpiration: true}, true},
		{"future", InventoryRecord{ExpirationDate: now.Add(time.Hour), HasExpiration: true}, false},
		{"exactly now", InventoryRecord{ExpirationDate: now, HasExpiration: true}, false},
		{"no date", InventoryRecord{}, false},
	}
	for _, tc := range tests {
		if got := tc.rec.ExpiredAt(now); got != tc.want {
			t.Errorf("%s: ExpiredAt = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAOVGap(t *testing.T) {
	r := MetricsResult{ComboAOV: Mean{Value: 30, Valid: true}, RegularAOV: Mean{Value: 12.5, Valid: true}}
	if gap, ok := r.AOVGap(); !ok || gap != 17.5 {
		t.Errorf("AOVGap = %v, %v; want 17.5, true", gap, ok)
	}
	r.RegularAOV = Mean{}
	if _, ok := r.AOVGap(); ok {
		t.Error("AOVGap with missing regular AOV: ok = true, want false")
	}
}
