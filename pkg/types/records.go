package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Required column names for each input table.
var (
	OrderColumns     = []string{"order_id", "user_id", "amount", "is_combo"}
	InventoryColumns = []string{"product_id", "quantity", "expiration_date"}
)

// Table names used in errors, coercion issues and metric labels.
const (
	TableOrders    = "orders"
	TableInventory = "inventory"
)

// OrderRecord is one row of the orders table.
type OrderRecord struct {
	OrderID string
	UserID  string

	// Amount is invalid when the cell was empty or could not be parsed.
	Amount decimal.NullDecimal

	// IsCombo is the raw flag; it is compared case-insensitively to
	// "yes" and "no".
	IsCombo string
}

// InventoryRecord is one row of the inventory table.
type InventoryRecord struct {
	ProductID string

	// Quantity is invalid when the cell was empty or could not be parsed.
	Quantity decimal.NullDecimal

	// ExpirationDate is only meaningful when HasExpiration is true.
	ExpirationDate time.Time
	HasExpiration  bool
}

// ExpiredAt reports whether the row expired strictly before now.
// Rows without a usable date are never expired.
func (r InventoryRecord) ExpiredAt(now time.Time) bool {
	return r.HasExpiration && r.ExpirationDate.Before(now)
}

// CoercionIssue records one cell that could not be converted to its
// column's type. The cell is treated as missing; the analysis continues.
type CoercionIssue struct {
	Table string `json:"table"`
	Field string `json:"field"`
	Row   int    `json:"row"` // 1-based line after the header, blank lines included
	Value string `json:"value"`
}
