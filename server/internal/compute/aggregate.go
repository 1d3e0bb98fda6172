package compute

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/storelens/storelens/pkg/types"
)

// resultPlaces is the number of decimal places kept in reported figures.
const resultPlaces = 2

var hundred = decimal.NewFromInt(100)

// Combo flag values, compared case-insensitively.
const (
	comboYes = "yes"
	comboNo  = "no"
)

// UserStats is the outcome of the one-time-user pass.
type UserStats struct {
	Pct          float64
	Users        int
	OneTimeUsers int
}

// OneTimeUserPct returns the percentage of distinct users with exactly one
// order. Rows with an empty user_id belong to no user.
func OneTimeUserPct(orders []types.OrderRecord) (UserStats, error) {
	counts := make(map[string]int, len(orders))
	for _, o := range orders {
		if o.UserID == "" {
			continue
		}
		counts[o.UserID]++
	}

	var st UserStats
	st.Users = len(counts)
	for _, n := range counts {
		if n == 1 {
			st.OneTimeUsers++
		}
	}
	if st.Users == 0 {
		return st, &types.DivisionByZeroError{Metric: "one_time_user_pct", Denominator: "total_users"}
	}

	st.Pct = percent(decimal.NewFromInt(int64(st.OneTimeUsers)), decimal.NewFromInt(int64(st.Users)))
	return st, nil
}

// AOVStats is the outcome of the combo/regular pass.
type AOVStats struct {
	Combo         types.Mean
	Regular       types.Mean
	ComboOrders   int
	RegularOrders int
}

// AverageOrderValues partitions orders by their combo flag and averages the
// valid amounts in each partition. Rows whose flag is neither "yes" nor
// "no" are ignored; rows with an invalid amount count towards the partition
// size but not the mean.
func AverageOrderValues(orders []types.OrderRecord) AOVStats {
	var (
		st                   AOVStats
		comboSum, regularSum decimal.Decimal
		comboN, regularN     int64
	)
	for _, o := range orders {
		switch strings.ToLower(strings.TrimSpace(o.IsCombo)) {
		case comboYes:
			st.ComboOrders++
			if o.Amount.Valid {
				comboSum = comboSum.Add(o.Amount.Decimal)
				comboN++
			}
		case comboNo:
			st.RegularOrders++
			if o.Amount.Valid {
				regularSum = regularSum.Add(o.Amount.Decimal)
				regularN++
			}
		}
	}
	st.Combo = mean(comboSum, comboN)
	st.Regular = mean(regularSum, regularN)
	return st
}

// StockStats is the outcome of the expired-stock pass.
type StockStats struct {
	Pct             float64
	ExpiredQuantity float64
	TotalQuantity   float64
}

// ExpiredStock returns the share of total quantity whose expiration date is
// strictly before now. Rows without a valid date still count towards the
// total; rows without a valid quantity count towards neither.
func ExpiredStock(inventory []types.InventoryRecord, now time.Time) (StockStats, error) {
	var expired, total decimal.Decimal
	for _, r := range inventory {
		if !r.Quantity.Valid {
			continue
		}
		total = total.Add(r.Quantity.Decimal)
		if r.ExpiredAt(now) {
			expired = expired.Add(r.Quantity.Decimal)
		}
	}

	st := StockStats{
		ExpiredQuantity: expired.InexactFloat64(),
		TotalQuantity:   total.InexactFloat64(),
	}
	if total.IsZero() {
		return st, &types.DivisionByZeroError{Metric: "expired_pct", Denominator: "total_qty"}
	}
	st.Pct = percent(expired, total)
	return st, nil
}

// TopExpired groups expired rows by product, sums their quantity and
// returns the n largest groups. Equal sums keep first-seen product order.
func TopExpired(inventory []types.InventoryRecord, now time.Time, n int) []types.ProductQuantity {
	type group struct {
		id  string
		qty decimal.Decimal
	}
	var (
		groups []*group
		index  = make(map[string]*group)
	)
	for _, r := range inventory {
		if r.ProductID == "" || !r.ExpiredAt(now) {
			continue
		}
		g, ok := index[r.ProductID]
		if !ok {
			g = &group{id: r.ProductID}
			index[r.ProductID] = g
			groups = append(groups, g)
		}
		if r.Quantity.Valid {
			g.qty = g.qty.Add(r.Quantity.Decimal)
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].qty.GreaterThan(groups[j].qty)
	})
	if n >= 0 && len(groups) > n {
		groups = groups[:n]
	}

	out := make([]types.ProductQuantity, 0, len(groups))
	for _, g := range groups {
		out = append(out, types.ProductQuantity{ProductID: g.id, Quantity: g.qty.InexactFloat64()})
	}
	return out
}

// percent returns part/whole*100 rounded to resultPlaces. whole must be
// non-zero.
func percent(part, whole decimal.Decimal) float64 {
	return part.Div(whole).Mul(hundred).Round(resultPlaces).InexactFloat64()
}

// mean returns sum/n rounded to resultPlaces, or an invalid Mean when n is 0.
func mean(sum decimal.Decimal, n int64) types.Mean {
	if n == 0 {
		return types.Mean{}
	}
	v := sum.Div(decimal.NewFromInt(n)).Round(resultPlaces)
	return types.Mean{Value: v.InexactFloat64(), Valid: true}
}
