package compute

import (
	"fmt"
	"time"

	"github.com/storelens/storelens/pkg/types"
)

// DefaultTopN is the number of expired products reported by default.
const DefaultTopN = 3

// Engine runs the four metric passes over one pair of tables.
//
// Engine holds no per-call state; a single instance may be shared by
// concurrent requests.
type Engine struct {
	topN int
}

// Option configures an Engine.
type Option func(*Engine)

// WithTopN sets how many expired products are reported. Values below 1
// are ignored.
func WithTopN(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.topN = n
		}
	}
}

// NewEngine returns a ready-to-use Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{topN: DefaultTopN}
	for _, o := range opts {
		o(e)
	}
	return e
}

// TopN returns the configured size of the top expired list.
func (e *Engine) TopN() int { return e.topN }

// Compute derives a MetricsResult from orders and inventory as of now.
//
// It fails with *types.DivisionByZeroError when there are no users or no
// inventory quantity. No partial result is returned on failure.
func (e *Engine) Compute(orders []types.OrderRecord, inventory []types.InventoryRecord, now time.Time) (types.MetricsResult, error) {
	users, err := OneTimeUserPct(orders)
	if err != nil {
		return types.MetricsResult{}, fmt.Errorf("compute: %w", err)
	}

	stock, err := ExpiredStock(inventory, now)
	if err != nil {
		return types.MetricsResult{}, fmt.Errorf("compute: %w", err)
	}

	aov := AverageOrderValues(orders)

	return types.MetricsResult{
		OneTimeUserPct: users.Pct,
		ComboAOV:       aov.Combo,
		RegularAOV:     aov.Regular,
		ExpiredPct:     stock.Pct,
		TopExpired:     TopExpired(inventory, now, e.topN),

		Orders:          len(orders),
		Users:           users.Users,
		OneTimeUsers:    users.OneTimeUsers,
		ComboOrders:     aov.ComboOrders,
		RegularOrders:   aov.RegularOrders,
		InventoryRows:   len(inventory),
		TotalQuantity:   stock.TotalQuantity,
		ExpiredQuantity: stock.ExpiredQuantity,

		ComputedAt: now,
	}, nil
}
