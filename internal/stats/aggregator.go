// Package stats computes cross-cutting order aggregates by composing the
// storage contract's enumeration primitive. Neither backend offers a native
// aggregation query for this shape, so all four aggregates are folded from a
// single pass over one materialized order set; on the distributed backend
// that pass is a full table scan and is priced accordingly.
package stats

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ortizcarlos/agentic-customer-support/internal/domain/order"
	"github.com/ortizcarlos/agentic-customer-support/internal/infrastructure/store"
)

// Statistics is the aggregate view over every stored order.
type Statistics struct {
	TotalOrders     int                  `json:"total_orders"`
	TotalRevenue    decimal.Decimal      `json:"total_revenue"`
	StatusBreakdown map[order.Status]int `json:"status_breakdown"`
	UniqueCustomers int                  `json:"unique_customers"`
}

// Aggregator folds statistics out of any OrderStore.
type Aggregator struct {
	store store.OrderStore
}

func NewAggregator(st store.OrderStore) *Aggregator {
	return &Aggregator{store: st}
}

// Collect enumerates the store once and computes all four aggregates from
// that single pass. Revenue is summed as exact decimals.
func (a *Aggregator) Collect(ctx context.Context) (*Statistics, error) {
	orders, err := a.store.ListOrders(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Statistics{
		TotalRevenue:    decimal.Zero,
		StatusBreakdown: make(map[order.Status]int),
	}
	customers := make(map[string]struct{})

	for _, o := range orders {
		stats.TotalOrders++
		stats.TotalRevenue = stats.TotalRevenue.Add(o.TotalPrice)
		stats.StatusBreakdown[o.Status]++
		if o.CustomerID != "" {
			customers[o.CustomerID] = struct{}{}
		}
	}
	stats.UniqueCustomers = len(customers)

	return stats, nil
}
