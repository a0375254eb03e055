package store

import (
	"fmt"
	"sort"
	"time"

	"github.com/ortizcarlos/agentic-customer-support/internal/domain/order"
)

// storedTimeLayout is the persisted timestamp shape on both backends:
// RFC3339 UTC with the fractional part zero-padded to a fixed width, so that
// lexicographic ordering (SQLite TEXT ORDER BY, DynamoDB range keys) matches
// chronological ordering.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z"

func formatStoredTime(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

func parseStoredTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// prepareForCreate applies the lenient-repair policy and the creation
// invariants shared by every driver: subtotals and total are recomputed from
// quantity x unit price, then the order is validated.
func prepareForCreate(o *order.Order) error {
	o.Normalize(time.Now())
	if err := o.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOrder, err)
	}
	return nil
}

// sortNewestFirst enforces the ordering contract in memory: descending
// created_at, ties broken by ascending order_id. Drivers whose index cannot
// express the tie-break (DynamoDB GSIs sort on created_at only) re-sort
// fetched pages through this before applying a limit.
func sortNewestFirst(orders []order.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].OrderID < orders[j].OrderID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

// capOrders applies a limit after sorting; limit <= 0 means unlimited.
func capOrders(orders []order.Order, limit int) []order.Order {
	if limit > 0 && len(orders) > limit {
		return orders[:limit]
	}
	return orders
}
