package store

import (
	"context"
	"time"

	"github.com/ortizcarlos/agentic-customer-support/internal/domain/order"
)

// QueryOptions narrows a multi-order read. The zero value means no cap and
// no status filter.
type QueryOptions struct {
	// Limit caps the number of returned orders; <= 0 means unlimited.
	Limit int
	// Status, when non-empty, keeps only orders with exactly this status.
	Status order.Status
}

// OrderStore is the storage contract implemented identically by every
// backend driver. Callers hold only this interface, never a concrete driver.
//
// Every multi-order read returns orders most-recent first: descending
// created_at, ties broken by ascending order_id.
type OrderStore interface {
	// CreateOrder persists a new order after normalizing and validating it.
	// Returns ErrAlreadyExists if the order_id is taken and ErrInvalidOrder
	// if the order fails creation invariants.
	CreateOrder(ctx context.Context, o *order.Order) error

	// GetOrder returns the full order including its items, or ErrNotFound.
	GetOrder(ctx context.Context, orderID string) (*order.Order, error)

	// GetCustomerOrders returns the orders for a customer name, newest
	// first, optionally capped and filtered by status.
	GetCustomerOrders(ctx context.Context, customerName string, opts QueryOptions) ([]order.Order, error)

	// GetCustomerLastOrder returns the most recently created order for an
	// opaque customer id, or ErrNotFound.
	GetCustomerLastOrder(ctx context.Context, customerID string) (*order.Order, error)

	// UpdateOrderStatus sets the order's status and refreshes updated_at.
	// Any defined status value is accepted regardless of the current state;
	// undefined values return ErrInvalidOrder.
	UpdateOrderStatus(ctx context.Context, orderID string, status order.Status) error

	// UpdateOrderReadyTime sets the estimated ready time and refreshes
	// updated_at.
	UpdateOrderReadyTime(ctx context.Context, orderID string, readyAt time.Time) error

	// GetOrdersByStatus returns orders with exactly the given status,
	// newest first; limit <= 0 means unlimited.
	GetOrdersByStatus(ctx context.Context, status order.Status, limit int) ([]order.Order, error)

	// DeleteOrder removes the order and its items, or returns ErrNotFound.
	DeleteOrder(ctx context.Context, orderID string) error

	// ClearAllOrders unconditionally deletes every order and returns the
	// number of orders removed. The caller is responsible for gating it.
	ClearAllOrders(ctx context.Context) (int, error)

	// ListOrders enumerates every stored order, newest first. This is the
	// scan primitive behind statistics and migration; on the distributed
	// backend it is explicitly the expensive path.
	ListOrders(ctx context.Context) ([]order.Order, error)

	// FormatOrderSummary renders the fixed human-readable summary block for
	// an order, or returns ErrNotFound.
	FormatOrderSummary(ctx context.Context, orderID string) (string, error)

	// Close releases backend resources.
	Close() error
}
