package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order. The values are the wire strings
// persisted by both backends, so they must never change once deployed.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusPreparing Status = "Being prepared"
	StatusReady     Status = "Ready for pickup"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// AllStatuses lists every defined status in forward lifecycle order, with
// Cancelled last. Callers that want to enforce forward-only progression can
// derive their policy from this ordering; the storage layer itself accepts
// any defined value.
var AllStatuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
	StatusCompleted,
	StatusCancelled,
}

// Valid reports whether s is one of the defined status values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
		StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s is a state no order normally leaves.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

var (
	ErrEmptyOrderID    = errors.New("order_id must not be empty")
	ErrEmptyCustomerID = errors.New("customer_id must not be empty")
	ErrEmptyItems      = errors.New("order must have at least one item")
	ErrEmptyItemName   = errors.New("item_name must not be empty")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrNegativePrice   = errors.New("unit_price must not be negative")
	ErrUndefinedStatus = errors.New("undefined order status")
)

// LineItem is one ordered product line. It has no identity of its own; it
// lives and dies with its order.
type LineItem struct {
	ItemName  string          `json:"item_name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Order is one purchase transaction. OrderID is assigned by the caller
// before creation and immutable afterwards.
type Order struct {
	OrderID            string          `json:"order_id"`
	CustomerID         string          `json:"customer_id"`
	CustomerName       string          `json:"customer_name"`
	Items              []LineItem      `json:"items"`
	TotalPrice         decimal.Decimal `json:"total_price"`
	Status             Status          `json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	EstimatedReadyTime *time.Time      `json:"estimated_ready_time,omitempty"`
	ConversationID     string          `json:"conversation_id,omitempty"`
	Metadata           map[string]any  `json:"metadata,omitempty"`
}

// Normalize applies the lenient-repair policy: every subtotal is recomputed
// as quantity x unit price and the total is overwritten with the sum, so a
// caller-supplied inconsistent total is corrected rather than rejected.
// A zero status defaults to Pending; zero timestamps default to now (UTC).
// Non-zero caller timestamps are preserved so that replays (e.g. a backend
// migration) keep their history.
func (o *Order) Normalize(now time.Time) {
	total := decimal.Zero
	for i := range o.Items {
		o.Items[i].Subtotal = o.Items[i].UnitPrice.Mul(decimal.NewFromInt(int64(o.Items[i].Quantity)))
		total = total.Add(o.Items[i].Subtotal)
	}
	o.TotalPrice = total

	if o.Status == "" {
		o.Status = StatusPending
	}
	now = now.UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	} else {
		o.CreatedAt = o.CreatedAt.UTC()
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = now
	} else {
		o.UpdatedAt = o.UpdatedAt.UTC()
	}
}

// Validate checks the creation invariants. It does not repair anything;
// call Normalize first.
func (o *Order) Validate() error {
	if o.OrderID == "" {
		return ErrEmptyOrderID
	}
	if o.CustomerID == "" {
		return ErrEmptyCustomerID
	}
	if len(o.Items) == 0 {
		return ErrEmptyItems
	}
	for i, item := range o.Items {
		if item.ItemName == "" {
			return fmt.Errorf("item %d: %w", i, ErrEmptyItemName)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("item %d (%s): %w", i, item.ItemName, ErrInvalidQuantity)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("item %d (%s): %w", i, item.ItemName, ErrNegativePrice)
		}
	}
	if !o.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrUndefinedStatus, o.Status)
	}
	return nil
}

// Summary renders the order as the fixed human-readable block consumed by
// the agent layer. The shape is load-bearing: a leading blank line, one
// "  - name xN @ $unit = $subtotal" line per item, money with exactly two
// fraction digits, no trailing newline.
func (o *Order) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nORDER #%s\n", o.OrderID)
	fmt.Fprintf(&b, "Customer: %s (ID: %s)\n", o.CustomerName, o.CustomerID)
	fmt.Fprintf(&b, "Status: %s\n", o.Status)
	fmt.Fprintf(&b, "Created: %s\n", o.CreatedAt.UTC().Format(time.RFC3339))
	b.WriteString("\nItems:\n")
	for _, item := range o.Items {
		fmt.Fprintf(&b, "  - %s x%d @ $%s = $%s\n",
			item.ItemName, item.Quantity,
			item.UnitPrice.StringFixed(2), item.Subtotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: $%s", o.TotalPrice.StringFixed(2))
	if o.EstimatedReadyTime != nil {
		fmt.Fprintf(&b, "\nEstimated Ready: %s", o.EstimatedReadyTime.UTC().Format(time.RFC3339))
	}
	return b.String()
}
