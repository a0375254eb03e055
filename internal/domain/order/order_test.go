package order

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testOrder() *Order {
	return &Order{
		OrderID:      "ORD-001",
		CustomerID:   "CUST-001",
		CustomerName: "Alice Johnson",
		Items: []LineItem{
			{ItemName: "Coffee", Quantity: 2, UnitPrice: dec("3.50")},
			{ItemName: "Sandwich", Quantity: 1, UnitPrice: dec("8.99")},
		},
	}
}

func TestNormalize_RecomputesSubtotalsAndTotal(t *testing.T) {
	o := testOrder()
	// Caller-supplied values that conflict with quantity x unit price are
	// corrected, not rejected.
	o.Items[0].Subtotal = dec("99.99")
	o.TotalPrice = dec("1.00")

	o.Normalize(time.Now())

	assert.True(t, o.Items[0].Subtotal.Equal(dec("7.00")), "got %s", o.Items[0].Subtotal)
	assert.True(t, o.Items[1].Subtotal.Equal(dec("8.99")))
	assert.True(t, o.TotalPrice.Equal(dec("15.99")), "got %s", o.TotalPrice)
}

func TestNormalize_Defaults(t *testing.T) {
	now := time.Date(2024, 11, 22, 15, 0, 0, 0, time.UTC)
	o := testOrder()
	o.Normalize(now)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, now, o.CreatedAt)
	assert.Equal(t, now, o.UpdatedAt)
}

func TestNormalize_PreservesCallerTimestamps(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	o := testOrder()
	o.CreatedAt = created
	o.Status = StatusReady

	o.Normalize(time.Now())

	assert.Equal(t, created, o.CreatedAt)
	assert.Equal(t, StatusReady, o.Status)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Order)
		wantErr error
	}{
		{"valid", func(o *Order) {}, nil},
		{"empty order id", func(o *Order) { o.OrderID = "" }, ErrEmptyOrderID},
		{"empty customer id", func(o *Order) { o.CustomerID = "" }, ErrEmptyCustomerID},
		{"no items", func(o *Order) { o.Items = nil }, ErrEmptyItems},
		{"empty item name", func(o *Order) { o.Items[0].ItemName = "" }, ErrEmptyItemName},
		{"zero quantity", func(o *Order) { o.Items[1].Quantity = 0 }, ErrInvalidQuantity},
		{"negative quantity", func(o *Order) { o.Items[0].Quantity = -1 }, ErrInvalidQuantity},
		{"negative price", func(o *Order) { o.Items[0].UnitPrice = dec("-0.01") }, ErrNegativePrice},
		{"undefined status", func(o *Order) { o.Status = "Shipped" }, ErrUndefinedStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := testOrder()
			o.Normalize(time.Now())
			tt.mutate(o)

			err := o.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ZeroUnitPriceAllowed(t *testing.T) {
	o := testOrder()
	o.Items[0].UnitPrice = decimal.Zero
	o.Normalize(time.Now())

	require.NoError(t, o.Validate())
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range AllStatuses {
		assert.True(t, s.Valid(), "%s", s)
	}
	assert.False(t, Status("").Valid())
	assert.False(t, Status("Shipped").Valid())
}

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusReady.Terminal())
}

func TestSummary_ExactShape(t *testing.T) {
	ready := time.Date(2024, 11, 22, 15, 30, 0, 0, time.UTC)
	o := testOrder()
	o.CreatedAt = time.Date(2024, 11, 22, 15, 0, 0, 0, time.UTC)
	o.EstimatedReadyTime = &ready
	o.Normalize(time.Now())

	want := "\nORDER #ORD-001\n" +
		"Customer: Alice Johnson (ID: CUST-001)\n" +
		"Status: Pending\n" +
		"Created: 2024-11-22T15:00:00Z\n" +
		"\nItems:\n" +
		"  - Coffee x2 @ $3.50 = $7.00\n" +
		"  - Sandwich x1 @ $8.99 = $8.99\n" +
		"\nTotal: $15.99\n" +
		"Estimated Ready: 2024-11-22T15:30:00Z"

	assert.Equal(t, want, o.Summary())
}

func TestSummary_NoReadyTime(t *testing.T) {
	o := testOrder()
	o.CreatedAt = time.Date(2024, 11, 22, 15, 0, 0, 0, time.UTC)
	o.Normalize(time.Now())

	summary := o.Summary()
	assert.NotContains(t, summary, "Estimated Ready")
	assert.Contains(t, summary, "Total: $15.99")
}
