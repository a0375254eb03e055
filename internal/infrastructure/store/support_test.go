package store_test

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ortizcarlos/agentic-customer-support/internal/domain/order"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// makeOrder builds a valid single-item order with an explicit creation time,
// which the drivers preserve, so ordering tests control the timeline.
func makeOrder(orderID, customerID, customerName string, createdAt time.Time) *order.Order {
	return &order.Order{
		OrderID:      orderID,
		CustomerID:   customerID,
		CustomerName: customerName,
		Items: []order.LineItem{
			{ItemName: "Latte", Quantity: 2, UnitPrice: dec("4.25")},
		},
		CreatedAt: createdAt,
	}
}

func at(minute int) time.Time {
	return time.Date(2024, 11, 22, 15, minute, 0, 0, time.UTC)
}
