// Package mocks provides an in-memory OrderStore for unit tests. It follows
// the contract semantics exactly (lenient repair, newest-first ordering,
// sentinel errors), so components layered on the contract can be tested
// without a real backend.
package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ortizcarlos/agentic-customer-support/internal/domain/order"
	"github.com/ortizcarlos/agentic-customer-support/internal/infrastructure/store"
)

// MockOrderStore is safe for concurrent use. FailWith, when set, is returned
// by every operation, which lets tests exercise backend-failure paths.
type MockOrderStore struct {
	mu     sync.RWMutex
	orders map[string]order.Order

	FailWith error

	// CreateCalls records the order ids passed to CreateOrder, in order.
	CreateCalls []string
	// DeleteCalls records the order ids passed to DeleteOrder, in order.
	DeleteCalls []string
}

func NewMockOrderStore() *MockOrderStore {
	return &MockOrderStore{orders: make(map[string]order.Order)}
}

// Reset drops all state, recorded calls included.
func (m *MockOrderStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = make(map[string]order.Order)
	m.CreateCalls = nil
	m.DeleteCalls = nil
	m.FailWith = nil
}

func (m *MockOrderStore) Close() error { return nil }

func (m *MockOrderStore) CreateOrder(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls = append(m.CreateCalls, o.OrderID)
	if m.FailWith != nil {
		return m.FailWith
	}

	o.Normalize(time.Now())
	if err := o.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidOrder, err)
	}
	if _, ok := m.orders[o.OrderID]; ok {
		return store.ErrAlreadyExists
	}
	m.orders[o.OrderID] = cloneOrder(*o)
	return nil
}

func (m *MockOrderStore) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	o, ok := m.orders[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := cloneOrder(o)
	return &c, nil
}

func (m *MockOrderStore) GetCustomerOrders(ctx context.Context, customerName string, opts store.QueryOptions) ([]order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	var hits []order.Order
	for _, o := range m.orders {
		if o.CustomerName != customerName {
			continue
		}
		if opts.Status != "" && o.Status != opts.Status {
			continue
		}
		hits = append(hits, cloneOrder(o))
	}
	sortNewestFirst(hits)
	if opts.Limit > 0 && len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}
	return hits, nil
}

func (m *MockOrderStore) GetCustomerLastOrder(ctx context.Context, customerID string) (*order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	var hits []order.Order
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			hits = append(hits, cloneOrder(o))
		}
	}
	if len(hits) == 0 {
		return nil, store.ErrNotFound
	}
	sortNewestFirst(hits)
	return &hits[0], nil
}

func (m *MockOrderStore) UpdateOrderStatus(ctx context.Context, orderID string, status order.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	if !status.Valid() {
		return fmt.Errorf("%w: %w: %q", store.ErrInvalidOrder, order.ErrUndefinedStatus, status)
	}

	o, ok := m.orders[orderID]
	if !ok {
		return store.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	m.orders[orderID] = o
	return nil
}

func (m *MockOrderStore) UpdateOrderReadyTime(ctx context.Context, orderID string, readyAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}

	o, ok := m.orders[orderID]
	if !ok {
		return store.ErrNotFound
	}
	t := readyAt.UTC()
	o.EstimatedReadyTime = &t
	o.UpdatedAt = time.Now().UTC()
	m.orders[orderID] = o
	return nil
}

func (m *MockOrderStore) GetOrdersByStatus(ctx context.Context, status order.Status, limit int) ([]order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	var hits []order.Order
	for _, o := range m.orders {
		if o.Status == status {
			hits = append(hits, cloneOrder(o))
		}
	}
	sortNewestFirst(hits)
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (m *MockOrderStore) DeleteOrder(ctx context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls = append(m.DeleteCalls, orderID)
	if m.FailWith != nil {
		return m.FailWith
	}

	if _, ok := m.orders[orderID]; !ok {
		return store.ErrNotFound
	}
	delete(m.orders, orderID)
	return nil
}

func (m *MockOrderStore) ClearAllOrders(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return 0, m.FailWith
	}

	count := len(m.orders)
	m.orders = make(map[string]order.Order)
	return count, nil
}

func (m *MockOrderStore) ListOrders(ctx context.Context) ([]order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	orders := make([]order.Order, 0, len(m.orders))
	for _, o := range m.orders {
		orders = append(orders, cloneOrder(o))
	}
	sortNewestFirst(orders)
	return orders, nil
}

func (m *MockOrderStore) FormatOrderSummary(ctx context.Context, orderID string) (string, error) {
	o, err := m.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	return o.Summary(), nil
}

func sortNewestFirst(orders []order.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].OrderID < orders[j].OrderID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

func cloneOrder(o order.Order) order.Order {
	c := o
	c.Items = append([]order.LineItem(nil), o.Items...)
	if o.EstimatedReadyTime != nil {
		t := *o.EstimatedReadyTime
		c.EstimatedReadyTime = &t
	}
	if o.Metadata != nil {
		c.Metadata = make(map[string]any, len(o.Metadata))
		for k, v := range o.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}
