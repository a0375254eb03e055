package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ortizcarlos/agentic-customer-support/internal/domain/order"
	"github.com/ortizcarlos/agentic-customer-support/internal/infrastructure/store"
	"github.com/ortizcarlos/agentic-customer-support/internal/infrastructure/store/mocks"
)

// TestBackendParity replays one operation script against every OrderStore
// implementation and asserts they observe the same world. A behavioral drift
// between the embedded and distributed drivers is a bug in whichever driver
// moved, so this is the regression net for both.
func TestBackendParity(t *testing.T) {
	backends := map[string]func(t *testing.T) store.OrderStore{
		"embedded": func(t *testing.T) store.OrderStore {
			st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "orders.db"))
			require.NoError(t, err)
			t.Cleanup(func() { st.Close() })
			return st
		},
		"distributed": func(t *testing.T) store.OrderStore {
			return store.NewDynamoOrderStore(newFakeDynamo(), "orders")
		},
		"mock": func(t *testing.T) store.OrderStore {
			return mocks.NewMockOrderStore()
		},
	}

	for name, build := range backends {
		t.Run(name, func(t *testing.T) {
			st := build(t)
			ctx := context.Background()

			require.NoError(t, st.CreateOrder(ctx, makeOrder("ORD-003", "CUST-001", "Alice Johnson", at(3))))
			require.NoError(t, st.CreateOrder(ctx, makeOrder("ORD-001", "CUST-001", "Alice Johnson", at(3))))
			require.NoError(t, st.CreateOrder(ctx, makeOrder("ORD-002", "CUST-002", "Bob Smith", at(5))))
			assert.ErrorIs(t, st.CreateOrder(ctx, makeOrder("ORD-001", "CUST-001", "Alice Johnson", at(9))), store.ErrAlreadyExists)

			require.NoError(t, st.UpdateOrderStatus(ctx, "ORD-002", order.StatusReady))
			assert.ErrorIs(t, st.UpdateOrderStatus(ctx, "ORD-404", order.StatusReady), store.ErrNotFound)
			assert.ErrorIs(t, st.UpdateOrderStatus(ctx, "ORD-002", "Shipped"), store.ErrInvalidOrder)

			alice, err := st.GetCustomerOrders(ctx, "Alice Johnson", store.QueryOptions{})
			require.NoError(t, err)
			assert.Equal(t, []string{"ORD-001", "ORD-003"}, orderIDs(alice))

			last, err := st.GetCustomerLastOrder(ctx, "CUST-002")
			require.NoError(t, err)
			assert.Equal(t, "ORD-002", last.OrderID)
			assert.Equal(t, order.StatusReady, last.Status)

			// ORD-001 and ORD-003 tie on created_at; ascending order id
			// decides the last order on every backend.
			last, err = st.GetCustomerLastOrder(ctx, "CUST-001")
			require.NoError(t, err)
			assert.Equal(t, "ORD-001", last.OrderID)

			ready, err := st.GetOrdersByStatus(ctx, order.StatusReady, 0)
			require.NoError(t, err)
			assert.Equal(t, []string{"ORD-002"}, orderIDs(ready))

			require.NoError(t, st.DeleteOrder(ctx, "ORD-003"))
			all, err := st.ListOrders(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"ORD-002", "ORD-001"}, orderIDs(all))

			count, err := st.ClearAllOrders(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, count)
		})
	}
}
