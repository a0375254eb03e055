package events

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ortizcarlos/agentic-customer-support/internal/domain/order"
	"github.com/ortizcarlos/agentic-customer-support/internal/infrastructure/store"
)

// Envelope is the wire shape of one order change event.
type Envelope struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	OrderID   string       `json:"order_id,omitempty"`
	Status    order.Status `json:"status,omitempty"`
	ReadyAt   *time.Time   `json:"ready_at,omitempty"`
	Count     int          `json:"count,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// PublishingStore wraps an OrderStore and emits a change event after every
// successful mutation. Publish failures are logged and dropped: the storage
// operation already succeeded, and event delivery is best effort by design.
// Reads pass through untouched.
type PublishingStore struct {
	store.OrderStore
	publisher Publisher
}

func NewPublishingStore(inner store.OrderStore, publisher Publisher) *PublishingStore {
	return &PublishingStore{OrderStore: inner, publisher: publisher}
}

func (p *PublishingStore) CreateOrder(ctx context.Context, o *order.Order) error {
	if err := p.OrderStore.CreateOrder(ctx, o); err != nil {
		return err
	}
	p.publish(ctx, o.OrderID, Envelope{
		EventType: EventOrderCreated,
		OrderID:   o.OrderID,
		Status:    o.Status,
	})
	return nil
}

func (p *PublishingStore) UpdateOrderStatus(ctx context.Context, orderID string, status order.Status) error {
	if err := p.OrderStore.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return err
	}
	p.publish(ctx, orderID, Envelope{
		EventType: EventOrderStatusChanged,
		OrderID:   orderID,
		Status:    status,
	})
	return nil
}

func (p *PublishingStore) UpdateOrderReadyTime(ctx context.Context, orderID string, readyAt time.Time) error {
	if err := p.OrderStore.UpdateOrderReadyTime(ctx, orderID, readyAt); err != nil {
		return err
	}
	utc := readyAt.UTC()
	p.publish(ctx, orderID, Envelope{
		EventType: EventOrderReadyTimeSet,
		OrderID:   orderID,
		ReadyAt:   &utc,
	})
	return nil
}

func (p *PublishingStore) DeleteOrder(ctx context.Context, orderID string) error {
	if err := p.OrderStore.DeleteOrder(ctx, orderID); err != nil {
		return err
	}
	p.publish(ctx, orderID, Envelope{
		EventType: EventOrderDeleted,
		OrderID:   orderID,
	})
	return nil
}

func (p *PublishingStore) ClearAllOrders(ctx context.Context) (int, error) {
	count, err := p.OrderStore.ClearAllOrders(ctx)
	if err != nil {
		return count, err
	}
	p.publish(ctx, "", Envelope{
		EventType: EventOrdersCleared,
		Count:     count,
	})
	return count, nil
}

// Close releases the inner store and the publisher.
func (p *PublishingStore) Close() error {
	err := p.OrderStore.Close()
	if cerr := p.publisher.Close(); err == nil {
		err = cerr
	}
	return err
}

func (p *PublishingStore) publish(ctx context.Context, key string, env Envelope) {
	env.EventID = uuid.New().String()
	env.Timestamp = time.Now().UTC()
	if err := p.publisher.Publish(ctx, key, env); err != nil {
		log.Printf("[Events] publish %s for order %q: %v", env.EventType, key, err)
	}
}
