package events

import (
	"os"
	"strings"

	"github.com/ortizcarlos/agentic-customer-support/internal/infrastructure/store"
)

// FromEnv wraps st with Kafka change publishing when ORDER_EVENTS_BROKERS is
// set (comma-separated broker addresses). ORDER_EVENTS_TOPIC names the topic,
// default "order-events". With no brokers configured the store is returned
// unwrapped and no events flow.
func FromEnv(st store.OrderStore) store.OrderStore {
	brokers := os.Getenv("ORDER_EVENTS_BROKERS")
	if brokers == "" {
		return st
	}
	topic := os.Getenv("ORDER_EVENTS_TOPIC")
	if topic == "" {
		topic = "order-events"
	}
	return NewPublishingStore(st, NewKafkaPublisher(strings.Split(brokers, ","), topic))
}
