// Package migration moves existing orders between backends, typically from
// the embedded store to the distributed one. The copy is not transactional
// across the two stores: each order is recorded as migrated or failed
// individually, and a failure never aborts the rest of the batch.
package migration

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/ortizcarlos/agentic-customer-support/internal/infrastructure/store"
)

// Result is the outcome for one order.
type Result struct {
	OrderID string
	Err     error
}

// Report summarizes one migration run.
type Report struct {
	RunID    string
	Migrated int
	Failed   int
	Results  []Result
}

// Migrator copies every order from Source into Target.
type Migrator struct {
	Source store.OrderStore
	Target store.OrderStore
}

func New(source, target store.OrderStore) *Migrator {
	return &Migrator{Source: source, Target: target}
}

// Run enumerates the source and creates each order in the target. Reading
// the source is the only fatal failure; per-order create failures (including
// an id that already exists in the target) are recorded and skipped.
func (m *Migrator) Run(ctx context.Context) (*Report, error) {
	orders, err := m.Source.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration: read source: %w", err)
	}

	report := &Report{RunID: uuid.New().String()}
	log.Printf("[Migration] run %s: migrating %d orders", report.RunID, len(orders))

	for i := range orders {
		o := orders[i]
		err := m.Target.CreateOrder(ctx, &o)
		report.Results = append(report.Results, Result{OrderID: o.OrderID, Err: err})
		if err != nil {
			report.Failed++
			log.Printf("[Migration] run %s: order %s failed: %v", report.RunID, o.OrderID, err)
			continue
		}
		report.Migrated++
	}

	log.Printf("[Migration] run %s: done, %d migrated, %d failed",
		report.RunID, report.Migrated, report.Failed)
	return report, nil
}
