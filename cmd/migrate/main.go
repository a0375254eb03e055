// Command migrate copies every order from a source backend into a target
// backend, by default embedded -> distributed. The copy is not transactional
// across the two stores; per-order failures are reported and skipped.
//
// Set ORDER_EVENTS_BROKERS to publish an order.created event for every order
// landed in the target.
package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/ortizcarlos/agentic-customer-support/internal/events"
	"github.com/ortizcarlos/agentic-customer-support/internal/infrastructure/store"
	"github.com/ortizcarlos/agentic-customer-support/internal/migration"
)

func main() {
	// Optional .env for local runs; real deployments set the environment.
	_ = godotenv.Load()

	// os.Exit would skip deferred store closes, so main delegates to run.
	os.Exit(run(context.Background()))
}

func run(ctx context.Context) int {
	srcCfg := store.Config{
		Backend:      getEnv("MIGRATE_SOURCE_BACKEND", store.BackendEmbedded),
		SQLitePath:   os.Getenv("MIGRATE_SOURCE_DB_PATH"),
		DynamoTable:  os.Getenv("MIGRATE_SOURCE_TABLE"),
		DynamoRegion: getEnv("AWS_REGION", "us-east-1"),
	}
	dstCfg := store.Config{
		Backend:      getEnv("MIGRATE_TARGET_BACKEND", store.BackendDistributed),
		SQLitePath:   os.Getenv("MIGRATE_TARGET_DB_PATH"),
		DynamoTable:  os.Getenv("MIGRATE_TARGET_TABLE"),
		DynamoRegion: getEnv("AWS_REGION", "us-east-1"),
	}

	source, err := store.New(ctx, srcCfg)
	if err != nil {
		log.Printf("[Migrate] source backend: %v", err)
		return 1
	}
	defer source.Close()

	target, err := store.New(ctx, dstCfg)
	if err != nil {
		log.Printf("[Migrate] target backend: %v", err)
		return 1
	}
	target = events.FromEnv(target)
	defer target.Close()

	log.Printf("[Migrate] %s -> %s", srcCfg.Backend, dstCfg.Backend)

	report, err := migration.New(source, target).Run(ctx)
	if err != nil {
		log.Printf("[Migrate] %v", err)
		return 1
	}

	if report.Failed > 0 {
		return 1
	}
	return 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
