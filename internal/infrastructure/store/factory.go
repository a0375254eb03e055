package store

import (
	"context"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Backend names accepted by the selector. Anything else fails at
// construction time, never lazily at first use.
const (
	BackendEmbedded    = "embedded"
	BackendDistributed = "distributed"
)

// Config selects and parameterizes the backend driver.
type Config struct {
	// Backend is "embedded" or "distributed".
	Backend string
	// SQLitePath is the database file for the embedded backend.
	SQLitePath string
	// DynamoTable and DynamoRegion parameterize the distributed backend.
	DynamoTable  string
	DynamoRegion string
}

// New constructs the driver named by cfg. Callers receive only the contract;
// no concrete driver type leaks out.
func New(ctx context.Context, cfg Config) (OrderStore, error) {
	switch cfg.Backend {
	case BackendEmbedded:
		path := cfg.SQLitePath
		if path == "" {
			path = "orders.db"
		}
		return OpenSQLite(path)

	case BackendDistributed:
		table := cfg.DynamoTable
		if table == "" {
			table = "orders"
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.DynamoRegion))
		if err != nil {
			return nil, fmt.Errorf("%w: load aws config: %v", ErrUnavailable, err)
		}
		return NewDynamoOrderStore(dynamodb.NewFromConfig(awsCfg), table), nil

	default:
		return nil, fmt.Errorf("unsupported order backend %q (want %q or %q)",
			cfg.Backend, BackendEmbedded, BackendDistributed)
	}
}

// FromEnv builds the driver from environment configuration:
// ORDER_BACKEND (default "embedded"), ORDER_DB_PATH, ORDER_TABLE, AWS_REGION.
func FromEnv(ctx context.Context) (OrderStore, error) {
	return New(ctx, Config{
		Backend:      getEnv("ORDER_BACKEND", BackendEmbedded),
		SQLitePath:   os.Getenv("ORDER_DB_PATH"),
		DynamoTable:  os.Getenv("ORDER_TABLE"),
		DynamoRegion: getEnv("AWS_REGION", "us-east-1"),
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
