// Package storageutils builds a storage.Driver from configuration.
package storageutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/parley/pkg/storage"
	"github.com/papercomputeco/parley/pkg/storage/bolt"
	"github.com/papercomputeco/parley/pkg/storage/dynamodb"
	"github.com/papercomputeco/parley/pkg/storage/inmemory"
	"github.com/papercomputeco/parley/pkg/storage/postgres"
	"github.com/papercomputeco/parley/pkg/storage/sqlite"
)

type NewDriverOpts struct {
	ProviderType string

	SQLitePath  string
	PostgresDSN string
	BoltPath    string

	DynamoDBTable    string
	DynamoDBRegion   string
	DynamoDBEndpoint string
}

func NewDriver(ctx context.Context, o *NewDriverOpts, logger *slog.Logger) (storage.Driver, error) {
	switch o.ProviderType {
	case "", "inmemory", "memory":
		logger.Info("using in-memory storage")
		return inmemory.NewDriver(), nil

	case "sqlite":
		driver, err := sqlite.NewDriver(ctx, o.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite driver: %w", err)
		}
		logger.Info("using SQLite storage", "path", o.SQLitePath)
		return driver, nil

	case "postgres":
		driver, err := postgres.NewDriver(ctx, o.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL driver: %w", err)
		}
		logger.Info("using PostgreSQL storage")
		return driver, nil

	case "dynamodb":
		driver, err := dynamodb.NewDriver(ctx, dynamodb.Config{
			Table:    o.DynamoDBTable,
			Region:   o.DynamoDBRegion,
			Endpoint: o.DynamoDBEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create DynamoDB driver: %w", err)
		}
		logger.Info("using DynamoDB storage", "table", o.DynamoDBTable)
		return driver, nil

	case "bolt":
		driver, err := bolt.NewDriver(o.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create bolt driver: %w", err)
		}
		logger.Info("using bolt storage", "path", o.BoltPath)
		return driver, nil

	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", o.ProviderType)
	}
}
