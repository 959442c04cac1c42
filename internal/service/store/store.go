package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ifuryst/postmigrate/internal/config"
	"github.com/ifuryst/postmigrate/internal/models"
)

// Writer is the destination document store as seen by the loader. Put returns
// the destination's identifier for the new document.
type Writer interface {
	Put(ctx context.Context, collection string, post models.MigratedPost) (string, error)
	Close() error
}

// NewWriter creates a writer for the configured store type
func NewWriter(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (Writer, error) {
	logger.Info("Connecting to destination store", zap.String("type", cfg.Type))

	switch cfg.Type {
	case "mongodb":
		return NewMongoDBWriter(ctx, cfg.MongoDB)
	case "dynamodb":
		return NewDynamoDBWriter(cfg.DynamoDB, logger)
	case "postgres", "postgresql":
		return NewPostgresWriter(cfg.Postgres, logger)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}
