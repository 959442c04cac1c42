package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ifuryst/postmigrate/internal/config"
	"github.com/ifuryst/postmigrate/internal/models"
)

type MongoDBWriter struct {
	client   *mongo.Client
	database *mongo.Database
}

func NewMongoDBWriter(ctx context.Context, cfg config.MongoDBConfig) (*MongoDBWriter, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoDBWriter{
		client:   client,
		database: client.Database(cfg.Database),
	}, nil
}

// Put inserts a new document; the driver assigns the _id.
func (w *MongoDBWriter) Put(ctx context.Context, collection string, post models.MigratedPost) (string, error) {
	res, err := w.database.Collection(collection).InsertOne(ctx, post)
	if err != nil {
		return "", fmt.Errorf("failed to insert post %s: %w", post.ID, err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return fmt.Sprint(res.InsertedID), nil
}

func (w *MongoDBWriter) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return w.client.Disconnect(ctx)
}
