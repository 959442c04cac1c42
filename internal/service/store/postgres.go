package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ifuryst/postmigrate/internal/config"
	"github.com/ifuryst/postmigrate/internal/models"
)

type PostgresWriter struct {
	db     *gorm.DB
	logger *zap.Logger

	mu       sync.Mutex
	migrated map[string]bool
}

func NewPostgresWriter(cfg config.PostgresConfig, log *zap.Logger) (*PostgresWriter, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
		cfg.Host, cfg.Username, cfg.Password, cfg.Database, cfg.Port, cfg.SSLMode, cfg.TimeZone)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &PostgresWriter{
		db:       db,
		logger:   log,
		migrated: make(map[string]bool),
	}, nil
}

// Put inserts one row into the table named after the collection.
func (w *PostgresWriter) Put(ctx context.Context, collection string, post models.MigratedPost) (string, error) {
	if err := w.ensureTable(collection); err != nil {
		return "", err
	}

	record := models.NewPostRecord(uuid.NewString(), post)
	if err := w.db.WithContext(ctx).Table(collection).Create(record).Error; err != nil {
		return "", fmt.Errorf("failed to insert post %s: %w", post.ID, err)
	}

	return record.DocumentID, nil
}

func (w *PostgresWriter) ensureTable(collection string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.migrated[collection] {
		return nil
	}

	if err := w.db.Table(collection).AutoMigrate(&models.PostRecord{}); err != nil {
		return fmt.Errorf("failed to migrate table %s: %w", collection, err)
	}

	w.logger.Info("Destination table ready", zap.String("table", collection))
	w.migrated[collection] = true
	return nil
}

func (w *PostgresWriter) Close() error {
	sqlDB, err := w.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
