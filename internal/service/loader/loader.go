package loader

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ifuryst/postmigrate/internal/models"
	"github.com/ifuryst/postmigrate/internal/service"
	"github.com/ifuryst/postmigrate/pkg/util"
)

// Destination is the write side of the destination store.
type Destination interface {
	Put(ctx context.Context, collection string, post models.MigratedPost) (string, error)
}

type Config struct {
	Collection string
	// FailureThreshold is how many failures are tolerated while nothing has
	// succeeded yet. One more trips the circuit breaker.
	FailureThreshold int
	TitleWidth       int
}

type Loader struct {
	config Config
	dest   Destination
	pacer  Pacer
	logger *zap.Logger
	now    func() time.Time
}

func NewLoader(config Config, dest Destination, pacer Pacer, logger *zap.Logger) *Loader {
	if config.Collection == "" {
		config.Collection = "posts"
	}
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.TitleWidth <= 0 {
		config.TitleWidth = 50
	}
	if pacer == nil {
		pacer = NoDelay{}
	}

	return &Loader{
		config: config,
		dest:   dest,
		pacer:  pacer,
		logger: logger,
		now:    time.Now,
	}
}

// Load writes posts one at a time in order. A failed write is recorded and
// skipped. When more than FailureThreshold writes have failed and none has
// succeeded, the rest of the batch is abandoned and a SystemicFailureError is
// returned together with the partial result.
func (l *Loader) Load(ctx context.Context, posts []models.CanonicalPost) (*models.LoadResult, error) {
	result := &models.LoadResult{
		Total:    len(posts),
		Failures: []models.RecordFailure{},
	}

	l.logger.Info("Starting batch load",
		zap.String("collection", l.config.Collection),
		zap.Int("total", len(posts)))

	for i, post := range posts {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("load interrupted after %d records: %w", result.Attempted(), err)
		}

		position := i + 1
		title := util.Truncate(post.Title, l.config.TitleWidth)

		migrated := models.MigratedPost{
			CanonicalPost: post,
			MigratedAt:    l.now().UTC(),
		}

		handle, err := l.dest.Put(ctx, l.config.Collection, migrated)
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, models.RecordFailure{Post: post, Reason: err.Error()})

			l.logger.Error("Failed to migrate post",
				zap.Int("position", position),
				zap.String("title", title),
				zap.Error(err))

			if result.Failed > l.config.FailureThreshold && result.Succeeded == 0 {
				result.Aborted = true
				l.logger.Error("Too many failures without a single success, aborting batch",
					zap.Int("failed", result.Failed),
					zap.Int("remaining", len(posts)-position))
				return result, service.SystemicFailureError{
					Failures:  result.Failed,
					Attempted: result.Attempted(),
					LastErr:   err,
				}
			}
			continue
		}

		result.Succeeded++
		l.logger.Info("Migrated post",
			zap.Int("position", position),
			zap.Int("total", len(posts)),
			zap.String("title", title),
			zap.String("handle", handle))

		if position < len(posts) {
			if err := l.pacer.Wait(ctx); err != nil {
				return result, fmt.Errorf("load interrupted after %d records: %w", result.Attempted(), err)
			}
		}
	}

	l.logger.Info("Batch load completed",
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Int("total", result.Total),
		zap.Float64("success_rate", result.SuccessRate()))

	return result, nil
}
