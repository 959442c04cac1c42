package normalizer

import (
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ifuryst/postmigrate/internal/models"
	"github.com/ifuryst/postmigrate/internal/service/feed"
	"github.com/ifuryst/postmigrate/pkg/util"
)

// DroppedEntry records a legacy entry that could not be normalized.
type DroppedEntry struct {
	Position int    `json:"position"` // 1-based position in the feed
	Reason   string `json:"reason"`
}

// Result is the normalizer output. Posts keeps feed order; entries that
// failed are listed in Dropped and absent from Posts.
type Result struct {
	Posts   []models.CanonicalPost
	Dropped []DroppedEntry
}

type Normalizer struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewNormalizer(logger *zap.Logger) *Normalizer {
	return &Normalizer{
		logger: logger,
		now:    time.Now,
	}
}

// Normalize converts each entry into one CanonicalPost. A failing entry is
// logged and skipped; it never aborts the batch.
func (n *Normalizer) Normalize(entries []feed.Entry) *Result {
	n.logger.Info("Normalizing legacy entries", zap.Int("entries", len(entries)))

	result := &Result{Posts: make([]models.CanonicalPost, 0, len(entries))}
	runTime := n.now().UTC()

	for i, entry := range entries {
		position := i + 1

		post, err := n.normalizeEntry(position, entry, runTime)
		if err != nil {
			n.logger.Error("Failed to normalize entry, skipping",
				zap.Int("position", position),
				zap.Error(err))
			result.Dropped = append(result.Dropped, DroppedEntry{Position: position, Reason: err.Error()})
			continue
		}

		n.logger.Debug("Normalized entry",
			zap.Int("position", position),
			zap.String("title", post.Title),
			zap.String("slug", post.Slug))
		result.Posts = append(result.Posts, post)
	}

	n.warnDuplicateSlugs(result.Posts)

	n.logger.Info("Normalization completed",
		zap.Int("kept", len(result.Posts)),
		zap.Int("dropped", len(result.Dropped)))

	return result
}

func (n *Normalizer) normalizeEntry(position int, entry feed.Entry, runTime time.Time) (post models.CanonicalPost, err error) {
	// A malformed entry must not take the batch down with it
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while normalizing entry: %v", r)
		}
	}()

	if entry == nil {
		return post, fmt.Errorf("entry is empty")
	}

	title, err := extractTitle(entry, position)
	if err != nil {
		return post, err
	}
	content, err := extractContent(entry)
	if err != nil {
		return post, err
	}
	author, err := extractAuthor(entry)
	if err != nil {
		return post, err
	}
	categories, err := extractCategories(entry)
	if err != nil {
		return post, err
	}
	originalID, err := extractOptional(entry, originalKeys)
	if err != nil {
		return post, err
	}
	legacyFilename, err := extractOptional(entry, filenameKeys)
	if err != nil {
		return post, err
	}
	status, err := extractStatus(entry)
	if err != nil {
		return post, err
	}

	publishedAt, err := extractTime(entry, publishedKeys)
	if err != nil {
		return post, err
	}
	if publishedAt == nil {
		publishedAt = &runTime
	}
	createdAt, err := extractTime(entry, createdKeys)
	if err != nil {
		return post, err
	}
	if createdAt == nil {
		createdAt = publishedAt
	}
	updatedAt, err := extractTime(entry, updatedKeys)
	if err != nil {
		return post, err
	}
	if updatedAt == nil {
		updatedAt = publishedAt
	}

	return models.CanonicalPost{
		ID:             strconv.Itoa(position),
		Title:          title,
		Content:        content,
		Slug:           util.GenerateSlug(title),
		Author:         author,
		PublishedAt:    *publishedAt,
		CreatedAt:      *createdAt,
		UpdatedAt:      *updatedAt,
		Categories:     categories,
		OriginalID:     originalID,
		LegacyFilename: legacyFilename,
		Status:         status,
	}, nil
}

// warnDuplicateSlugs only reports collisions. Slugs are not rewritten.
func (n *Normalizer) warnDuplicateSlugs(posts []models.CanonicalPost) {
	seen := make(map[string]string, len(posts))
	for _, post := range posts {
		if first, ok := seen[post.Slug]; ok {
			n.logger.Warn("Duplicate slug",
				zap.String("slug", post.Slug),
				zap.String("first_id", first),
				zap.String("id", post.ID))
			continue
		}
		seen[post.Slug] = post.ID
	}
}
