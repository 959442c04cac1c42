package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ifuryst/postmigrate/internal/models"
	"github.com/ifuryst/postmigrate/internal/service"
)

// Save writes batch as indented JSON, creating parent directories. The file is
// written to a temporary sibling first so a crash never leaves half a batch.
func Save(path string, batch *models.MigrationBatch) error {
	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create artifact directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}

	return nil
}

// Load reads a batch written by Save. A missing file is a precondition error.
func Load(path string) (*models.MigrationBatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, service.PreconditionError{Resource: "migration artifact", Path: path}
		}
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	var batch models.MigrationBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("failed to unmarshal artifact: %w", err)
	}
	if batch.Posts == nil {
		batch.Posts = []models.CanonicalPost{}
	}
	batch.Count = len(batch.Posts)

	return &batch, nil
}
