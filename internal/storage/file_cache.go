package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"

	"ai-collection/server/internal/models"
)

// FileCache keeps the record list as a JSON file named after the cache key
type FileCache struct {
	directory string
	key       string
	mu        sync.Mutex
}

// NewFileCache creates a file-backed local cache
func NewFileCache(directory, key string) *FileCache {
	return &FileCache{
		directory: directory,
		key:       key,
	}
}

func (c *FileCache) path() string {
	return filepath.Join(c.directory, c.key+".json")
}

// Load returns the cached records. A corrupted file is removed and
// treated as absent.
func (c *FileCache) Load(ctx context.Context) []models.Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.WithError(err).Warnf("failed to read local cache %s", c.path())
		}
		return nil
	}

	var records []models.Record
	if err := json.Unmarshal(data, &records); err != nil {
		log.WithError(err).Warnf("discarding corrupted local cache %s", c.path())
		_ = os.Remove(c.path())
		return nil
	}
	return records
}

// Save replaces the cached records
func (c *FileCache) Save(ctx context.Context, records []models.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if records == nil {
		records = []models.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	if err := os.MkdirAll(c.directory, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	// Write then rename so readers never see a partial file
	tmp, err := os.CreateTemp(c.directory, c.key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write local cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write local cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path()); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace local cache: %w", err)
	}
	return nil
}
