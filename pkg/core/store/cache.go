package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// SnapshotCache persists store snapshots between runs
type SnapshotCache interface {
	// Load decodes the snapshot saved for collection into dest. It reports
	// false when nothing has been saved yet.
	Load(collection string, dest any) (bool, error)
	Save(collection string, items any) error
}

// FileCache stores one JSON file per collection in a directory
type FileCache struct {
	dir string
	mu  sync.Mutex
}

func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &FileCache{dir: dir}, nil
}

func (c *FileCache) path(collection string) string {
	return filepath.Join(c.dir, collection+".json")
}

func (c *FileCache) Load(collection string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path(collection))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read snapshot %s: %w", collection, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode snapshot %s: %w", collection, err)
	}
	return true, nil
}

// Save writes the snapshot through a temporary file so a crash never leaves
// a truncated snapshot behind
func (c *FileCache) Save(collection string, items any) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", collection, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tmp, err := os.CreateTemp(c.dir, collection+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create snapshot %s: %w", collection, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write snapshot %s: %w", collection, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write snapshot %s: %w", collection, err)
	}
	if err := os.Rename(tmp.Name(), c.path(collection)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save snapshot %s: %w", collection, err)
	}
	return nil
}
