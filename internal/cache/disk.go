package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// DiskStore persists entries as one JSON file per key, grouped by tool,
// so results survive between runs
type DiskStore struct {
	dir        string
	defaultTTL time.Duration
	now        func() time.Time
}

// NewDiskStore creates a disk store rooted at dir
func NewDiskStore(dir string, ttl time.Duration) *DiskStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DiskStore{dir: dir, defaultTTL: ttl, now: time.Now}
}

// Lookup reads the entry for (tool, input). Expired or unreadable files miss.
func (d *DiskStore) Lookup(tool, input string) (Entry, bool) {
	path := d.path(tool, input)
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, false
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, false
	}
	if e.Tool != tool || normalize(e.Input) != normalize(input) {
		return Entry{}, false
	}
	if !d.now().Before(e.ExpiresAt) {
		_ = os.Remove(path)
		return Entry{}, false
	}
	return e, true
}

// Save writes e to disk
func (d *DiskStore) Save(e Entry, ttl time.Duration) error {
	if ttl == 0 {
		ttl = d.defaultTTL
	}
	if e.StoredAt.IsZero() {
		e.StoredAt = d.now()
	}
	e.ExpiresAt = e.StoredAt.Add(ttl)

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	path := d.path(e.Tool, e.Input)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	// Write through a temp file so concurrent readers never see a partial entry
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit cache file: %w", err)
	}
	return nil
}

// Forget removes the entry for (tool, input)
func (d *DiskStore) Forget(tool, input string) error {
	if err := os.Remove(d.path(tool, input)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Purge removes the whole cache directory
func (d *DiskStore) Purge() error {
	return os.RemoveAll(d.dir)
}

// Prune deletes expired entries and returns how many were removed
func (d *DiskStore) Prune() (int, error) {
	removed := 0
	now := d.now()
	err := filepath.WalkDir(d.dir, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if de.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		var e Entry
		if json.Unmarshal(data, &e) != nil || !now.Before(e.ExpiresAt) {
			if os.Remove(path) == nil {
				removed++
			}
		}
		return nil
	})
	return removed, err
}

func (d *DiskStore) path(tool, input string) string {
	key := Key(tool, input)
	return filepath.Join(d.dir, filepath.Base(tool), key[len(tool)+1:]+".json")
}
