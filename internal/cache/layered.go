package cache

import (
	"fmt"
	"time"
)

// LayeredStore reads memory first, then disk. Disk hits are promoted to
// memory for the rest of their lifetime.
type LayeredStore struct {
	memory *MemoryStore
	disk   *DiskStore
}

// NewLayeredStore combines a memory and a disk store
func NewLayeredStore(memory *MemoryStore, disk *DiskStore) *LayeredStore {
	return &LayeredStore{memory: memory, disk: disk}
}

// Lookup checks memory, then disk
func (l *LayeredStore) Lookup(tool, input string) (Entry, bool) {
	if e, ok := l.memory.Lookup(tool, input); ok {
		return e, true
	}

	e, ok := l.disk.Lookup(tool, input)
	if !ok {
		return Entry{}, false
	}
	if remaining := e.ExpiresAt.Sub(l.disk.now()); remaining > 0 {
		if remaining > l.memory.defaultTTL {
			remaining = l.memory.defaultTTL
		}
		promoted := e
		promoted.StoredAt = l.disk.now()
		_ = l.memory.Save(promoted, remaining)
	}
	return e, true
}

// Save writes to both layers
func (l *LayeredStore) Save(e Entry, ttl time.Duration) error {
	memTTL := ttl
	if memTTL == 0 || memTTL > l.memory.defaultTTL {
		memTTL = l.memory.defaultTTL
	}
	if err := l.memory.Save(e, memTTL); err != nil {
		return err
	}
	if err := l.disk.Save(e, ttl); err != nil {
		return fmt.Errorf("disk layer: %w", err)
	}
	return nil
}

// Forget removes the entry from both layers
func (l *LayeredStore) Forget(tool, input string) error {
	_ = l.memory.Forget(tool, input)
	return l.disk.Forget(tool, input)
}

// Purge empties both layers
func (l *LayeredStore) Purge() error {
	_ = l.memory.Purge()
	return l.disk.Purge()
}

// Prune removes expired entries from disk
func (l *LayeredStore) Prune() (int, error) {
	return l.disk.Prune()
}
