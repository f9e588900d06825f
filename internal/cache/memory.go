package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps entries in process memory with per-entry expiry
type MemoryStore struct {
	entries    *gocache.Cache
	defaultTTL time.Duration
	now        func() time.Time
}

// NewMemoryStore creates a memory store. Expired entries are swept every ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MemoryStore{
		entries:    gocache.New(ttl, ttl),
		defaultTTL: ttl,
		now:        time.Now,
	}
}

// Lookup returns the cached entry for (tool, input)
func (m *MemoryStore) Lookup(tool, input string) (Entry, bool) {
	val, found := m.entries.Get(Key(tool, input))
	if !found {
		return Entry{}, false
	}
	e, ok := val.(Entry)
	return e, ok
}

// Save stores e for ttl. A negative ttl stores nothing.
func (m *MemoryStore) Save(e Entry, ttl time.Duration) error {
	if ttl == 0 {
		ttl = m.defaultTTL
	}
	if ttl < 0 {
		return nil
	}
	if e.StoredAt.IsZero() {
		e.StoredAt = m.now()
	}
	e.ExpiresAt = e.StoredAt.Add(ttl)
	m.entries.Set(Key(e.Tool, e.Input), e, ttl)
	return nil
}

// Forget drops the entry for (tool, input)
func (m *MemoryStore) Forget(tool, input string) error {
	m.entries.Delete(Key(tool, input))
	return nil
}

// Purge drops every entry
func (m *MemoryStore) Purge() error {
	m.entries.Flush()
	return nil
}

// Len returns the number of live entries
func (m *MemoryStore) Len() int {
	return m.entries.ItemCount()
}
