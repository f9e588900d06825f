package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Entry is one successful tool result
type Entry struct {
	Tool      string    `json:"tool"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	StoredAt  time.Time `json:"stored_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store caches tool results keyed by tool name and normalized input.
// A ttl of 0 uses the store's default.
type Store interface {
	Lookup(tool, input string) (Entry, bool)
	Save(e Entry, ttl time.Duration) error
	Forget(tool, input string) error
	Purge() error
}

// Key identifies a (tool, input) pair. Inputs that differ only in
// whitespace share a key.
func Key(tool, input string) string {
	hash := sha256.Sum256([]byte(tool + "\x00" + normalize(input)))
	return tool + ":" + hex.EncodeToString(hash[:16])
}

func normalize(input string) string {
	return strings.Join(strings.Fields(input), " ")
}

// New builds the store described by cfg. An empty dir keeps results in memory only.
func New(cfg model.CacheConfig) Store {
	if cfg.Dir == "" {
		return NewMemoryStore(cfg.MemoryTTL)
	}
	return NewLayeredStore(NewMemoryStore(cfg.MemoryTTL), NewDiskStore(cfg.Dir, cfg.DiskTTL))
}
