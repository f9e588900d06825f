package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
)

func TestKey(t *testing.T) {
	a := Key("wikipedia_search", "Singapore population")
	b := Key("wikipedia_search", "  Singapore   population ")
	c := Key("wikipedia_summary", "Singapore population")

	if a != b {
		t.Errorf("expected whitespace-insensitive keys, got %s and %s", a, b)
	}
	if a == c {
		t.Error("expected different keys for different tools")
	}
	if !strings.HasPrefix(a, "wikipedia_search:") {
		t.Errorf("unexpected key format: %s", a)
	}
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore(time.Minute)

	if _, ok := m.Lookup("web_page", "https://example.com"); ok {
		t.Fatal("expected miss on empty store")
	}
	stored := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = m.Save(Entry{Tool: "web_page", Input: "https://example.com", Output: "hello", StoredAt: stored}, 0)

	e, ok := m.Lookup("web_page", "https://example.com")
	if !ok || e.Output != "hello" {
		t.Fatalf("expected hit, got %+v %v", e, ok)
	}
	if !e.ExpiresAt.Equal(stored.Add(time.Minute)) {
		t.Errorf("ExpiresAt = %v, want default ttl after StoredAt", e.ExpiresAt)
	}

	_ = m.Forget("web_page", "https://example.com")
	if _, ok := m.Lookup("web_page", "https://example.com"); ok {
		t.Error("expected miss after Forget")
	}

	_ = m.Save(Entry{Tool: "web_page", Input: "x", Output: "y"}, -time.Second)
	if m.Len() != 0 {
		t.Error("negative ttl must not store")
	}
}

func TestDiskStore_Expiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDiskStore(t.TempDir(), time.Hour)
	d.now = func() time.Time { return now }

	if err := d.Save(Entry{Tool: "news_search", Input: "acme", Output: "fresh"}, 0); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if e, ok := d.Lookup("news_search", "acme"); !ok || e.Output != "fresh" {
		t.Fatalf("expected fresh hit, got %+v %v", e, ok)
	}

	now = now.Add(2 * time.Hour)
	if _, ok := d.Lookup("news_search", "acme"); ok {
		t.Error("expected expired entry to miss")
	}
	if err := d.Forget("news_search", "acme"); err != nil {
		t.Errorf("forgetting a removed entry should not fail: %v", err)
	}
}

func TestDiskStore_LayoutAndPrune(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDiskStore(dir, time.Hour)
	d.now = func() time.Time { return now }

	_ = d.Save(Entry{Tool: "web_page", Input: "a", Output: "1"}, time.Minute)
	_ = d.Save(Entry{Tool: "web_page", Input: "b", Output: "2"}, 3*time.Hour)
	_ = d.Save(Entry{Tool: "rag_query", Input: "c", Output: "3"}, time.Minute)

	files, _ := filepath.Glob(filepath.Join(dir, "web_page", "*.json"))
	if len(files) != 2 {
		t.Errorf("expected 2 web_page files, got %d", len(files))
	}

	now = now.Add(time.Hour)
	removed, err := d.Prune()
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if _, ok := d.Lookup("web_page", "b"); !ok {
		t.Error("unexpired entry was pruned")
	}
}

func TestLayeredStore_PromotesFromDisk(t *testing.T) {
	dir := t.TempDir()
	disk := NewDiskStore(dir, time.Hour)
	if err := disk.Save(Entry{Tool: "wikipedia_summary", Input: "Laksa", Output: "from-disk"}, 0); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	layered := NewLayeredStore(NewMemoryStore(time.Minute), NewDiskStore(dir, time.Hour))
	if e, ok := layered.Lookup("wikipedia_summary", "Laksa"); !ok || e.Output != "from-disk" {
		t.Fatalf("expected disk hit, got %+v %v", e, ok)
	}

	// Remove the disk files: the value must now come from memory
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if e, ok := layered.Lookup("wikipedia_summary", "Laksa"); !ok || e.Output != "from-disk" {
		t.Errorf("expected promoted memory hit, got %+v %v", e, ok)
	}

	if err := layered.Forget("wikipedia_summary", "missing"); err != nil {
		t.Errorf("forgetting a missing key should not fail: %v", err)
	}
}

func TestNew(t *testing.T) {
	if _, ok := New(model.CacheConfig{MemoryTTL: time.Minute}).(*MemoryStore); !ok {
		t.Error("expected memory-only store when dir is empty")
	}
	if _, ok := New(model.CacheConfig{Dir: t.TempDir(), MemoryTTL: time.Minute, DiskTTL: time.Hour}).(*LayeredStore); !ok {
		t.Error("expected layered store when dir is set")
	}
}
