// Package cache persists slow lookups between runs as a single JSON file.
// Card drop lists never change once a game ships them, so the exchange
// pages are worth remembering across cycles.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type entry struct {
	Data      json.RawMessage `json:"data"`
	FetchedAt time.Time       `json:"fetched_at"`
	TTL       time.Duration   `json:"ttl"`
}

// Cache is a file-backed key-value store with per-entry TTL. Every Put
// rewrites the backing file; the write volume here is a handful of entries
// per cycle.
type Cache struct {
	path    string
	mu      sync.Mutex
	entries map[string]entry
}

// Open loads the cache at path, starting empty if the file is missing.
// A corrupt file is discarded rather than surfaced: the cache is an
// optimization, never a source of truth.
func Open(path string) (*Cache, error) {
	c := &Cache{
		path:    path,
		entries: make(map[string]entry),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &c.entries); err != nil {
			c.entries = make(map[string]entry)
		}
	}
	return c, nil
}

// Get unmarshals the entry at key into target. The boolean reports whether
// a live entry was found; expired entries are dropped on sight.
func (c *Cache) Get(key string, target interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	if e.TTL > 0 && time.Since(e.FetchedAt) > e.TTL {
		delete(c.entries, key)
		return false, nil
	}

	if err := json.Unmarshal(e.Data, target); err != nil {
		return false, fmt.Errorf("unmarshal cache entry %q: %w", key, err)
	}
	return true, nil
}

// Put stores value under key for ttl. A ttl of zero never expires.
func (c *Cache) Put(key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{
		Data:      data,
		FetchedAt: time.Now(),
		TTL:       ttl,
	}
	return c.flushLocked()
}

// Remove deletes one entry.
func (c *Cache) Remove(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return c.flushLocked()
}

// Clear drops everything.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
	return c.flushLocked()
}

func (c *Cache) flushLocked() error {
	if dir := filepath.Dir(c.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	return os.WriteFile(c.path, data, 0644)
}

// CardNamesKey is the cache key for one game's card drop list.
func CardNamesKey(appID int64) string {
	return fmt.Sprintf("cardnames|%d", appID)
}
