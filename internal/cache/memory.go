package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Memory is a process-local cache bounded by entry count. When full, the
// least recently used entry is evicted; each entry also expires after the
// TTL it was set with.
type Memory struct {
	mu      sync.Mutex
	now     func() time.Time
	entries *simplelru.LRU[string, memoryEntry]
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemory builds a cache holding at most maxEntries values.
func NewMemory(maxEntries int, now func() time.Time) *Memory {
	if maxEntries <= 0 {
		maxEntries = 512
	}
	if now == nil {
		now = time.Now
	}
	entries, err := simplelru.NewLRU[string, memoryEntry](maxEntries, nil)
	if err != nil {
		panic(err) // only for a non-positive size
	}
	return &Memory{now: now, entries: entries}
}

func (c *Memory) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	entry, ok := c.entries.Get(key)
	if ok && c.now().After(entry.expiresAt) {
		c.entries.Remove(key)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(entry.data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeExpiredLocked()
	c.entries.Add(key, memoryEntry{data: data, expiresAt: c.now().Add(ttl)})
	return nil
}

func (c *Memory) Clear(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prefix == "" {
		c.entries.Purge()
		return nil
	}
	for _, key := range c.entries.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.entries.Remove(key)
		}
	}
	return nil
}

// Len reports the number of entries held, expired ones included until
// they are next touched.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

func (c *Memory) removeExpiredLocked() {
	now := c.now()
	for _, key := range c.entries.Keys() {
		if entry, ok := c.entries.Peek(key); ok && now.After(entry.expiresAt) {
			c.entries.Remove(key)
		}
	}
}
