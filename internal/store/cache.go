package store

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// Cache is a read-through cache in front of a Store. Entries live until the
// process exits or the key is written or deleted through the cache. Reads
// return a copy so callers never share a buffer.
//
// Every write or eviction bumps the key's generation. A miss only fills the
// cache when the generation is unchanged since the backend read started, so
// a slow read can never overwrite a newer write.
type Cache struct {
	next    Store
	backend string
	logger  zerolog.Logger

	mu      sync.RWMutex
	entries map[string][]byte
	gens    map[string]uint64
}

func NewCache(next Store, backend string, logger zerolog.Logger) *Cache {
	return &Cache{
		next:    next,
		backend: backend,
		logger:  logger,
		entries: make(map[string][]byte),
		gens:    make(map[string]uint64),
	}
}

func (c *Cache) Backend() string {
	return c.backend
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) Read(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	raw, ok := c.entries[key]
	gen := c.gens[key]
	c.mu.RUnlock()
	if ok {
		return clone(raw), nil
	}

	raw, err := c.next.Read(ctx, key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	_, filled := c.entries[key]
	fresh := !filled && c.gens[key] == gen
	if fresh {
		c.entries[key] = raw
	}
	c.mu.Unlock()

	if fresh {
		c.logger.Debug().Str("key", key).Msg("cache fill")
	} else {
		c.logger.Debug().Str("key", key).Msg("cache fill skipped, key changed during read")
	}
	return clone(raw), nil
}

func (c *Cache) Write(ctx context.Context, key string, doc []byte) error {
	if err := c.next.Write(ctx, key, doc); err != nil {
		c.evict(key)
		return err
	}
	c.mu.Lock()
	c.entries[key] = clone(doc)
	c.gens[key]++
	c.mu.Unlock()
	return nil
}

// Delete evicts on both sides of the backend call so a read racing the
// delete cannot cache the removed document.
func (c *Cache) Delete(ctx context.Context, key string) (bool, error) {
	c.evict(key)
	defer c.evict(key)
	return c.next.Delete(ctx, key)
}

func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.RLock()
	_, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return true, nil
	}
	ok, err := c.next.Exists(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return false, err
	}
	return ok, nil
}

func (c *Cache) Keys(ctx context.Context, prefix string) ([]string, error) {
	return c.next.Keys(ctx, prefix)
}

func (c *Cache) Close() error {
	return c.next.Close()
}

func (c *Cache) evict(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.gens[key]++
	c.mu.Unlock()
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
