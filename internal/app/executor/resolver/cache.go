package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dennishilgert/fnexec/pkg/cache"
)

const redisKeyPrefix = "fnexec:entrypoints:"

// Cache stores the discovered entry points of a function, keyed by function
// name and source fingerprint.
type Cache interface {
	Get(ctx context.Context, name string, fingerprint string) ([]string, bool, error)
	Set(ctx context.Context, name string, fingerprint string, names []string) error
	Invalidate(ctx context.Context, name string) error
}

type cacheEntry struct {
	Fingerprint string   `json:"fingerprint"`
	Names       []string `json:"names"`
}

type memoryCache struct {
	lock    sync.RWMutex
	entries map[string]cacheEntry
}

// NewMemoryCache creates a process local cache.
func NewMemoryCache() Cache {
	return &memoryCache{
		entries: make(map[string]cacheEntry),
	}
}

func (c *memoryCache) Get(ctx context.Context, name string, fingerprint string) ([]string, bool, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	entry, ok := c.entries[name]
	if !ok || entry.Fingerprint != fingerprint {
		return nil, false, nil
	}
	return append([]string(nil), entry.Names...), true, nil
}

func (c *memoryCache) Set(ctx context.Context, name string, fingerprint string, names []string) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.entries[name] = cacheEntry{
		Fingerprint: fingerprint,
		Names:       append([]string(nil), names...),
	}
	return nil
}

func (c *memoryCache) Invalidate(ctx context.Context, name string) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	delete(c.entries, name)
	return nil
}

type redisCache struct {
	client     cache.CacheClient
	expiration time.Duration
}

// NewRedisCache creates a cache shared between instances through redis.
// An expiration of zero keeps entries until they are invalidated.
func NewRedisCache(client cache.CacheClient, expiration time.Duration) Cache {
	return &redisCache{
		client:     client,
		expiration: expiration,
	}
}

func (c *redisCache) Get(ctx context.Context, name string, fingerprint string) ([]string, bool, error) {
	raw, err := c.client.Client().Get(ctx, redisKeyPrefix+name).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read entry points of %s: %w", name, err)
	}
	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("failed to decode entry points of %s: %w", name, err)
	}
	if entry.Fingerprint != fingerprint {
		return nil, false, nil
	}
	return entry.Names, true, nil
}

func (c *redisCache) Set(ctx context.Context, name string, fingerprint string, names []string) error {
	raw, err := json.Marshal(cacheEntry{Fingerprint: fingerprint, Names: names})
	if err != nil {
		return fmt.Errorf("failed to encode entry points of %s: %w", name, err)
	}
	if err := c.client.Client().Set(ctx, redisKeyPrefix+name, raw, c.expiration).Err(); err != nil {
		return fmt.Errorf("failed to store entry points of %s: %w", name, err)
	}
	return nil
}

func (c *redisCache) Invalidate(ctx context.Context, name string) error {
	if err := c.client.Client().Del(ctx, redisKeyPrefix+name).Err(); err != nil {
		return fmt.Errorf("failed to invalidate entry points of %s: %w", name, err)
	}
	return nil
}
