package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
)

// LocalCache is an in-process Cache used when Redis is unreachable. Values are stored
// JSON-encoded so callers see the same decoding behaviour as with Redis.
type LocalCache struct {
	c   *ristretto.Cache
	ttl time.Duration

	// ristretto cannot enumerate keys, so pattern deletes use this index.
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewLocalCache(maxCost int64, ttl time.Duration) (*LocalCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     maxCost,
		BufferItems: 64,
		// Every entry costs 1, so MaxCost is an entry count.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create local cache: %w", err)
	}
	return &LocalCache{c: c, ttl: ttl, keys: map[string]struct{}{}}, nil
}

func (c *LocalCache) Get(ctx context.Context, key string, dest any) error {
	v, ok := c.c.Get(key)
	if !ok {
		return ErrMiss
	}
	data, ok := v.([]byte)
	if !ok {
		return ErrMiss
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (c *LocalCache) Set(ctx context.Context, key string, value any, ttl ...time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	expiration := c.ttl
	if len(ttl) > 0 {
		expiration = ttl[0]
	}

	if !c.c.SetWithTTL(key, data, 1, expiration) {
		return fmt.Errorf("%w: %s", ErrRejected, key)
	}
	c.c.Wait()

	c.mu.Lock()
	c.keys[key] = struct{}{}
	c.mu.Unlock()
	return nil
}

func (c *LocalCache) Delete(ctx context.Context, key string) error {
	c.c.Del(key)
	c.mu.Lock()
	delete(c.keys, key)
	c.mu.Unlock()
	return nil
}

func (c *LocalCache) DeletePattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.keys {
		if ok, _ := path.Match(pattern, key); ok {
			c.c.Del(key)
			delete(c.keys, key)
		}
	}
	return nil
}

func (c *LocalCache) HealthCheck(ctx context.Context) error { return nil }

func (c *LocalCache) Close() error {
	c.c.Close()
	return nil
}

func (c *LocalCache) Backend() string { return "local" }
