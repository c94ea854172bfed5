package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// ErrRejected is returned by Set when the local cache drops a write, either because
// its buffers are contended or the admission policy refused the entry.
var ErrRejected = errors.New("cache write rejected")

// Cache stores JSON-encoded values under string keys.
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl ...time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) error
	HealthCheck(ctx context.Context) error
	Close() error
	Backend() string
}
