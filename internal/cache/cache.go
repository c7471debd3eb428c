// Package cache provides the TTL cache scrape-backed adapters use to avoid
// refetching a profile within one sync window. The cache is an injected
// resource with an explicit lifecycle, not process-global state.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when a key is absent or its entry has expired.
var ErrMiss = errors.New("cache miss")

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}
