// Package cache stores encoded thumbnail results keyed by source digest.
package cache

import (
	"context"
	"time"
)

// Adapter is a byte-oriented TTL cache. Get reports a miss with found=false
// and a nil error; errors are reserved for backend failures.
type Adapter interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
