// Package cache provides the key-value store backing the SPARQL result cache.
// The search pipeline only ever needs existence checks, reads and TTL'd
// writes, so the interface stays that narrow.
package cache

import (
	"context"
	"time"
)

type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}
