// Package cache provides a small JSON cache abstraction backed by Redis.
package cache

import (
	"context"
	"time"
)

// Cache stores JSON-encodable values under string keys.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
