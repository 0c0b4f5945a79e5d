package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/candidate-matcher/internal/cache"
	"github.com/jonathan/candidate-matcher/internal/logger"
)

// CachedBackend serves repeated texts from a cache. Failed lookups are never
// cached, and cache errors fall through to the wrapped backend.
type CachedBackend struct {
	next  Backend
	cache cache.Cache
	ttl   time.Duration
	log   *zap.Logger
}

// NewCachedBackend wraps next with c.
func NewCachedBackend(next Backend, c cache.Cache, ttl time.Duration, log *zap.Logger) *CachedBackend {
	return &CachedBackend{next: next, cache: c, ttl: ttl, log: logger.Named(log, "embedding-cache")}
}

// Model returns the wrapped model name.
func (b *CachedBackend) Model() string { return b.next.Model() }

// EmbedText returns a cached vector or computes and stores a new one.
func (b *CachedBackend) EmbedText(ctx context.Context, text string) ([]float32, error) {
	key := CacheKey(b.next.Model(), text)

	var cached []float32
	hit, err := b.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		b.log.Warn("cache read failed", zap.Error(err))
	} else if hit && len(cached) > 0 {
		return cached, nil
	}

	vec, err := b.next.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	if IsZero(vec) {
		return vec, nil
	}
	if err := b.cache.SetJSON(ctx, key, vec, b.ttl); err != nil {
		b.log.Warn("cache write failed", zap.Error(err))
	}
	return vec, nil
}

// CacheKey derives the cache key for a model and input text.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return "embedding:" + hex.EncodeToString(sum[:])
}
