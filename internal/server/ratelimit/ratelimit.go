// Package ratelimit limits requests per client and endpoint with token
// buckets from golang.org/x/time/rate.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Info contains information about rate limit status.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

type bucket struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Limiter manages one token bucket per client and endpoint.
type Limiter struct {
	config      *Config
	mu          sync.Mutex
	buckets     map[string]*bucket
	now         func() time.Time
	cleanupStop chan struct{}
	stopOnce    sync.Once
}

// NewLimiter creates a limiter. A nil config disables limiting.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = &Config{}
	}
	l := &Limiter{
		config:  config,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
	if config.Enabled && config.CleanupInterval > 0 {
		l.cleanupStop = make(chan struct{})
		go l.cleanup(config.CleanupInterval)
	}
	return l
}

// Allow consumes a token for the client on the given endpoint.
func (l *Limiter) Allow(clientID, endpoint, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Blacklist[clientID] {
		return false, Info{}
	}

	ec := MatchEndpoint(endpoint, method, l.config.Endpoints)
	key := clientID + ":" + method + ":" + endpoint
	limit, burst := rate.Limit(l.config.RequestsPerSecond), l.config.Burst
	if ec != nil {
		limit, burst = ec.Limit(), ec.Burst
		key = clientID + ":" + ec.Method + ":" + ec.Path
	}
	if limit == rate.Inf {
		return true, Info{Allowed: true}
	}
	if burst < 1 {
		burst = 1
	}

	now := l.now()
	lim := l.getLimiter(key, limit, burst, now)
	allowed := lim.AllowN(now, 1)
	tokens := lim.TokensAt(now)

	info := Info{
		Allowed:   allowed,
		Limit:     burst,
		Remaining: max(0, int(math.Floor(tokens))),
		ResetTime: now.Add(secondsFor(float64(burst)-tokens, limit)),
	}
	if !allowed {
		info.RetryAfter = secondsFor(1-tokens, limit)
	}
	return allowed, info
}

func secondsFor(tokens float64, limit rate.Limit) time.Duration {
	if tokens <= 0 || limit <= 0 {
		return 0
	}
	return time.Duration(tokens / float64(limit) * float64(time.Second))
}

func (l *Limiter) getLimiter(key string, limit rate.Limit, burst int, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(limit, burst)}
		l.buckets[key] = b
	}
	b.lastAccess = now
	return b.limiter
}

func (l *Limiter) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanupBuckets()
		case <-l.cleanupStop:
			return
		}
	}
}

// cleanupBuckets drops buckets idle for longer than IdleTTL.
func (l *Limiter) cleanupBuckets() {
	ttl := l.config.IdleTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	cutoff := l.now().Add(-ttl)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.lastAccess.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Stop stops the cleanup goroutine.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		if l.cleanupStop != nil {
			close(l.cleanupStop)
		}
	})
}
