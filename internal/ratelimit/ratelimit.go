// Package ratelimit provides a keyed rate limiter using token bucket algorithm.
package ratelimit

import (
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
)

// DefaultMaxKeys bounds how many keys keep a limiter in memory.
const DefaultMaxKeys = 10000

// KeyedRateLimiter manages per-key rate limiting.
// Each unique key gets its own independent rate limiter. The least recently
// used keys are evicted once maxKeys is reached, which resets their bucket.
type KeyedRateLimiter struct {
	limiters *lru.Cache
	limit    rate.Limit
	burst    int
	enabled  bool
}

// New creates a new keyed rate limiter.
// rps: requests per second allowed; rps <= 0 disables limiting.
// burst: maximum burst size (tokens available immediately).
// maxKeys: number of keys tracked; <= 0 uses DefaultMaxKeys.
func New(rps float64, burst, maxKeys int) *KeyedRateLimiter {
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	if burst < 1 {
		burst = 1
	}
	cache, err := lru.New(maxKeys)
	if err != nil {
		// Only returned for a non-positive size.
		panic(err)
	}
	return &KeyedRateLimiter{
		limiters: cache,
		limit:    rate.Limit(rps),
		burst:    burst,
		enabled:  rps > 0,
	}
}

// Enabled reports whether the limiter restricts anything.
func (krl *KeyedRateLimiter) Enabled() bool {
	return krl != nil && krl.enabled
}

// Allow checks if a request for the given key should be allowed.
// Returns immediately without blocking.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	if !krl.Enabled() {
		return true
	}
	return krl.getLimiter(key).Allow()
}

// Len returns the number of keys currently tracked.
func (krl *KeyedRateLimiter) Len() int {
	return krl.limiters.Len()
}

// getLimiter returns the limiter for a key, creating one if needed.
func (krl *KeyedRateLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := krl.limiters.Get(key); ok {
		return v.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(krl.limit, krl.burst)
	// Another goroutine may have inserted first; keep theirs.
	if prev, ok, _ := krl.limiters.PeekOrAdd(key, limiter); ok {
		return prev.(*rate.Limiter)
	}
	return limiter
}
