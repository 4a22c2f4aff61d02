// Package ratelimit provides per-client rate limiting using the token bucket algorithm.
package ratelimit

import (
	"sync"
	"time"
)

// tokenBucket holds up to capacity tokens and refills continuously at refillRate per second.
// It is guarded by the Limiter's mutex.
type tokenBucket struct {
	capacity   float64
	refillRate float64
	tokens     float64
	lastRefill time.Time
}

func newTokenBucket(capacity int, refillRate float64, now time.Time) *tokenBucket {
	return &tokenBucket{
		capacity:   float64(capacity),
		refillRate: refillRate,
		tokens:     float64(capacity),
		lastRefill: now,
	}
}

func (b *tokenBucket) refill(now time.Time) {
	if elapsed := now.Sub(b.lastRefill); elapsed > 0 {
		b.tokens = min(b.capacity, b.tokens+elapsed.Seconds()*b.refillRate)
		b.lastRefill = now
	}
}

// take consumes a token when one is available and reports the bucket state afterwards.
func (b *tokenBucket) take(now time.Time) (allowed bool, remaining int, full time.Time) {
	b.refill(now)
	if b.tokens >= 1 {
		b.tokens--
		allowed = true
	}

	full = now
	if missing := b.capacity - b.tokens; missing > 0 {
		full = now.Add(time.Duration(missing / b.refillRate * float64(time.Second)))
	}
	return allowed, int(b.tokens), full
}

// nextToken is how long until at least one token is available.
func (b *tokenBucket) nextToken() time.Duration {
	if b.tokens >= 1 {
		return 0
	}
	return time.Duration((1 - b.tokens) / b.refillRate * float64(time.Second))
}

// Info contains information about rate limit status.
type Info struct {
	Allowed    bool
	Tier       string
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

type entry struct {
	bucket   *tokenBucket
	lastSeen time.Time
}

// Limiter manages rate limiting for multiple clients using token buckets.
type Limiter struct {
	config *Config
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*entry

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewLimiter creates a new rate limiter with the given configuration. A nil config enables
// the default limits. The cleanup goroutine runs until Stop.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = NewConfig(Settings{Enabled: true})
	}

	l := &Limiter{
		config:  config,
		now:     time.Now,
		entries: make(map[string]*entry),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	if config.Enabled && config.CleanupInterval > 0 {
		go l.cleanupLoop(config.CleanupInterval)
	} else {
		close(l.done)
	}
	return l
}

// Allow checks if a request from the given client is allowed for the path and method.
func (l *Limiter) Allow(clientID string, urlPath string, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Blacklist[clientID] {
		return false, Info{Allowed: false}
	}

	tier := MatchEndpoint(urlPath, method, l.config.EndpointConfigs)
	if tier == nil {
		tier = &EndpointConfig{
			Name:   TierDefault,
			Limit:  l.config.DefaultLimit,
			Window: l.config.DefaultWindow,
		}
	}
	if tier.Limit <= 0 || tier.Window <= 0 {
		return true, Info{Allowed: true, Tier: tier.Name}
	}

	now := l.now()
	key := clientID + "|" + tier.Name

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		capacity := tier.Burst
		if capacity <= 0 {
			capacity = tier.Limit
		}
		e = &entry{bucket: newTokenBucket(capacity, float64(tier.Limit)/tier.Window.Seconds(), now)}
		l.entries[key] = e
	}
	e.lastSeen = now
	allowed, remaining, full := e.bucket.take(now)
	var retryAfter time.Duration
	if !allowed {
		retryAfter = e.bucket.nextToken()
	}
	l.mu.Unlock()

	return allowed, Info{
		Allowed:    allowed,
		Tier:       tier.Name,
		Limit:      tier.Limit,
		Remaining:  remaining,
		ResetTime:  full,
		RetryAfter: retryAfter,
	}
}

func (l *Limiter) cleanupLoop(interval time.Duration) {
	defer close(l.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.evictIdle()
		case <-l.stop:
			return
		}
	}
}

// evictIdle drops buckets not used within IdleTTL.
func (l *Limiter) evictIdle() int {
	ttl := l.config.IdleTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	cutoff := l.now().Add(-ttl)

	l.mu.Lock()
	defer l.mu.Unlock()

	evicted := 0
	for key, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, key)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of live buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Stop stops the cleanup goroutine and waits for it to exit. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
	<-l.done
}
