// Implements a thread-safe token bucket rate limiter.

// Package ratelimit implements per client token bucket rate limiting for HTTP
// handlers.
package ratelimit

import (
	"math"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/maruel/albumdb/internal/storage"
)

// Result contains the outcome of a rate limit check.
type Result struct {
	Allowed    bool
	Limit      int           // requests per window
	Remaining  int           // requests left in current window
	ResetAt    time.Time     // when the bucket will be full again
	RetryAfter time.Duration // how long to wait before retrying (0 if allowed)
}

// Limiter manages rate limit buckets per key using the token bucket algorithm.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    rate.Limit
	burst   int
	window  time.Duration
	stop    chan struct{}
	once    sync.Once
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter creates a rate limiter allowing requests tokens per window with burst capacity.
func NewLimiter(requests int, window time.Duration, burst int) *Limiter {
	// Convert requests/window to tokens/second
	tokensPerSecond := float64(requests) / window.Seconds()

	l := &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate.Limit(tokensPerSecond),
		burst:   burst,
		window:  window,
		stop:    make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// Allow checks if a request with the given key is allowed and consumes a
// token when it is.
func (l *Limiter) Allow(key string) Result {
	now := time.Now()
	l.mu.Lock()
	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	reservation := b.limiter.ReserveN(now, 1)
	allowed := reservation.OK() && reservation.DelayFrom(now) == 0
	if !allowed && reservation.OK() {
		reservation.CancelAt(now)
	}

	tokens := b.limiter.TokensAt(now)
	remaining := max(int(tokens), 0)

	// Time to refill = (burst - current) / rate
	tokensNeeded := float64(l.burst) - tokens
	resetAt := now.Add(time.Duration(tokensNeeded / float64(l.rate) * float64(time.Second)))

	var retryAfter time.Duration
	if !allowed {
		// Wait until at least one token is available
		retryAfter = max(time.Duration(float64(time.Second)/float64(l.rate)), time.Second)
	}

	return Result{
		Allowed:    allowed,
		Limit:      int(math.Round(float64(l.rate) * l.window.Seconds())),
		Remaining:  remaining,
		ResetAt:    resetAt,
		RetryAfter: retryAfter,
	}
}

// cleanupLoop removes stale buckets every 10 minutes.
func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup(time.Now())
		case <-l.stop:
			return
		}
	}
}

// cleanup removes buckets that haven't been used recently and are full.
func (l *Limiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	staleThreshold := now.Add(-10 * time.Minute)
	for key, b := range l.buckets {
		if b.lastSeen.Before(staleThreshold) && b.limiter.TokensAt(now) >= float64(l.burst) {
			delete(l.buckets, key)
		}
	}
}

// Close stops the cleanup goroutine.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

// Limiters holds the read and write limiters. A nil Limiter is unlimited.
type Limiters struct {
	Read  *Limiter
	Write *Limiter
}

// New creates limiters from per minute budgets. Zero disables a limiter.
// The burst is a tenth of the budget, at least 1.
func New(cfg storage.RateLimits) *Limiters {
	l := &Limiters{}
	if cfg.ReadRatePerMin > 0 {
		l.Read = NewLimiter(cfg.ReadRatePerMin, time.Minute, max(cfg.ReadRatePerMin/10, 1))
	}
	if cfg.WriteRatePerMin > 0 {
		l.Write = NewLimiter(cfg.WriteRatePerMin, time.Minute, max(cfg.WriteRatePerMin/10, 1))
	}
	return l
}

// For returns the limiter applying to an HTTP method, or nil.
func (l *Limiters) For(method string) *Limiter {
	if l == nil {
		return nil
	}
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return l.Write
	default:
		return l.Read
	}
}

// Close stops all limiters.
func (l *Limiters) Close() {
	if l == nil {
		return
	}
	for _, lim := range []*Limiter{l.Read, l.Write} {
		if lim != nil {
			lim.Close()
		}
	}
}
