// Package ratelimit counts requests per tenant in fixed windows.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/opensource-finance/clauseguard/internal/domain"
)

// Counter is the part of domain.Cache the limiter needs.
type Counter interface {
	IncrementCounter(ctx context.Context, tenantID string, key string, window time.Duration) (int64, error)
}

// Limiter admits at most Limit requests per tenant and key in each window.
// Windows are aligned to the Unix epoch, so every replica agrees on when one
// ends. Counts live in the cache, so the Redis tier shares them across replicas.
type Limiter struct {
	counter Counter
	limit   int64
	window  time.Duration
	now     func() time.Time
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Count     int64
	Limit     int64
	Remaining int64
	Window    time.Duration

	// ResetAfter is the time left until the current window closes.
	ResetAfter time.Duration
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source that places requests in windows.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a limiter from config. It returns nil when limiting is
// disabled; a nil Limiter admits everything.
func New(counter Counter, cfg domain.RateLimitConfig, opts ...Option) *Limiter {
	if counter == nil || cfg.Requests <= 0 {
		return nil
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	l := &Limiter{
		counter: counter,
		limit:   int64(cfg.Requests),
		window:  window,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records one request and reports whether it is within the limit.
func (l *Limiter) Allow(ctx context.Context, tenantID, key string) (Decision, error) {
	if l == nil {
		return Decision{Allowed: true}, nil
	}
	if tenantID == "" || key == "" {
		return Decision{}, errors.New("tenantID and key are required")
	}

	now := l.now().UnixNano()
	bucket := now / int64(l.window)
	resetAfter := time.Duration(int64(l.window) - now%int64(l.window))

	// The counter expires with its window.
	counterKey := "ratelimit:" + key + ":" + strconv.FormatInt(bucket, 10)
	count, err := l.counter.IncrementCounter(ctx, tenantID, counterKey, max(resetAfter, time.Millisecond))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to count request: %w", err)
	}

	return Decision{
		Allowed:    count <= l.limit,
		Count:      count,
		Limit:      l.limit,
		Remaining:  max(l.limit-count, 0),
		Window:     l.window,
		ResetAfter: resetAfter,
	}, nil
}
