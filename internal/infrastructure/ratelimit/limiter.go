// Package ratelimit implements the per-caller fixed-window request quota.
package ratelimit

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// CounterStore holds the per-caller counters. Implementations must make
// Incr atomic with respect to concurrent callers.
type CounterStore interface {
	// Incr counts one request for key in its current window and returns the
	// new count and the instant the window ends. A window opens on the first
	// request after the previous one ended.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

// Decision is the outcome of a quota check.
type Decision struct {
	Key       string
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter allows Limit requests per caller key per Window.
type Limiter struct {
	store  CounterStore
	limit  int
	window time.Duration
}

func NewLimiter(store CounterStore, limit int, window time.Duration) *Limiter {
	return &Limiter{store: store, limit: limit, window: window}
}

// Check counts the request against key's quota. Denied requests are
// counted too, so a caller over quota stays over until the window rolls.
func (l *Limiter) Check(ctx context.Context, key string) (Decision, error) {
	count, resetAt, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		return Decision{}, errors.Wrapf(err, "rate limit check for %q", key)
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Key:       key,
		Allowed:   count <= int64(l.limit),
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
