// Package ratelimit throttles submissions per (namespace, identity) pair.
// Namespace is the board slug, identity a digest of the client origin.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Store is an expiring key/value store with atomic get and set.
type Store interface {
	// Get returns ok=false for missing or expired keys.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error
}

type Limiter struct {
	store Store
	now   func() time.Time
}

type Option func(*Limiter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(store Store, opts ...Option) *Limiter {
	l := &Limiter{store: store, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func key(namespace, identity string) string {
	return "ratelimit:" + namespace + ":" + identity
}

// Limit throttles the key for seconds from now, overwriting any previous entry.
// Concurrent calls for the same key resolve last-write-wins.
func (l *Limiter) Limit(ctx context.Context, namespace, identity string, seconds int) error {
	if seconds <= 0 {
		return nil
	}
	ttl := time.Duration(seconds) * time.Second
	expiresAt := l.now().Add(ttl)
	value := strconv.FormatInt(expiresAt.UnixNano(), 10)
	if err := l.store.SetWithExpiry(ctx, key(namespace, identity), value, ttl); err != nil {
		return fmt.Errorf("failed to set rate limit: %w", err)
	}
	return nil
}

// Limited reports whether a previous Limit for the key has not yet expired.
func (l *Limiter) Limited(ctx context.Context, namespace, identity string) (bool, error) {
	left, err := l.remaining(ctx, namespace, identity)
	if err != nil {
		return false, err
	}
	return left > 0, nil
}

// Timeleft returns the remaining throttle in whole seconds, rounded up, or 0.
func (l *Limiter) Timeleft(ctx context.Context, namespace, identity string) (int, error) {
	left, err := l.remaining(ctx, namespace, identity)
	if err != nil {
		return 0, err
	}
	return int(math.Ceil(left.Seconds())), nil
}

func (l *Limiter) remaining(ctx context.Context, namespace, identity string) (time.Duration, error) {
	value, ok, err := l.store.Get(ctx, key(namespace, identity))
	if err != nil {
		return 0, fmt.Errorf("failed to get rate limit: %w", err)
	}
	if !ok {
		return 0, nil
	}
	nanos, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		// treat garbage as no limit; the entry expires on its own
		return 0, nil
	}
	left := time.Unix(0, nanos).Sub(l.now())
	if left < 0 {
		return 0, nil
	}
	return left, nil
}
