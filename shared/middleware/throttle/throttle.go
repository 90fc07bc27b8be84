// Package throttle keeps one token bucket per identity with idle expiry.
package throttle

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Throttle hands out per-identity token buckets. Buckets not used for
// the expiration period are evicted and start full on next use.
type Throttle struct {
	limiters *cache.Cache
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
}

// New creates a Throttle allowing perSecond requests with the given burst.
func New(perSecond float64, burst int, expiration time.Duration) *Throttle {
	return &Throttle{
		limiters: cache.New(expiration, expiration),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

func (t *Throttle) limiter(identity string) *rate.Limiter {
	if l, ok := t.limiters.Get(identity); ok {
		// refresh expiry on use
		t.limiters.SetDefault(identity, l)
		return l.(*rate.Limiter)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if l, ok := t.limiters.Get(identity); ok {
		return l.(*rate.Limiter)
	}
	l := rate.NewLimiter(t.limit, t.burst)
	t.limiters.SetDefault(identity, l)
	return l
}

// Allow reports whether a request for identity may proceed now.
func (t *Throttle) Allow(identity string) bool {
	return t.limiter(identity).Allow()
}

// Len reports the number of tracked identities.
func (t *Throttle) Len() int {
	return t.limiters.ItemCount()
}
