// Package ratelimit implements in-process token-bucket throttling keyed by
// client identity. Buckets are process-local: under horizontal scaling the
// effective limit is capacity times the instance count, an accepted
// approximation.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter holds one token bucket per client key. Buckets live in a sync.Map
// and each carries its own mutex, so requests for independent keys never
// contend on a shared lock.
type Limiter struct {
	capacity     int
	refillTokens int
	refillPeriod time.Duration
	buckets      sync.Map
	now          func() time.Time
}

type bucket struct {
	mu         sync.Mutex
	tokens     int
	lastRefill time.Time
}

type LimiterOption func(*Limiter)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) { l.now = now }
}

// NewLimiter creates a limiter with the given bucket capacity, refilled by
// refillTokens every refillPeriod (greedy: a full period's worth at once,
// capped at capacity).
func NewLimiter(capacity, refillTokens int, refillPeriod time.Duration, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		capacity:     capacity,
		refillTokens: refillTokens,
		refillPeriod: refillPeriod,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TryConsume takes one token from the key's bucket, reporting whether the
// request is allowed. A new key starts with a full bucket.
func (l *Limiter) TryConsume(key string) bool {
	value, ok := l.buckets.Load(key)
	if !ok {
		value, _ = l.buckets.LoadOrStore(key, &bucket{tokens: l.capacity, lastRefill: l.now()})
	}
	b := value.(*bucket)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := l.now()
	if elapsed := now.Sub(b.lastRefill); elapsed >= l.refillPeriod {
		periods := int(elapsed / l.refillPeriod)
		b.tokens += periods * l.refillTokens
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.lastRefill = b.lastRefill.Add(time.Duration(periods) * l.refillPeriod)
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// RetryAfter is the wait a rejected client should be told about.
func (l *Limiter) RetryAfter() time.Duration {
	return l.refillPeriod
}

// ClientKey resolves the client identity of a request. The first entry of
// X-Forwarded-For is preferred (only the first hop is trusted); the
// transport-level remote address is the fallback.
func ClientKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
