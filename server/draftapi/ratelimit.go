package draftapi

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter keeps one token bucket per client key.
type clientLimiter struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	ttl     time.Duration
	buckets map[string]*bucket
}

func newClientLimiter(rps float64, burst int, ttl time.Duration) *clientLimiter {
	if burst < 1 {
		burst = 1
	}
	return &clientLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		ttl:     ttl,
		buckets: make(map[string]*bucket),
	}
}

func (c *clientLimiter) allow(key string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(c.rps, c.burst)}
		c.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// evict drops buckets idle for longer than the TTL.
func (c *clientLimiter) evict(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, b := range c.buckets {
		if now.Sub(b.lastSeen) > c.ttl {
			delete(c.buckets, key)
		}
	}
}

func (c *clientLimiter) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buckets)
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
