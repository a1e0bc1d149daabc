package api

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL    = 10 * time.Minute
	limiterMaxClients = 10_000
)

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter keeps one token bucket per client IP.
// Idle buckets are swept lazily; the map never exceeds maxClients.
type clientLimiter struct {
	mu         sync.Mutex
	clients    map[string]*clientEntry
	rps        rate.Limit
	burst      int
	idleTTL    time.Duration
	maxClients int
	lastSweep  time.Time
	now        func() time.Time
}

func newClientLimiter(rps float64, burst int) *clientLimiter {
	if burst < 1 {
		burst = 1
	}
	return &clientLimiter{
		clients:    make(map[string]*clientEntry),
		rps:        rate.Limit(rps),
		burst:      burst,
		idleTTL:    limiterIdleTTL,
		maxClients: limiterMaxClients,
		now:        time.Now,
	}
}

func (c *clientLimiter) get(key string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) >= c.idleTTL {
		c.sweep(now)
	}

	e, ok := c.clients[key]
	if !ok {
		if len(c.clients) >= c.maxClients {
			c.evictOldest()
		}
		e = &clientEntry{limiter: rate.NewLimiter(c.rps, c.burst)}
		c.clients[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// sweep drops buckets idle for longer than idleTTL
func (c *clientLimiter) sweep(now time.Time) {
	for key, e := range c.clients {
		if now.Sub(e.lastSeen) > c.idleTTL {
			delete(c.clients, key)
		}
	}
	c.lastSweep = now
}

func (c *clientLimiter) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, e := range c.clients {
		if oldestKey == "" || e.lastSeen.Before(oldest) {
			oldestKey, oldest = key, e.lastSeen
		}
	}
	delete(c.clients, oldestKey)
}

func (c *clientLimiter) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rateLimitMiddleware answers 429 once a client exhausts its bucket
func rateLimitMiddleware(limiter *clientLimiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.get(clientKey(r)).Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Too many requests",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
