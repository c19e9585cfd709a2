package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter applies a per-key request allowance, used to throttle search
// requests per client IP.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   rate.Limit
	burst   int
	done    chan struct{}
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a Limiter allowing perMinute requests per key, with a
// burst of the same size.
func New(perMinute int) *Limiter {
	l := &Limiter{
		clients: make(map[string]*client),
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		done:    make(chan struct{}),
	}

	go l.cleanup()

	return l
}

// Close stops the background cleanup goroutine.
func (l *Limiter) Close() {
	close(l.done)
}

// Allow reports whether a request for the given key may proceed now.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = time.Now()

	return c.limiter.Allow()
}

// cleanup periodically drops keys that have been idle long enough for
// their token buckets to refill completely.
func (l *Limiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.done:
			return
		}
	}
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > 10*time.Minute {
			delete(l.clients, key)
		}
	}
}
