package http

import (
	"sync"
	"time"
)

// rateLimiter counts requests per client key in fixed windows.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	clients map[string]*rateWindow
}

type rateWindow struct {
	start time.Time
	count int
}

// maxTrackedClients bounds the map before stale windows are swept.
const maxTrackedClients = 4096

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	if limit <= 0 {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	return &rateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		clients: make(map[string]*rateWindow),
	}
}

// allow reports whether key may make another request in the current window.
// A nil limiter allows everything.
func (r *rateLimiter) allow(key string) bool {
	if r == nil {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	w, ok := r.clients[key]
	if !ok || now.Sub(w.start) >= r.window {
		if !ok && len(r.clients) >= maxTrackedClients {
			r.sweep(now)
		}
		w = &rateWindow{start: now}
		r.clients[key] = w
	}
	w.count++
	return w.count <= r.limit
}

func (r *rateLimiter) sweep(now time.Time) {
	for key, w := range r.clients {
		if now.Sub(w.start) >= r.window {
			delete(r.clients, key)
		}
	}
}
