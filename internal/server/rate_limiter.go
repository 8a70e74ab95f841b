package server

import (
	"sync"
	"time"
)

// rateLimiter bounds webhook and seat-submission traffic per client IP with
// a fixed window. Webhook senders retry on 429, so over-limit requests are
// delayed, not lost.
type rateLimiter struct {
	limit  int
	window time.Duration

	mu    sync.Mutex
	items map[string]*rateLimitWindow
}

type rateLimitWindow struct {
	start time.Time
	count int
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:  limit,
		window: window,
		items:  make(map[string]*rateLimitWindow),
	}
}

func (r *rateLimiter) Allow(key string) bool {
	if key == "" {
		return false
	}

	now := time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.items[key]
	if entry == nil || now.Sub(entry.start) > r.window {
		r.prune(now)
		entry = &rateLimitWindow{start: now}
		r.items[key] = entry
	}

	if entry.count >= r.limit {
		return false
	}

	entry.count++
	return true
}

// prune drops expired windows so the map does not grow with one entry per
// remote address forever. Runs under the lock on window rollover only.
func (r *rateLimiter) prune(now time.Time) {
	for key, entry := range r.items {
		if now.Sub(entry.start) > r.window {
			delete(r.items, key)
		}
	}
}
