package session

import (
	"sync"
	"time"
)

// RateLimiter is a per-user sliding window limiter for provider calls.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[int64][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a limiter and starts its background eviction loop.
// Call Stop to release it.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	rl := &RateLimiter{
		requests: make(map[int64][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go rl.evictLoop()
	return rl
}

// Allow records a request for userID and reports whether it is within the limit.
func (r *RateLimiter) Allow(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	recent := r.recent(userID, now)
	if len(recent) >= r.limit {
		r.requests[userID] = recent
		return false
	}
	r.requests[userID] = append(recent, now)
	return true
}

// Stop ends the eviction loop.
func (r *RateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *RateLimiter) recent(userID int64, now time.Time) []time.Time {
	cutoff := now.Add(-r.window)
	var recent []time.Time
	for _, t := range r.requests[userID] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	return recent
}

func (r *RateLimiter) evictLoop() {
	ticker := time.NewTicker(r.window)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.evict()
		}
	}
}

func (r *RateLimiter) evict() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for userID := range r.requests {
		if fresh := r.recent(userID, now); len(fresh) == 0 {
			delete(r.requests, userID)
		} else {
			r.requests[userID] = fresh
		}
	}
}
