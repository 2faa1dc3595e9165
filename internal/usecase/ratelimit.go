package usecase

import (
	"sync"
	"time"
)

// RateLimiter implements a per-user sliding-window rate limiter. The limit
// applies to any trailing window interval, not to fixed clock-aligned
// buckets: at most `limit` accepted calls per user in any `window`.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	windows map[string][]time.Time
	now     func() time.Time // injectable for tests
}

// NewRateLimiter creates a limiter allowing limit calls per window per user.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow reports whether a call from userKey is within the rate limit, and
// records it if so. Rejected calls are not recorded.
func (r *RateLimiter) Allow(userKey string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	calls := pruneBefore(r.windows[userKey], now.Add(-r.window))

	if len(calls) >= r.limit {
		r.windows[userKey] = calls
		return false
	}

	r.windows[userKey] = append(calls, now)
	return true
}

// Sweep prunes every user's window and drops users whose window is empty,
// bounding memory for users who stop messaging. Returns the number of users
// dropped.
func (r *RateLimiter) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.window)
	dropped := 0
	for key, calls := range r.windows {
		calls = pruneBefore(calls, cutoff)
		if len(calls) == 0 {
			delete(r.windows, key)
			dropped++
			continue
		}
		r.windows[key] = calls
	}
	return dropped
}

// pruneBefore removes timestamps at or before cutoff, in place.
func pruneBefore(calls []time.Time, cutoff time.Time) []time.Time {
	n := 0
	for _, t := range calls {
		if t.After(cutoff) {
			calls[n] = t
			n++
		}
	}
	return calls[:n]
}
