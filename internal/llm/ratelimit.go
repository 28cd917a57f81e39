package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// rateLimiter is a lazy token bucket. Budget accrues from elapsed wall time
// whenever a token is requested, so no background refill goroutine is
// needed.
type rateLimiter struct {
	mu       sync.Mutex
	budget   float64
	capacity float64
	perSec   float64
	last     time.Time
}

// newRateLimiter creates a limiter allowing the given requests per minute.
func newRateLimiter(requestsPerMinute int) *rateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &rateLimiter{
		budget:   float64(requestsPerMinute),
		capacity: float64(requestsPerMinute),
		perSec:   float64(requestsPerMinute) / 60.0,
		last:     time.Now(),
	}
}

// allow consumes a token if the budget covers one. On refusal it reports
// how long until the next token accrues.
func (rl *rateLimiter) allow() (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.budget += now.Sub(rl.last).Seconds() * rl.perSec
	if rl.budget > rl.capacity {
		rl.budget = rl.capacity
	}
	rl.last = now

	if rl.budget >= 1 {
		rl.budget--
		return true, 0
	}
	return false, time.Duration((1 - rl.budget) / rl.perSec * float64(time.Second))
}

// wait blocks until a token is available or the context is canceled.
func (rl *rateLimiter) wait(ctx context.Context) error {
	for {
		ok, retry := rl.allow()
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("rate limiter canceled: %w", ctx.Err())
		case <-time.After(retry):
		}
	}
}
