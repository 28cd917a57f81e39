package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := newRateLimiter(2)

	ok, _ := rl.allow()
	assert.True(t, ok)
	ok, _ = rl.allow()
	assert.True(t, ok)

	ok, retry := rl.allow()
	assert.False(t, ok, "budget should be spent")
	assert.Greater(t, retry, time.Duration(0))
}

func TestRateLimiterAccruesWithTime(t *testing.T) {
	rl := newRateLimiter(60)
	rl.budget = 0
	rl.last = time.Now().Add(-2 * time.Second)

	ok, _ := rl.allow()
	assert.True(t, ok, "two seconds at 60 rpm accrues two tokens")
}

func TestRateLimiterBudgetCapped(t *testing.T) {
	rl := newRateLimiter(2)
	rl.budget = 0
	rl.last = time.Now().Add(-time.Hour)

	rl.allow()
	assert.LessOrEqual(t, rl.budget, rl.capacity, "idle time must not accrue past capacity")
}

func TestRateLimiterWaitCanceled(t *testing.T) {
	rl := newRateLimiter(1)

	ok, _ := rl.allow()
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := rl.wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiterDefaultCapacity(t *testing.T) {
	rl := newRateLimiter(0)
	assert.Equal(t, 60.0, rl.capacity)
}
