package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Pause(t *testing.T) {
	r := NewRateLimiter(1000, 1)
	r.Pause(50 * time.Millisecond)

	start := time.Now()
	assert.NoError(t, r.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestRateLimiter_ShorterPauseKeepsLonger(t *testing.T) {
	r := NewRateLimiter(1000, 1)
	r.Pause(time.Hour)
	r.Pause(time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)
}
