package brain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blockedby/interview-os/internal/llm"
)

// plan errors
var (
	ErrOffline   = errors.New("online service is offline")
	ErrExhausted = errors.New("all attempts failed")
)

// Attempt is one step of a retry plan: wait Delay, then call Model.
type Attempt struct {
	Model string
	Delay time.Duration
}

// Plan is an ordered list of attempts across models.
type Plan struct {
	Attempts []Attempt
	// Sleep waits between attempts. Replaced in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewPlan builds one attempt per model with no delay for the first and delays[i-1] for
// attempt i. The plan has 1+len(delays) attempts; the last model is reused when models run out.
func NewPlan(models []string, delays []time.Duration) Plan {
	if len(models) == 0 {
		return Plan{Sleep: sleepContext}
	}

	attempts := make([]Attempt, 0, len(delays)+1)
	for i := 0; i <= len(delays); i++ {
		a := Attempt{Model: models[min(i, len(models)-1)]}
		if i > 0 {
			a.Delay = delays[i-1]
		}
		attempts = append(attempts, a)
	}
	return Plan{Attempts: attempts, Sleep: sleepContext}
}

// Run calls call for each attempt until one succeeds.
// It stops early with ErrOffline when online reports false before an attempt, and with the
// call's error when that error is not transient. onRetry (optional) is told about every
// attempt after the first before its delay starts.
func (p Plan) Run(
	ctx context.Context,
	online func() bool,
	onRetry func(a Attempt, n int),
	call func(ctx context.Context, model string) error,
) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for i, a := range p.Attempts {
		if i > 0 {
			if onRetry != nil {
				onRetry(a, i)
			}
			if err := sleep(ctx, a.Delay); err != nil {
				return err
			}
		}
		if online != nil && !online() {
			return ErrOffline
		}

		err := call(ctx, a.Model)
		if err == nil {
			return nil
		}
		if !llm.IsTransient(err) {
			return fmt.Errorf("attempt %d (%s): %w", i+1, a.Model, err)
		}
		lastErr = err
	}

	if lastErr == nil {
		return ErrExhausted
	}
	return fmt.Errorf("%w: %w", ErrExhausted, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
