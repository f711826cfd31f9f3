package interview

import (
	"context"
	"errors"
	"time"

	"github.com/blockedby/interview-os/internal/models"
)

// CheckTimers times out every active question whose limit has passed and returns how many
// timeouts were committed. A question that was answered in the meantime is left alone.
// Candidates stuck in evaluating or completing with no work running are resumed.
func (e *Engine) CheckTimers(ctx context.Context) int {
	now := e.now()

	type expired struct{ candidateID, questionID string }
	var due []expired
	var stalled []models.Candidate

	e.mu.Lock()
	for _, c := range e.session.Candidates {
		switch {
		case Expired(c, now):
			q, _ := c.CurrentQuestion()
			due = append(due, expired{c.ID, q.ID})
		case c.Status == models.StatusEvaluating, c.Status == models.StatusCompleting:
			stalled = append(stalled, c)
		}
	}
	e.mu.Unlock()

	for _, c := range stalled {
		if e.resume(c, now) {
			e.log.Warn().Str("candidate_id", c.ID).Str("status", string(c.Status)).Msg("resuming stalled interview")
		}
	}

	fired := 0
	for _, d := range due {
		_, err := e.Timeout(ctx, d.candidateID, d.questionID)
		switch {
		case err == nil:
			fired++
		case errors.Is(err, ErrStale), errors.Is(err, ErrNotFound):
		default:
			e.log.Error().Err(err).Str("candidate_id", d.candidateID).Msg("failed to time out question")
		}
	}
	return fired
}

// RunTimers checks timers every tick until ctx is done.
func (e *Engine) RunTimers(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		tick = 500 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	e.log.Info().Dur("tick", tick).Msg("timer watchdog started")
	for {
		select {
		case <-ctx.Done():
			e.log.Info().Msg("timer watchdog stopped")
			return
		case <-ticker.C:
			e.CheckTimers(ctx)
		}
	}
}
