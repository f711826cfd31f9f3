package interview

import (
	"context"

	"github.com/blockedby/interview-os/internal/brain"
	"github.com/blockedby/interview-os/internal/models"
)

// Repository persists the whole session as one record.
// Load returns nil and no error when nothing was saved yet.
type Repository interface {
	Load(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, s models.Session) error
}

// QuestionSource produces the question set for a new interview.
type QuestionSource interface {
	Acquire(ctx context.Context, s models.InterviewSettings, p models.CandidateProfile, progress func(notice string)) brain.Acquisition
}

// Evaluator scores one answer. A nil result means no evaluation is available.
type Evaluator interface {
	Evaluate(ctx context.Context, q models.Question, answer string) *models.Evaluation
}

// Scorer produces the final score and summary of a finished interview.
type Scorer interface {
	Finalize(ctx context.Context, c models.Candidate) brain.Final
}

// Connectivity is the shared online/offline signal.
type Connectivity interface {
	Online() bool
	Set(online bool) bool
	Subscribe(fn func(online bool)) (unsubscribe func())
}

// Broadcaster fans committed state out to subscribers.
type Broadcaster interface {
	Broadcast(event interface{})
}
