package api

import (
	"context"
	"io"

	"github.com/blockedby/interview-os/internal/models"
)

// Engine is the interview engine as seen by the HTTP layer.
type Engine interface {
	Snapshot() models.Session
	Candidate(id string) (models.Candidate, error)

	AddCandidate(ctx context.Context, profile models.CandidateProfile) (models.Candidate, error)
	SetActive(ctx context.Context, id string) error
	DeleteCandidate(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	UpdateSettings(ctx context.Context, raw models.InterviewSettings) (models.InterviewSettings, error)
	CompleteOnboarding(ctx context.Context) error
	StartNewInterview(ctx context.Context) error

	StartInterview(ctx context.Context, id string) (models.Candidate, error)
	SubmitAnswer(ctx context.Context, id, questionID, text string) (models.Candidate, error)
	Timeout(ctx context.Context, id, questionID string) (models.Candidate, error)
	Reset(ctx context.Context, id string) (models.Candidate, error)

	Online() bool
	SetOnline(online bool)
}

// TextExtractor reads plain text out of an uploaded resume.
type TextExtractor interface {
	Extract(name string, r io.Reader) (string, error)
}

// ProfileExtractor fills a profile from resume text. It never fails.
type ProfileExtractor interface {
	ExtractProfile(ctx context.Context, resumeText string) models.CandidateProfile
}

// SkillRanker ranks the skills found in resume text. It never fails.
type SkillRanker interface {
	RankSkills(ctx context.Context, resumeText string) []models.RankedSkill
}
