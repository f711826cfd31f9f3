package brain

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/blockedby/interview-os/internal/llm"
	"github.com/blockedby/interview-os/internal/models"
)

// Final is the final score (0-100) and narrative summary of an interview.
type Final struct {
	Score   int    `json:"finalScore"`
	Summary string `json:"summary"`
	Offline bool   `json:"offline"`
}

// Scorer produces the final result of an interview.
type Scorer struct {
	*Gateway
}

// NewScorer creates a scorer backed by g.
func NewScorer(g *Gateway) *Scorer {
	return &Scorer{Gateway: g}
}

type summaryResponse struct {
	FinalScore *float64 `json:"finalScore"`
	Summary    *string  `json:"summary"`
}

func (r summaryResponse) validate() error {
	switch {
	case r.FinalScore == nil:
		return fmt.Errorf("%w: finalScore missing", llm.ErrMalformedResponse)
	case *r.FinalScore < 0 || *r.FinalScore > 100:
		return fmt.Errorf("%w: finalScore %v out of range", llm.ErrMalformedResponse, *r.FinalScore)
	case r.Summary == nil || strings.TrimSpace(*r.Summary) == "":
		return fmt.Errorf("%w: summary missing", llm.ErrMalformedResponse)
	}
	return nil
}

// Finalize asks the summary service for a score and summary of c. Any failure falls back to
// Offline.
func (s *Scorer) Finalize(ctx context.Context, c models.Candidate) Final {
	if !s.online() {
		return s.Offline(c)
	}

	user := s.prompts.summary.Build(map[string]string{
		"NAME":           c.Profile.Name,
		"SKILLS":         strings.Join(c.Profile.SkillNames(), ", "),
		"RESUME_SUMMARY": truncate(c.Profile.ResumeText, resumeSummaryCharacters),
		"TRANSCRIPT":     transcript(c),
	})

	var resp summaryResponse
	err := s.complete(ctx, s.prompts.summary.System, user, nil, func(raw string) error {
		var r summaryResponse
		if err := llm.Decode(raw, &r); err != nil {
			return err
		}
		if err := r.validate(); err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		s.log.Warn().Err(err).Str("candidate_id", c.ID).Msg("final summary unavailable, scoring offline")
		return s.Offline(c)
	}

	return Final{
		Score:   int(math.Round(*resp.FinalScore)),
		Summary: strings.TrimSpace(*resp.Summary),
	}
}

// Offline scores every recorded answer out of 10, counting an unscored answer as 0.
// The neutral score applies only when nothing was answered.
func (s *Scorer) Offline(c models.Candidate) Final {
	if len(c.Answers) == 0 {
		return Final{Score: neutralFinalScore, Summary: offlineSummary, Offline: true}
	}

	var sum float64
	for _, a := range c.Answers {
		if a.Score != nil {
			sum += *a.Score
		}
	}
	score := int(math.Round(100 * sum / float64(10*len(c.Answers))))
	return Final{Score: score, Summary: offlineSummary, Offline: true}
}

// transcript renders every question with its answer, score and feedback.
func transcript(c models.Candidate) string {
	parts := make([]string, 0, len(c.Questions))
	for _, q := range c.Questions {
		answer, score, feedback := "(No answer provided)", "N/A", "N/A"
		if a, _, ok := c.AnswerFor(q.ID); ok {
			if strings.TrimSpace(a.Text) != "" {
				answer = a.Text
			}
			if a.Score != nil {
				score = fmt.Sprintf("%g", *a.Score)
			}
			if a.Feedback != nil && *a.Feedback != "" {
				feedback = *a.Feedback
			}
		}
		parts = append(parts, fmt.Sprintf("Q: %s (Difficulty: %s)\nA: %s\nScore: %s\nFeedback: %s",
			q.Text, q.Difficulty, answer, score, feedback))
	}
	return strings.Join(parts, "\n\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
