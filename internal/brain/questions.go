package brain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/blockedby/interview-os/internal/bank"
	"github.com/blockedby/interview-os/internal/llm"
	"github.com/blockedby/interview-os/internal/models"
)

// Acquisition is the result of acquiring a question set.
type Acquisition struct {
	Questions []models.Question
	// Degraded is true when the set comes from the offline bank.
	Degraded bool
	// Notice is shown to the candidate when Degraded.
	Notice string
}

// QuestionSource produces the root question set of an interview.
type QuestionSource struct {
	*Gateway
	bank *bank.Bank
}

// NewQuestionSource creates a question source backed by g and the offline bank b.
func NewQuestionSource(g *Gateway, b *bank.Bank) *QuestionSource {
	return &QuestionSource{Gateway: g, bank: b}
}

type generatedQuestion struct {
	Question   string `json:"question"`
	Difficulty string `json:"difficulty"`
}

// Acquire returns a question set for the settings and profile. It never fails: online
// failures fall back to the offline bank. progress (optional) receives retry notices.
func (s *QuestionSource) Acquire(
	ctx context.Context,
	settings models.InterviewSettings,
	profile models.CandidateProfile,
	progress func(notice string),
) Acquisition {
	counts := settings.DifficultyDistribution
	if counts.Total() == 0 {
		return Acquisition{}
	}

	if s.llm == nil {
		return s.offline(settings, profile, NoticeOfflineStart)
	}
	if !s.online() {
		return s.offline(settings, profile, NoticeOfflineDetected)
	}

	var generated []models.Question
	user := s.prompts.generation.Build(map[string]string{
		"TOTAL":       strconv.Itoa(counts.Total()),
		"EASY":        strconv.Itoa(counts.Easy),
		"MEDIUM":      strconv.Itoa(counts.Medium),
		"HARD":        strconv.Itoa(counts.Hard),
		"SOURCE_INFO": sourceInfo(settings, profile),
	})

	onRetry := func(a Attempt, n int) {
		notice := fmt.Sprintf(retryNoticeFormat, int(math.Ceil(a.Delay.Seconds())), n)
		s.log.Info().Str("model", a.Model).Int("attempt", n).Msg("retrying question generation")
		if progress != nil {
			progress(notice)
		}
	}

	err := s.complete(ctx, s.prompts.generation.System, user, onRetry, func(raw string) error {
		qs, err := parseGenerated(raw, models.OriginFor(settings.QuestionSource))
		if err != nil {
			return err
		}
		generated = qs
		return nil
	})

	switch {
	case err == nil:
		qs, kept := s.fit(generated, settings, profile)
		if kept == 0 {
			s.log.Warn().Int("generated", len(generated)).Msg("no generated question fits the distribution, using offline bank")
			return Acquisition{Questions: qs, Degraded: true, Notice: NoticeAIUnavailable}
		}
		return Acquisition{Questions: qs}
	case errors.Is(err, ErrOffline):
		return s.offline(settings, profile, NoticeOfflineDetected)
	case errors.Is(err, ErrExhausted):
		s.log.Warn().Err(err).Msg("question generation exhausted, using offline bank")
		return s.offline(settings, profile, NoticeAIUnavailable)
	default:
		s.log.Warn().Err(err).Msg("question generation failed, using offline bank")
		return s.offline(settings, profile, NoticeOfflineStart)
	}
}

// offline draws the whole set from the bank.
func (s *QuestionSource) offline(settings models.InterviewSettings, profile models.CandidateProfile, notice string) Acquisition {
	qs := s.bank.Select(offlineFilters(settings, profile, nil), settings.DifficultyDistribution)
	return Acquisition{Questions: qs, Degraded: true, Notice: notice}
}

// fit trims generated questions to the configured distribution and tops up any shortfall
// from the bank. kept is the number of generated questions in the result.
func (s *QuestionSource) fit(generated []models.Question, settings models.InterviewSettings, profile models.CandidateProfile) (fitted []models.Question, kept int) {
	counts := settings.DifficultyDistribution
	taken := make(map[models.Difficulty]int)
	seen := make(map[string]bool)

	var out []models.Question
	var texts []string
	for _, q := range generated {
		key := strings.ToLower(strings.TrimSpace(q.Text))
		if seen[key] || taken[q.Difficulty] >= counts.For(q.Difficulty) {
			continue
		}
		seen[key] = true
		taken[q.Difficulty]++
		out = append(out, q)
		texts = append(texts, q.Text)
	}

	missing := models.DifficultyCounts{
		Easy:   counts.Easy - taken[models.DifficultyEasy],
		Medium: counts.Medium - taken[models.DifficultyMedium],
		Hard:   counts.Hard - taken[models.DifficultyHard],
	}
	if missing.Total() > 0 {
		s.log.Info().Int("missing", missing.Total()).Msg("topping up generated questions from offline bank")
		out = append(out, s.bank.Select(offlineFilters(settings, profile, texts), missing)...)
	}
	return out, len(texts)
}

// parseGenerated accepts {"questions": [...]} or a bare array.
func parseGenerated(raw string, origin models.Origin) ([]models.Question, error) {
	cleaned := llm.CleanJSON(raw)

	var items []generatedQuestion
	if strings.HasPrefix(cleaned, "[") {
		if err := llm.Decode(cleaned, &items); err != nil {
			return nil, err
		}
	} else {
		var wrapped struct {
			Questions []generatedQuestion `json:"questions"`
		}
		if err := llm.Decode(cleaned, &wrapped); err != nil {
			return nil, err
		}
		items = wrapped.Questions
	}

	var out []models.Question
	for _, it := range items {
		text := strings.TrimSpace(it.Question)
		if text == "" {
			continue
		}
		d, ok := models.ParseDifficulty(it.Difficulty)
		if !ok {
			d = models.DifficultyMedium
		}
		out = append(out, models.Question{
			ID:         uuid.NewString(),
			Text:       text,
			Difficulty: d,
			Origin:     origin,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no usable questions", llm.ErrMalformedResponse)
	}
	return out, nil
}

// sourceInfo renders what the generator may draw from.
func sourceInfo(settings models.InterviewSettings, profile models.CandidateProfile) string {
	topics := strings.Join(settings.Topics, ", ")
	switch settings.QuestionSource {
	case models.SourceResumeOnly:
		return "Candidate's Resume:\n" + profile.ResumeText
	case models.SourceTopicsOnly:
		return "Job Topics:\n" + topics
	default:
		return "Job Topics:\n" + topics + "\n\nCandidate's Resume:\n" + profile.ResumeText
	}
}

// offlineFilters matches bank categories by skills, topics and technologies.
func offlineFilters(settings models.InterviewSettings, profile models.CandidateProfile, exclude []string) bank.Filters {
	tags := append([]string(nil), settings.Topics...)
	tags = append(tags, profile.Technologies...)
	return bank.Filters{
		Categories: profile.SkillNames(),
		Tags:       tags,
		Exclude:    exclude,
	}
}

