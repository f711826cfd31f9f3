// Package settings validates interview settings and candidate profiles.
package settings

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/blockedby/interview-os/internal/models"
)

// MinTimeLimit is the smallest per-question time limit in seconds.
const MinTimeLimit = 10

// validation errors
var (
	ErrProfileIncomplete = errors.New("candidate name and a valid email are required")
	ErrResumeRequired    = errors.New("resume only mode requires resume text")
	ErrTopicsRequired    = errors.New("topics only mode requires at least one topic")
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		err := validate.RegisterValidation("question_source", func(fl validator.FieldLevel) bool {
			return models.QuestionSource(fl.Field().String()).Valid()
		})
		if err != nil {
			panic("settings: register question_source validation: " + err.Error())
		}
	})
	return validate
}

// Default returns the fixed fallback configuration.
func Default() models.InterviewSettings {
	return models.InterviewSettings{
		Topics: []string{"React", "Node.js", "JavaScript", "TypeScript", "System Design"},
		DifficultyDistribution: models.DifficultyCounts{
			Easy:   2,
			Medium: 3,
			Hard:   1,
		},
		TimeLimits: models.TimeLimits{
			Easy:   90,
			Medium: 180,
			Hard:   300,
		},
		QuestionSource: models.SourceTopicsAndResume,
	}
}

// Validate returns raw unchanged when it passes the schema, otherwise Default().
// It never fails: settings must not block an interview from starting.
func Validate(raw models.InterviewSettings) models.InterviewSettings {
	if err := validatorInstance().Struct(raw); err != nil {
		return Default()
	}
	raw.Topics = append([]string(nil), raw.Topics...)
	return raw
}

// Decode parses a JSON document into settings and validates it.
// Malformed JSON, wrong field types and schema failures all yield Default().
func Decode(data []byte) models.InterviewSettings {
	var raw struct {
		Topics                 *[]string                `json:"topics"`
		DifficultyDistribution *models.DifficultyCounts `json:"difficultyDistribution"`
		TimeLimits             *models.TimeLimits       `json:"timeLimits"`
		QuestionSource         *models.QuestionSource   `json:"questionSource"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Default()
	}
	if raw.Topics == nil || raw.DifficultyDistribution == nil || raw.TimeLimits == nil || raw.QuestionSource == nil {
		return Default()
	}
	return Validate(models.InterviewSettings{
		Topics:                 *raw.Topics,
		DifficultyDistribution: *raw.DifficultyDistribution,
		TimeLimits:             *raw.TimeLimits,
		QuestionSource:         *raw.QuestionSource,
	})
}

// IsValid reports whether s passes the schema as is.
func IsValid(s models.InterviewSettings) bool {
	return validatorInstance().Struct(s) == nil
}

// TotalQuestions returns the number of root questions s asks for.
func TotalQuestions(s models.InterviewSettings) int {
	return s.DifficultyDistribution.Total()
}

// CheckProfile rejects profiles without a name or a valid email.
func CheckProfile(p models.CandidateProfile) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	if err := validatorInstance().Struct(p); err != nil {
		return ErrProfileIncomplete
	}
	return nil
}

// CheckSource checks that the profile carries what the question source mode needs.
func CheckSource(s models.InterviewSettings, p models.CandidateProfile) error {
	switch s.QuestionSource {
	case models.SourceResumeOnly:
		if strings.TrimSpace(p.ResumeText) == "" {
			return ErrResumeRequired
		}
	case models.SourceTopicsOnly:
		if len(nonEmpty(s.Topics)) == 0 {
			return ErrTopicsRequired
		}
	}
	return nil
}

func nonEmpty(items []string) []string {
	var out []string
	for _, it := range items {
		if strings.TrimSpace(it) != "" {
			out = append(out, it)
		}
	}
	return out
}
