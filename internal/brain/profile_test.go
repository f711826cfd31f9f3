package brain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/interview-os/internal/models"
)

func TestExtractProfile(t *testing.T) {
	mock := &MockCompleter{CompleteFunc: replies(`{
		"name": " Ada Lovelace ", "email": "ada@example.com", "phone": "+1 555",
		"skills": ["Go", " ", "SQL"], "yearsOfExperience": 5,
		"keyProjects": [{"title": "Engine", "description": "Analytical"}, {"title": "", "description": "x"}],
		"technologies": ["PostgreSQL"]}`)}
	ex := NewProfileExtractor(newTestGateway(t, mock, newNetwork(true)))

	got := ex.ExtractProfile(context.Background(), "resume text")

	assert.Equal(t, "Ada Lovelace", got.Name)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.Equal(t, []string{"Go", "SQL"}, got.Skills)
	require.NotNil(t, got.YearsOfExperience)
	assert.Equal(t, 5.0, *got.YearsOfExperience)
	assert.Equal(t, []models.Project{{Title: "Engine", Description: "Analytical"}}, got.KeyProjects)
	assert.Equal(t, []string{"PostgreSQL"}, got.Technologies)
	assert.Contains(t, mock.Prompts[0], "resume text")
}

func TestExtractProfile_FailuresReturnEmpty(t *testing.T) {
	tests := []struct {
		name    string
		mock    *MockCompleter
		network *mockNetwork
		resume  string
	}{
		{"service error", &MockCompleter{CompleteFunc: replies(errPermanent)}, newNetwork(true), "resume"},
		{"malformed", &MockCompleter{CompleteFunc: replies("nope")}, newNetwork(true), "resume"},
		{"offline", &MockCompleter{}, newNetwork(false), "resume"},
		{"empty resume", &MockCompleter{}, newNetwork(true), "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := NewProfileExtractor(newTestGateway(t, tt.mock, tt.network))
			assert.Equal(t, models.CandidateProfile{}, ex.ExtractProfile(context.Background(), tt.resume))
		})
	}
}

func TestRankSkills(t *testing.T) {
	mock := &MockCompleter{CompleteFunc: replies(errRateLimited, `{"skills": [
		{"name": "SQL", "confidence": 60, "level": "Secondary"},
		{"name": "Go", "confidence": 130, "level": "Primary"},
		{"name": "go", "confidence": 10, "level": "Basic"},
		{"name": "Cobol", "confidence": 20, "level": "Expert"},
		{"name": "", "confidence": 50, "level": "Basic"},
		{"name": "Bash", "level": "Basic"}]}`)}
	rk := NewSkillRanker(newTestGateway(t, mock, newNetwork(true)))

	got := rk.RankSkills(context.Background(), "resume")

	assert.Equal(t, []models.RankedSkill{
		{Name: "Go", Confidence: 100, Level: models.SkillPrimary},
		{Name: "SQL", Confidence: 60, Level: models.SkillSecondary},
	}, got)
	assert.Equal(t, []string{"model-1", "model-2"}, mock.Models)
}

func TestRankSkills_Failures(t *testing.T) {
	exhausted := &MockCompleter{CompleteFunc: replies(errRateLimited)}
	rk := NewSkillRanker(newTestGateway(t, exhausted, newNetwork(true)))
	assert.Empty(t, rk.RankSkills(context.Background(), "resume"))
	assert.Equal(t, 3, exhausted.Calls())

	permanent := &MockCompleter{CompleteFunc: replies(errPermanent)}
	rk = NewSkillRanker(newTestGateway(t, permanent, newNetwork(true)))
	assert.Empty(t, rk.RankSkills(context.Background(), "resume"))
	assert.Equal(t, 1, permanent.Calls())

	allInvalid := &MockCompleter{CompleteFunc: replies(`{"skills": [{"name": "x", "confidence": 1, "level": "Guru"}]}`)}
	rk = NewSkillRanker(newTestGateway(t, allInvalid, newNetwork(true)))
	assert.Empty(t, rk.RankSkills(context.Background(), "resume"))
}
