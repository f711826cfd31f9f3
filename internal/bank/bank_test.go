package bank

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/interview-os/internal/models"
)

func countByDifficulty(qs []models.Question) map[models.Difficulty]int {
	out := make(map[models.Difficulty]int)
	for _, q := range qs {
		out[q.Difficulty]++
	}
	return out
}

func texts(qs []models.Question) map[string]bool {
	out := make(map[string]bool)
	for _, q := range qs {
		out[q.Text] = true
	}
	return out
}

func TestDefault_IsValid(t *testing.T) {
	b := Default()
	assert.Contains(t, b.Categories(), "react")
	assert.Contains(t, b.Categories(), "tableau")
	assert.Len(t, b.Categories(), 16)
}

func TestSelect_EmptySkillsUsesBehavioralPool(t *testing.T) {
	b := Default()
	counts := models.DifficultyCounts{Easy: 5, Medium: 4, Hard: 4}

	qs := b.Select(Filters{}, counts)

	require.Len(t, qs, 13)
	assert.Equal(t, map[models.Difficulty]int{
		models.DifficultyEasy:   5,
		models.DifficultyMedium: 4,
		models.DifficultyHard:   4,
	}, countByDifficulty(qs))
	assert.Len(t, texts(qs), 13, "no duplicate texts")

	behavioral := make(map[string]bool)
	for _, d := range models.Difficulties {
		for _, text := range b.file.Behavioral.For(d) {
			behavioral[text] = true
		}
	}
	for _, q := range qs {
		assert.True(t, behavioral[q.Text], "not from behavioral pool: %s", q.Text)
		assert.Equal(t, models.OriginOfflineBank, q.Origin)
		assert.NotEmpty(t, q.ID)
	}
}

func TestSelect_MatchesSkillsFirst(t *testing.T) {
	b := Default()

	qs := b.Select(Filters{Categories: []string{" React "}}, models.DifficultyCounts{Easy: 2, Medium: 2, Hard: 2})

	require.Len(t, qs, 6)
	reactTexts := make(map[string]bool)
	for _, c := range b.file.Categories {
		if c.Name == "react" {
			for _, d := range models.Difficulties {
				for _, text := range c.For(d) {
					reactTexts[text] = true
				}
			}
		}
	}
	for _, q := range qs {
		assert.True(t, reactTexts[q.Text], "expected react question, got %s", q.Text)
	}
}

func TestSelect_MatchesTags(t *testing.T) {
	b := Default()

	qs := b.Select(Filters{Tags: []string{"cpp"}}, models.DifficultyCounts{Hard: 1})

	require.Len(t, qs, 1)
	assert.Contains(t, []string{
		"What is RAII (Resource Acquisition Is Initialization)?",
		"Explain move semantics and rvalue references.",
		"What is template metaprogramming?",
	}, qs[0].Text)
}

func TestSelect_ShortfallFilledFromBehavioral(t *testing.T) {
	b := Default()

	// system design has 3 easy questions
	qs := b.Select(Filters{Categories: []string{"system design"}}, models.DifficultyCounts{Easy: 5})

	require.Len(t, qs, 5)
	assert.Len(t, texts(qs), 5)
	assert.True(t, texts(qs)["What is a load balancer?"])
}

func TestSelect_Exclude(t *testing.T) {
	data := []byte(`
categories:
  - name: go
    easy: ["A", "B"]
behavioral:
  easy: ["C"]
  medium: ["M"]
  hard: ["H"]
`)
	b, err := Parse(data)
	require.NoError(t, err)

	qs := b.Select(Filters{Categories: []string{"go"}, Exclude: []string{"a"}}, models.DifficultyCounts{Easy: 2})

	require.Len(t, qs, 2)
	assert.Equal(t, map[string]bool{"B": true, "C": true}, texts(qs))
}

func TestSelect_RepeatsOnlyAsLastResort(t *testing.T) {
	data := []byte(`
behavioral:
  easy: ["E1", "E2"]
  medium: ["M1"]
  hard: ["H1"]
`)
	b, err := Parse(data)
	require.NoError(t, err)

	qs := b.Select(Filters{}, models.DifficultyCounts{Easy: 3, Medium: 1})

	require.Len(t, qs, 4)
	got := texts(qs)
	assert.True(t, got["E1"])
	assert.True(t, got["E2"])
	assert.True(t, got["M1"])
}

func TestSelect_ZeroCounts(t *testing.T) {
	assert.Empty(t, Default().Select(Filters{Categories: []string{"react"}}, models.DifficultyCounts{}))
}

func TestSelect_SeededOrderIsReproducible(t *testing.T) {
	counts := models.DifficultyCounts{Easy: 3, Medium: 3, Hard: 3}
	a := Default().WithSeed(42).Select(Filters{Categories: []string{"javascript"}}, counts)
	b := Default().WithSeed(42).Select(Filters{Categories: []string{"javascript"}}, counts)

	for i := range a {
		assert.Equal(t, a[i].Text, b[i].Text)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"empty", `{}`, ErrEmptyBank},
		{"missing behavioral hard", "behavioral:\n  easy: [a]\n  medium: [b]\n", ErrMissingBehavioral},
		{"unnamed category", "categories:\n  - easy: [x]\nbehavioral:\n  easy: [a]\n  medium: [b]\n  hard: [c]\n", ErrUnnamedCategory},
		{"duplicate category", "categories:\n  - name: Go\n  - name: go\nbehavioral:\n  easy: [a]\n  medium: [b]\n  hard: [c]\n", ErrDuplicateCategory},
		{"blank text", "behavioral:\n  easy: ['  ']\n  medium: [b]\n  hard: [c]\n", ErrEmptyQuestionText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := Parse([]byte("categories: [unclosed"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.yaml")
	require.NoError(t, os.WriteFile(path, []byte("behavioral:\n  easy: [a]\n  medium: [b]\n  hard: [c]\n"), 0o644))

	b, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, b.Select(Filters{}, models.DifficultyCounts{Easy: 1, Medium: 1, Hard: 1}), 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSizes(t *testing.T) {
	b, err := Parse([]byte("categories:\n  - name: Go\n    easy: [x, y]\n    hard: [z]\nbehavioral:\n  easy: [a]\n  medium: [b]\n  hard: [c]\n"))
	require.NoError(t, err)

	assert.Equal(t, models.DifficultyCounts{Easy: 3, Medium: 1, Hard: 2}, b.Sizes())
}
