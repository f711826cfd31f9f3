package brain

import (
	"embed"
	"fmt"

	"github.com/blockedby/interview-os/internal/llm"
)

//go:embed prompts/*.xml
var promptsFS embed.FS

const (
	// Prompt file names (relative to embedded FS)
	generationPromptFile = "prompts/question-generation.xml"
	evaluationPromptFile = "prompts/answer-evaluation.xml"
	summaryPromptFile    = "prompts/final-summary.xml"
	profilePromptFile    = "prompts/profile-extraction.xml"
	skillsPromptFile     = "prompts/skill-ranking.xml"
)

type promptSet struct {
	generation *llm.PromptConfig
	evaluation *llm.PromptConfig
	summary    *llm.PromptConfig
	profile    *llm.PromptConfig
	skills     *llm.PromptConfig
}

// loadPrompts parses every embedded prompt.
func loadPrompts() (*promptSet, error) {
	set := &promptSet{}
	targets := map[string]**llm.PromptConfig{
		generationPromptFile: &set.generation,
		evaluationPromptFile: &set.evaluation,
		summaryPromptFile:    &set.summary,
		profilePromptFile:    &set.profile,
		skillsPromptFile:     &set.skills,
	}

	for file, dst := range targets {
		data, err := promptsFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read prompt %s: %w", file, err)
		}
		cfg, err := llm.ParsePrompt(data)
		if err != nil {
			return nil, fmt.Errorf("parse prompt %s: %w", file, err)
		}
		*dst = cfg
	}
	return set, nil
}
