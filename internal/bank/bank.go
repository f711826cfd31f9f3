// Package bank holds the offline question bank used when the online generator is unavailable.
package bank

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/blockedby/interview-os/internal/models"
)

//go:embed questions.yaml
var defaultBank []byte

// bank errors
var (
	ErrEmptyBank         = errors.New("question bank has no categories and no behavioral questions")
	ErrMissingBehavioral = errors.New("behavioral pool must have at least one question per difficulty")
	ErrUnnamedCategory   = errors.New("category name is required")
	ErrDuplicateCategory = errors.New("duplicate category name")
	ErrEmptyQuestionText = errors.New("question text is empty")
)

// Pool holds question texts per difficulty.
type Pool struct {
	Easy   []string `yaml:"easy"`
	Medium []string `yaml:"medium"`
	Hard   []string `yaml:"hard"`
}

// For returns the texts for difficulty d.
func (p Pool) For(d models.Difficulty) []string {
	switch d {
	case models.DifficultyEasy:
		return p.Easy
	case models.DifficultyMedium:
		return p.Medium
	case models.DifficultyHard:
		return p.Hard
	}
	return nil
}

// Category is a skill or topic with its own questions.
type Category struct {
	Name string   `yaml:"name"`
	Tags []string `yaml:"tags,omitempty"`
	Pool `yaml:",inline"`
}

// matches reports whether term names this category or one of its tags.
func (c Category) matches(term string) bool {
	if normalize(c.Name) == term {
		return true
	}
	for _, t := range c.Tags {
		if normalize(t) == term {
			return true
		}
	}
	return false
}

// File is the YAML document format of a question bank.
type File struct {
	Categories []Category `yaml:"categories"`
	Behavioral Pool       `yaml:"behavioral"`
}

// Validate checks structural rules of a bank file.
func (f *File) Validate() error {
	if len(f.Categories) == 0 && len(f.Behavioral.Easy)+len(f.Behavioral.Medium)+len(f.Behavioral.Hard) == 0 {
		return ErrEmptyBank
	}
	for _, d := range models.Difficulties {
		if len(f.Behavioral.For(d)) == 0 {
			return fmt.Errorf("%w: %s", ErrMissingBehavioral, d)
		}
		for _, text := range f.Behavioral.For(d) {
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("behavioral %s: %w", d, ErrEmptyQuestionText)
			}
		}
	}

	seen := make(map[string]bool)
	for i, c := range f.Categories {
		name := normalize(c.Name)
		if name == "" {
			return fmt.Errorf("category %d: %w", i, ErrUnnamedCategory)
		}
		if seen[name] {
			return fmt.Errorf("%w: %s", ErrDuplicateCategory, c.Name)
		}
		seen[name] = true
		for _, d := range models.Difficulties {
			for _, text := range c.For(d) {
				if strings.TrimSpace(text) == "" {
					return fmt.Errorf("category %s %s: %w", c.Name, d, ErrEmptyQuestionText)
				}
			}
		}
	}
	return nil
}

// Filters narrows a selection to matching categories.
type Filters struct {
	// Categories are skill or topic names, matched against category names and tags.
	Categories []string
	// Tags are extra terms (technologies) matched the same way.
	Tags []string
	// Exclude lists question texts that must not be drawn again.
	Exclude []string
}

// Bank is a parsed question bank. Safe for concurrent use.
type Bank struct {
	file File

	mu  sync.Mutex
	rng *rand.Rand
}

// Parse decodes and validates a YAML question bank.
func Parse(data []byte) (*Bank, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("validate question bank: %w", err)
	}
	return &Bank{
		file: f,
		rng:  rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}, nil
}

// Load reads a question bank from a YAML file.
func Load(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	return Parse(data)
}

// Default returns the embedded question bank.
func Default() *Bank {
	b, err := Parse(defaultBank)
	if err != nil {
		panic(fmt.Sprintf("embedded question bank is invalid: %v", err))
	}
	return b
}

// WithSeed replaces the random source. Used by tests that need a fixed order.
func (b *Bank) WithSeed(seed uint64) *Bank {
	b.mu.Lock()
	b.rng = rand.New(rand.NewPCG(seed, seed))
	b.mu.Unlock()
	return b
}

// Categories returns the category names in file order.
func (b *Bank) Categories() []string {
	out := make([]string, 0, len(b.file.Categories))
	for _, c := range b.file.Categories {
		out = append(out, c.Name)
	}
	return out
}

// Sizes counts the question texts available per difficulty, behavioral pool included.
func (b *Bank) Sizes() models.DifficultyCounts {
	add := func(out *models.DifficultyCounts, p Pool) {
		out.Easy += len(p.Easy)
		out.Medium += len(p.Medium)
		out.Hard += len(p.Hard)
	}

	var out models.DifficultyCounts
	add(&out, b.file.Behavioral)
	for _, c := range b.file.Categories {
		add(&out, c.Pool)
	}
	return out
}

// Select draws counts questions per difficulty.
// Matching categories are used first, then the behavioral pool. No text is drawn twice in one call
// while distinct entries remain; behavioral questions repeat only when the pool is smaller than the
// shortfall.
func (b *Bank) Select(f Filters, counts models.DifficultyCounts) []models.Question {
	b.mu.Lock()
	defer b.mu.Unlock()

	used := make(map[string]bool)
	for _, text := range f.Exclude {
		used[normalize(text)] = true
	}

	matched := b.matching(f)
	var out []models.Question

	for _, d := range models.Difficulties {
		need := counts.For(d)
		if need <= 0 {
			continue
		}

		var pool []string
		for _, c := range matched {
			pool = append(pool, c.For(d)...)
		}
		picked := b.draw(pool, need, used)

		if len(picked) < need {
			picked = append(picked, b.draw(b.file.Behavioral.For(d), need-len(picked), used)...)
		}

		// last resort: the behavioral pool is smaller than the shortfall
		if behavioral := b.file.Behavioral.For(d); len(picked) < need && len(behavioral) > 0 {
			shuffled := b.shuffled(behavioral)
			for i := 0; len(picked) < need; i++ {
				picked = append(picked, shuffled[i%len(shuffled)])
			}
		}

		for _, text := range picked {
			out = append(out, models.Question{
				ID:         uuid.NewString(),
				Text:       text,
				Difficulty: d,
				Origin:     models.OriginOfflineBank,
			})
		}
	}
	return out
}

// matching returns categories named by the filters, in file order.
func (b *Bank) matching(f Filters) []Category {
	terms := make(map[string]bool)
	for _, t := range append(append([]string(nil), f.Categories...), f.Tags...) {
		if n := normalize(t); n != "" {
			terms[n] = true
		}
	}
	if len(terms) == 0 {
		return nil
	}

	var out []Category
	for _, c := range b.file.Categories {
		for term := range terms {
			if c.matches(term) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// draw picks up to n unused texts from pool in random order and marks them used.
func (b *Bank) draw(pool []string, n int, used map[string]bool) []string {
	var picked []string
	for _, text := range b.shuffled(pool) {
		if len(picked) == n {
			break
		}
		key := normalize(text)
		if used[key] {
			continue
		}
		used[key] = true
		picked = append(picked, text)
	}
	return picked
}

func (b *Bank) shuffled(pool []string) []string {
	out := append([]string(nil), pool...)
	b.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
