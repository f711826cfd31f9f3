// Package models defines shared data types for the application.
package models

// Difficulty is the difficulty level of a question.
type Difficulty string

// Difficulty constants in ascending order.
const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Difficulties lists every difficulty in ascending order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Rank orders difficulties: Easy < Medium < Hard. Unknown values sort last.
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyEasy:
		return 1
	case DifficultyMedium:
		return 2
	case DifficultyHard:
		return 3
	default:
		return 4
	}
}

// Valid reports whether d is one of the known difficulties.
func (d Difficulty) Valid() bool {
	return d.Rank() < 4
}

// ParseDifficulty maps loosely formatted input ("easy", " HARD ") to a Difficulty.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch normalize(s) {
	case "easy":
		return DifficultyEasy, true
	case "medium":
		return DifficultyMedium, true
	case "hard":
		return DifficultyHard, true
	}
	return "", false
}

// QuestionSource selects what the online generator is allowed to draw from.
type QuestionSource string

// QuestionSource constants.
const (
	SourceResumeOnly      QuestionSource = "Resume Only"
	SourceTopicsOnly      QuestionSource = "Topics Only"
	SourceTopicsAndResume QuestionSource = "Resume & Topics"
)

// Valid reports whether s is one of the three supported modes.
func (s QuestionSource) Valid() bool {
	switch s {
	case SourceResumeOnly, SourceTopicsOnly, SourceTopicsAndResume:
		return true
	}
	return false
}

// Origin tags where a question came from.
type Origin string

// Origin constants.
const (
	OriginTopics          Origin = "topics"
	OriginResume          Origin = "resume"
	OriginTopicsAndResume Origin = "topics-resume"
	OriginOfflineBank     Origin = "offline-bank"
	OriginFollowUp        Origin = "clarification-followup"
)

// OriginFor returns the origin tag of generated questions for a source mode.
func OriginFor(source QuestionSource) Origin {
	switch source {
	case SourceResumeOnly:
		return OriginResume
	case SourceTopicsOnly:
		return OriginTopics
	default:
		return OriginTopicsAndResume
	}
}

// Question is a single interview question.
type Question struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	Difficulty  Difficulty `json:"difficulty"`
	TimeLimit   int        `json:"timeLimit"` // seconds
	Origin      Origin     `json:"origin"`
	FollowUpFor string     `json:"followUpFor,omitempty"`
}

// IsFollowUp reports whether q was inserted as a clarification of another question.
func (q Question) IsFollowUp() bool {
	return q.Origin == OriginFollowUp || q.FollowUpFor != ""
}

// Answer is the recorded response to one question.
type Answer struct {
	QuestionID        string   `json:"questionId"`
	Text              string   `json:"text"`
	SubmittedAt       int64    `json:"timestamp"` // epoch ms
	Score             *float64 `json:"score"`
	Feedback          *string  `json:"feedback"`
	FollowUpRequested bool     `json:"followUpRequested,omitempty"`
	Evaluated         bool     `json:"evaluated"`
}

// Empty reports whether the answer carries no text (skip or timeout).
func (a Answer) Empty() bool {
	return normalize(a.Text) == ""
}

// Evaluation is the online service's verdict on a single answer.
type Evaluation struct {
	Score        float64 `json:"score"`
	Feedback     string  `json:"feedback"`
	FollowUpText string  `json:"followUpText,omitempty"`
}

// Project is a key project extracted from a resume.
type Project struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SkillLevel classifies a ranked skill.
type SkillLevel string

// SkillLevel constants.
const (
	SkillPrimary   SkillLevel = "Primary"
	SkillSecondary SkillLevel = "Secondary"
	SkillBasic     SkillLevel = "Basic"
)

// RankedSkill is a skill with a confidence (0-100) and level.
type RankedSkill struct {
	Name       string     `json:"name"`
	Confidence float64    `json:"confidence"`
	Level      SkillLevel `json:"level"`
}

// CandidateProfile describes the person being interviewed.
type CandidateProfile struct {
	Name              string        `json:"name" validate:"required"`
	Email             string        `json:"email" validate:"required,email"`
	Phone             string        `json:"phone"`
	ResumeText        string        `json:"resumeText"`
	Photo             *string       `json:"photo"`
	Skills            []string      `json:"skills"`
	RankedSkills      []RankedSkill `json:"rankedSkills,omitempty"`
	YearsOfExperience *float64      `json:"yearsOfExperience,omitempty"`
	KeyProjects       []Project     `json:"keyProjects,omitempty"`
	Technologies      []string      `json:"technologies,omitempty"`
}

// SkillNames merges plain and ranked skills, ranked first, without duplicates.
func (p CandidateProfile) SkillNames() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		key := normalize(s)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, s)
	}
	for _, rs := range p.RankedSkills {
		add(rs.Name)
	}
	for _, s := range p.Skills {
		add(s)
	}
	return out
}

// Merge fills empty fields of p from an extracted partial profile.
func (p CandidateProfile) Merge(partial CandidateProfile) CandidateProfile {
	if p.Name == "" {
		p.Name = partial.Name
	}
	if p.Email == "" {
		p.Email = partial.Email
	}
	if p.Phone == "" {
		p.Phone = partial.Phone
	}
	if len(p.Skills) == 0 {
		p.Skills = partial.Skills
	}
	if len(p.RankedSkills) == 0 {
		p.RankedSkills = partial.RankedSkills
	}
	if p.YearsOfExperience == nil {
		p.YearsOfExperience = partial.YearsOfExperience
	}
	if len(p.KeyProjects) == 0 {
		p.KeyProjects = partial.KeyProjects
	}
	if len(p.Technologies) == 0 {
		p.Technologies = partial.Technologies
	}
	return p
}

// DifficultyCounts is the number of root questions per difficulty.
type DifficultyCounts struct {
	Easy   int `json:"easy" validate:"min=0"`
	Medium int `json:"medium" validate:"min=0"`
	Hard   int `json:"hard" validate:"min=0"`
}

// For returns the count configured for d.
func (c DifficultyCounts) For(d Difficulty) int {
	switch d {
	case DifficultyEasy:
		return c.Easy
	case DifficultyMedium:
		return c.Medium
	case DifficultyHard:
		return c.Hard
	}
	return 0
}

// Total returns the number of root questions.
func (c DifficultyCounts) Total() int {
	return c.Easy + c.Medium + c.Hard
}

// TimeLimits holds the per-difficulty answer time in seconds.
type TimeLimits struct {
	Easy   int `json:"easy" validate:"min=10"`
	Medium int `json:"medium" validate:"min=10"`
	Hard   int `json:"hard" validate:"min=10"`
}

// For returns the limit configured for d.
func (t TimeLimits) For(d Difficulty) int {
	switch d {
	case DifficultyEasy:
		return t.Easy
	case DifficultyMedium:
		return t.Medium
	case DifficultyHard:
		return t.Hard
	}
	return t.Medium
}

// InterviewSettings configures question generation and timing.
type InterviewSettings struct {
	Topics                 []string         `json:"topics" validate:"dive,required"`
	DifficultyDistribution DifficultyCounts `json:"difficultyDistribution"`
	TimeLimits             TimeLimits       `json:"timeLimits"`
	QuestionSource         QuestionSource   `json:"questionSource" validate:"question_source"`
}
