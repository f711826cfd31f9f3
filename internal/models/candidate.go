package models

import (
	"math"
	"slices"
	"strings"
)

// InterviewStatus is the lifecycle state of one candidate's interview.
type InterviewStatus string

// InterviewStatus constants.
const (
	StatusNotStarted InterviewStatus = "not-started"
	StatusInProgress InterviewStatus = "in-progress"
	// StatusEvaluating blocks new submissions while the active answer is scored.
	StatusEvaluating InterviewStatus = "evaluating"
	// StatusCompleting means the queue is exhausted and Finalize is pending.
	StatusCompleting InterviewStatus = "completing"
	StatusCompleted  InterviewStatus = "completed"
)

// Candidate is the aggregate root of one interview.
type Candidate struct {
	ID                       string            `json:"id"`
	Profile                  CandidateProfile  `json:"profile"`
	Settings                 InterviewSettings `json:"interviewSettings"`
	Status                   InterviewStatus   `json:"interviewStatus"`
	Questions                []Question        `json:"questions"`
	Answers                  []Answer          `json:"answers"`
	CurrentQuestionIndex     int               `json:"currentQuestionIndex"`
	CurrentQuestionStartTime *int64            `json:"currentQuestionStartTime"` // epoch ms
	ConsecutiveNoAnswers     int               `json:"consecutiveNoAnswers"`
	FinalScore               *int              `json:"finalScore"`
	FinalFeedback            *string           `json:"finalFeedback"`
	Notice                   string            `json:"notice,omitempty"`
	CreatedAt                int64             `json:"createdAt"` // epoch ms
}

// CurrentQuestion returns the active question, if any.
func (c Candidate) CurrentQuestion() (Question, bool) {
	if c.CurrentQuestionIndex < 0 || c.CurrentQuestionIndex >= len(c.Questions) {
		return Question{}, false
	}
	return c.Questions[c.CurrentQuestionIndex], true
}

// AnswerFor returns the answer recorded for questionID and its position.
func (c Candidate) AnswerFor(questionID string) (Answer, int, bool) {
	for i, a := range c.Answers {
		if a.QuestionID == questionID {
			return a, i, true
		}
	}
	return Answer{}, -1, false
}

// Clone returns a deep copy so transitions never share slices with older snapshots.
func (c Candidate) Clone() Candidate {
	out := c
	out.Profile = c.Profile.clone()
	out.Settings.Topics = slices.Clone(c.Settings.Topics)
	out.Questions = slices.Clone(c.Questions)
	out.Answers = make([]Answer, len(c.Answers))
	for i, a := range c.Answers {
		out.Answers[i] = a.clone()
	}
	if c.Answers == nil {
		out.Answers = nil
	}
	out.CurrentQuestionStartTime = clonePtr(c.CurrentQuestionStartTime)
	out.FinalScore = clonePtr(c.FinalScore)
	out.FinalFeedback = clonePtr(c.FinalFeedback)
	return out
}

func (p CandidateProfile) clone() CandidateProfile {
	out := p
	out.Photo = clonePtr(p.Photo)
	out.Skills = slices.Clone(p.Skills)
	out.RankedSkills = slices.Clone(p.RankedSkills)
	out.YearsOfExperience = clonePtr(p.YearsOfExperience)
	out.KeyProjects = slices.Clone(p.KeyProjects)
	out.Technologies = slices.Clone(p.Technologies)
	return out
}

func (a Answer) clone() Answer {
	out := a
	out.Score = clonePtr(a.Score)
	out.Feedback = clonePtr(a.Feedback)
	return out
}

// ScorePercent converts the scored answers (0-10 each) into a 0-100 score.
// ok is false when no answer carries a score.
func ScorePercent(answers []Answer) (score int, ok bool) {
	var sum float64
	var n int
	for _, a := range answers {
		if a.Score == nil {
			continue
		}
		sum += *a.Score
		n++
	}
	if n == 0 {
		return 0, false
	}
	return int(math.Round(100 * sum / float64(10*n))), true
}

// Session is the full persisted application record.
type Session struct {
	Candidates          []Candidate       `json:"candidates"`
	ActiveCandidateID   string            `json:"activeCandidateId,omitempty"`
	Settings            InterviewSettings `json:"interviewSettings"`
	OnboardingCompleted bool              `json:"hasCompletedOnboarding"`
}

// Find returns the position of the candidate with the given id, or -1.
func (s *Session) Find(id string) int {
	for i := range s.Candidates {
		if s.Candidates[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	out := s
	out.Settings.Topics = slices.Clone(s.Settings.Topics)
	out.Candidates = make([]Candidate, len(s.Candidates))
	for i, c := range s.Candidates {
		out.Candidates[i] = c.Clone()
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
