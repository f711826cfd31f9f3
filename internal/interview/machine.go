// Package interview drives one candidate's interview through its lifecycle.
//
// Every state change is a Transition consumed by Apply, which never mutates its input.
// The Engine serializes transitions per candidate, persists each committed snapshot and
// fans it out to subscribers.
package interview

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/blockedby/interview-os/internal/models"
)

const (
	// MaxFollowUpsPerRoot caps clarifying questions inserted after one root question.
	MaxFollowUpsPerRoot = 1
	// MaxConsecutiveNoAnswers ends the interview early when reached.
	MaxConsecutiveNoAnswers = 2
	// TerminationFeedback is the final feedback of an interview ended by ForceTerminate.
	TerminationFeedback = "Interview ended prematurely due to multiple unanswered questions."
)

// transition errors
var (
	ErrNotFound              = errors.New("candidate not found")
	ErrInvalidTransition     = errors.New("invalid transition")
	ErrStale                 = errors.New("stale transition")
	ErrNoQuestions           = errors.New("no questions available")
	ErrNoQuestionsConfigured = errors.New("difficulty distribution requests zero questions")
)

// Transition is a request to change a candidate's interview state.
// The set is closed: only the types declared in this file implement it.
type Transition interface {
	transition()
	Name() string
}

// Start activates the first question of a freshly acquired question set.
type Start struct {
	Questions []models.Question
	Settings  models.InterviewSettings
	Notice    string
	At        time.Time
}

// SubmitAnswer records the candidate's answer for the active question.
type SubmitAnswer struct {
	QuestionID string
	Text       string
	At         time.Time
}

// Timeout records an empty answer for a question whose timer ran out.
type Timeout struct {
	QuestionID string
	At         time.Time
}

// ApplyEvaluation attaches the evaluation of the pending answer.
// A nil Evaluation means the answer stays unscored. FollowUpID names the follow-up
// question inserted when the evaluation proposes one.
type ApplyEvaluation struct {
	QuestionID string
	Evaluation *models.Evaluation
	FollowUpID string
	Notice     string
}

// Advance moves to the next question once the pending answer is evaluated.
type Advance struct {
	At time.Time
}

// Finalize records the final score and summary.
type Finalize struct {
	Score   int
	Summary string
}

// ForceTerminate ends the interview after too many unanswered questions.
type ForceTerminate struct {
	Reason string
}

// Reset returns a completed interview to not-started.
type Reset struct{}

func (Start) transition()           {}
func (SubmitAnswer) transition()    {}
func (Timeout) transition()         {}
func (ApplyEvaluation) transition() {}
func (Advance) transition()         {}
func (Finalize) transition()        {}
func (ForceTerminate) transition()  {}
func (Reset) transition()           {}

func (Start) Name() string           { return "start" }
func (SubmitAnswer) Name() string    { return "submit_answer" }
func (Timeout) Name() string         { return "timeout" }
func (ApplyEvaluation) Name() string { return "apply_evaluation" }
func (Advance) Name() string         { return "advance" }
func (Finalize) Name() string        { return "finalize" }
func (ForceTerminate) Name() string  { return "force_terminate" }
func (Reset) Name() string           { return "reset" }

// Apply returns the candidate that results from applying t to c.
// c is never modified. ErrStale means t lost a race and should be dropped silently;
// ErrInvalidTransition means t is not allowed in c's current state.
func Apply(c models.Candidate, t Transition) (models.Candidate, error) {
	next := c.Clone()
	var err error

	switch t := t.(type) {
	case Start:
		err = applyStart(&next, t)
	case SubmitAnswer:
		err = applySubmit(&next, t.QuestionID, t.Text, t.At, false)
	case Timeout:
		err = applySubmit(&next, t.QuestionID, "", t.At, true)
	case ApplyEvaluation:
		err = applyEvaluation(&next, t)
	case Advance:
		err = applyAdvance(&next, t)
	case Finalize:
		err = applyFinalize(&next, t)
	case ForceTerminate:
		err = applyForceTerminate(&next, t)
	case Reset:
		err = applyReset(&next)
	default:
		err = fmt.Errorf("%w: unknown transition %T", ErrInvalidTransition, t)
	}

	if err != nil {
		return c, err
	}
	return next, nil
}

func invalid(c *models.Candidate, name string) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, name, c.Status)
}

func applyStart(c *models.Candidate, t Start) error {
	if c.Status != models.StatusNotStarted {
		return invalid(c, t.Name())
	}
	if len(t.Questions) == 0 {
		return ErrNoQuestions
	}

	questions := slices.Clone(t.Questions)
	seen := make(map[string]bool, len(questions))
	for i := range questions {
		q := &questions[i]
		if q.ID == "" || seen[q.ID] {
			return fmt.Errorf("%w: duplicate or empty question id %q", ErrInvalidTransition, q.ID)
		}
		seen[q.ID] = true
		if q.TimeLimit <= 0 {
			q.TimeLimit = t.Settings.TimeLimits.For(q.Difficulty)
		}
	}
	slices.SortStableFunc(questions, func(a, b models.Question) int {
		return a.Difficulty.Rank() - b.Difficulty.Rank()
	})

	c.Settings = t.Settings
	c.Questions = questions
	c.Answers = []models.Answer{}
	c.CurrentQuestionIndex = 0
	c.CurrentQuestionStartTime = millis(t.At)
	c.ConsecutiveNoAnswers = 0
	c.FinalScore = nil
	c.FinalFeedback = nil
	c.Notice = t.Notice
	c.Status = models.StatusInProgress
	return nil
}

func applySubmit(c *models.Candidate, questionID, text string, at time.Time, timeout bool) error {
	name := SubmitAnswer{}.Name()
	if timeout {
		name = Timeout{}.Name()
	}

	_, _, answered := c.AnswerFor(questionID)
	cur, ok := c.CurrentQuestion()
	if c.Status != models.StatusInProgress || !ok || cur.ID != questionID || answered {
		// A timer firing for anything but the active unanswered question lost the race.
		if timeout || answered {
			return fmt.Errorf("%w: %s for question %s", ErrStale, name, questionID)
		}
		if c.Status != models.StatusInProgress {
			return invalid(c, name)
		}
		return fmt.Errorf("%w: question %s is not active", ErrInvalidTransition, questionID)
	}

	a := models.Answer{
		QuestionID:  questionID,
		Text:        text,
		SubmittedAt: at.UnixMilli(),
	}
	c.Answers = append(c.Answers, a)
	if a.Empty() {
		c.ConsecutiveNoAnswers++
	} else {
		c.ConsecutiveNoAnswers = 0
	}
	c.CurrentQuestionStartTime = nil
	c.Status = models.StatusEvaluating
	return nil
}

func applyEvaluation(c *models.Candidate, t ApplyEvaluation) error {
	cur, ok := c.CurrentQuestion()
	a, idx, answered := c.AnswerFor(t.QuestionID)
	if c.Status != models.StatusEvaluating || !ok || cur.ID != t.QuestionID || !answered || a.Evaluated {
		return fmt.Errorf("%w: %s for question %s", ErrStale, t.Name(), t.QuestionID)
	}

	if e := t.Evaluation; e != nil {
		score := math.Max(0, math.Min(10, e.Score))
		feedback := e.Feedback
		a.Score = &score
		a.Feedback = &feedback

		if text := strings.TrimSpace(e.FollowUpText); text != "" && t.FollowUpID != "" && !cur.IsFollowUp() {
			fu := models.Question{
				ID:          t.FollowUpID,
				Text:        text,
				Difficulty:  cur.Difficulty,
				TimeLimit:   cur.TimeLimit,
				Origin:      models.OriginFollowUp,
				FollowUpFor: cur.ID,
			}
			q, err := Queue(c.Questions).InsertAfter(cur.ID, fu)
			switch {
			case err == nil:
				c.Questions = q
				a.FollowUpRequested = true
			case errors.Is(err, ErrFollowUpLimit):
			default:
				return err
			}
		}
	}
	a.Evaluated = true
	c.Answers[idx] = a
	if t.Notice != "" {
		c.Notice = t.Notice
	}
	return nil
}

func applyAdvance(c *models.Candidate, t Advance) error {
	cur, ok := c.CurrentQuestion()
	if c.Status != models.StatusEvaluating || !ok {
		return invalid(c, t.Name())
	}
	if a, _, answered := c.AnswerFor(cur.ID); !answered || !a.Evaluated {
		return fmt.Errorf("%w: question %s is not evaluated yet", ErrInvalidTransition, cur.ID)
	}

	c.CurrentQuestionIndex++
	if c.CurrentQuestionIndex < len(c.Questions) {
		c.CurrentQuestionStartTime = millis(t.At)
		c.Status = models.StatusInProgress
		return nil
	}
	c.CurrentQuestionIndex = len(c.Questions)
	c.CurrentQuestionStartTime = nil
	c.Status = models.StatusCompleting
	return nil
}

func applyFinalize(c *models.Candidate, t Finalize) error {
	switch c.Status {
	case models.StatusCompleted:
		return fmt.Errorf("%w: already completed", ErrStale)
	case models.StatusCompleting:
	default:
		return invalid(c, t.Name())
	}

	score := min(max(t.Score, 0), 100)
	summary := t.Summary
	c.FinalScore = &score
	c.FinalFeedback = &summary
	c.CurrentQuestionStartTime = nil
	c.Status = models.StatusCompleted
	return nil
}

func applyForceTerminate(c *models.Candidate, t ForceTerminate) error {
	switch c.Status {
	case models.StatusCompleted:
		return fmt.Errorf("%w: already completed", ErrStale)
	case models.StatusInProgress, models.StatusEvaluating, models.StatusCompleting:
	default:
		return invalid(c, t.Name())
	}
	if c.ConsecutiveNoAnswers < MaxConsecutiveNoAnswers {
		return fmt.Errorf("%w: %d consecutive unanswered questions", ErrInvalidTransition, c.ConsecutiveNoAnswers)
	}

	feedback := TerminationFeedback
	if reason := strings.TrimSpace(t.Reason); reason != "" && reason != TerminationFeedback {
		feedback += " " + reason
	}

	answered := make([]models.Answer, 0, len(c.Answers))
	for _, a := range c.Answers {
		if !a.Empty() {
			answered = append(answered, a)
		}
	}
	c.FinalScore = nil
	if score, ok := models.ScorePercent(answered); ok {
		c.FinalScore = &score
	}
	c.FinalFeedback = &feedback
	c.CurrentQuestionStartTime = nil
	c.Status = models.StatusCompleted
	return nil
}

func applyReset(c *models.Candidate) error {
	if c.Status != models.StatusCompleted {
		return invalid(c, Reset{}.Name())
	}
	c.Questions = []models.Question{}
	c.Answers = []models.Answer{}
	c.CurrentQuestionIndex = -1
	c.CurrentQuestionStartTime = nil
	c.ConsecutiveNoAnswers = 0
	c.FinalScore = nil
	c.FinalFeedback = nil
	c.Notice = ""
	c.Status = models.StatusNotStarted
	return nil
}

// Remaining returns the time left on the active question's timer, recomputed from the
// persisted start time. ok is false when no timer is running.
func Remaining(c models.Candidate, now time.Time) (remaining time.Duration, ok bool) {
	q, active := c.CurrentQuestion()
	if c.Status != models.StatusInProgress || !active || c.CurrentQuestionStartTime == nil {
		return 0, false
	}
	limit := time.Duration(q.TimeLimit) * time.Second
	elapsed := now.Sub(time.UnixMilli(*c.CurrentQuestionStartTime))
	return max(limit-elapsed, 0), true
}

// Expired reports whether the active question's timer has run out.
func Expired(c models.Candidate, now time.Time) bool {
	remaining, ok := Remaining(c, now)
	return ok && remaining <= 0
}

func millis(t time.Time) *int64 {
	ms := t.UnixMilli()
	return &ms
}
