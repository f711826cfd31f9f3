package interview

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/blockedby/interview-os/internal/brain"
	"github.com/blockedby/interview-os/internal/logger"
	"github.com/blockedby/interview-os/internal/models"
	"github.com/blockedby/interview-os/internal/settings"
)

// resumeDelay is how long the watchdog waits before retrying background work that
// stopped without finishing.
const resumeDelay = 5 * time.Second

// flow is the background work of one candidate.
type flow struct {
	mu      sync.Mutex
	pending int       // spawned and not yet finished
	lastRun time.Time // when the last spawned run finished
}

// Engine owns the session. Every change goes through commit, which applies it to a copy,
// saves the copy and only then exposes and broadcasts it.
type Engine struct {
	repo      Repository
	questions QuestionSource
	evaluator Evaluator
	scorer    Scorer
	network   Connectivity
	log       *zerolog.Logger
	now       func() time.Time
	newID     func() string

	broadcasters []Broadcaster

	mu      sync.Mutex
	session models.Session

	// flows serializes the multi-step work of one candidate (start, evaluate, finalize).
	flowsMu sync.Mutex
	flows   map[string]*flow

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	closed      bool
	unsubscribe func()
}

// NewEngine creates an engine. Call Load before using it.
func NewEngine(repo Repository, questions QuestionSource, evaluator Evaluator, scorer Scorer, network Connectivity) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		repo:      repo,
		questions: questions,
		evaluator: evaluator,
		scorer:    scorer,
		network:   network,
		log:       logger.Component("interview"),
		now:       time.Now,
		newID:     uuid.NewString,
		session:   newSession(),
		flows:     make(map[string]*flow),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SetLogger replaces the component logger.
func (e *Engine) SetLogger(l *zerolog.Logger) {
	e.log = l
}

// SetClock replaces the time source.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// AddBroadcaster registers a subscriber for committed changes. Not safe after Load.
func (e *Engine) AddBroadcaster(b Broadcaster) {
	e.broadcasters = append(e.broadcasters, b)
}

// Load reads the persisted session, repairs what older records lack and resumes
// interviews that were interrupted between steps.
func (e *Engine) Load(ctx context.Context) error {
	stored, err := e.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	session := migrate(stored)
	if err := e.repo.Save(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	e.mu.Lock()
	e.session = session
	e.mu.Unlock()

	if e.network != nil {
		e.unsubscribe = e.network.Subscribe(e.onConnectivity)
	}

	resumed := 0
	for _, c := range session.Candidates {
		switch c.Status {
		case models.StatusEvaluating:
			e.spawn(c.ID, e.evaluatePending)
			resumed++
		case models.StatusCompleting:
			e.spawn(c.ID, e.finalizePending)
			resumed++
		}
	}

	e.log.Info().
		Int("candidates", len(session.Candidates)).
		Int("resumed", resumed).
		Msg("session loaded")
	return nil
}

// Close stops background work and detaches from the connectivity signal.
func (e *Engine) Close() {
	e.flowsMu.Lock()
	e.closed = true
	e.flowsMu.Unlock()

	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	e.cancel()
	e.wg.Wait()
}

// Wait blocks until background evaluation and finalization finish.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Snapshot returns a copy of the whole session.
func (e *Engine) Snapshot() models.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone()
}

// Candidate returns a copy of one candidate.
func (e *Engine) Candidate(id string) (models.Candidate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.session.Find(id)
	if i < 0 {
		return models.Candidate{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.session.Candidates[i].Clone(), nil
}

// Online reports the current connectivity state.
func (e *Engine) Online() bool {
	return e.network == nil || e.network.Online()
}

// SetOnline feeds the connectivity signal.
func (e *Engine) SetOnline(online bool) {
	if e.network == nil {
		return
	}
	if e.network.Set(online) {
		e.log.Info().Bool("online", online).Msg("connectivity changed")
	}
}

func (e *Engine) onConnectivity(online bool) {
	e.broadcast(Event{Type: EventConnectivity, Online: &online})
}

// AddCandidate registers a new candidate with the current global settings and makes it active.
func (e *Engine) AddCandidate(ctx context.Context, profile models.CandidateProfile) (models.Candidate, error) {
	if err := settings.CheckProfile(profile); err != nil {
		return models.Candidate{}, err
	}

	var added models.Candidate
	err := e.mutate(ctx, func(s *models.Session) ([]Event, error) {
		added = models.Candidate{
			ID:                   e.newID(),
			Profile:              profile,
			Settings:             s.Settings,
			Status:               models.StatusNotStarted,
			Questions:            []models.Question{},
			Answers:              []models.Answer{},
			CurrentQuestionIndex: -1,
			CreatedAt:            e.now().UnixMilli(),
		}
		added = added.Clone()
		s.Candidates = append(s.Candidates, added)
		s.ActiveCandidateID = added.ID
		return []Event{candidateEvent(EventCandidateAdded, added, "")}, nil
	})
	if err != nil {
		return models.Candidate{}, err
	}

	e.log.Info().Str("candidate_id", added.ID).Msg("candidate added")
	return added.Clone(), nil
}

// SetActive selects the active candidate. An empty id clears the selection.
func (e *Engine) SetActive(ctx context.Context, id string) error {
	return e.mutate(ctx, func(s *models.Session) ([]Event, error) {
		if id != "" && s.Find(id) < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		s.ActiveCandidateID = id
		return []Event{{Type: EventSessionUpdated, CandidateID: id}}, nil
	})
}

// DeleteCandidate removes a candidate and clears the active selection if it pointed at it.
func (e *Engine) DeleteCandidate(ctx context.Context, id string) error {
	err := e.mutate(ctx, func(s *models.Session) ([]Event, error) {
		i := s.Find(id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		s.Candidates = slices.Delete(s.Candidates, i, i+1)
		if s.ActiveCandidateID == id {
			s.ActiveCandidateID = ""
		}
		return []Event{{Type: EventCandidateDeleted, CandidateID: id}}, nil
	})
	if err != nil {
		return err
	}
	e.forget(id)
	e.log.Info().Str("candidate_id", id).Msg("candidate deleted")
	return nil
}

// DeleteAll removes every candidate.
func (e *Engine) DeleteAll(ctx context.Context) error {
	var deleted []string
	err := e.mutate(ctx, func(s *models.Session) ([]Event, error) {
		events := make([]Event, 0, len(s.Candidates))
		for _, c := range s.Candidates {
			events = append(events, Event{Type: EventCandidateDeleted, CandidateID: c.ID})
			deleted = append(deleted, c.ID)
		}
		s.Candidates = []models.Candidate{}
		s.ActiveCandidateID = ""
		return events, nil
	})
	if err != nil {
		return err
	}
	e.forget(deleted...)
	return nil
}

// UpdateSettings validates and stores the global settings used by candidates added later.
// Invalid input is replaced by the defaults, never rejected.
func (e *Engine) UpdateSettings(ctx context.Context, raw models.InterviewSettings) (models.InterviewSettings, error) {
	validated := settings.Validate(raw)
	err := e.mutate(ctx, func(s *models.Session) ([]Event, error) {
		s.Settings = validated
		return []Event{{Type: EventSessionUpdated}}, nil
	})
	if err != nil {
		return models.InterviewSettings{}, err
	}
	return validated, nil
}

// CompleteOnboarding records that the onboarding tour was shown.
func (e *Engine) CompleteOnboarding(ctx context.Context) error {
	return e.mutate(ctx, func(s *models.Session) ([]Event, error) {
		s.OnboardingCompleted = true
		return []Event{{Type: EventSessionUpdated}}, nil
	})
}

// StartNewInterview abandons the interview currently running, if any, and clears the active
// candidate so a new one can be registered.
func (e *Engine) StartNewInterview(ctx context.Context) error {
	var abandoned string
	err := e.mutate(ctx, func(s *models.Session) ([]Event, error) {
		var events []Event
		i := slices.IndexFunc(s.Candidates, func(c models.Candidate) bool {
			return c.Status == models.StatusInProgress || c.Status == models.StatusEvaluating
		})
		if i >= 0 {
			abandoned = s.Candidates[i].ID
			events = append(events, Event{Type: EventCandidateDeleted, CandidateID: abandoned})
			s.Candidates = slices.Delete(s.Candidates, i, i+1)
		}
		s.ActiveCandidateID = ""
		return append(events, Event{Type: EventSessionUpdated}), nil
	})
	if err != nil {
		return err
	}
	if abandoned != "" {
		e.forget(abandoned)
	}
	return nil
}

// StartInterview acquires the question set and activates the first question.
// Settings and profile problems are returned before anything is committed.
func (e *Engine) StartInterview(ctx context.Context, id string) (models.Candidate, error) {
	unlock := e.lockFlow(id)
	defer unlock()

	c, err := e.Candidate(id)
	if err != nil {
		return models.Candidate{}, err
	}
	if c.Status != models.StatusNotStarted {
		return c, fmt.Errorf("%w: start from %s", ErrInvalidTransition, c.Status)
	}

	s := settings.Validate(c.Settings)
	if settings.TotalQuestions(s) == 0 {
		return c, ErrNoQuestionsConfigured
	}
	if err := settings.CheckSource(s, c.Profile); err != nil {
		return c, err
	}

	acq := e.questions.Acquire(ctx, s, c.Profile, func(notice string) {
		e.broadcast(Event{Type: EventNotice, CandidateID: id, Notice: notice})
	})
	if len(acq.Questions) == 0 {
		return c, ErrNoQuestions
	}
	if acq.Degraded {
		e.log.Warn().Str("candidate_id", id).Str("notice", acq.Notice).Msg("interview starts with offline questions")
	}

	return e.commit(ctx, id, Start{
		Questions: acq.Questions,
		Settings:  s,
		Notice:    acq.Notice,
		At:        e.now(),
	})
}

// SubmitAnswer records the answer for the active question. Evaluation continues in the
// background; the returned candidate is in the evaluating state, or completed when the
// answer was the second unanswered question in a row.
func (e *Engine) SubmitAnswer(ctx context.Context, id, questionID, text string) (models.Candidate, error) {
	next, err := e.commit(ctx, id, SubmitAnswer{QuestionID: questionID, Text: text, At: e.now()})
	if err != nil {
		return next, err
	}
	return e.afterAnswer(ctx, next), nil
}

// Timeout records an empty answer for questionID if it is still active and unanswered.
// It returns ErrStale when a submission or an earlier timeout won the race.
func (e *Engine) Timeout(ctx context.Context, id, questionID string) (models.Candidate, error) {
	next, err := e.commit(ctx, id, Timeout{QuestionID: questionID, At: e.now()})
	if err != nil {
		return next, err
	}
	e.log.Info().Str("candidate_id", id).Str("question_id", questionID).Msg("question timed out")
	return e.afterAnswer(ctx, next), nil
}

// Reset returns a completed interview to not-started.
func (e *Engine) Reset(ctx context.Context, id string) (models.Candidate, error) {
	return e.commit(ctx, id, Reset{})
}

func (e *Engine) afterAnswer(ctx context.Context, c models.Candidate) models.Candidate {
	if c.ConsecutiveNoAnswers >= MaxConsecutiveNoAnswers {
		done, err := e.commit(ctx, c.ID, ForceTerminate{Reason: TerminationFeedback})
		if err == nil {
			e.log.Info().Str("candidate_id", c.ID).Msg("interview terminated after unanswered questions")
			return done
		}
		e.drop(c.ID, ForceTerminate{}, err)
	}
	e.spawn(c.ID, e.evaluatePending)
	return c
}

// evaluatePending scores the answer waiting in the evaluating state, then advances.
func (e *Engine) evaluatePending(ctx context.Context, id string) {
	c, err := e.Candidate(id)
	if err != nil || c.Status != models.StatusEvaluating {
		return
	}
	if c.ConsecutiveNoAnswers >= MaxConsecutiveNoAnswers {
		if _, err := e.commit(ctx, id, ForceTerminate{Reason: TerminationFeedback}); err != nil {
			e.drop(id, ForceTerminate{}, err)
		}
		return
	}

	q, ok := c.CurrentQuestion()
	if !ok {
		return
	}
	a, _, answered := c.AnswerFor(q.ID)
	if !answered {
		return
	}

	if !a.Evaluated {
		eval := e.evaluator.Evaluate(ctx, q, a.Text)
		if ctx.Err() != nil {
			return
		}

		t := ApplyEvaluation{QuestionID: q.ID, Evaluation: eval}
		switch {
		case eval == nil:
			t.Notice = brain.NoticeFeedbackOffline
		case eval.FollowUpText != "":
			t.FollowUpID = e.newID()
		}
		if _, err := e.commit(ctx, id, t); err != nil {
			e.drop(id, t, err)
			return
		}
	}

	next, err := e.commit(ctx, id, Advance{At: e.now()})
	if err != nil {
		e.drop(id, Advance{}, err)
		return
	}
	if next.Status == models.StatusCompleting {
		e.finalize(ctx, next)
	}
}

// finalizePending finishes an interview whose question queue is exhausted.
func (e *Engine) finalizePending(ctx context.Context, id string) {
	c, err := e.Candidate(id)
	if err != nil || c.Status != models.StatusCompleting {
		return
	}
	e.finalize(ctx, c)
}

func (e *Engine) finalize(ctx context.Context, c models.Candidate) {
	final := e.scorer.Finalize(ctx, c)
	if ctx.Err() != nil {
		return
	}
	t := Finalize{Score: final.Score, Summary: final.Summary}
	if _, err := e.commit(ctx, c.ID, t); err != nil {
		e.drop(c.ID, t, err)
		return
	}
	e.log.Info().
		Str("candidate_id", c.ID).
		Int("score", final.Score).
		Bool("offline", final.Offline).
		Msg("interview completed")
}

// commit applies t to one candidate and persists the result.
func (e *Engine) commit(ctx context.Context, id string, t Transition) (models.Candidate, error) {
	var next models.Candidate
	err := e.mutate(ctx, func(s *models.Session) ([]Event, error) {
		i := s.Find(id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		applied, err := Apply(s.Candidates[i], t)
		if err != nil {
			next = s.Candidates[i].Clone()
			return nil, err
		}
		s.Candidates[i] = applied
		next = applied.Clone()
		return []Event{candidateEvent(EventCandidateUpdated, applied, t.Name())}, nil
	})
	if err != nil {
		return next, err
	}

	e.log.Debug().
		Str("candidate_id", id).
		Str("transition", t.Name()).
		Str("status", string(next.Status)).
		Int("index", next.CurrentQuestionIndex).
		Msg("transition committed")
	return next, nil
}

// mutate runs fn on a copy of the session, saves the copy and swaps it in.
func (e *Engine) mutate(ctx context.Context, fn func(s *models.Session) ([]Event, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.session.Clone()
	events, err := fn(&next)
	if err != nil {
		return err
	}
	if err := e.repo.Save(ctx, next); err != nil {
		e.log.Error().Err(err).Msg("failed to save session")
		return fmt.Errorf("save session: %w", err)
	}
	e.session = next

	for _, ev := range events {
		e.broadcast(ev)
	}
	return nil
}

func (e *Engine) broadcast(ev Event) {
	for _, b := range e.broadcasters {
		b.Broadcast(ev)
	}
}

// drop logs a transition that was not committed. Lost races are expected.
func (e *Engine) drop(id string, t Transition, err error) {
	if errors.Is(err, ErrStale) || errors.Is(err, ErrNotFound) {
		e.log.Debug().Err(err).Str("candidate_id", id).Str("transition", t.Name()).Msg("transition dropped")
		return
	}
	e.log.Error().Err(err).Str("candidate_id", id).Str("transition", t.Name()).Msg("transition failed")
}

// spawn runs fn in the background under the candidate's flow lock.
func (e *Engine) spawn(id string, fn func(ctx context.Context, id string)) {
	e.flowsMu.Lock()
	defer e.flowsMu.Unlock()
	e.spawnLocked(id, fn)
}

// spawnLocked is spawn with flowsMu held.
func (e *Engine) spawnLocked(id string, fn func(ctx context.Context, id string)) {
	if e.closed {
		return
	}
	f := e.flowLocked(id)
	f.pending++
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		f.mu.Lock()
		fn(e.ctx, id)
		f.mu.Unlock()

		e.flowsMu.Lock()
		f.pending--
		f.lastRun = e.now()
		e.flowsMu.Unlock()
	}()
}

// resume restarts background work for a candidate left in evaluating or completing with
// nothing running for it, for example after a failed save. It reports whether work was spawned.
func (e *Engine) resume(c models.Candidate, now time.Time) bool {
	var fn func(ctx context.Context, id string)
	switch c.Status {
	case models.StatusEvaluating:
		fn = e.evaluatePending
	case models.StatusCompleting:
		fn = e.finalizePending
	default:
		return false
	}

	e.flowsMu.Lock()
	defer e.flowsMu.Unlock()
	if f, ok := e.flows[c.ID]; ok && (f.pending > 0 || now.Sub(f.lastRun) < resumeDelay) {
		return false
	}
	e.spawnLocked(c.ID, fn)
	return true
}

func (e *Engine) lockFlow(id string) (unlock func()) {
	e.flowsMu.Lock()
	f := e.flowLocked(id)
	e.flowsMu.Unlock()

	f.mu.Lock()
	return f.mu.Unlock
}

func (e *Engine) flowLocked(id string) *flow {
	f, ok := e.flows[id]
	if !ok {
		f = &flow{}
		e.flows[id] = f
	}
	return f
}

// forget drops the flow records of deleted candidates. Runs still in flight keep their own
// reference and find the candidate gone.
func (e *Engine) forget(ids ...string) {
	e.flowsMu.Lock()
	defer e.flowsMu.Unlock()
	for _, id := range ids {
		delete(e.flows, id)
	}
}

func newSession() models.Session {
	return models.Session{
		Candidates: []models.Candidate{},
		Settings:   settings.Default(),
	}
}

// migrate fills in what older or partial records lack.
func migrate(stored *models.Session) models.Session {
	if stored == nil {
		return newSession()
	}

	s := stored.Clone()
	s.Settings = settings.Validate(s.Settings)
	if s.Candidates == nil {
		s.Candidates = []models.Candidate{}
	}
	for i := range s.Candidates {
		c := &s.Candidates[i]
		if !settings.IsValid(c.Settings) {
			c.Settings = s.Settings
		}
		if c.Status == "" {
			c.Status = models.StatusNotStarted
			c.CurrentQuestionIndex = -1
		}
		if c.Questions == nil {
			c.Questions = []models.Question{}
		}
		if c.Answers == nil {
			c.Answers = []models.Answer{}
		}
	}
	if s.ActiveCandidateID != "" && s.Find(s.ActiveCandidateID) < 0 {
		s.ActiveCandidateID = ""
	}
	return s
}
