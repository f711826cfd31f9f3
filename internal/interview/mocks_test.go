package interview

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/interview-os/internal/brain"
	"github.com/blockedby/interview-os/internal/models"
)

// memRepo stores the session as JSON, like the real repositories do.
type memRepo struct {
	mu      sync.Mutex
	data    []byte
	saves   int
	LoadErr error
	SaveErr error
}

func (r *memRepo) Load(ctx context.Context) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.LoadErr != nil {
		return nil, r.LoadErr
	}
	if r.data == nil {
		return nil, nil
	}
	var s models.Session
	if err := json.Unmarshal(r.data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *memRepo) Save(ctx context.Context, s models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return r.SaveErr
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	r.data = data
	r.saves++
	return nil
}

func (r *memRepo) store(t *testing.T, s models.Session) {
	t.Helper()
	data, err := json.Marshal(s)
	require.NoError(t, err)
	r.mu.Lock()
	r.data = data
	r.mu.Unlock()
}

func (r *memRepo) failSaves(err error) {
	r.mu.Lock()
	r.SaveErr = err
	r.mu.Unlock()
}

// MockQuestionSource is a test double for the question gateway.
type MockQuestionSource struct {
	AcquireFunc func(ctx context.Context, s models.InterviewSettings, p models.CandidateProfile, progress func(string)) brain.Acquisition
}

func (m *MockQuestionSource) Acquire(ctx context.Context, s models.InterviewSettings, p models.CandidateProfile, progress func(string)) brain.Acquisition {
	if m.AcquireFunc != nil {
		return m.AcquireFunc(ctx, s, p, progress)
	}
	return brain.Acquisition{Questions: []models.Question{
		q("h1", models.DifficultyHard), q("e1", models.DifficultyEasy), q("m1", models.DifficultyMedium),
	}}
}

// MockEvaluator is a test double for the evaluation gateway.
type MockEvaluator struct {
	EvaluateFunc func(ctx context.Context, q models.Question, answer string) *models.Evaluation

	mu        sync.Mutex
	Questions []string
}

func (m *MockEvaluator) Evaluate(ctx context.Context, q models.Question, answer string) *models.Evaluation {
	m.mu.Lock()
	m.Questions = append(m.Questions, q.ID)
	m.mu.Unlock()
	if m.EvaluateFunc != nil {
		return m.EvaluateFunc(ctx, q, answer)
	}
	return &models.Evaluation{Score: 5, Feedback: "ok"}
}

func (m *MockEvaluator) Evaluated() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Questions...)
}

// MockScorer is a test double for the final scorer.
type MockScorer struct {
	FinalizeFunc func(ctx context.Context, c models.Candidate) brain.Final

	mu    sync.Mutex
	calls int
}

func (m *MockScorer) Finalize(ctx context.Context, c models.Candidate) brain.Final {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.FinalizeFunc != nil {
		return m.FinalizeFunc(ctx, c)
	}
	return brain.Final{Score: 77, Summary: "Summary"}
}

func (m *MockScorer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type fakeNetwork struct {
	mu     sync.Mutex
	online bool
	subs   map[int]func(bool)
	next   int
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{online: true, subs: map[int]func(bool){}}
}

func (n *fakeNetwork) Online() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.online
}

func (n *fakeNetwork) Set(online bool) bool {
	n.mu.Lock()
	if n.online == online {
		n.mu.Unlock()
		return false
	}
	n.online = online
	subs := make([]func(bool), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.Unlock()

	for _, fn := range subs {
		fn(online)
	}
	return true
}

func (n *fakeNetwork) Subscribe(fn func(bool)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

func (n *fakeNetwork) subscribers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Broadcast(event interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event.(Event))
}

func (r *recorder) ofType(typ string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Add(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	engine    *Engine
	repo      *memRepo
	questions *MockQuestionSource
	evaluator *MockEvaluator
	scorer    *MockScorer
	network   *fakeNetwork
	events    *recorder
	clock     *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithRepo(t, &memRepo{})
}

func newFixtureWithRepo(t *testing.T, repo *memRepo) *fixture {
	t.Helper()
	f := &fixture{
		repo:      repo,
		questions: &MockQuestionSource{},
		evaluator: &MockEvaluator{},
		scorer:    &MockScorer{},
		network:   newFakeNetwork(),
		events:    &recorder{},
		clock:     &clock{now: t0},
	}
	f.engine = NewEngine(f.repo, f.questions, f.evaluator, f.scorer, f.network)
	nop := zerolog.Nop()
	f.engine.SetLogger(&nop)
	f.engine.SetClock(f.clock.Now)
	f.engine.AddBroadcaster(f.events)
	require.NoError(t, f.engine.Load(context.Background()))
	t.Cleanup(f.engine.Close)
	return f
}

func (f *fixture) addCandidate(t *testing.T) models.Candidate {
	t.Helper()
	c, err := f.engine.AddCandidate(context.Background(), models.CandidateProfile{
		Name:       "Ada",
		Email:      "ada@example.com",
		ResumeText: "Go developer",
		Skills:     []string{"Go"},
	})
	require.NoError(t, err)
	return c
}

// startCandidate adds a candidate and starts its interview on [e1, m1, h1].
func (f *fixture) startCandidate(t *testing.T) models.Candidate {
	t.Helper()
	c := f.addCandidate(t)
	started, err := f.engine.StartInterview(context.Background(), c.ID)
	require.NoError(t, err)
	return started
}

// answer submits text for the active question and waits for evaluation to settle.
func (f *fixture) answer(t *testing.T, id, text string) models.Candidate {
	t.Helper()
	c, err := f.engine.Candidate(id)
	require.NoError(t, err)
	cur, ok := c.CurrentQuestion()
	require.True(t, ok, "no active question")

	_, err = f.engine.SubmitAnswer(context.Background(), id, cur.ID, text)
	require.NoError(t, err)
	f.engine.Wait()

	c, err = f.engine.Candidate(id)
	require.NoError(t, err)
	return c
}
