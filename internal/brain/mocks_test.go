package brain

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var (
	errRateLimited = errors.New("429 RESOURCE_EXHAUSTED: rate limit exceeded")
	errPermanent   = errors.New("invalid api key")
)

// MockCompleter is a test double for the LLM client.
type MockCompleter struct {
	CompleteFunc func(ctx context.Context, model, systemPrompt, userPrompt string) (string, error)

	mu      sync.Mutex
	Models  []string
	Prompts []string
}

func (m *MockCompleter) Complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	m.Models = append(m.Models, model)
	m.Prompts = append(m.Prompts, userPrompt)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, model, systemPrompt, userPrompt)
	}
	return "{}", nil
}

func (m *MockCompleter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Models)
}

// replies returns a CompleteFunc answering each call with the next scripted reply.
func replies(items ...any) func(context.Context, string, string, string) (string, error) {
	var n atomic.Int32
	return func(context.Context, string, string, string) (string, error) {
		i := int(n.Add(1)) - 1
		if i >= len(items) {
			i = len(items) - 1
		}
		switch v := items[i].(type) {
		case error:
			return "", v
		case string:
			return v, nil
		}
		panic("reply must be string or error")
	}
}

type mockNetwork struct {
	online atomic.Bool
}

func newNetwork(online bool) *mockNetwork {
	n := &mockNetwork{}
	n.online.Store(online)
	return n
}

func (m *mockNetwork) Online() bool { return m.online.Load() }

func testPlan() Plan {
	plan := NewPlan([]string{"model-1", "model-2", "model-3"}, []time.Duration{time.Second, 2 * time.Second})
	plan.Sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return plan
}

func newTestGateway(t *testing.T, c Completer, network Connectivity) *Gateway {
	t.Helper()
	g, err := NewGateway(c, network, testPlan())
	require.NoError(t, err)
	nop := zerolog.Nop()
	g.SetLogger(&nop)
	return g
}
