// Package brain talks to the online question, evaluation and summary services and degrades to
// offline behavior whenever they are unavailable.
package brain

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/blockedby/interview-os/internal/logger"
)

// notices shown to the candidate when the online service is not used
const (
	NoticeOfflineDetected   = "You are offline. The offline interview has started with a standard question set."
	NoticeOfflineStart      = "The offline interview has started with a standard question set."
	NoticeAIUnavailable     = "All AI models are unavailable. The offline interview has started with a standard question set."
	NoticeFeedbackOffline   = "AI feedback unavailable. Your answer was recorded without a score."
	retryNoticeFormat       = "Retrying AI question generation in %d seconds (attempt %d)."
	offlineSummary          = "The interview was completed offline. Final feedback could not be generated by the AI."
	neutralFinalScore       = 75
	resumeSummaryCharacters = 300
)

// Completer sends a prompt to a model and returns the raw JSON reply.
type Completer interface {
	Complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, error)
}

// Connectivity reports whether the online service may be reached.
type Connectivity interface {
	Online() bool
}

// Gateway holds what every online call needs.
type Gateway struct {
	llm     Completer
	network Connectivity
	plan    Plan
	prompts *promptSet
	log     *zerolog.Logger
}

// NewGateway creates a gateway. llm may be nil, in which case every call degrades to offline.
// network may be nil, meaning always online.
func NewGateway(llm Completer, network Connectivity, plan Plan) (*Gateway, error) {
	prompts, err := loadPrompts()
	if err != nil {
		return nil, err
	}
	return &Gateway{
		llm:     llm,
		network: network,
		plan:    plan,
		prompts: prompts,
		log:     logger.Component("brain"),
	}, nil
}

// SetLogger replaces the component logger.
func (g *Gateway) SetLogger(l *zerolog.Logger) {
	g.log = l
}

// online reports whether an online attempt may be made right now.
func (g *Gateway) online() bool {
	if g.llm == nil {
		return false
	}
	return g.network == nil || g.network.Online()
}

// complete runs the retry plan for one prompt and decodes the reply into out with validate.
func (g *Gateway) complete(
	ctx context.Context,
	system, user string,
	onRetry func(a Attempt, n int),
	decode func(raw string) error,
) error {
	return g.plan.Run(ctx, g.online, onRetry, func(ctx context.Context, model string) error {
		raw, err := g.llm.Complete(ctx, model, system, user)
		if err != nil {
			g.log.Warn().Err(err).Str("model", model).Msg("llm call failed")
			return err
		}
		if err := decode(raw); err != nil {
			g.log.Warn().Err(err).Str("model", model).Msg("llm response rejected")
			return err
		}
		return nil
	})
}
