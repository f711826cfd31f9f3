package brain

import (
	"context"
	"fmt"
	"strings"

	"github.com/blockedby/interview-os/internal/llm"
	"github.com/blockedby/interview-os/internal/models"
)

const noFollowUpRule = "This is a follow-up question. Do not ask another follow-up."

// Evaluator scores single answers.
type Evaluator struct {
	*Gateway
}

// NewEvaluator creates an evaluator backed by g.
func NewEvaluator(g *Gateway) *Evaluator {
	return &Evaluator{Gateway: g}
}

type evaluationResponse struct {
	Score            *float64 `json:"score"`
	Feedback         *string  `json:"feedback"`
	AskFollowUp      *bool    `json:"askFollowUp"`
	FollowUpQuestion string   `json:"followUpQuestion"`
}

func (r evaluationResponse) validate() error {
	switch {
	case r.Score == nil:
		return fmt.Errorf("%w: score missing", llm.ErrMalformedResponse)
	case *r.Score < 0 || *r.Score > 10:
		return fmt.Errorf("%w: score %v out of range", llm.ErrMalformedResponse, *r.Score)
	case r.Feedback == nil:
		return fmt.Errorf("%w: feedback missing", llm.ErrMalformedResponse)
	case r.AskFollowUp == nil:
		return fmt.Errorf("%w: askFollowUp missing", llm.ErrMalformedResponse)
	}
	return nil
}

// Evaluate scores answer to q. It returns nil when the online service is unavailable or every
// attempt failed; callers record the answer without a score in that case.
// Follow-up questions never get a follow-up proposal.
func (e *Evaluator) Evaluate(ctx context.Context, q models.Question, answer string) *models.Evaluation {
	if !e.online() {
		return nil
	}

	rule := ""
	if q.IsFollowUp() {
		rule = noFollowUpRule
	}
	user := e.prompts.evaluation.Build(map[string]string{
		"QUESTION":       q.Text,
		"DIFFICULTY":     string(q.Difficulty),
		"ANSWER":         answer,
		"FOLLOW_UP_RULE": rule,
	})

	var resp evaluationResponse
	err := e.complete(ctx, e.prompts.evaluation.System, user, nil, func(raw string) error {
		var r evaluationResponse
		if err := llm.Decode(raw, &r); err != nil {
			return err
		}
		if err := r.validate(); err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		e.log.Warn().Err(err).Str("question_id", q.ID).Msg("answer evaluation unavailable")
		return nil
	}

	eval := &models.Evaluation{
		Score:    *resp.Score,
		Feedback: strings.TrimSpace(*resp.Feedback),
	}
	if *resp.AskFollowUp && !q.IsFollowUp() {
		eval.FollowUpText = strings.TrimSpace(resp.FollowUpQuestion)
	}
	return eval
}
