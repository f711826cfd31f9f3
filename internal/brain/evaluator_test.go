package brain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/interview-os/internal/models"
)

func rootQuestion() models.Question {
	return models.Question{ID: "q1", Text: "What is a goroutine?", Difficulty: models.DifficultyEasy, Origin: models.OriginTopics}
}

func TestEvaluate_WithFollowUp(t *testing.T) {
	mock := &MockCompleter{CompleteFunc: replies(
		`{"score": 6, "feedback": " Decent. ", "askFollowUp": true, "followUpQuestion": "How are they scheduled?"}`,
	)}
	ev := NewEvaluator(newTestGateway(t, mock, newNetwork(true)))

	got := ev.Evaluate(context.Background(), rootQuestion(), "A light thread")

	require.NotNil(t, got)
	assert.Equal(t, 6.0, got.Score)
	assert.Equal(t, "Decent.", got.Feedback)
	assert.Equal(t, "How are they scheduled?", got.FollowUpText)
	assert.Contains(t, mock.Prompts[0], `Answer: "A light thread"`)
	assert.NotContains(t, mock.Prompts[0], noFollowUpRule)
}

func TestEvaluate_FollowUpQuestionNeverGetsFollowUp(t *testing.T) {
	mock := &MockCompleter{CompleteFunc: replies(
		`{"score": 4, "feedback": "Vague.", "askFollowUp": true, "followUpQuestion": "Again?"}`,
	)}
	ev := NewEvaluator(newTestGateway(t, mock, newNetwork(true)))

	fq := models.Question{ID: "f1", Text: "Clarify", Difficulty: models.DifficultyEasy, Origin: models.OriginFollowUp, FollowUpFor: "q1"}
	got := ev.Evaluate(context.Background(), fq, "still vague")

	require.NotNil(t, got)
	assert.Empty(t, got.FollowUpText)
	assert.Contains(t, mock.Prompts[0], noFollowUpRule)
}

func TestEvaluate_NoFollowUpRequested(t *testing.T) {
	mock := &MockCompleter{CompleteFunc: replies(
		`{"score": 9, "feedback": "Great.", "askFollowUp": false, "followUpQuestion": "ignored"}`,
	)}
	ev := NewEvaluator(newTestGateway(t, mock, newNetwork(true)))

	got := ev.Evaluate(context.Background(), rootQuestion(), "answer")

	require.NotNil(t, got)
	assert.Empty(t, got.FollowUpText)
}

func TestEvaluate_InvalidResponses(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"missing score", `{"feedback": "x", "askFollowUp": false}`},
		{"score out of range", `{"score": 11, "feedback": "x", "askFollowUp": false}`},
		{"missing feedback", `{"score": 5, "askFollowUp": false}`},
		{"missing askFollowUp", `{"score": 5, "feedback": "x"}`},
		{"wrong type", `{"score": "five", "feedback": "x", "askFollowUp": false}`},
		{"not json", `I think it is fine`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockCompleter{CompleteFunc: replies(tt.reply)}
			ev := NewEvaluator(newTestGateway(t, mock, newNetwork(true)))

			assert.Nil(t, ev.Evaluate(context.Background(), rootQuestion(), "answer"))
			assert.Equal(t, 3, mock.Calls(), "malformed replies are retried")
		})
	}
}

func TestEvaluate_Offline(t *testing.T) {
	mock := &MockCompleter{}
	ev := NewEvaluator(newTestGateway(t, mock, newNetwork(false)))

	assert.Nil(t, ev.Evaluate(context.Background(), rootQuestion(), "answer"))
	assert.Zero(t, mock.Calls())

	noClient := NewEvaluator(newTestGateway(t, nil, nil))
	assert.Nil(t, noClient.Evaluate(context.Background(), rootQuestion(), "answer"))
}

func TestEvaluate_RecoversOnSecondModel(t *testing.T) {
	mock := &MockCompleter{CompleteFunc: replies(errRateLimited, `{"score": 7, "feedback": "ok", "askFollowUp": false}`)}
	ev := NewEvaluator(newTestGateway(t, mock, newNetwork(true)))

	got := ev.Evaluate(context.Background(), rootQuestion(), "answer")

	require.NotNil(t, got)
	assert.Equal(t, 7.0, got.Score)
	assert.Equal(t, []string{"model-1", "model-2"}, mock.Models)
}
