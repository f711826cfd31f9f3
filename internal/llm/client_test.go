package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		BaseURL:        srv.URL + "/v1/",
		APIKey:         "test-key",
		MaxTokens:      256,
		Temperature:    0.2,
		Timeout:        5 * time.Second,
		RequestsPerSec: 100,
	})
}

func completionBody(content string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "test",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://localhost:1234/v1", APIKey: "test-key"})
	require.NotNil(t, client)
	assert.NotNil(t, client.client)
	assert.NotNil(t, client.limiter)
	assert.Equal(t, 60*time.Second, client.timeout)
}

func TestComplete_SendsModelAndJSONMode(t *testing.T) {
	var got map[string]any
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completionBody(`{"ok":true}`))
	})

	out, err := client.Complete(context.Background(), "gemini-2.5-flash", "system text", "user text")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)

	assert.Equal(t, "gemini-2.5-flash", got["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
	messages := got["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system text", messages[0].(map[string]any)["content"])
	assert.Equal(t, "user text", messages[1].(map[string]any)["content"])
}

func TestComplete_EmptyChoices(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completionBody("  "))
	})

	_, err := client.Complete(context.Background(), "m", "s", "u")
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.True(t, IsTransient(err))
}

func TestComplete_RateLimitedIsTransient(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Resource has been exhausted","type":"RESOURCE_EXHAUSTED"}}`))
	})

	_, err := client.Complete(context.Background(), "m", "s", "u")
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	assert.True(t, IsTransient(err))

	client.limiter.mu.Lock()
	paused := client.limiter.pausedUntil
	client.limiter.mu.Unlock()
	assert.True(t, paused.After(time.Now()), "limiter should pause after 429")
}

func TestComplete_BadRequestIsPermanent(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid model","type":"invalid_request_error"}}`))
	})

	_, err := client.Complete(context.Background(), "m", "s", "u")
	require.Error(t, err)
	assert.False(t, IsTransient(err))
}

func TestComplete_ContextCancelled(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, "m", "s", "u")
	require.Error(t, err)
	assert.False(t, IsTransient(err))
}
