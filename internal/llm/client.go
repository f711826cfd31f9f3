// Package llm provides an OpenAI-compatible LLM client.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// rateLimitPause is how long the limiter holds further requests after a 429.
const rateLimitPause = 2 * time.Second

// Client is a wrapper around go-openai with specific configurations.
// The model is chosen per call so callers can fall back across backends.
type Client struct {
	client      *openai.Client
	limiter     *RateLimiter
	maxTokens   int
	temperature float32
	timeout     time.Duration
}

// Config holds the configuration for the LLM client.
type Config struct {
	BaseURL        string
	APIKey         string
	MaxTokens      int
	Temperature    float32
	Timeout        time.Duration
	RequestsPerSec float64
}

// NewClient creates a new LLM client with the provided configuration.
func NewClient(cfg Config) *Client {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 2
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		client:      openai.NewClientWithConfig(config),
		limiter:     NewRateLimiter(rps, 1),
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     timeout,
	}
}

// Complete sends one chat completion to model and returns the raw content.
// The response is requested in JSON object mode.
func (c *Client) Complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		if IsRateLimited(err) {
			c.limiter.Pause(rateLimitPause)
		}
		return "", fmt.Errorf("llm completion: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}
