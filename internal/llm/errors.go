package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// response errors
var (
	ErrEmptyResponse     = errors.New("empty response from llm")
	ErrMalformedResponse = errors.New("malformed response from llm")
)

var transientMarkers = []string{
	"rate limit",
	"resource_exhausted",
	"429",
	"503",
	"overloaded",
	"unavailable",
}

// statusOf extracts the HTTP status from go-openai errors, or 0.
func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// IsRateLimited reports whether err is a 429/503 or mentions a rate limit.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	switch statusOf(err) {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsTransient reports whether a failed call may succeed on another attempt or model.
// Malformed and empty responses count as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrEmptyResponse) || errors.Is(err, ErrMalformedResponse) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if IsRateLimited(err) {
		return true
	}

	status := statusOf(err)
	switch {
	case status == http.StatusRequestTimeout || status >= 500:
		return true
	case status >= 400:
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// CleanJSON removes markdown code fences if present.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Decode cleans raw and unmarshals it into v. Any failure wraps ErrMalformedResponse.
func Decode(raw string, v any) error {
	cleaned := CleanJSON(raw)
	if !json.Valid([]byte(cleaned)) {
		return fmt.Errorf("%w: invalid json", ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
