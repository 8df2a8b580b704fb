// Package llm talks to the text generation backends used for answers and
// conversation summaries.
package llm

import (
	"context"
	"strings"
)

// Provider is the interface all LLM backends must implement.
type Provider interface {
	// Chat sends a chat completion request and returns the full response.
	Chat(ctx context.Context, req *ChatRequest) (*Response, error)

	// Name returns the provider name (e.g. "openai", "anthropic").
	Name() string

	// DefaultModel returns the default model for this provider.
	DefaultModel() string
}

// LLMError wraps an error with a classification for fallback logic.
type LLMError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *LLMError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// classify maps an SDK error onto an ErrorType by inspecting its message.
// Both SDKs render the HTTP status and the API error type in Error().
func classify(err error, provider string) *LLMError {
	lower := strings.ToLower(err.Error())
	llmErr := &LLMError{Err: err, Message: provider + " request failed"}

	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "403") ||
		strings.Contains(lower, "unauthorized") || strings.Contains(lower, "authentication"):
		llmErr.Type = ErrorAuth
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit") || strings.Contains(lower, "rate_limit"):
		llmErr.Type = ErrorRateLimit
	case strings.Contains(lower, "400") || strings.Contains(lower, "invalid_request") || strings.Contains(lower, "invalid"):
		llmErr.Type = ErrorInvalidInput
	case strings.Contains(lower, "500") || strings.Contains(lower, "502") ||
		strings.Contains(lower, "503") || strings.Contains(lower, "overloaded"):
		llmErr.Type = ErrorServerError
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline"):
		llmErr.Type = ErrorTimeout
	case strings.Contains(lower, "connection") || strings.Contains(lower, "dns") || strings.Contains(lower, "refused"):
		llmErr.Type = ErrorNetwork
	default:
		llmErr.Type = ErrorUnknown
	}
	return llmErr
}
