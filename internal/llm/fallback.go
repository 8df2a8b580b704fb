package llm

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// FallbackProvider tries providers in order, falling back on retryable errors.
type FallbackProvider struct {
	providers []Provider
	logger    *zap.Logger
}

// NewFallbackProvider creates a provider chain. The first provider is primary.
func NewFallbackProvider(logger *zap.Logger, providers ...Provider) *FallbackProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackProvider{providers: providers, logger: logger}
}

func (f *FallbackProvider) Name() string {
	if len(f.providers) > 0 {
		return f.providers[0].Name() + "+fallback"
	}
	return "fallback"
}

func (f *FallbackProvider) DefaultModel() string {
	if len(f.providers) > 0 {
		return f.providers[0].DefaultModel()
	}
	return ""
}

// Chat sends req to each provider in turn. A request-level Model is only
// meaningful to the primary, so fallbacks use their own default model.
func (f *FallbackProvider) Chat(ctx context.Context, req *ChatRequest) (*Response, error) {
	if len(f.providers) == 0 {
		return nil, &LLMError{Type: ErrorUnavailable, Message: "no providers configured"}
	}
	var lastErr error
	for i, p := range f.providers {
		r := req
		if i > 0 && req.Model != "" {
			cp := *req
			cp.Model = ""
			r = &cp
		}
		resp, err := p.Chat(ctx, r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
		f.logger.Warn("provider failed, trying next",
			zap.String("provider", p.Name()),
			zap.Error(err))
	}
	return nil, lastErr
}

// isRetryable returns true for errors that warrant trying a different provider.
func isRetryable(err error) bool {
	var llmErr *LLMError
	if !errors.As(err, &llmErr) {
		return true // unknown errors are retryable
	}
	switch llmErr.Type {
	case ErrorAuth, ErrorInvalidInput:
		return false // these won't succeed on retry
	default:
		return true
	}
}
