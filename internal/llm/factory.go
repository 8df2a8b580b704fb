package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/rcliao/docky/internal/config"
)

// NewProvider creates the generation provider from config: the primary
// backend, any fallbacks in order, each behind its own circuit breaker when
// enabled.
func NewProvider(cfg config.LLMConfig, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	primary, err := newBackend(cfg.ProviderConfig)
	if err != nil {
		return nil, err
	}
	chain := []Provider{primary}
	for _, fb := range cfg.Fallback {
		p, err := newBackend(fb)
		if err != nil {
			return nil, fmt.Errorf("fallback: %w", err)
		}
		chain = append(chain, p)
	}

	if cfg.Breaker.Enabled {
		settings := BreakerSettings{
			MaxRequests:      cfg.Breaker.MaxRequests,
			Interval:         cfg.Breaker.Interval,
			Timeout:          cfg.Breaker.Timeout,
			FailureThreshold: cfg.Breaker.FailureThreshold,
			MinRequests:      cfg.Breaker.MinRequests,
		}
		for i, p := range chain {
			chain[i] = NewBreakerProvider(p, settings, logger)
		}
	}

	if len(chain) == 1 {
		return chain[0], nil
	}
	return NewFallbackProvider(logger, chain...), nil
}

func newBackend(cfg config.ProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai", "openrouter", "local":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		}), nil
	case "anthropic":
		return NewAnthropicProvider(AnthropicConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		}), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}
