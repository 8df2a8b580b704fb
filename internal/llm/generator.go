package llm

import (
	"context"
	"fmt"
)

// Generator sends single-prompt requests to a Provider. It satisfies the
// prompt-in, text-out contract used for answers and conversation summaries.
type Generator struct {
	provider    Provider
	maxTokens   int
	temperature float64
}

// NewGenerator returns a Generator using the provider's default model.
func NewGenerator(p Provider, maxTokens int, temperature float64) *Generator {
	return &Generator{provider: p, maxTokens: maxTokens, temperature: temperature}
}

// Provider returns the wrapped provider.
func (g *Generator) Provider() Provider { return g.provider }

// Generate sends prompt as a single user message and returns the reply text.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.provider.Chat(ctx, &ChatRequest{
		Messages:    []Message{{Role: "user", Content: prompt}},
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("generate with %s: %w", g.provider.Name(), err)
	}
	return resp.Content, nil
}
