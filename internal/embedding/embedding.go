// Package embedding provides a pluggable interface for text embedding providers.
package embedding

import (
	"context"
	"fmt"
	"math"

	"github.com/rcliao/docky/internal/config"
)

// Vector is a float32 embedding vector.
type Vector = []float32

// Embedder generates embedding vectors from text.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
	Dims() int
}

// BatchEmbedder embeds several texts in one request.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([]Vector, error)
}

// EmbedAll embeds texts in order, batching when e supports it.
func EmbedAll(ctx context.Context, e Embedder, texts []string) ([]Vector, error) {
	if b, ok := e.(BatchEmbedder); ok {
		return b.EmbedBatch(ctx, texts)
	}
	out := make([]Vector, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// CosineSimilarity computes cosine similarity between two vectors.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// New creates an embedder from config.
// Provider: "ollama" | "openai" | "" (disabled, returns nil).
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllamaEmbedder(cfg.BaseURL, cfg.Model), nil
	case "openai":
		return NewOpenAIEmbedder(cfg.BaseURL, cfg.APIKey, cfg.Model, 0), nil
	case "":
		return nil, nil // embeddings disabled
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}
