package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/docky/internal/model"
)

// Generator produces text for a prompt. It is the only real I/O the memory
// subsystem performs.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Summarizer folds evicted exchanges into a running summary.
type Summarizer interface {
	Summarize(ctx context.Context, previous string, evicted []model.Exchange) (string, error)
}

// DefaultSummaryTimeout bounds a single summarization call.
const DefaultSummaryTimeout = 30 * time.Second

// LLMSummarizer asks a Generator for the condensed summary.
type LLMSummarizer struct {
	gen     Generator
	timeout time.Duration
}

// NewSummarizer returns a summarizer backed by gen. A timeout <= 0 disables
// the per-call deadline.
func NewSummarizer(gen Generator, timeout time.Duration) *LLMSummarizer {
	return &LLMSummarizer{gen: gen, timeout: timeout}
}

// Summarize returns the new summary replacing previous. Every failure,
// including a blank response, is reported as ErrSummarizationUnavailable.
func (s *LLMSummarizer) Summarize(ctx context.Context, previous string, evicted []model.Exchange) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	out, err := s.gen.Generate(ctx, SummaryPrompt(previous, evicted))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSummarizationUnavailable, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: %w", ErrSummarizationUnavailable, errEmptySummary)
	}
	return out, nil
}

var errEmptySummary = errors.New("generator returned an empty summary")

// SummaryPrompt renders the fixed summarization instruction.
func SummaryPrompt(previous string, evicted []model.Exchange) string {
	var b strings.Builder
	b.WriteString("You maintain the running summary of a conversation about a document.\n")
	b.WriteString("Write one coherent summary in 2-3 sentences that keeps the facts stated and the order of topics discussed.\n")
	if previous != "" {
		b.WriteString("A previous summary exists: treat it as earlier context and fold it in. Do not start over.\n")
		b.WriteString("\nPrevious summary:\n")
		b.WriteString(previous)
		b.WriteString("\n")
	}
	b.WriteString("\nConversation:\n")
	for _, ex := range evicted {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n\n", ex.Question, ex.Answer)
	}
	b.WriteString("Summary:")
	return b.String()
}
