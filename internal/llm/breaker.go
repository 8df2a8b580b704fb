package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerSettings configures BreakerProvider.
type BreakerSettings struct {
	MaxRequests      uint32        // requests allowed while half-open
	Interval         time.Duration // closed-state counting window
	Timeout          time.Duration // open duration before half-open
	FailureThreshold float64       // failure ratio that trips the breaker
	MinRequests      uint32        // requests needed before the ratio counts
}

// BreakerProvider guards a Provider with a circuit breaker so a dead backend
// fails fast instead of stalling every answer and summary on its timeout.
type BreakerProvider struct {
	next Provider
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerProvider wraps next.
func NewBreakerProvider(next Provider, s BreakerSettings, logger *zap.Logger) *BreakerProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= s.FailureThreshold {
				logger.Warn("circuit breaker tripping",
					zap.Uint32("requests", counts.Requests),
					zap.Uint32("failures", counts.TotalFailures),
					zap.Float64("ratio", ratio))
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state change",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// Bad input is the caller's fault, not the backend's.
		IsSuccessful: func(err error) bool {
			var llmErr *LLMError
			return err == nil || (errors.As(err, &llmErr) && llmErr.Type == ErrorInvalidInput)
		},
	})
	return &BreakerProvider{next: next, cb: cb}
}

func (b *BreakerProvider) Name() string         { return b.next.Name() }
func (b *BreakerProvider) DefaultModel() string { return b.next.DefaultModel() }

// State reports the breaker state.
func (b *BreakerProvider) State() gobreaker.State { return b.cb.State() }

func (b *BreakerProvider) Chat(ctx context.Context, req *ChatRequest) (*Response, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Chat(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &LLMError{Type: ErrorUnavailable, Message: b.next.Name() + " circuit open", Err: err}
		}
		return nil, err
	}
	return out.(*Response), nil
}
