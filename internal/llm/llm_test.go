package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rcliao/docky/internal/config"
)

type mockProvider struct {
	name     string
	reply    string
	err      error
	requests []*ChatRequest
}

func (m *mockProvider) Name() string         { return m.name }
func (m *mockProvider) DefaultModel() string { return m.name + "-model" }

func (m *mockProvider) Chat(_ context.Context, req *ChatRequest) (*Response, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return &Response{Content: m.reply}, nil
}

func TestClassify(t *testing.T) {
	cases := map[string]ErrorType{
		`POST "/v1/chat": 401 Unauthorized`:       ErrorAuth,
		`429 Too Many Requests: rate_limit_error`: ErrorRateLimit,
		`400 Bad Request: invalid_request_error`:  ErrorInvalidInput,
		`529 overloaded_error`:                    ErrorServerError,
		`503 Service Unavailable`:                 ErrorServerError,
		`context deadline exceeded`:               ErrorTimeout,
		`dial tcp: connect: connection refused`:   ErrorNetwork,
		`something odd happened`:                  ErrorUnknown,
	}
	for msg, want := range cases {
		got := classify(errors.New(msg), "openai")
		assert.Equal(t, want, got.Type, msg)
		assert.Contains(t, got.Error(), msg)
	}
}

func TestFallbackUsesNextOnRetryableError(t *testing.T) {
	primary := &mockProvider{name: "a", err: &LLMError{Type: ErrorServerError, Message: "down"}}
	secondary := &mockProvider{name: "b", reply: "hello"}
	f := NewFallbackProvider(zap.NewNop(), primary, secondary)

	resp, err := f.Chat(context.Background(), &ChatRequest{Model: "primary-only"})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, "a+fallback", f.Name())
	assert.Equal(t, "a-model", f.DefaultModel())
	require.Len(t, secondary.requests, 1)
	assert.Empty(t, secondary.requests[0].Model)
}

func TestFallbackStopsOnAuthError(t *testing.T) {
	authErr := &LLMError{Type: ErrorAuth, Message: "bad key"}
	primary := &mockProvider{name: "a", err: authErr}
	secondary := &mockProvider{name: "b", reply: "hello"}
	f := NewFallbackProvider(nil, primary, secondary)

	_, err := f.Chat(context.Background(), &ChatRequest{})
	assert.ErrorIs(t, err, authErr)
	assert.Empty(t, secondary.requests)
}

func TestFallbackReturnsLastError(t *testing.T) {
	last := errors.New("second down")
	f := NewFallbackProvider(nil,
		&mockProvider{name: "a", err: errors.New("first down")},
		&mockProvider{name: "b", err: last})

	_, err := f.Chat(context.Background(), &ChatRequest{})
	assert.ErrorIs(t, err, last)
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	backend := &mockProvider{name: "a", err: &LLMError{Type: ErrorServerError, Message: "down"}}
	b := NewBreakerProvider(backend, BreakerSettings{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}, zap.NewNop())

	for i := 0; i < 2; i++ {
		_, err := b.Chat(context.Background(), &ChatRequest{})
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Chat(context.Background(), &ChatRequest{})
	var llmErr *LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, ErrorUnavailable, llmErr.Type)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Len(t, backend.requests, 2)
}

func TestBreakerIgnoresInvalidInput(t *testing.T) {
	backend := &mockProvider{name: "a", err: &LLMError{Type: ErrorInvalidInput, Message: "bad"}}
	b := NewBreakerProvider(backend, BreakerSettings{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      1,
	}, nil)

	for i := 0; i < 3; i++ {
		_, _ = b.Chat(context.Background(), &ChatRequest{})
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestGenerator(t *testing.T) {
	p := &mockProvider{name: "a", reply: "the answer"}
	g := NewGenerator(p, 256, 0.2)

	out, err := g.Generate(context.Background(), "question?")
	require.NoError(t, err)
	assert.Equal(t, "the answer", out)
	require.Len(t, p.requests, 1)
	assert.Equal(t, []Message{{Role: "user", Content: "question?"}}, p.requests[0].Messages)
	assert.Equal(t, 256, p.requests[0].MaxTokens)

	p.err = errors.New("boom")
	_, err = g.Generate(context.Background(), "again")
	assert.ErrorContains(t, err, "generate with a")
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(config.LLMConfig{
		ProviderConfig: config.ProviderConfig{Provider: "openai", APIKey: "k"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, "gpt-4o-mini", p.DefaultModel())

	p, err = NewProvider(config.LLMConfig{
		ProviderConfig: config.ProviderConfig{Provider: "anthropic", Model: "claude-x"},
		Fallback:       []config.ProviderConfig{{Provider: "local", BaseURL: "http://localhost:11434/v1"}},
		Breaker:        config.BreakerConfig{Enabled: true, MaxRequests: 1, FailureThreshold: 0.5},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "anthropic+fallback", p.Name())
	assert.Equal(t, "claude-x", p.DefaultModel())

	_, err = NewProvider(config.LLMConfig{ProviderConfig: config.ProviderConfig{Provider: "gemini"}}, nil)
	assert.ErrorContains(t, err, "unknown LLM provider")
}
