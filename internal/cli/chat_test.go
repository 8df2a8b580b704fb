package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rcliao/docky/internal/eventbus"
	"github.com/rcliao/docky/internal/llm"
	"github.com/rcliao/docky/internal/memory"
	"github.com/rcliao/docky/internal/rag"
	"github.com/rcliao/docky/internal/store"
	"github.com/rcliao/docky/internal/tokens"
)

type fakeProvider struct {
	calls int
	err   error
}

func (f *fakeProvider) Name() string         { return "fake" }
func (f *fakeProvider) DefaultModel() string { return "fake-1" }

func (f *fakeProvider) Chat(_ context.Context, _ *llm.ChatRequest) (*llm.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: "Alpha is the first letter."}, nil
}

func newTestPipeline(t *testing.T, provider llm.Provider, summarize memory.GeneratorFunc) (*rag.Pipeline, *eventbus.Bus) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	_, err = st.AddDocument(context.Background(), store.AddDocumentParams{
		Name:  "greek.pdf",
		Path:  "/tmp/greek.pdf",
		Pages: 1,
		Chunks: []store.NewChunk{
			{Page: 1, Seq: 0, Text: "Alpha is the first letter of the Greek alphabet."},
		},
	})
	require.NoError(t, err)

	bus := eventbus.New()
	mgr, err := memory.NewManager(
		memory.Config{TokenBudget: 1000, MaxRecentExchanges: 1, AnswerPreview: 150},
		tokens.Words,
		memory.NewSummarizer(summarize, time.Second),
		memory.WithPublisher(bus),
	)
	require.NoError(t, err)

	p := rag.New(st, provider, rag.Options{K: 3},
		rag.WithMemory(mgr),
		rag.WithLogger(zap.NewNop()),
		rag.WithPublisher(bus))
	return p, bus
}

func okSummary(_ context.Context, _ string) (string, error) {
	return "They asked about alpha.", nil
}

func TestREPLCommands(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeProvider{}, okSummary)

	in := strings.NewReader("/help\n\nwhat is alpha?\n/stats\n/summary\n/reset\n/stats\n/quit\nnever asked\n")
	var out, errOut bytes.Buffer
	require.NoError(t, runREPL(context.Background(), in, &out, &errOut, p))

	got := out.String()
	assert.Contains(t, got, "/reset    start a new conversation")
	assert.Contains(t, got, "Alpha is the first letter.")
	assert.Contains(t, got, "Sources: greek.pdf p.1")
	assert.Contains(t, got, "exchanges: 1\n")
	assert.Contains(t, got, "#1 Q: what is alpha?")
	assert.Contains(t, got, "conversation cleared")
	assert.Contains(t, got, "exchanges: 0\n")
	assert.Empty(t, errOut.String())
	assert.Equal(t, 0, p.Memory().Stats().ExchangeCount)
}

func TestREPLFoldsOnOverflow(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeProvider{}, okSummary)

	in := strings.NewReader("what is alpha?\nand beta?\n/summary\n")
	var out, errOut bytes.Buffer
	require.NoError(t, runREPL(context.Background(), in, &out, &errOut, p))

	assert.Contains(t, out.String(), "summary: They asked about alpha.")
	assert.Contains(t, out.String(), "#2 Q: and beta?")
	assert.NotContains(t, out.String(), "#1 Q:")
	stats := p.Memory().Stats()
	assert.Equal(t, 1, stats.ExchangeCount)
	assert.Equal(t, 1, stats.CoversThrough)
}

func TestREPLReportsDegradedSummary(t *testing.T) {
	failing := func(context.Context, string) (string, error) {
		return "", errors.New("backend down")
	}
	p, bus := newTestPipeline(t, &fakeProvider{}, failing)

	var out, errOut bytes.Buffer
	subscribeWarnings(bus, &errOut)

	in := strings.NewReader("what is alpha?\nand beta?\n")
	require.NoError(t, runREPL(context.Background(), in, &out, &errOut, p))

	assert.Contains(t, errOut.String(), "warning: summary not updated; 1 earlier exchange(s) dropped from memory")
	stats := p.Memory().Stats()
	assert.Equal(t, 1, stats.ExchangeCount)
	assert.False(t, stats.HasSummary)
	assert.Equal(t, 1, stats.DegradedFolds)
}

func TestREPLContinuesAfterError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("rate limited")}
	p, _ := newTestPipeline(t, provider, okSummary)

	in := strings.NewReader("what is alpha?\n/bogus\n/stats\n")
	var out, errOut bytes.Buffer
	require.NoError(t, runREPL(context.Background(), in, &out, &errOut, p))

	assert.Contains(t, errOut.String(), "error: generate answer: rate limited")
	assert.Contains(t, errOut.String(), "unknown command /bogus")
	assert.Contains(t, out.String(), "exchanges: 0\n")
	assert.Equal(t, 1, provider.calls)
}

func TestREPLStopsOnCancelledContext(t *testing.T) {
	provider := &fakeProvider{}
	p, _ := newTestPipeline(t, provider, okSummary)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out, errOut bytes.Buffer
	require.NoError(t, runREPL(ctx, strings.NewReader("what is alpha?\n"), &out, &errOut, p))
	assert.Equal(t, 0, provider.calls)
}
