package rag

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/docky/internal/embedding"
	"github.com/rcliao/docky/internal/llm"
	"github.com/rcliao/docky/internal/memory"
	"github.com/rcliao/docky/internal/model"
	"github.com/rcliao/docky/internal/store"
	"github.com/rcliao/docky/internal/tokens"
)

type mockStore struct {
	results  []store.SearchResult
	searches []store.SearchParams
	chunks   int
	added    []store.AddDocumentParams
}

func (m *mockStore) AddDocument(_ context.Context, p store.AddDocumentParams) (*model.Document, error) {
	m.added = append(m.added, p)
	m.chunks += len(p.Chunks)
	return &model.Document{ID: "doc1", Name: p.Name, ChunkCount: len(p.Chunks)}, nil
}

func (m *mockStore) IsPopulated(context.Context) (bool, error) { return m.chunks > 0, nil }

func (m *mockStore) Search(_ context.Context, p store.SearchParams) ([]store.SearchResult, error) {
	m.searches = append(m.searches, p)
	return m.results, nil
}

func (m *mockStore) Info(context.Context) (*store.Info, error) {
	return &store.Info{ChunkCount: m.chunks}, nil
}

func (m *mockStore) Clear(context.Context) error { m.chunks = 0; return nil }
func (m *mockStore) Close() error                { return nil }

type mockProvider struct {
	replies  []string
	err      error
	requests []*llm.ChatRequest
}

func (m *mockProvider) Name() string         { return "mock" }
func (m *mockProvider) DefaultModel() string { return "mock-1" }

func (m *mockProvider) Chat(_ context.Context, req *llm.ChatRequest) (*llm.Response, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	reply := "answer"
	if len(m.replies) > 0 {
		reply, m.replies = m.replies[0], m.replies[1:]
	}
	return &llm.Response{Content: reply}, nil
}

type mockEmbedder struct{ err error }

func (m mockEmbedder) Embed(context.Context, string) (embedding.Vector, error) {
	if m.err != nil {
		return nil, m.err
	}
	return embedding.Vector{1, 0}, nil
}
func (mockEmbedder) Dims() int { return 2 }

func passages() []store.SearchResult {
	return []store.SearchResult{
		{Chunk: model.Chunk{ID: "c1", Document: "ocean.pdf", Page: 4, Text: "Tides are caused by the moon."}, Score: 2},
		{Chunk: model.Chunk{ID: "c2", Document: "ocean.pdf", Page: 7, Text: strings.Repeat("x", 250)}, Score: 1},
	}
}

func newMemory(t *testing.T, sum memory.Summarizer) *memory.Manager {
	t.Helper()
	m, err := memory.NewManager(memory.Config{TokenBudget: 50, MaxRecentExchanges: 3}, tokens.Words, sum)
	require.NoError(t, err)
	return m
}

func staticSummarizer(text string, err error) memory.Summarizer {
	return memory.NewSummarizer(memory.GeneratorFunc(func(context.Context, string) (string, error) {
		return text, err
	}), 0)
}

func TestAskRecordsExchange(t *testing.T) {
	st := &mockStore{results: passages()}
	prov := &mockProvider{replies: []string{"The moon causes tides [Page 4].", "Yes."}}
	mem := newMemory(t, staticSummarizer("summary", nil))
	p := New(st, prov, Options{K: 4}, WithMemory(mem))

	ans, err := p.Ask(context.Background(), "  What causes tides?  ")
	require.NoError(t, err)

	assert.Equal(t, "The moon causes tides [Page 4].", ans.Answer)
	assert.Equal(t, "What causes tides?", ans.Question)
	require.Len(t, ans.Sources, 2)
	assert.Equal(t, model.Source{Page: 4, Document: "ocean.pdf", ChunkID: "c1", Preview: "Tides are caused by the moon."}, ans.Sources[0])
	assert.Equal(t, strings.Repeat("x", 200)+"...", ans.Sources[1].Preview)
	require.NotNil(t, ans.Stats)
	assert.Equal(t, 1, ans.Stats.ExchangeCount)
	assert.Nil(t, ans.Degraded)

	require.Len(t, st.searches, 1)
	assert.Equal(t, 4, st.searches[0].K)
	assert.Nil(t, st.searches[0].Vector)

	first := prov.requests[0]
	assert.Equal(t, memorySystemPrompt, first.SystemPrompt)
	assert.Contains(t, first.Messages[0].Content, "Conversation Context:\n"+noConversation)
	assert.Contains(t, first.Messages[0].Content, "[Page 4] Tides are caused by the moon.")
	assert.Contains(t, first.Messages[0].Content, "Current Question: What causes tides?")

	_, err = p.Ask(context.Background(), "Really?")
	require.NoError(t, err)
	second := prov.requests[1].Messages[0].Content
	assert.Contains(t, second, "Human: What causes tides?\nAssistant: The moon causes tides [Page 4].")
	assert.Equal(t, 2, mem.Stats().ExchangeCount)
	require.Len(t, mem.Exchanges()[0].Sources, 2)
}

func TestAskReportsDegradedSummary(t *testing.T) {
	st := &mockStore{results: passages()}
	long := strings.TrimSpace(strings.Repeat("w ", 40))
	prov := &mockProvider{replies: []string{long, long}}
	mem := newMemory(t, staticSummarizer("", errors.New("quota")))
	p := New(st, prov, Options{}, WithMemory(mem))

	_, err := p.Ask(context.Background(), "first")
	require.NoError(t, err)
	ans, err := p.Ask(context.Background(), "second")
	require.NoError(t, err)

	require.NotNil(t, ans.Degraded)
	assert.Equal(t, 1, ans.Degraded.LostExchangeCount)
	assert.Equal(t, long, ans.Answer)
	assert.Equal(t, 1, ans.Stats.ExchangeCount)
	assert.False(t, ans.Stats.HasSummary)
}

func TestAskGenerationFailureRecordsNothing(t *testing.T) {
	st := &mockStore{results: passages()}
	boom := errors.New("provider down")
	prov := &mockProvider{err: boom}
	mem := newMemory(t, staticSummarizer("s", nil))
	p := New(st, prov, Options{}, WithMemory(mem))

	_, err := p.Ask(context.Background(), "What causes tides?")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, mem.Stats().ExchangeCount)
}

func TestAskEmptyQuestion(t *testing.T) {
	p := New(&mockStore{}, &mockProvider{}, Options{}, WithMemory(newMemory(t, staticSummarizer("s", nil))))
	_, err := p.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
	_, err = p.AskWithoutMemory(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAskWithoutMemoryLeavesMemoryAlone(t *testing.T) {
	st := &mockStore{results: passages()}
	prov := &mockProvider{}
	mem := newMemory(t, staticSummarizer("s", nil))
	p := New(st, prov, Options{}, WithMemory(mem))

	ans, err := p.AskWithoutMemory(context.Background(), "What causes tides?")
	require.NoError(t, err)
	assert.Nil(t, ans.Stats)
	assert.Len(t, ans.Sources, 2)
	assert.Equal(t, 0, mem.Stats().ExchangeCount)
	assert.Equal(t, basicSystemPrompt, prov.requests[0].SystemPrompt)
	assert.NotContains(t, prov.requests[0].Messages[0].Content, "Conversation Context")
}

func TestAskWithoutManagerUsesBasicPrompt(t *testing.T) {
	prov := &mockProvider{}
	p := New(&mockStore{}, prov, Options{})

	ans, err := p.Ask(context.Background(), "anything?")
	require.NoError(t, err)
	assert.Equal(t, basicSystemPrompt, prov.requests[0].SystemPrompt)
	assert.Contains(t, prov.requests[0].Messages[0].Content, "No relevant passages")
	assert.Empty(t, ans.Sources)
}

func TestRetrieveUsesEmbedder(t *testing.T) {
	st := &mockStore{}
	p := New(st, &mockProvider{}, Options{}, WithEmbedder(mockEmbedder{}))
	_, err := p.AskWithoutMemory(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, embedding.Vector{1, 0}, st.searches[0].Vector)

	st = &mockStore{}
	p = New(st, &mockProvider{}, Options{}, WithEmbedder(mockEmbedder{err: errors.New("offline")}))
	_, err = p.AskWithoutMemory(context.Background(), "q")
	require.NoError(t, err)
	assert.Nil(t, st.searches[0].Vector)
}

func TestBlankAnswerFallback(t *testing.T) {
	p := New(&mockStore{}, &mockProvider{replies: []string{"  "}}, Options{})
	ans, err := p.AskWithoutMemory(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "No answer found.", ans.Answer)
}

func TestIngestSkipsPopulatedStore(t *testing.T) {
	st := &mockStore{chunks: 12}
	p := New(st, &mockProvider{}, Options{})

	res, err := p.Ingest(context.Background(), "/does/not/matter.pdf")
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, "Loaded existing collection with 12 chunks", res.Message)
	assert.Empty(t, st.added)
}

func TestIngestMissingFile(t *testing.T) {
	p := New(&mockStore{}, &mockProvider{}, Options{})
	_, err := p.Ingest(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func TestInfoAndClearConversation(t *testing.T) {
	mem := newMemory(t, staticSummarizer("s", nil))
	st := &mockStore{chunks: 3, results: passages()}
	p := New(st, &mockProvider{}, Options{K: 5}, WithMemory(mem))

	_, err := p.Ask(context.Background(), "q")
	require.NoError(t, err)

	info, err := p.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ready", info.Status)
	assert.Equal(t, "mock", info.Config.Provider)
	assert.Equal(t, 5, info.Config.RetrievalK)
	assert.Equal(t, 50, info.Config.TokenBudget)
	require.NotNil(t, info.Conversation)
	assert.Equal(t, 1, info.Conversation.ExchangeCount)

	p.ClearConversation()
	assert.Equal(t, memory.Stats{}, mem.Stats())
}

func TestContentPreview(t *testing.T) {
	assert.Equal(t, "short", contentPreview("short", 10))
	assert.Equal(t, "héllo...", contentPreview("héllo world", 5))
	assert.Equal(t, "aaa", contentPreview("aaa", 3))
}
