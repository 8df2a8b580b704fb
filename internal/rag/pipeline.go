// Package rag answers questions about ingested documents, optionally with
// conversation memory.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/rcliao/docky/internal/chunker"
	"github.com/rcliao/docky/internal/embedding"
	"github.com/rcliao/docky/internal/eventbus"
	"github.com/rcliao/docky/internal/ingest"
	"github.com/rcliao/docky/internal/llm"
	"github.com/rcliao/docky/internal/memory"
	"github.com/rcliao/docky/internal/model"
	"github.com/rcliao/docky/internal/store"
)

// PreviewLength is the number of characters kept in a source preview.
const PreviewLength = 200

// ErrEmptyQuestion is returned for a blank question.
var ErrEmptyQuestion = errors.New("question is empty")

// Options configures a Pipeline.
type Options struct {
	K           int
	Chunking    chunker.Options
	MaxTokens   int
	Temperature float64
}

// Answer is the result of a question.
type Answer struct {
	Answer   string                `json:"answer"`
	Sources  []model.Source        `json:"sources"`
	Question string                `json:"question"`
	Stats    *memory.Stats         `json:"conversation_stats,omitempty"`
	Degraded *memory.DegradedEvent `json:"degraded,omitempty"`
}

// IngestResult describes what Ingest did.
type IngestResult struct {
	Skipped  bool            `json:"skipped"`
	Document *model.Document `json:"document,omitempty"`
	Stats    ingest.Stats    `json:"stats"`
	Message  string          `json:"message"`
}

// Info reports configuration, collection and conversation state.
type Info struct {
	Config       InfoConfig    `json:"config"`
	Store        *store.Info   `json:"vector_store"`
	Conversation *memory.Stats `json:"conversation,omitempty"`
	Status       string        `json:"status"`
}

// InfoConfig is the configuration subset reported by Info.
type InfoConfig struct {
	Provider           string `json:"provider"`
	Model              string `json:"model"`
	Embeddings         bool   `json:"embeddings"`
	TokenBudget        int    `json:"memory_tokens,omitempty"`
	MaxRecentExchanges int    `json:"max_recent_exchanges,omitempty"`
	ChunkSize          int    `json:"chunk_size"`
	ChunkOverlap       int    `json:"chunk_overlap"`
	RetrievalK         int    `json:"retrieval_k"`
}

// Pipeline retrieves passages, builds the prompt, generates the answer and
// records the exchange in memory.
type Pipeline struct {
	store    store.Store
	provider llm.Provider
	embedder embedding.Embedder
	memory   *memory.Manager
	opts     Options
	logger   *zap.Logger
	events   eventbus.Publisher
}

// Option configures optional Pipeline collaborators.
type Option func(*Pipeline)

// WithEmbedder enables vector retrieval.
func WithEmbedder(e embedding.Embedder) Option {
	return func(p *Pipeline) { p.embedder = e }
}

// WithMemory enables memory-aware answers.
func WithMemory(m *memory.Manager) Option {
	return func(p *Pipeline) { p.memory = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithPublisher publishes document events to pub.
func WithPublisher(pub eventbus.Publisher) Option {
	return func(p *Pipeline) { p.events = pub }
}

// New creates a Pipeline.
func New(s store.Store, provider llm.Provider, opts Options, options ...Option) *Pipeline {
	if opts.K <= 0 {
		opts.K = 6
	}
	if opts.Chunking.Size <= 0 {
		opts.Chunking = chunker.DefaultOptions()
	}
	p := &Pipeline{
		store:    s,
		provider: provider,
		opts:     opts,
		logger:   zap.NewNop(),
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Memory returns the conversation memory, or nil when disabled.
func (p *Pipeline) Memory() *memory.Manager { return p.memory }

// Ask answers with conversation memory and records the exchange. Without a
// memory manager it behaves like AskWithoutMemory. A generation failure
// records nothing.
func (p *Pipeline) Ask(ctx context.Context, question string) (*Answer, error) {
	if p.memory == nil {
		return p.AskWithoutMemory(ctx, question)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	results, err := p.retrieve(ctx, question)
	if err != nil {
		return nil, err
	}
	prompt := memoryPrompt(p.memory.ContextBlock(), documentContext(results), question)
	text, err := p.generate(ctx, memorySystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	sources := extractSources(results)
	res := p.memory.RecordExchange(ctx, question, text, sources...)
	stats := p.memory.Stats()
	return &Answer{
		Answer:   text,
		Sources:  sources,
		Question: question,
		Stats:    &stats,
		Degraded: res.Degraded,
	}, nil
}

// AskWithoutMemory answers from the document alone. Memory is neither read
// nor written.
func (p *Pipeline) AskWithoutMemory(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	results, err := p.retrieve(ctx, question)
	if err != nil {
		return nil, err
	}
	text, err := p.generate(ctx, basicSystemPrompt, basicPrompt(documentContext(results), question))
	if err != nil {
		return nil, err
	}
	return &Answer{
		Answer:   text,
		Sources:  extractSources(results),
		Question: question,
	}, nil
}

func (p *Pipeline) retrieve(ctx context.Context, question string) ([]store.SearchResult, error) {
	params := store.SearchParams{Query: question, K: p.opts.K}
	if p.embedder != nil {
		v, err := p.embedder.Embed(ctx, question)
		if err != nil {
			p.logger.Warn("query embedding failed, using keyword search", zap.Error(err))
		} else {
			params.Vector = v
		}
	}
	results, err := p.store.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve passages: %w", err)
	}
	p.logger.Debug("retrieved passages",
		zap.Int("count", len(results)),
		zap.Bool("vector", params.Vector != nil))
	return results, nil
}

func (p *Pipeline) generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := p.provider.Chat(ctx, &llm.ChatRequest{
		SystemPrompt: system,
		Messages:     []llm.Message{{Role: "user", Content: prompt}},
		MaxTokens:    p.opts.MaxTokens,
		Temperature:  p.opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		text = "No answer found."
	}
	return text, nil
}

// Ingest processes the PDF at path unless the collection is already
// populated.
func (p *Pipeline) Ingest(ctx context.Context, path string) (*IngestResult, error) {
	populated, err := p.store.IsPopulated(ctx)
	if err != nil {
		return nil, fmt.Errorf("check store: %w", err)
	}
	if populated {
		info, err := p.store.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("store info: %w", err)
		}
		return &IngestResult{
			Skipped: true,
			Message: fmt.Sprintf("Loaded existing collection with %d chunks", info.ChunkCount),
		}, nil
	}

	doc, err := ingest.Process(path, p.opts.Chunking)
	if err != nil {
		return nil, err
	}
	p.logger.Info("document processed",
		zap.String("document", doc.Name),
		zap.Int("pages", doc.Pages),
		zap.Int("chunks", len(doc.Chunks)))

	chunks := make([]store.NewChunk, len(doc.Chunks))
	for i, c := range doc.Chunks {
		chunks[i] = store.NewChunk{Page: c.Page, Seq: c.Seq, Text: c.Text}
	}
	if p.embedder != nil {
		texts := make([]string, len(doc.Chunks))
		for i, c := range doc.Chunks {
			texts[i] = c.Text
		}
		vectors, err := embedding.EmbedAll(ctx, p.embedder, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks: %w", err)
		}
		for i := range chunks {
			chunks[i].Vector = vectors[i]
		}
	}

	stored, err := p.store.AddDocument(ctx, store.AddDocumentParams{
		Name:   doc.Name,
		Path:   doc.Path,
		Pages:  doc.Pages,
		Chunks: chunks,
	})
	if err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}
	if p.events != nil {
		p.events.Publish(eventbus.TopicDocumentIngested, *stored)
	}

	stats := ingest.ComputeStats(doc.Chunks)
	return &IngestResult{
		Document: stored,
		Stats:    stats,
		Message:  fmt.Sprintf("Created new collection with %d chunks (avg size: %.2f chars)", stored.ChunkCount, stats.AvgChunkSize),
	}, nil
}

// Info reports the pipeline configuration and current state.
func (p *Pipeline) Info(ctx context.Context) (*Info, error) {
	st, err := p.store.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("store info: %w", err)
	}
	info := &Info{
		Config: InfoConfig{
			Provider:     p.provider.Name(),
			Model:        p.provider.DefaultModel(),
			Embeddings:   p.embedder != nil,
			ChunkSize:    p.opts.Chunking.Size,
			ChunkOverlap: p.opts.Chunking.Overlap,
			RetrievalK:   p.opts.K,
		},
		Store:  st,
		Status: "empty",
	}
	if st.ChunkCount > 0 {
		info.Status = "ready"
	}
	if p.memory != nil {
		cfg := p.memory.Config()
		info.Config.TokenBudget = cfg.TokenBudget
		info.Config.MaxRecentExchanges = cfg.MaxRecentExchanges
		stats := p.memory.Stats()
		info.Conversation = &stats
	}
	return info, nil
}

// ClearConversation starts a fresh conversation, keeping the documents.
func (p *Pipeline) ClearConversation() {
	if p.memory != nil {
		p.memory.Reset()
	}
}

func extractSources(results []store.SearchResult) []model.Source {
	sources := make([]model.Source, len(results))
	for i, r := range results {
		sources[i] = model.Source{
			Page:     r.Page,
			Document: r.Document,
			ChunkID:  r.ID,
			Preview:  contentPreview(r.Text, PreviewLength),
		}
	}
	return sources
}

func contentPreview(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}
