package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/rcliao/docky/internal/chunker"
	"github.com/rcliao/docky/internal/embedding"
	"github.com/rcliao/docky/internal/eventbus"
	"github.com/rcliao/docky/internal/llm"
	"github.com/rcliao/docky/internal/memory"
	"github.com/rcliao/docky/internal/rag"
	"github.com/rcliao/docky/internal/store"
	"github.com/rcliao/docky/internal/tokens"
)

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cfg.DBPath)
}

// session is everything a command needs to answer questions.
type session struct {
	store    *store.SQLiteStore
	pipeline *rag.Pipeline
	bus      *eventbus.Bus
}

func (s *session) Close() error { return s.store.Close() }

type sessionOptions struct {
	memory  bool
	metrics *memory.Metrics
}

// newSession wires store, providers, memory and pipeline from cfg.
func newSession(opts sessionOptions) (*session, error) {
	st, err := openStore()
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	provider, err := llm.NewProvider(cfg.LLM, logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		st.Close()
		return nil, err
	}

	bus := eventbus.New()
	pipeOpts := []rag.Option{rag.WithLogger(logger), rag.WithPublisher(bus)}
	if embedder != nil {
		pipeOpts = append(pipeOpts, rag.WithEmbedder(embedder))
	}

	if opts.memory {
		mgr, err := newMemoryManager(provider, bus, opts.metrics)
		if err != nil {
			st.Close()
			return nil, err
		}
		pipeOpts = append(pipeOpts, rag.WithMemory(mgr))
	}

	p := rag.New(st, provider, rag.Options{
		K:           cfg.Retrieval.K,
		Chunking:    chunkOptions(),
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	}, pipeOpts...)

	return &session{store: st, pipeline: p, bus: bus}, nil
}

func newMemoryManager(provider llm.Provider, bus *eventbus.Bus, metrics *memory.Metrics) (*memory.Manager, error) {
	counter, err := tokens.NewOrEstimate(cfg.Memory.Tokenizer)
	if err != nil {
		logger.Warn("tokenizer unavailable, estimating tokens",
			zap.String("tokenizer", cfg.Memory.Tokenizer),
			zap.Error(err))
	}
	gen := llm.NewGenerator(provider, cfg.LLM.MaxTokens, cfg.LLM.Temperature)
	return memory.NewManager(cfg.MemoryConfig(), counter,
		memory.NewSummarizer(gen, cfg.Memory.SummaryTimeout),
		memory.WithLogger(logger.Named("memory")),
		memory.WithPublisher(bus),
		memory.WithMetrics(metrics),
	)
}

func chunkOptions() chunker.Options {
	opts := chunker.DefaultOptions()
	opts.Size = cfg.Documents.ChunkSize
	opts.Overlap = cfg.Documents.ChunkOverlap
	return opts
}
