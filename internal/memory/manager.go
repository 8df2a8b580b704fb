// Package memory keeps a bounded conversation history for the answer
// pipeline. Recent exchanges stay verbatim; older ones are folded into a
// running summary once the window exceeds its token budget or length cap.
//
// A Manager holds the state of exactly one conversation and is not safe for
// concurrent use: callers serialize RecordExchange per conversation.
package memory

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rcliao/docky/internal/eventbus"
	"github.com/rcliao/docky/internal/model"
	"github.com/rcliao/docky/internal/tokens"
)

// Config bounds the verbatim window.
type Config struct {
	// TokenBudget caps the summed cost of the verbatim window.
	TokenBudget int `json:"token_budget"`
	// MaxRecentExchanges caps the window length regardless of cost.
	MaxRecentExchanges int `json:"max_recent_exchanges"`
	// AnswerPreview truncates answers in the context block to this many
	// runes. Zero renders answers in full. Costs always use the full text.
	AnswerPreview int `json:"answer_preview,omitempty"`
}

// Validate reports whether the configuration can build a Manager.
func (c Config) Validate() error {
	if c.TokenBudget <= 0 {
		return fmt.Errorf("%w: token budget must be positive, got %d", ErrInvalidConfiguration, c.TokenBudget)
	}
	if c.MaxRecentExchanges <= 0 {
		return fmt.Errorf("%w: max recent exchanges must be at least 1, got %d", ErrInvalidConfiguration, c.MaxRecentExchanges)
	}
	if c.AnswerPreview < 0 {
		return fmt.Errorf("%w: answer preview must not be negative, got %d", ErrInvalidConfiguration, c.AnswerPreview)
	}
	return nil
}

// State is the logical state of a conversation.
type State int

const (
	StateEmpty State = iota
	StateAccumulating
	StateAtCapacity
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAccumulating:
		return "accumulating"
	case StateAtCapacity:
		return "at_capacity"
	default:
		return "unknown"
	}
}

// DegradedType is the event type of a failed fold.
const DegradedType = "summary_degraded"

// DegradedEvent reports exchanges dropped from verbatim memory without being
// folded into the summary. CoversThrough is the stale coverage left behind.
type DegradedEvent struct {
	Type              string `json:"type"`
	LostExchangeCount int    `json:"lost_exchange_count"`
	CoversThrough     int    `json:"covers_through_index"`
	Err               error  `json:"-"`
}

// FoldedEvent reports a successful fold.
type FoldedEvent struct {
	Folded        int `json:"folded"`
	CoversThrough int `json:"covers_through_index"`
	SummaryLength int `json:"summary_length"`
}

// Result describes what a single RecordExchange did.
type Result struct {
	Exchange model.Exchange `json:"exchange"`
	Evicted  int            `json:"evicted"`
	Degraded *DegradedEvent `json:"degraded,omitempty"`
}

// Stats is a read-only snapshot for reporting.
type Stats struct {
	ExchangeCount int  `json:"exchange_count"`
	TotalTokens   int  `json:"total_tokens"`
	HasSummary    bool `json:"has_summary"`
	SummaryLength int  `json:"summary_length"`
	CoversThrough int  `json:"covers_through"`
	Folds         int  `json:"folds"`
	DegradedFolds int  `json:"degraded_folds"`
}

// Snapshot is the summary, the verbatim window and the stats together.
type Snapshot struct {
	Summary model.Summary    `json:"summary"`
	Recent  []model.Exchange `json:"recent_history"`
	Stats   Stats            `json:"stats"`
}

// Manager owns the memory state of one conversation.
type Manager struct {
	cfg        Config
	store      *Store
	summarizer Summarizer
	summary    model.Summary
	folds      int
	degraded   int

	logger  *zap.Logger
	events  eventbus.Publisher
	metrics *Metrics
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithPublisher publishes memory events to p.
func WithPublisher(p eventbus.Publisher) Option {
	return func(m *Manager) { m.events = p }
}

// WithMetrics records memory metrics into mt.
func WithMetrics(mt *Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// NewManager builds an empty conversation memory.
func NewManager(cfg Config, counter tokens.Counter, summarizer Summarizer, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if counter == nil {
		return nil, fmt.Errorf("%w: token counter is required", ErrInvalidConfiguration)
	}
	if summarizer == nil {
		return nil, fmt.Errorf("%w: summarizer is required", ErrInvalidConfiguration)
	}

	m := &Manager{
		cfg:        cfg,
		store:      NewStore(counter),
		summarizer: summarizer,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.observeWindow()
	return m, nil
}

// RecordExchange appends a completed turn and, when the window is over its
// cap or budget, evicts the fewest oldest exchanges needed and folds them
// into the summary. The latest exchange is never evicted. A failed fold does
// not undo the eviction; it is reported through Result.Degraded, the logger
// and the event publisher.
func (m *Manager) RecordExchange(ctx context.Context, question, answer string, sources ...model.Source) Result {
	ex := m.store.Append(question, answer, sources...)
	res := Result{Exchange: ex}
	m.metrics.exchangeRecorded()
	m.publish(eventbus.TopicExchangeRecorded, ex)

	for m.overCapacity() && m.store.Len() > 1 {
		n := m.evictionCount()
		evicted, err := m.store.EvictFront(n)
		if err != nil {
			panic(fmt.Sprintf("memory: %v", err))
		}
		res.Evicted += len(evicted)
		m.metrics.exchangesEvicted(len(evicted))
		if ev := m.fold(ctx, evicted); ev != nil {
			res.Degraded = ev
		}
	}

	m.observeWindow()
	return res
}

func (m *Manager) overCapacity() bool {
	return m.store.Len() > m.cfg.MaxRecentExchanges || m.store.TotalTokens() > m.cfg.TokenBudget
}

// evictionCount returns the smallest n >= 1 whose eviction satisfies both the
// length cap and the budget, bounded so one exchange always remains.
func (m *Manager) evictionCount() int {
	window := m.store.exchanges
	remaining := m.store.TotalTokens()
	n := 0
	for n < len(window)-1 {
		remaining -= window[n].Tokens
		n++
		if len(window)-n <= m.cfg.MaxRecentExchanges && remaining <= m.cfg.TokenBudget {
			break
		}
	}
	return n
}

func (m *Manager) fold(ctx context.Context, evicted []model.Exchange) *DegradedEvent {
	text, err := m.summarizer.Summarize(ctx, m.summary.Text, evicted)
	if err != nil {
		if !errors.Is(err, ErrSummarizationUnavailable) {
			err = fmt.Errorf("%w: %w", ErrSummarizationUnavailable, err)
		}
		m.degraded++
		ev := &DegradedEvent{
			Type:              DegradedType,
			LostExchangeCount: len(evicted),
			CoversThrough:     m.summary.CoversThrough,
			Err:               err,
		}
		m.logger.Warn(DegradedType,
			zap.Int("lost_exchange_count", ev.LostExchangeCount),
			zap.Int("covers_through", ev.CoversThrough),
			zap.Error(err))
		m.metrics.folded(false)
		m.publish(eventbus.TopicSummaryDegraded, *ev)
		return ev
	}

	m.summary = model.Summary{
		Text:          text,
		CoversThrough: evicted[len(evicted)-1].Seq,
	}
	m.folds++
	m.logger.Debug("summary folded",
		zap.Int("folded", len(evicted)),
		zap.Int("covers_through", m.summary.CoversThrough),
		zap.Int("summary_length", len(text)))
	m.metrics.folded(true)
	m.publish(eventbus.TopicSummaryFolded, FoldedEvent{
		Folded:        len(evicted),
		CoversThrough: m.summary.CoversThrough,
		SummaryLength: len(text),
	})
	return nil
}

// ContextBlock renders the summary and the verbatim window for the answer
// prompt. It depends only on the current state.
func (m *Manager) ContextBlock() string {
	return RenderContext(m.summary, m.store.exchanges, m.cfg.AnswerPreview)
}

// Stats returns counters for reporting. It never mutates state.
func (m *Manager) Stats() Stats {
	return Stats{
		ExchangeCount: m.store.Len(),
		TotalTokens:   m.store.TotalTokens(),
		HasSummary:    !m.summary.Empty(),
		SummaryLength: len(m.summary.Text),
		CoversThrough: m.summary.CoversThrough,
		Folds:         m.folds,
		DegradedFolds: m.degraded,
	}
}

// Snapshot returns the summary, a copy of the window and the stats.
func (m *Manager) Snapshot() Snapshot {
	return Snapshot{
		Summary: m.summary,
		Recent:  m.store.Exchanges(),
		Stats:   m.Stats(),
	}
}

// Summary returns the running summary.
func (m *Manager) Summary() model.Summary { return m.summary }

// Exchanges returns a copy of the verbatim window, oldest first.
func (m *Manager) Exchanges() []model.Exchange { return m.store.Exchanges() }

// Config returns the configuration the manager was built with.
func (m *Manager) Config() Config { return m.cfg }

// State reports the logical state of the conversation. AtCapacity means the
// window is full, so the next exchange will evict at least one.
func (m *Manager) State() State {
	switch {
	case m.store.Len() == 0:
		return StateEmpty
	case m.store.Len() >= m.cfg.MaxRecentExchanges || m.store.TotalTokens() >= m.cfg.TokenBudget:
		return StateAtCapacity
	default:
		return StateAccumulating
	}
}

// Reset clears the conversation back to Empty.
func (m *Manager) Reset() {
	m.store.Reset()
	m.summary = model.Summary{}
	m.folds = 0
	m.degraded = 0
	m.observeWindow()
	m.publish(eventbus.TopicConversationReset, nil)
}

func (m *Manager) publish(topic eventbus.Topic, payload any) {
	if m.events != nil {
		m.events.Publish(topic, payload)
	}
}

func (m *Manager) observeWindow() {
	m.metrics.window(m.store.Len(), m.store.TotalTokens())
}
