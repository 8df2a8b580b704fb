package memory

import (
	"fmt"
	"time"

	"github.com/rcliao/docky/internal/model"
	"github.com/rcliao/docky/internal/tokens"
)

// ExchangeCost is the token cost policy for a stored exchange: the question
// and answer joined by a single space, counted once. Sources and any prompt
// template overhead are not included.
func ExchangeCost(counter tokens.Counter, question, answer string) int {
	n := counter.Count(question + " " + answer)
	if n < 0 {
		return 0
	}
	return n
}

// Store is the ordered log of exchanges currently held verbatim. The running
// token total is maintained on every append and eviction so the budget check
// never walks the log.
type Store struct {
	counter   tokens.Counter
	exchanges []model.Exchange
	total     int
	nextSeq   int
	now       func() time.Time
}

// NewStore creates an empty store costing exchanges with counter.
func NewStore(counter tokens.Counter) *Store {
	return &Store{
		counter: counter,
		nextSeq: 1,
		now:     time.Now,
	}
}

// Append records a new exchange at the tail and returns it.
func (s *Store) Append(question, answer string, sources ...model.Source) model.Exchange {
	ex := model.Exchange{
		Seq:       s.nextSeq,
		Question:  question,
		Answer:    answer,
		Tokens:    ExchangeCost(s.counter, question, answer),
		CreatedAt: s.now().UTC(),
	}
	if len(sources) > 0 {
		ex.Sources = append([]model.Source(nil), sources...)
	}
	s.nextSeq++
	s.exchanges = append(s.exchanges, ex)
	s.total += ex.Tokens
	return ex
}

// TotalTokens returns the summed cost of the retained exchanges.
func (s *Store) TotalTokens() int { return s.total }

// Len returns the number of retained exchanges.
func (s *Store) Len() int { return len(s.exchanges) }

// Exchanges returns a copy of the retained exchanges, oldest first.
func (s *Store) Exchanges() []model.Exchange {
	out := make([]model.Exchange, len(s.exchanges))
	copy(out, s.exchanges)
	return out
}

// EvictFront removes and returns the oldest n exchanges.
func (s *Store) EvictFront(n int) ([]model.Exchange, error) {
	if n < 0 || n > len(s.exchanges) {
		return nil, fmt.Errorf("%w: evict %d of %d", ErrInvalidEvictionCount, n, len(s.exchanges))
	}
	evicted := make([]model.Exchange, n)
	copy(evicted, s.exchanges[:n])
	for _, ex := range evicted {
		s.total -= ex.Tokens
	}
	// Reallocate so evicted exchanges are not pinned by the backing array.
	s.exchanges = append([]model.Exchange(nil), s.exchanges[n:]...)
	return evicted, nil
}

// Reset drops every exchange and restarts sequence numbering.
func (s *Store) Reset() {
	s.exchanges = nil
	s.total = 0
	s.nextSeq = 1
}
