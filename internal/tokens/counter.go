// Package tokens measures text cost in language-model tokens.
//
// A process is expected to pick one Counter at startup and keep it for its
// lifetime. Switching schemes mid-conversation would silently change the cost
// of exchanges already stored in memory; nothing here guards against that.
package tokens

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Counter maps text to a token count. Implementations must be deterministic,
// safe on arbitrary UTF-8 input and return 0 for the empty string.
type Counter interface {
	Count(text string) int
}

// CounterFunc adapts a plain function to the Counter interface.
type CounterFunc func(text string) int

func (f CounterFunc) Count(text string) int { return f(text) }

// Estimate approximates tokens as one per four bytes, rounding down.
// Used when no BPE encoding can be loaded.
var Estimate = CounterFunc(func(text string) int {
	return len(text) / 4
})

// Words counts whitespace-separated words. Handy for tests and for
// budgets expressed in words.
var Words = CounterFunc(func(text string) int {
	return len(strings.Fields(text))
})

// Runes counts Unicode code points.
var Runes = CounterFunc(func(text string) int {
	return utf8.RuneCountInString(text)
})

// New returns the counter for the named scheme. Scheme is either a tiktoken
// encoding name (cl100k_base, o200k_base, ...) or one of "estimate", "words",
// "runes".
func New(scheme string) (Counter, error) {
	switch scheme {
	case "estimate":
		return Estimate, nil
	case "words":
		return Words, nil
	case "runes":
		return Runes, nil
	case "":
		scheme = DefaultEncoding
	}
	c, err := NewTiktoken(scheme)
	if err != nil {
		return nil, fmt.Errorf("load encoding %q: %w", scheme, err)
	}
	return c, nil
}

// NewOrEstimate behaves like New but falls back to Estimate when the
// encoding cannot be loaded. The returned error is non-nil when the
// fallback was taken so the caller can log it.
func NewOrEstimate(scheme string) (Counter, error) {
	c, err := New(scheme)
	if err != nil {
		return Estimate, err
	}
	return c, nil
}
