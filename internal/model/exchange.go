// Package model defines the core conversation and document data types.
package model

import "time"

// Exchange is one question/answer pair in a conversation. It is never
// mutated after the memory store creates it.
type Exchange struct {
	Seq       int       `json:"seq"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Tokens    int       `json:"tokens"`
	CreatedAt time.Time `json:"created_at"`
	Sources   []Source  `json:"sources,omitempty"`
}

// Summary is the running condensation of every exchange evicted from the
// verbatim window. CoversThrough is the highest Seq folded into Text; zero
// means nothing has been folded yet.
type Summary struct {
	Text          string `json:"text"`
	CoversThrough int    `json:"covers_through"`
}

// Empty reports whether no summary text exists.
func (s Summary) Empty() bool { return s.Text == "" }
