package memory

import "errors"

var (
	// ErrInvalidConfiguration is returned by constructors given a
	// non-positive budget or window size, or a missing dependency.
	ErrInvalidConfiguration = errors.New("invalid memory configuration")

	// ErrInvalidEvictionCount means a caller asked the store to evict more
	// exchanges than it holds. The manager never does this; seeing it is a bug.
	ErrInvalidEvictionCount = errors.New("invalid eviction count")

	// ErrSummarizationUnavailable wraps any failure of the generation
	// collaborator while folding exchanges into the running summary.
	ErrSummarizationUnavailable = errors.New("summarization unavailable")
)
