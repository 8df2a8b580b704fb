// Package store persists ingested documents and their passages in SQLite and
// retrieves the passages most relevant to a question.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/docky/internal/embedding"
	"github.com/rcliao/docky/internal/model"
)

// ErrEmptyDocument is returned when a document has no chunks to store.
var ErrEmptyDocument = errors.New("document has no chunks")

// NewChunk is a passage to store, with its embedding when one was computed.
type NewChunk struct {
	Page   int
	Seq    int
	Text   string
	Vector embedding.Vector
}

// AddDocumentParams holds parameters for storing a document.
type AddDocumentParams struct {
	Name   string
	Path   string
	Pages  int
	Chunks []NewChunk
}

// SearchParams holds parameters for passage retrieval. When Vector is set
// and stored chunks carry embeddings, ranking is by cosine similarity;
// otherwise Query is ranked with FTS5 bm25.
type SearchParams struct {
	Query  string
	Vector embedding.Vector
	K      int
}

// SearchResult is a retrieved passage with its relevance score (higher is
// better).
type SearchResult struct {
	model.Chunk
	Score float64 `json:"score"`
}

// Store defines the document storage interface.
type Store interface {
	// AddDocument stores a document and all of its chunks atomically.
	AddDocument(ctx context.Context, p AddDocumentParams) (*model.Document, error)

	// IsPopulated reports whether any document has been stored.
	IsPopulated(ctx context.Context) (bool, error)

	// Search returns up to K passages ranked by relevance.
	Search(ctx context.Context, p SearchParams) ([]SearchResult, error)

	// Info reports collection statistics.
	Info(ctx context.Context) (*Info, error)

	// Clear deletes every document and chunk.
	Clear(ctx context.Context) error

	// Close closes the store.
	Close() error
}
