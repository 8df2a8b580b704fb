package model

import "time"

// Document is an ingested source file.
type Document struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Pages      int       `json:"pages"`
	ChunkCount int       `json:"chunks"`
	CreatedAt  time.Time `json:"created_at"`
}

// Chunk is a retrievable passage of a document.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id,omitempty"`
	Document   string `json:"document"`
	Page       int    `json:"page"`
	Seq        int    `json:"seq"`
	Text       string `json:"text"`
}

// Source is the citation attached to an answer.
type Source struct {
	Page     int    `json:"page"`
	Document string `json:"document"`
	ChunkID  string `json:"chunk_id"`
	Preview  string `json:"content_preview"`
}
