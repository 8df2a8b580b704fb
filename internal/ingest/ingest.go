// Package ingest turns a PDF into page-tagged passages ready for storage.
package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/rcliao/docky/internal/chunker"
	"github.com/rcliao/docky/internal/model"
)

// ErrNoText is returned when a PDF yields no extractable text.
var ErrNoText = errors.New("no text content extracted from PDF")

// Page is the plain text of one PDF page. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// LoadPDF extracts plain text per page, skipping pages with no text.
func LoadPDF(path string) ([]Page, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	var pages []Page
	for n := 1; n <= r.NumPage(); n++ {
		p := r.Page(n)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("read page %d: %w", n, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, Page{Number: n, Text: text})
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoText)
	}
	return pages, nil
}

// Split chunks each page independently so every chunk keeps a single page
// number. Seq runs across the whole document.
func Split(name string, pages []Page, opts chunker.Options) []model.Chunk {
	var chunks []model.Chunk
	for _, p := range pages {
		for _, c := range chunker.Chunk(p.Text, opts) {
			chunks = append(chunks, model.Chunk{
				Document: name,
				Page:     p.Number,
				Seq:      len(chunks),
				Text:     c.Text,
			})
		}
	}
	return chunks
}

// Result is a processed document.
type Result struct {
	Name   string
	Path   string
	Pages  int
	Chunks []model.Chunk
}

// Process loads the PDF at path and splits it into chunks.
func Process(path string, opts chunker.Options) (*Result, error) {
	pages, err := LoadPDF(path)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	return &Result{
		Name:   name,
		Path:   path,
		Pages:  len(pages),
		Chunks: Split(name, pages, opts),
	}, nil
}

// Stats describes a set of chunks.
type Stats struct {
	TotalChunks     int     `json:"total_chunks"`
	TotalCharacters int     `json:"total_characters"`
	AvgChunkSize    float64 `json:"avg_chunk_size"`
	MinChunkSize    int     `json:"min_chunk_size"`
	MaxChunkSize    int     `json:"max_chunk_size"`
	UniquePages     int     `json:"unique_pages"`
}

// ComputeStats summarises chunk sizes in characters.
func ComputeStats(chunks []model.Chunk) Stats {
	var st Stats
	if len(chunks) == 0 {
		return st
	}
	pages := map[int]bool{}
	st.MinChunkSize = -1
	for _, c := range chunks {
		n := len([]rune(c.Text))
		st.TotalCharacters += n
		if st.MinChunkSize < 0 || n < st.MinChunkSize {
			st.MinChunkSize = n
		}
		if n > st.MaxChunkSize {
			st.MaxChunkSize = n
		}
		pages[c.Page] = true
	}
	st.TotalChunks = len(chunks)
	st.UniquePages = len(pages)
	avg := float64(st.TotalCharacters) / float64(st.TotalChunks)
	st.AvgChunkSize = float64(int(avg*100+0.5)) / 100
	return st
}
