// Package chunker splits extracted document text into overlapping passages
// for retrieval.
package chunker

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultSize    = 2000
	DefaultOverlap = 400
)

// DefaultSeparators are tried in order: paragraphs, lines, sentences, words.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " "}

// Options configures chunking behavior. Sizes are in characters.
type Options struct {
	Size       int
	Overlap    int
	Separators []string
}

// DefaultOptions returns default chunking options.
func DefaultOptions() Options {
	return Options{
		Size:       DefaultSize,
		Overlap:    DefaultOverlap,
		Separators: DefaultSeparators,
	}
}

// ChunkResult is one passage and its position among the chunks of a text.
type ChunkResult struct {
	Index int
	Text  string
}

// Chunk splits text into chunks of at most opts.Size characters, carrying up
// to opts.Overlap characters of context from one chunk into the next.
// Short text (<= Size) returns a single chunk.
func Chunk(text string, opts Options) []ChunkResult {
	if opts.Size <= 0 {
		opts = DefaultOptions()
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.Size {
		opts.Overlap = 0
	}
	if opts.Separators == nil {
		opts.Separators = DefaultSeparators
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var results []ChunkResult
	for _, t := range split(text, opts.Separators, opts) {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		results = append(results, ChunkResult{Index: len(results), Text: t})
	}
	return results
}

func size(s string) int { return utf8.RuneCountInString(s) }

// split recursively breaks text on the first separator it contains, falling
// back to finer separators for pieces that are still too large.
func split(text string, separators []string, opts Options) []string {
	if size(text) <= opts.Size {
		return []string{text}
	}

	sep, rest := "", []string(nil)
	for i, s := range separators {
		if strings.Contains(text, s) {
			sep, rest = s, separators[i+1:]
			break
		}
	}
	if sep == "" {
		return hardSplit(text, opts)
	}

	var out, good []string
	for _, piece := range strings.Split(text, sep) {
		if piece == "" {
			continue
		}
		if size(piece) <= opts.Size {
			good = append(good, piece)
			continue
		}
		out = append(out, merge(good, sep, opts)...)
		good = nil
		out = append(out, split(piece, rest, opts)...)
	}
	return append(out, merge(good, sep, opts)...)
}

// merge packs pieces joined by sep into chunks no larger than opts.Size,
// starting each new chunk with the trailing pieces of the previous one that
// fit in opts.Overlap.
func merge(pieces []string, sep string, opts Options) []string {
	sepLen := size(sep)
	var out, current []string
	total := 0

	joinedLen := func(extra int) int {
		if len(current) == 0 {
			return extra
		}
		return total + sepLen + extra
	}

	for _, p := range pieces {
		n := size(p)
		if len(current) > 0 && joinedLen(n) > opts.Size {
			out = append(out, strings.Join(current, sep))
			for len(current) > 0 && (total > opts.Overlap || joinedLen(n) > opts.Size) {
				total -= size(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}
		total = joinedLen(n)
		current = append(current, p)
	}
	if len(current) > 0 {
		out = append(out, strings.Join(current, sep))
	}
	return out
}

// hardSplit cuts text with no usable separator into fixed windows.
func hardSplit(text string, opts Options) []string {
	runes := []rune(text)
	step := opts.Size - opts.Overlap
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + opts.Size
		if end >= len(runes) {
			out = append(out, string(runes[start:]))
			break
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}
