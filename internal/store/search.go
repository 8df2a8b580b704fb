package store

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/rcliao/docky/internal/embedding"
)

const defaultK = 6

// Search returns the passages most relevant to the query.
func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) ([]SearchResult, error) {
	k := p.K
	if k <= 0 {
		k = defaultK
	}

	if len(p.Vector) > 0 {
		results, err := s.searchVector(ctx, p.Vector, k)
		if err != nil || len(results) > 0 {
			return results, err
		}
	}
	return s.searchText(ctx, p.Query, k)
}

// searchVector ranks every embedded chunk by cosine similarity.
func (s *SQLiteStore) searchVector(ctx context.Context, query embedding.Vector, k int) ([]SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, d.name, c.page, c.seq, c.text, c.embedding
		FROM chunks c JOIN documents d ON d.id = c.document_id
		WHERE c.embedding IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var blob []byte
		c, err := scanChunk(rows, &blob)
		if err != nil {
			return nil, err
		}
		results = append(results, SearchResult{
			Chunk: c,
			Score: embedding.CosineSimilarity(query, decodeVector(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// searchText ranks chunks with FTS5 bm25 over the query's words.
func (s *SQLiteStore) searchText(ctx context.Context, query string, k int) ([]SearchResult, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, d.name, c.page, c.seq, c.text, bm25(chunks_fts) AS rank
		FROM chunks_fts
		JOIN chunks c ON c.rowid = chunks_fts.rowid
		JOIN documents d ON d.id = c.document_id
		WHERE chunks_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, match, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var rank float64
		c, err := scanChunk(rows, &rank)
		if err != nil {
			return nil, err
		}
		// bm25 is lower-is-better and negative for matches.
		results = append(results, SearchResult{Chunk: c, Score: -rank})
	}
	return results, rows.Err()
}

// ftsQuery turns free text into an FTS5 OR query of quoted terms so user
// punctuation never reaches the FTS parser.
func ftsQuery(q string) string {
	words := strings.FieldsFunc(strings.ToLower(q), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := map[string]bool{}
	var terms []string
	for _, w := range words {
		if seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, `"`+w+`"`)
	}
	return strings.Join(terms, " OR ")
}
