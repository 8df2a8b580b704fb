package store

import (
	"context"
	"os"

	"github.com/rcliao/docky/internal/model"
)

// Info holds collection statistics.
type Info struct {
	DBPath         string           `json:"db_path"`
	DBSizeBytes    int64            `json:"db_size_bytes"`
	DocumentCount  int              `json:"document_count"`
	ChunkCount     int              `json:"chunk_count"`
	EmbeddedChunks int              `json:"embedded_chunks"`
	UniquePages    int              `json:"unique_pages"`
	Documents      []model.Document `json:"documents"`
}

// Info returns collection statistics.
func (s *SQLiteStore) Info(ctx context.Context) (*Info, error) {
	info := &Info{DBPath: s.path, Documents: []model.Document{}}

	// DB file size
	if fi, err := os.Stat(s.path); err == nil {
		info.DBSizeBytes = fi.Size()
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM documents),
			COUNT(*),
			COUNT(embedding),
			COUNT(DISTINCT document_id || ':' || page)
		FROM chunks`).Scan(&info.DocumentCount, &info.ChunkCount, &info.EmbeddedChunks, &info.UniquePages)
	if err != nil {
		return info, err
	}

	docs, err := s.Documents(ctx)
	if err != nil {
		return info, err
	}
	if docs != nil {
		info.Documents = docs
	}
	return info, nil
}
