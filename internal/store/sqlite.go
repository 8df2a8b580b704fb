package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/docky/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	path    string
	entropy *rand.Rand
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		path:    dbPath,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		path        TEXT,
		pages       INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_name ON documents(name);

	CREATE TABLE IF NOT EXISTS chunks (
		id          TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		page        INTEGER NOT NULL,
		seq         INTEGER NOT NULL,
		text        TEXT NOT NULL,
		embedding   BLOB
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id, seq);

	CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
		text,
		content=chunks,
		content_rowid=rowid
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// FTS5 triggers for automatic sync
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS chunks_ai AFTER INSERT ON chunks BEGIN
			INSERT INTO chunks_fts(rowid, text) VALUES (new.rowid, new.text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS chunks_ad AFTER DELETE ON chunks BEGIN
			INSERT INTO chunks_fts(chunks_fts, rowid, text) VALUES('delete', old.rowid, old.text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS chunks_au AFTER UPDATE ON chunks BEGIN
			INSERT INTO chunks_fts(chunks_fts, rowid, text) VALUES('delete', old.rowid, old.text);
			INSERT INTO chunks_fts(rowid, text) VALUES (new.rowid, new.text);
		END`,
	}
	for _, t := range triggers {
		if _, err := s.db.Exec(t); err != nil {
			return fmt.Errorf("create trigger: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) AddDocument(ctx context.Context, p AddDocumentParams) (*model.Document, error) {
	if len(p.Chunks) == 0 {
		return nil, fmt.Errorf("%s: %w", p.Name, ErrEmptyDocument)
	}
	now := time.Now().UTC()
	id := s.newID()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, name, path, pages, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, p.Name, p.Path, p.Pages, now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, document_id, page, seq, text, embedding) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range p.Chunks {
		var blob []byte
		if len(c.Vector) > 0 {
			blob = encodeVector(c.Vector)
		}
		if _, err := stmt.ExecContext(ctx, s.newID(), id, c.Page, c.Seq, c.Text, blob); err != nil {
			return nil, fmt.Errorf("insert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &model.Document{
		ID:         id,
		Name:       p.Name,
		Path:       p.Path,
		Pages:      p.Pages,
		ChunkCount: len(p.Chunks),
		CreatedAt:  now,
	}, nil
}

func (s *SQLiteStore) IsPopulated(ctx context.Context) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM (SELECT 1 FROM chunks LIMIT 1)`).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Documents lists stored documents, oldest first.
func (s *SQLiteStore) Documents(ctx context.Context) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.name, COALESCE(d.path, ''), d.pages, d.created_at, COUNT(c.id)
		FROM documents d LEFT JOIN chunks c ON c.document_id = d.id
		GROUP BY d.id ORDER BY d.created_at, d.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var d model.Document
		var createdAt string
		if err := rows.Scan(&d.ID, &d.Name, &d.Path, &d.Pages, &createdAt, &d.ChunkCount); err != nil {
			return nil, err
		}
		d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanChunk(row scanner, extra ...interface{}) (model.Chunk, error) {
	var c model.Chunk
	dest := append([]interface{}{&c.ID, &c.DocumentID, &c.Document, &c.Page, &c.Seq, &c.Text}, extra...)
	err := row.Scan(dest...)
	return c, err
}
