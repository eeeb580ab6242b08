package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// MetadataStore persists document metadata keyed by document ID. The raw
// article text stays with the content collaborator; only the structured
// fields needed to render results live here.
type MetadataStore interface {
	Save(ctx context.Context, metas []*DocumentMeta) error
	Get(ctx context.Context, id string) (*DocumentMeta, error)
	GetBatch(ctx context.Context, ids []string) (map[string]*DocumentMeta, error)
	Delete(ctx context.Context, ids []string) error
	Count(ctx context.Context) (int, error)
	Close() error
}

// SQLiteMetadataStore implements MetadataStore on SQLite with WAL mode
// for concurrent readers.
type SQLiteMetadataStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

const metadataSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	category   TEXT NOT NULL DEFAULT '',
	tags       TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_category ON documents(category);
`

// NewSQLiteMetadataStore opens (or creates) the metadata database.
// An empty path opens an in-memory database for testing.
func NewSQLiteMetadataStore(path string) (*SQLiteMetadataStore, error) {
	var dsn string
	if path == "" || path == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create metadata directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open metadata database: %w", err)
	}

	if _, err := db.Exec(metadataSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create metadata schema: %w", err)
	}

	return &SQLiteMetadataStore{db: db}, nil
}

// Save upserts metadata rows in one transaction.
func (s *SQLiteMetadataStore) Save(ctx context.Context, metas []*DocumentMeta) error {
	if len(metas) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("metadata store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (id, title, category, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			category = excluded.category,
			tags = excluded.tags,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, meta := range metas {
		if meta.ID == "" {
			return fmt.Errorf("document metadata with empty ID")
		}
		createdAt := meta.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		updatedAt := meta.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = createdAt
		}
		_, err := stmt.ExecContext(ctx,
			meta.ID,
			meta.Title,
			meta.Category,
			strings.Join(meta.Tags, ","),
			createdAt.Format(time.RFC3339),
			updatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("upsert document %s: %w", meta.ID, err)
		}
	}

	return tx.Commit()
}

// Get returns metadata for one document, or nil if absent.
func (s *SQLiteMetadataStore) Get(ctx context.Context, id string) (*DocumentMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("metadata store is closed")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, category, tags, created_at, updated_at FROM documents WHERE id = ?`, id)

	meta, err := scanMeta(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return meta, err
}

// GetBatch returns metadata for the given IDs in a single query.
// Missing IDs are simply absent from the result map.
func (s *SQLiteMetadataStore) GetBatch(ctx context.Context, ids []string) (map[string]*DocumentMeta, error) {
	if len(ids) == 0 {
		return map[string]*DocumentMeta{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("metadata store is closed")
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, category, tags, created_at, updated_at FROM documents WHERE id IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	result := make(map[string]*DocumentMeta, len(ids))
	for rows.Next() {
		meta, err := scanMeta(rows)
		if err != nil {
			return nil, err
		}
		result[meta.ID] = meta
	}

	return result, rows.Err()
}

// Delete removes metadata rows by ID.
func (s *SQLiteMetadataStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("metadata store is closed")
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	return nil
}

// Count returns the number of metadata rows.
func (s *SQLiteMetadataStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("metadata store is closed")
	}

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// Close closes the database.
func (s *SQLiteMetadataStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMeta(row rowScanner) (*DocumentMeta, error) {
	var meta DocumentMeta
	var tags, createdAt, updatedAt string

	if err := row.Scan(&meta.ID, &meta.Title, &meta.Category, &tags, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if tags != "" {
		meta.Tags = strings.Split(tags, ",")
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		meta.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		meta.UpdatedAt = t
	}

	return &meta, nil
}

// Verify interface implementation
var _ MetadataStore = (*SQLiteMetadataStore)(nil)
