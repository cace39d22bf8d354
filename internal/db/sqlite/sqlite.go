// Package sqlite is an embedded db.DocumentStore for local runs and tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/kailas-cloud/tweetloader/internal/db"
)

// ensure Store implements db.DocumentStore
var _ db.DocumentStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS collections (
	database_id TEXT NOT NULL,
	collection_id TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (database_id, collection_id)
);
CREATE TABLE IF NOT EXISTS documents (
	database_id TEXT NOT NULL,
	collection_id TEXT NOT NULL,
	document_id TEXT NOT NULL,
	data TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (database_id, collection_id, document_id)
);
`

// Store is a SQLite-backed db.DocumentStore.
type Store struct {
	db *sql.DB
}

// New opens dsn and applies the schema.
func New(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer keeps insert-if-absent serialized
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, &db.Error{Op: db.OpCreateTable, Err: err}
	}

	return &Store{db: conn}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// EnsureCollection registers the collection. SQLite has no search index
// over the documents, so it reports db.ErrIndexUnsupported once registered.
func (s *Store) EnsureCollection(ctx context.Context, ref db.CollectionRef, _ []db.IndexField) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (database_id, collection_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		ref.Database, ref.Collection,
	)
	if err != nil {
		return &db.Error{Op: db.OpInsert, Err: err}
	}
	return db.ErrIndexUnsupported
}

// InsertDocument inserts the row unless the key exists.
func (s *Store) InsertDocument(ctx context.Context, ref db.DocumentRef, data []byte) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (database_id, collection_id, document_id, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (database_id, collection_id, document_id) DO NOTHING`,
		ref.Database, ref.Collection, ref.ID, string(data),
	)
	if err != nil {
		return &db.Error{Op: db.OpInsert, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &db.Error{Op: db.OpInsert, Err: err}
	}
	if n == 0 {
		return db.ErrKeyExists
	}
	return nil
}

// GetDocument returns the stored JSON for ref.
func (s *Store) GetDocument(ctx context.Context, ref db.DocumentRef) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE database_id = ? AND collection_id = ? AND document_id = ?`,
		ref.Database, ref.Collection, ref.ID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select document: %w", err)
	}
	return []byte(data), nil
}

// Count returns the number of documents in a collection.
func (s *Store) Count(ctx context.Context, ref db.CollectionRef) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE database_id = ? AND collection_id = ?`,
		ref.Database, ref.Collection,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() {
	_ = s.db.Close()
}
