// Package postgres stores documents as JSONB rows keyed by (database, collection, id).
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kailas-cloud/tweetloader/internal/db"
)

// ensure Store implements db.DocumentStore
var _ db.DocumentStore = (*Store)(nil)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS collections (
	database_id TEXT NOT NULL,
	collection_id TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (database_id, collection_id)
);
CREATE TABLE IF NOT EXISTS documents (
	database_id TEXT NOT NULL,
	collection_id TEXT NOT NULL,
	document_id TEXT NOT NULL,
	data JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (database_id, collection_id, document_id)
);
`

// Store is a pgx-backed db.DocumentStore.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to dsn and applies the schema.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, &db.Error{Op: db.OpCreateTable, Err: err}
	}

	return &Store{pool: pool}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// EnsureCollection registers the collection. Documents are schemaless JSONB
// with no search index, so it reports db.ErrIndexUnsupported once registered.
func (s *Store) EnsureCollection(ctx context.Context, ref db.CollectionRef, _ []db.IndexField) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO collections (database_id, collection_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		ref.Database, ref.Collection,
	)
	if err != nil {
		return &db.Error{Op: db.OpInsert, Err: err}
	}
	return db.ErrIndexUnsupported
}

// InsertDocument inserts the row unless the key exists.
func (s *Store) InsertDocument(ctx context.Context, ref db.DocumentRef, data []byte) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO documents (database_id, collection_id, document_id, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (database_id, collection_id, document_id) DO NOTHING`,
		ref.Database, ref.Collection, ref.ID, data,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return db.ErrKeyExists
		}
		return &db.Error{Op: db.OpInsert, Err: err}
	}
	if tag.RowsAffected() == 0 {
		return db.ErrKeyExists
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation
}
