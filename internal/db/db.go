package db

import (
	"context"
	"fmt"
	"time"
)

// DocumentStore is the write-side facade every backend implements.
type DocumentStore interface {
	Pinger
	CollectionManager
	DocumentWriter
	Close()
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CollectionRef names a collection inside a logical database.
type CollectionRef struct {
	Database   string
	Collection string
}

// DocumentRef addresses a single document.
type DocumentRef struct {
	CollectionRef
	ID string
}

// CollectionManager provisions collections. Backends that store schemaless
// JSON may ignore fields.
type CollectionManager interface {
	EnsureCollection(ctx context.Context, ref CollectionRef, fields []IndexField) error
}

// DocumentWriter performs insert-if-absent writes.
// InsertDocument returns ErrKeyExists when ref.ID is already stored.
type DocumentWriter interface {
	InsertDocument(ctx context.Context, ref DocumentRef, data []byte) error
}

// WaitForReady polls Ping until the store responds or timeout expires.
func WaitForReady(ctx context.Context, p Pinger, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := p.Ping(ctx); err == nil {
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := p.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}
