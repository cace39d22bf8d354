package ingest

import (
	"context"

	"github.com/kailas-cloud/tweetloader/internal/domain"
	domdoc "github.com/kailas-cloud/tweetloader/internal/domain/document"
	"github.com/kailas-cloud/tweetloader/internal/domain/record"
)

// Source runs a search and returns its first result page.
type Source interface {
	Search(ctx context.Context, keyword, filter string) (Page, error)
}

// Page is one page of search results plus its continuation.
type Page interface {
	Records() []record.Record
	HasNext() bool
	// Next fetches the following page. Errors are transient from the driver's view.
	Next(ctx context.Context) (Page, error)
}

// Transformer builds canonical documents from eligible records.
type Transformer interface {
	Transform(ctx context.Context, rec *record.Record) (domdoc.Document, error)
}

// Repository defines the storage contract for documents.
type Repository interface {
	EnsureCollection(ctx context.Context, databaseID, collectionID string) (indexed bool, err error)
	// Create returns an error wrapping domain.ErrAlreadyExists when id is taken.
	Create(ctx context.Context, databaseID, collectionID, id string, doc domdoc.Document) error
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
