package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/tweetloader/internal/db"
	"github.com/kailas-cloud/tweetloader/internal/domain"
	"github.com/kailas-cloud/tweetloader/internal/domain/attribute"
	domdoc "github.com/kailas-cloud/tweetloader/internal/domain/document"
)

// store is the consumer interface for documents (ISP).
type store interface {
	EnsureCollection(ctx context.Context, ref db.CollectionRef, fields []db.IndexField) error
	InsertDocument(ctx context.Context, ref db.DocumentRef, data []byte) error
}

// Repo implements usecase/ingest.Repository on top of a db.DocumentStore.
type Repo struct {
	store  store
	fields []db.IndexField
}

// New creates a document repository whose collections are indexed after spec.
func New(s store, spec attribute.Spec) *Repo {
	return &Repo{store: s, fields: indexFields(spec)}
}

// EnsureCollection provisions the collection. indexed is false when the
// backend cannot build secondary indexes; writes still work.
func (r *Repo) EnsureCollection(ctx context.Context, databaseID, collectionID string) (bool, error) {
	ref := db.CollectionRef{Database: databaseID, Collection: collectionID}
	err := r.store.EnsureCollection(ctx, ref, r.fields)
	if errors.Is(err, db.ErrIndexUnsupported) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ensure collection %s/%s: %w", databaseID, collectionID, err)
	}
	return true, nil
}

// Create inserts doc under id. An existing id yields domain.ErrAlreadyExists.
func (r *Repo) Create(ctx context.Context, databaseID, collectionID, id string, doc domdoc.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	ref := db.DocumentRef{
		CollectionRef: db.CollectionRef{Database: databaseID, Collection: collectionID},
		ID:            id,
	}
	if err := r.store.InsertDocument(ctx, ref, data); err != nil {
		if errors.Is(err, db.ErrKeyExists) {
			return fmt.Errorf("document %s: %w", id, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("insert document %s: %w", id, err)
	}
	return nil
}

// indexFields derives FT index fields from the attribute table.
func indexFields(spec attribute.Spec) []db.IndexField {
	fields := make([]db.IndexField, 0, len(spec)+2)
	for _, e := range spec {
		key := e.Key()
		switch e.Type {
		case attribute.TypeInteger, attribute.TypeFloat:
			fields = append(fields, db.JSONField(key, db.IndexFieldNumeric))
		case attribute.TypeList:
			fields = append(fields, db.JSONTagList(key))
		case attribute.TypeString:
			if key == domdoc.KeyText {
				fields = append(fields, db.JSONField(key, db.IndexFieldText))
			} else {
				fields = append(fields, db.JSONField(key, db.IndexFieldTag))
			}
		case attribute.TypeBoolean, attribute.TypeDatetime:
			fields = append(fields, db.JSONField(key, db.IndexFieldTag))
		}
	}
	return append(fields,
		db.JSONField(domdoc.KeyScore, db.IndexFieldNumeric),
		db.JSONField(domdoc.KeyUserID, db.IndexFieldTag),
	)
}
