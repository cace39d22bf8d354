package redis

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/tweetloader/internal/db"
)

// InsertDocument stores data at the document key only if the key is absent.
// JSON.SET ... NX replies nil when the key exists, which maps to db.ErrKeyExists.
func (s *Store) InsertDocument(ctx context.Context, ref db.DocumentRef, data []byte) error {
	key := s.docKey(ref)
	cmd := s.b().Arbitrary("JSON.SET").Keys(key).Args("$", string(data), "NX").Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return db.ErrKeyExists
		}
		return &db.Error{Op: db.OpJSONSet, Err: err}
	}
	return nil
}

// GetDocument returns the stored JSON document.
func (s *Store) GetDocument(ctx context.Context, ref db.DocumentRef) ([]byte, error) {
	cmd := s.b().Arbitrary("JSON.GET").Keys(s.docKey(ref)).Build()
	raw, err := s.do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpJSONGet, Err: err}
	}
	if raw == "" {
		return nil, db.ErrKeyNotFound
	}
	return []byte(raw), nil
}
