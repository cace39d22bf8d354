package redis

import (
	"context"
	"errors"
	"strconv"

	"github.com/kailas-cloud/tweetloader/internal/db"
)

// EnsureCollection creates the FT index covering the collection's documents.
// An existing index is not an error. Servers without search support report
// db.ErrIndexUnsupported; documents can still be written.
func (s *Store) EnsureCollection(ctx context.Context, ref db.CollectionRef, fields []db.IndexField) error {
	if len(fields) == 0 {
		return nil
	}
	def, err := db.NewIndex(s.indexName(ref)).
		Prefix(s.collectionPrefix(ref)).
		Fields(fields...).
		Build()
	if err != nil {
		return err
	}
	err = s.CreateIndex(ctx, def)
	if errors.Is(err, db.ErrIndexExists) {
		return nil
	}
	return err
}

// CreateIndex creates an FT index from the given definition.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := buildCreateArgs(def)
	if err != nil {
		return err
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		switch {
		case isRedisErr(err, "index already exists"):
			return db.ErrIndexExists
		case isRedisErr(err, "unknown command"):
			return db.ErrIndexUnsupported
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

func buildCreateArgs(idx *db.IndexDefinition) ([]string, error) {
	if idx.Name == "" {
		return nil, errors.New("index name is required")
	}
	if len(idx.Fields) == 0 {
		return nil, errors.New("at least one field is required")
	}

	args := []string{idx.Name}

	storage := idx.StorageType
	if storage == "" {
		storage = db.StorageJSON
	}
	args = append(args, "ON", string(storage))

	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}

	args = append(args, "SCHEMA")

	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return nil, errors.New("field name is required")
		}
		args = append(args, f.Name)
		if f.Alias != "" {
			args = append(args, "AS", f.Alias)
		}
		switch f.Type {
		case db.IndexFieldNumeric:
			args = append(args, "NUMERIC")
		case db.IndexFieldText:
			args = append(args, "TEXT")
		case db.IndexFieldTag:
			args = append(args, "TAG")
			if f.TagSeparator != "" {
				args = append(args, "SEPARATOR", f.TagSeparator)
			}
		default:
			return nil, errors.New("unsupported field type for " + f.Name)
		}
	}

	return args, nil
}
