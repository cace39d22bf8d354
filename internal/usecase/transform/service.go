package transform

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/tweetloader/internal/domain"
	"github.com/kailas-cloud/tweetloader/internal/domain/attribute"
	domdoc "github.com/kailas-cloud/tweetloader/internal/domain/document"
	"github.com/kailas-cloud/tweetloader/internal/domain/record"
	"github.com/kailas-cloud/tweetloader/internal/domain/score"
)

// Service turns eligible records into canonical documents.
type Service struct {
	spec     attribute.Spec
	resolver Resolver
	score    score.Func
}

// New creates a transformer over an attribute table. spec is assumed valid.
func New(spec attribute.Spec, resolver Resolver) *Service {
	return &Service{
		spec:     spec,
		resolver: resolver,
		score:    score.Calculate,
	}
}

// WithScore replaces the score function.
func (s *Service) WithScore(fn score.Func) *Service {
	if fn != nil {
		s.score = fn
	}
	return s
}

// Transform builds the document for rec. Every canonical key of the table is
// present in the result, along with score and user_id.
func (s *Service) Transform(ctx context.Context, rec *record.Record) (domdoc.Document, error) {
	doc := make(domdoc.Document, len(s.spec)+2)
	for _, e := range s.spec {
		v, err := s.populate(rec, e)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", rec.ID, err)
		}
		doc[e.Key()] = v
	}

	if txt, ok := doc[domdoc.KeyText].(string); ok && txt != "" && s.resolver != nil {
		doc[domdoc.KeyText] = s.resolver.Resolve(ctx, txt)
	}

	likes := intValue(doc, record.KeyLikes)
	comments := intValue(doc, record.KeyReplyCount)
	shares := intValue(doc, record.KeyRetweetCount) + intValue(doc, record.KeyQuoteCount)
	doc[domdoc.KeyScore] = s.score(likes, comments, shares)
	doc[domdoc.KeyUserID] = rec.Author.ID

	return doc, nil
}

func (s *Service) populate(rec *record.Record, e attribute.Entry) (any, error) {
	switch e.SourceKey {
	case record.KeyMedia:
		urls := make([]string, 0, len(rec.Media))
		for _, m := range rec.Media {
			urls = append(urls, m.SecureURL)
		}
		return urls, nil
	case record.KeyHashtags:
		return entityTexts(rec.Hashtags), nil
	case record.KeySymbols:
		return entityTexts(rec.Symbols), nil
	case record.KeyPlace:
		if rec.Place != nil {
			return rec.Place.FullName, nil
		}
		return e.Default, nil
	}

	raw, ok := rec.Lookup(e.SourceKey)
	if !ok {
		raw = e.Default
	}
	return coerce(e, raw)
}

// coerce converts a raw value to the entry type. Datetimes become ISO-8601.
func coerce(e attribute.Entry, v any) (any, error) {
	switch e.Type {
	case attribute.TypeDatetime:
		t, ok := v.(time.Time)
		if !ok {
			return nil, fmt.Errorf("%s: %T is not a datetime: %w", e.SourceKey, v, domain.ErrInvalidRecord)
		}
		return attribute.FormatDatetime(t), nil
	case attribute.TypeInteger:
		switch n := v.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case string:
			parsed, err := strconv.ParseInt(n, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: %q is not an integer: %w", e.SourceKey, n, domain.ErrInvalidRecord)
			}
			return parsed, nil
		}
		return nil, fmt.Errorf("%s: %T is not an integer: %w", e.SourceKey, v, domain.ErrInvalidRecord)
	default:
		if !attribute.Compatible(e.Type, v) {
			return nil, fmt.Errorf("%s: %T is not a %s: %w", e.SourceKey, v, e.Type, domain.ErrInvalidRecord)
		}
		return v, nil
	}
}

func entityTexts(es []record.Entity) []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		out = append(out, e.Text)
	}
	return out
}

func intValue(doc domdoc.Document, key string) int64 {
	n, _ := doc[key].(int64)
	return n
}
