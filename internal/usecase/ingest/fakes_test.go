package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/tweetloader/internal/domain"
	domdoc "github.com/kailas-cloud/tweetloader/internal/domain/document"
	"github.com/kailas-cloud/tweetloader/internal/domain/record"
)

type fakePage struct {
	records []record.Record
	hasNext bool
	next    func(ctx context.Context) (Page, error)
}

func (p *fakePage) Records() []record.Record { return p.records }
func (p *fakePage) HasNext() bool            { return p.hasNext }
func (p *fakePage) Next(ctx context.Context) (Page, error) {
	if p.next == nil {
		return nil, errors.New("no next page")
	}
	return p.next(ctx)
}

// chain links pages so each one returns the following page.
func chain(pages ...*fakePage) *fakePage {
	for i := 0; i < len(pages)-1; i++ {
		next := pages[i+1]
		pages[i].hasNext = true
		pages[i].next = func(context.Context) (Page, error) { return next, nil }
	}
	return pages[0]
}

type fakeSource struct {
	calls int
	errs  []error
	page  Page
}

func (s *fakeSource) Search(_ context.Context, _, _ string) (Page, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	return s.page, nil
}

type fakeTransformer struct {
	calls int
	fail  map[string]bool
}

func (t *fakeTransformer) Transform(_ context.Context, rec *record.Record) (domdoc.Document, error) {
	t.calls++
	if t.fail[rec.ID] {
		return nil, fmt.Errorf("record %s: %w", rec.ID, domain.ErrInvalidRecord)
	}
	txt := ""
	if rec.Text != nil {
		txt = *rec.Text
	}
	return domdoc.Document{"tweet_id": rec.ID, "tweet_text": txt, "user_id": rec.Author.ID}, nil
}

type memRepo struct {
	docs      map[string]domdoc.Document
	order     []string
	writeErr  map[string]error
	ensureErr error
	noIndex   bool
	ensured   int
}

func newMemRepo() *memRepo {
	return &memRepo{docs: make(map[string]domdoc.Document)}
}

func (r *memRepo) EnsureCollection(context.Context, string, string) (bool, error) {
	r.ensured++
	if r.ensureErr != nil {
		return false, r.ensureErr
	}
	return !r.noIndex, nil
}

func (r *memRepo) Create(_ context.Context, _, _, id string, doc domdoc.Document) error {
	if err := r.writeErr[id]; err != nil {
		return err
	}
	if _, ok := r.docs[id]; ok {
		return fmt.Errorf("document %s: %w", id, domain.ErrAlreadyExists)
	}
	r.docs[id] = doc
	r.order = append(r.order, id)
	return nil
}

type fakeEmbedder struct {
	err error
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	if e.err != nil {
		return domain.EmbeddingResult{}, e.err
	}
	return domain.EmbeddingResult{Embedding: []float32{float32(len(text))}, TotalTokens: 1}, nil
}

func ptr[T any](v T) *T { return &v }

func tweet(id int) record.Record {
	return record.Record{
		ID:     strconv.Itoa(id),
		Author: record.Author{ID: "u" + strconv.Itoa(id)},
		Text:   ptr("tweet " + strconv.Itoa(id)),
	}
}

func tweets(from, n int) []record.Record {
	out := make([]record.Record, 0, n)
	for i := range n {
		out = append(out, tweet(from+i))
	}
	return out
}
