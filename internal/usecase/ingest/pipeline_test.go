package ingest_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tweetloader/internal/db"
	"github.com/kailas-cloud/tweetloader/internal/db/sqlite"
	"github.com/kailas-cloud/tweetloader/internal/domain"
	"github.com/kailas-cloud/tweetloader/internal/domain/attribute"
	"github.com/kailas-cloud/tweetloader/internal/domain/record"
	documentrepo "github.com/kailas-cloud/tweetloader/internal/repository/document"
	"github.com/kailas-cloud/tweetloader/internal/usecase/ingest"
	"github.com/kailas-cloud/tweetloader/internal/usecase/transform"
)

type staticPage struct {
	records []record.Record
}

func (p staticPage) Records() []record.Record { return p.records }
func (p staticPage) HasNext() bool            { return false }
func (p staticPage) Next(context.Context) (ingest.Page, error) {
	return nil, nil
}

type staticSource struct {
	page ingest.Page
}

func (s staticSource) Search(context.Context, string, string) (ingest.Page, error) {
	return s.page, nil
}

func TestPipeline_SQLite(t *testing.T) {
	store, err := sqlite.New("file:" + t.Name() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer store.Close()

	text := "R&amp;amp;D notes https://t.co/abc"
	likes, replies, retweets := int64(10), int64(2), int64(3)
	created := time.Date(2024, 2, 2, 8, 0, 0, 0, time.UTC)
	page := staticPage{records: []record.Record{
		{
			ID: "100", Author: record.Author{ID: "42"},
			Text: &text, Likes: &likes, ReplyCount: &replies, RetweetCount: &retweets, CreatedAt: &created,
		},
		{ID: "101", Author: record.Author{ID: "43"}, IsReply: true},
		{ID: "100", Author: record.Author{ID: "42"}},
	}}

	spec := attribute.Tweets()
	repo := documentrepo.New(store, spec)
	tr := transform.New(spec, nil)
	cfg := ingest.Config{DatabaseID: "main", CollectionID: "tweets"}

	res, err := ingest.NewDriver(staticSource{page: page}, tr, repo, cfg, zap.NewNop()).
		Run(context.Background(), "golang", "latest", 100)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := domain.Counters{Scraped: 3, Inserted: 1, Ignored: 2}
	if res.Counters != want {
		t.Errorf("counters = %+v, want %+v", res.Counters, want)
	}
	if res.Termination != domain.TerminationExhausted {
		t.Errorf("termination = %s", res.Termination)
	}

	coll := db.CollectionRef{Database: "main", Collection: "tweets"}
	n, err := store.Count(context.Background(), coll)
	if err != nil || n != 1 {
		t.Fatalf("count = %d err = %v, want 1", n, err)
	}

	raw, err := store.GetDocument(context.Background(), db.DocumentRef{CollectionRef: coll, ID: "100"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc["user_id"] != "42" || doc["created_at"] != "2024-02-02T08:00:00Z" {
		t.Errorf("unexpected document: %v", doc)
	}
	if doc["tweet_id"] != float64(100) {
		t.Errorf("tweet_id = %v", doc["tweet_id"])
	}
	if _, ok := doc["score"].(float64); !ok {
		t.Errorf("score missing: %v", doc["score"])
	}
}
