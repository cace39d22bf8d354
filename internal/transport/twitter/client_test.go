package twitter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

const firstPage = `{
  "data": [
    {
      "id": "1001",
      "text": "Go 1.23 is out https://t.co/abc #golang $GOOG",
      "author_id": "42",
      "created_at": "2024-08-13T17:00:00.000Z",
      "lang": "en",
      "possibly_sensitive": false,
      "public_metrics": {"retweet_count": 3, "reply_count": 2, "like_count": 10, "quote_count": 1, "impression_count": 900},
      "entities": {"hashtags": [{"start": 30, "end": 37, "tag": "golang"}], "cashtags": [{"tag": "GOOG"}]},
      "attachments": {"media_keys": ["3_1", "7_2"]},
      "geo": {"place_id": "p1"}
    },
    {
      "id": "1002",
      "text": "RT @gopher: hello",
      "author_id": "43",
      "referenced_tweets": [{"type": "retweeted", "id": "900"}]
    }
  ],
  "includes": {
    "media": [
      {"media_key": "3_1", "type": "photo", "url": "https://pbs.twimg.com/media/a.jpg"},
      {"media_key": "7_2", "type": "video", "preview_image_url": "https://pbs.twimg.com/thumb/b.jpg"}
    ],
    "places": [{"id": "p1", "full_name": "Berlin, Germany"}],
    "users": [{"id": "42", "username": "golang"}, {"id": "43", "username": "gopher"}]
  },
  "meta": {"result_count": 2, "next_token": "tok2"}
}`

const lastPage = `{
  "data": [
    {"id": "1003", "text": "reply", "author_id": "44", "referenced_tweets": [{"type": "replied_to", "id": "1"}]},
    {"id": "1004", "text": "quote", "author_id": "45", "possibly_sensitive": true, "referenced_tweets": [{"type": "quoted", "id": "2"}]}
  ],
  "meta": {"result_count": 2}
}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(&Config{BaseURL: srv.URL + "/2", BearerToken: "secret", PageSize: 50})
}

func TestSearch_MapsRecords(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/tweets/search/recent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization = %q", got)
		}
		q := r.URL.Query()
		if q.Get("query") != "golang" || q.Get("sort_order") != "recency" || q.Get("max_results") != "50" {
			t.Errorf("unexpected query: %v", q)
		}
		_, _ = w.Write([]byte(firstPage))
	})

	p, err := c.Search(context.Background(), "golang", "Latest")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.HasNext() {
		t.Error("expected next page")
	}

	recs := p.Records()
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}

	r := recs[0]
	if r.ID != "1001" || r.Author.ID != "42" || r.Author.Username != "golang" {
		t.Errorf("identity = %+v", r)
	}
	if *r.Likes != 10 || *r.ReplyCount != 2 || *r.RetweetCount != 3 || *r.QuoteCount != 1 || *r.ViewCount != 900 {
		t.Errorf("metrics not mapped: likes=%d", *r.Likes)
	}
	if len(r.Media) != 2 || r.Media[0].SecureURL != "https://pbs.twimg.com/media/a.jpg" ||
		r.Media[1].SecureURL != "https://pbs.twimg.com/thumb/b.jpg" {
		t.Errorf("media = %+v", r.Media)
	}
	if len(r.Hashtags) != 1 || r.Hashtags[0].Text != "golang" || len(r.Symbols) != 1 || r.Symbols[0].Text != "GOOG" {
		t.Errorf("entities = %+v %+v", r.Hashtags, r.Symbols)
	}
	if r.Place == nil || r.Place.FullName != "Berlin, Germany" {
		t.Errorf("place = %+v", r.Place)
	}
	if r.CreatedAt == nil || !r.CreatedAt.Equal(time.Date(2024, 8, 13, 17, 0, 0, 0, time.UTC)) {
		t.Errorf("created_at = %v", r.CreatedAt)
	}
	if r.IsRetweet || r.IsReply || r.IsQuoted || r.IsPossiblySensitive {
		t.Errorf("unexpected flags on %s", r.ID)
	}

	if rt := recs[1]; !rt.IsRetweet || rt.Likes != nil || rt.Place != nil {
		t.Errorf("retweet = %+v", rt)
	}
}

func TestSearch_Pagination(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		if q.Get("query") != "gophercon has:media" {
			t.Errorf("query = %q", q.Get("query"))
		}
		switch q.Get("next_token") {
		case "":
			_, _ = w.Write([]byte(firstPage))
		case "tok2":
			_, _ = w.Write([]byte(lastPage))
		default:
			t.Errorf("unexpected next_token %q", q.Get("next_token"))
		}
	})

	p, err := c.Search(context.Background(), "gophercon", "media")
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	next, err := p.Next(context.Background())
	if err != nil {
		t.Fatalf("next page: %v", err)
	}
	if next.HasNext() {
		t.Error("last page should not have a next page")
	}

	recs := next.Records()
	if len(recs) != 2 || !recs[0].IsReply || !recs[1].IsQuoted || !recs[1].IsPossiblySensitive {
		t.Errorf("flags not mapped: %+v", recs)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 requests, got %d", calls.Load())
	}
}

func TestSearch_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-rate-limit-reset", "1700000000")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"title":"Too Many Requests","detail":"Too Many Requests","type":"about:blank","status":429}`))
	})

	_, err := c.Search(context.Background(), "golang", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if !apiErr.RateLimited() || apiErr.Title != "Too Many Requests" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if apiErr.RateLimitReset.Unix() != 1700000000 {
		t.Errorf("reset = %v", apiErr.RateLimitReset)
	}
}

func TestPage_NextWaitsForRateLimitReset(t *testing.T) {
	reset := time.Unix(time.Now().Add(1500*time.Millisecond).Unix(), 0)
	var calls atomic.Int32
	var retriedAt atomic.Int64
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			_, _ = w.Write([]byte(firstPage))
		case 2:
			w.Header().Set("x-rate-limit-reset", strconv.FormatInt(reset.Unix(), 10))
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			retriedAt.Store(time.Now().UnixNano())
			_, _ = w.Write([]byte(lastPage))
		}
	})

	p, err := c.Search(context.Background(), "golang", "")
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	var apiErr *APIError
	if _, err := p.Next(context.Background()); !errors.As(err, &apiErr) || !apiErr.RateLimited() {
		t.Fatalf("expected 429 APIError, got %v", err)
	}

	next, err := p.Next(context.Background())
	if err != nil {
		t.Fatalf("retry after reset: %v", err)
	}
	if len(next.Records()) != 2 {
		t.Errorf("expected 2 records, got %d", len(next.Records()))
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 requests, got %d", calls.Load())
	}
	if got := time.Unix(0, retriedAt.Load()); got.Before(reset) {
		t.Errorf("retry sent at %v, before reset %v", got, reset)
	}
}

func TestSearch_RateLimitResetHonorsContext(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("x-rate-limit-reset", strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10))
		w.WriteHeader(http.StatusTooManyRequests)
	})

	if _, err := c.Search(context.Background(), "golang", ""); err == nil {
		t.Fatal("expected 429 error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Search(ctx, "golang", "")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("no request expected inside the reset window, got %d", calls.Load())
	}
}

func TestRecordReset(t *testing.T) {
	c := NewClient(&Config{})

	c.recordReset(time.Time{})
	c.recordReset(time.Now().Add(-time.Minute))
	if !c.retryAt.IsZero() {
		t.Fatalf("past resets must be ignored, got %v", c.retryAt)
	}

	c.recordReset(time.Now().Add(time.Hour))
	if limit := time.Now().Add(maxResetWait); c.retryAt.After(limit) {
		t.Errorf("reset %v not capped at %v", c.retryAt, limit)
	}
}

func TestSearch_PlainTextError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	})

	_, err := c.Search(context.Background(), "golang", "top")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 APIError, got %v", err)
	}
	if apiErr.Detail == "" {
		t.Error("expected body in detail")
	}
}

func TestSearch_UnknownFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	if _, err := c.Search(context.Background(), "golang", "trending"); !errors.Is(err, ErrUnknownFilter) {
		t.Fatalf("expected ErrUnknownFilter, got %v", err)
	}
	if _, err := c.Search(context.Background(), "  ", ""); err == nil {
		t.Fatal("expected error for empty keyword")
	}
}

func TestSearch_MalformedJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [`))
	})

	if _, err := c.Search(context.Background(), "golang", ""); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		filter    string
		query     string
		sortOrder string
	}{
		{"", "go", ""},
		{"latest", "go", "recency"},
		{"TOP", "go", "relevancy"},
		{"media", "go has:media", ""},
		{"photos", "go has:images", ""},
		{"Videos", "go has:videos", ""},
	}
	for _, tc := range tests {
		q, s, err := buildQuery(" go ", tc.filter)
		if err != nil {
			t.Errorf("%q: unexpected error %v", tc.filter, err)
			continue
		}
		if q != tc.query || s != tc.sortOrder {
			t.Errorf("%q: got (%q, %q), want (%q, %q)", tc.filter, q, s, tc.query, tc.sortOrder)
		}
	}
}

func TestNewClient_PageSizeBounds(t *testing.T) {
	if c := NewClient(&Config{}); c.pageSize != DefaultPageSize || c.baseURL != DefaultBaseURL {
		t.Errorf("defaults: pageSize=%d baseURL=%s", c.pageSize, c.baseURL)
	}
	if c := NewClient(&Config{PageSize: 3}); c.pageSize != 10 {
		t.Errorf("pageSize = %d, want 10", c.pageSize)
	}
	if c := NewClient(&Config{PageSize: 500}); c.pageSize != 100 {
		t.Errorf("pageSize = %d, want 100", c.pageSize)
	}
}
