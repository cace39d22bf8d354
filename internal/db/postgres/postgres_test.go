package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kailas-cloud/tweetloader/internal/db"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unique", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped unique", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"not null", &pgconn.PgError{Code: "23502"}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range tests {
		if got := isUniqueViolation(tc.err); got != tc.want {
			t.Errorf("%s: isUniqueViolation = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestStore_InsertTwice(t *testing.T) {
	// Only run against a real database when TWEETLOADER_TEST_PG_DSN is set
	dsn := os.Getenv("TWEETLOADER_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("Skipping Postgres store test: TWEETLOADER_TEST_PG_DSN not set")
	}

	ctx := context.Background()
	s, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to create Postgres store: %v", err)
	}
	defer s.Close()

	ref := db.DocumentRef{
		CollectionRef: db.CollectionRef{Database: "test", Collection: fmt.Sprintf("tweets_%d", time.Now().UnixNano())},
		ID:            "1",
	}
	if err := s.EnsureCollection(ctx, ref.CollectionRef, nil); !errors.Is(err, db.ErrIndexUnsupported) {
		t.Fatalf("EnsureCollection: expected ErrIndexUnsupported, got %v", err)
	}
	if err := s.InsertDocument(ctx, ref, []byte(`{"tweet_id":1}`)); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := s.InsertDocument(ctx, ref, []byte(`{"tweet_id":1}`)); !errors.Is(err, db.ErrKeyExists) {
		t.Fatalf("second insert: expected ErrKeyExists, got %v", err)
	}
}
