package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIndexBuilder_JSONFields(t *testing.T) {
	idx, err := NewIndex("tl:db:tweets:idx").
		Prefix("tl:db:tweets:").
		Fields(
			JSONField("tweet_text", IndexFieldText),
			JSONField("score", IndexFieldNumeric),
			JSONTagList("hashtags"),
		).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.StorageType != StorageJSON {
		t.Errorf("storage = %q, want JSON", idx.StorageType)
	}
	if len(idx.Fields) != 3 {
		t.Fatalf("fields count = %d, want 3", len(idx.Fields))
	}
	if idx.Fields[2].Name != "$.hashtags[*]" || idx.Fields[2].Alias != "hashtags" {
		t.Errorf("field[2] = %+v", idx.Fields[2])
	}

	s := idx.String()
	for _, part := range []string{"FT.CREATE tl:db:tweets:idx", "ON JSON", "$.score AS score NUMERIC", "$.tweet_text AS tweet_text TEXT"} {
		if !strings.Contains(s, part) {
			t.Errorf("String() = %q, missing %q", s, part)
		}
	}
}

func TestIndexBuilder_Invalid(t *testing.T) {
	tests := []struct {
		name string
		b    *IndexBuilder
	}{
		{"empty name", NewIndex("").Fields(JSONField("a", IndexFieldTag))},
		{"bad name", NewIndex("a b").Fields(JSONField("a", IndexFieldTag))},
		{"no fields", NewIndex("idx")},
		{"duplicate alias", NewIndex("idx").Fields(JSONField("a", IndexFieldTag), JSONTagList("a"))},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.b.Build(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"tweets", true},
		{"tl:prod:tweets:idx", true},
		{"a-b_c", true},
		{"", false},
		{"has space", false},
		{"dot.name", false},
	}
	for _, tc := range tests {
		if got := IsValidIdentifier(tc.in); got != tc.want {
			t.Errorf("IsValidIdentifier(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

type flakyPinger struct {
	failures int
	calls    int
}

func (p *flakyPinger) Ping(_ context.Context) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("connection refused")
	}
	return nil
}

func TestWaitForReady(t *testing.T) {
	p := &flakyPinger{failures: 2}
	if err := WaitForReady(context.Background(), p, 2*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.calls != 3 {
		t.Errorf("calls = %d, want 3", p.calls)
	}
}

func TestWaitForReady_Timeout(t *testing.T) {
	p := &flakyPinger{failures: 1 << 30}
	err := WaitForReady(context.Background(), p, 250*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestError_Unwrap(t *testing.T) {
	err := &Error{Op: OpInsert, Err: ErrKeyExists}
	if !errors.Is(err, ErrKeyExists) {
		t.Error("errors.Is should see through db.Error")
	}
	if err.Error() != "INSERT: db: key already exists" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestIndexDefinition_ValidateReportsAll(t *testing.T) {
	idx := &IndexDefinition{Name: "bad name", Fields: []IndexField{{Name: ""}, {Name: "$.a", Alias: "a"}, {Name: "$.b", Alias: "a"}}}
	err := idx.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"invalid characters", "field 0", "duplicate field"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}
