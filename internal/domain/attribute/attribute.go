// Package attribute declares how raw record fields map onto canonical document keys.
package attribute

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/tweetloader/internal/domain"
	"github.com/kailas-cloud/tweetloader/internal/domain/record"
)

// Type is the canonical value type of an attribute.
type Type string

const (
	// TypeString stores a string.
	TypeString Type = "string"
	// TypeInteger stores an int64.
	TypeInteger Type = "integer"
	// TypeFloat stores a float64.
	TypeFloat Type = "float"
	// TypeBoolean stores a bool.
	TypeBoolean Type = "boolean"
	// TypeDatetime stores an ISO-8601 string; defaults and raw values are time.Time.
	TypeDatetime Type = "datetime"
	// TypeList stores a []string.
	TypeList Type = "list"
)

// Entry maps one source field to one canonical key.
type Entry struct {
	SourceKey    string
	CanonicalKey string // empty means SourceKey
	Type         Type
	Default      any
}

// Key returns the canonical output key.
func (e Entry) Key() string {
	if e.CanonicalKey != "" {
		return e.CanonicalKey
	}
	return e.SourceKey
}

// Spec is an ordered attribute table. Order is the population order.
type Spec []Entry

// Validate checks that every canonical key appears once and every
// default is compatible with its declared type.
func (s Spec) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("empty attribute table: %w", domain.ErrInvalidSchema)
	}
	seen := make(map[string]bool, len(s))
	for i, e := range s {
		if e.SourceKey == "" {
			return fmt.Errorf("entry %d: source key is required: %w", i, domain.ErrInvalidSchema)
		}
		key := e.Key()
		if seen[key] {
			return fmt.Errorf("duplicate canonical key %q: %w", key, domain.ErrInvalidSchema)
		}
		seen[key] = true
		if !Compatible(e.Type, e.Default) {
			return fmt.Errorf("default %v (%T) is not a %s for %q: %w",
				e.Default, e.Default, e.Type, key, domain.ErrInvalidSchema)
		}
	}
	return nil
}

// Keys returns canonical keys in declaration order.
func (s Spec) Keys() []string {
	keys := make([]string, len(s))
	for i, e := range s {
		keys[i] = e.Key()
	}
	return keys
}

// Compatible reports whether v can be stored as t.
func Compatible(t Type, v any) bool {
	switch t {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeInteger:
		switch v.(type) {
		case int, int32, int64:
			return true
		}
		return false
	case TypeFloat:
		switch v.(type) {
		case float32, float64, int, int64:
			return true
		}
		return false
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeDatetime:
		_, ok := v.(time.Time)
		return ok
	case TypeList:
		_, ok := v.([]string)
		return ok
	default:
		return false
	}
}

// FormatDatetime renders t as ISO-8601 in UTC. Sub-second precision is
// kept; trailing zero fractions are dropped.
func FormatDatetime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Epoch is the datetime default used when a record carries no timestamp.
var Epoch = time.Unix(0, 0).UTC()

// Tweets returns the attribute table for tweet documents.
func Tweets() Spec {
	return Spec{
		{SourceKey: record.KeyID, CanonicalKey: "tweet_id", Type: TypeInteger, Default: int64(0)},
		{SourceKey: record.KeyText, CanonicalKey: "tweet_text", Type: TypeString, Default: ""},
		{SourceKey: record.KeyLikes, Type: TypeInteger, Default: int64(0)},
		{SourceKey: record.KeyReplyCount, Type: TypeInteger, Default: int64(0)},
		{SourceKey: record.KeyRetweetCount, Type: TypeInteger, Default: int64(0)},
		{SourceKey: record.KeyQuoteCount, Type: TypeInteger, Default: int64(0)},
		{SourceKey: record.KeyViewCount, Type: TypeInteger, Default: int64(0)},
		{SourceKey: record.KeyMedia, Type: TypeList, Default: []string{}},
		{SourceKey: record.KeyHashtags, Type: TypeList, Default: []string{}},
		{SourceKey: record.KeySymbols, Type: TypeList, Default: []string{}},
		{SourceKey: record.KeyPlace, Type: TypeString, Default: ""},
		{SourceKey: record.KeyLanguage, Type: TypeString, Default: ""},
		{SourceKey: record.KeyCreatedOn, CanonicalKey: "created_at", Type: TypeDatetime, Default: Epoch},
	}
}
