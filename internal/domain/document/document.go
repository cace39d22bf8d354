// Package document defines the canonical, store-ready document.
package document

// Keys added after attribute population.
const (
	KeyScore     = "score"
	KeyUserID    = "user_id"
	KeyEmbedding = "embedding"
	KeyText      = "tweet_text"
)

// Document maps canonical keys to values. It is built once per eligible
// record and treated as immutable after the transformer returns it.
type Document map[string]any

// Text returns the document text or "".
func (d Document) Text() string {
	s, _ := d[KeyText].(string)
	return s
}

// With returns a copy of d with key set to v.
func (d Document) With(key string, v any) Document {
	out := make(Document, len(d)+1)
	for k, val := range d {
		out[k] = val
	}
	out[key] = v
	return out
}
