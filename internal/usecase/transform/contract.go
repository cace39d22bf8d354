package transform

import "context"

// Resolver rewrites short links in text. It never fails; unresolved links
// stay as they were.
type Resolver interface {
	Resolve(ctx context.Context, text string) string
}
