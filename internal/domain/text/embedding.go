package text

import "regexp"

// Placeholders substituted for URLs before embedding.
const (
	AttachmentPlaceholder = "<ATTACHMENT URL>"
	LinkPlaceholder       = "<APP or DEMO URL>"
)

const urlPattern = `https?://(www\.)?[-a-zA-Z0-9@:%._\+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b([-a-zA-Z0-9()@:%_\+.~#?&/=]*)`

var (
	trailingURLRe = regexp.MustCompile(urlPattern + `$`)
	anyURLRe      = regexp.MustCompile(urlPattern)
)

// PrepareForEmbedding masks URLs so embeddings capture the prose only.
// A URL ending the text is treated as an attachment; any other URL as a link.
// It is not part of the ingest write path.
func PrepareForEmbedding(s string) string {
	s = trailingURLRe.ReplaceAllLiteralString(s, AttachmentPlaceholder)
	return anyURLRe.ReplaceAllLiteralString(s, LinkPlaceholder)
}
