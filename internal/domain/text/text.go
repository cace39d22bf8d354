// Package text holds the pure text rewrites applied to record text.
package text

import (
	"regexp"
	"strings"
)

// shortLinkRe matches the source's shortened redirect links.
var shortLinkRe = regexp.MustCompile(`https?://t\.co/\w+`)

// entity is one HTML entity rewrite.
type entity struct {
	from, to string
}

// entities are applied in order. Longer sequences come before their prefixes
// so a double-encoded ampersand collapses to a single "&".
var entities = []entity{
	{"&amp;amp;", "&"},
	{"&amp;", "&"},
	{"&gt;", ">"},
	{"&lt;", "<"},
}

// ShortLinks returns distinct short links in order of first appearance.
func ShortLinks(s string) []string {
	matches := shortLinkRe.FindAllString(s, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// ReplaceShortLinks rewrites every short link found in resolved, scanning left
// to right. Links missing from resolved are left as is.
func ReplaceShortLinks(s string, resolved map[string]string) string {
	if len(resolved) == 0 {
		return s
	}
	return shortLinkRe.ReplaceAllStringFunc(s, func(link string) string {
		if dst, ok := resolved[link]; ok {
			return dst
		}
		return link
	})
}

// UnescapeEntities applies the entity table as plain substring replacement.
func UnescapeEntities(s string) string {
	for _, e := range entities {
		s = strings.ReplaceAll(s, e.from, e.to)
	}
	return s
}
