// Package record models a raw search result as delivered by the source client.
package record

import "time"

// Source keys understood by Record.Lookup.
const (
	KeyID           = "id"
	KeyText         = "text"
	KeyLikes        = "likes"
	KeyReplyCount   = "reply_counts"
	KeyRetweetCount = "retweet_counts"
	KeyQuoteCount   = "quote_counts"
	KeyViewCount    = "views"
	KeyMedia        = "media"
	KeyHashtags     = "hashtags"
	KeySymbols      = "symbols"
	KeyPlace        = "place"
	KeyLanguage     = "lang"
	KeyCreatedOn    = "created_on"
)

// Author references the account that posted a record.
type Author struct {
	ID       string
	Username string
}

// Media is a single attached media item.
type Media struct {
	SecureURL string
}

// Entity is a hashtag or cashtag occurrence.
type Entity struct {
	Text string
}

// Place is the geo place attached to a record.
type Place struct {
	FullName string
}

// Record is a read-only post returned by a search page.
// Pointer fields are nil when the source omitted them.
type Record struct {
	ID     string
	Author Author

	Text         *string
	Likes        *int64
	ReplyCount   *int64
	RetweetCount *int64
	QuoteCount   *int64
	ViewCount    *int64
	Language     *string
	CreatedAt    *time.Time

	Media    []Media
	Hashtags []Entity
	Symbols  []Entity
	Place    *Place

	IsRetweet           bool
	IsQuoted            bool
	IsReply             bool
	IsPossiblySensitive bool
}

// Lookup returns the raw value stored under a source key.
// ok is false when the key is unknown or the field is absent.
func (r *Record) Lookup(key string) (any, bool) {
	switch key {
	case KeyID:
		return r.ID, r.ID != ""
	case KeyText:
		return deref(r.Text)
	case KeyLikes:
		return deref(r.Likes)
	case KeyReplyCount:
		return deref(r.ReplyCount)
	case KeyRetweetCount:
		return deref(r.RetweetCount)
	case KeyQuoteCount:
		return deref(r.QuoteCount)
	case KeyViewCount:
		return deref(r.ViewCount)
	case KeyLanguage:
		return deref(r.Language)
	case KeyCreatedOn:
		return deref(r.CreatedAt)
	case KeyMedia:
		return r.Media, r.Media != nil
	case KeyHashtags:
		return r.Hashtags, r.Hashtags != nil
	case KeySymbols:
		return r.Symbols, r.Symbols != nil
	case KeyPlace:
		return r.Place, r.Place != nil
	default:
		return nil, false
	}
}

func deref[T any](p *T) (any, bool) {
	if p == nil {
		return nil, false
	}
	return *p, true
}
