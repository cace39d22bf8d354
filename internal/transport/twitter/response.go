package twitter

import (
	"time"

	"github.com/kailas-cloud/tweetloader/internal/domain/record"
)

type searchResponse struct {
	Data     []tweet `json:"data"`
	Includes struct {
		Media  []media `json:"media"`
		Places []place `json:"places"`
		Users  []user  `json:"users"`
	} `json:"includes"`
	Meta struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
}

type tweet struct {
	ID                string         `json:"id"`
	Text              string         `json:"text"`
	AuthorID          string         `json:"author_id"`
	CreatedAt         *time.Time     `json:"created_at"`
	Lang              string         `json:"lang"`
	PossiblySensitive bool           `json:"possibly_sensitive"`
	PublicMetrics     *publicMetrics `json:"public_metrics"`
	Entities          *entities      `json:"entities"`
	Attachments       *struct {
		MediaKeys []string `json:"media_keys"`
	} `json:"attachments"`
	Geo *struct {
		PlaceID string `json:"place_id"`
	} `json:"geo"`
	ReferencedTweets []struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"referenced_tweets"`
}

type publicMetrics struct {
	RetweetCount    int64  `json:"retweet_count"`
	ReplyCount      int64  `json:"reply_count"`
	LikeCount       int64  `json:"like_count"`
	QuoteCount      int64  `json:"quote_count"`
	ImpressionCount *int64 `json:"impression_count"`
}

type tag struct {
	Tag string `json:"tag"`
}

type entities struct {
	Hashtags []tag `json:"hashtags"`
	Cashtags []tag `json:"cashtags"`
}

type media struct {
	MediaKey        string `json:"media_key"`
	Type            string `json:"type"`
	URL             string `json:"url"`
	PreviewImageURL string `json:"preview_image_url"`
}

type place struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
}

type user struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// records joins tweets with their expansions, preserving API order.
func (sr *searchResponse) records() []record.Record {
	mediaByKey := make(map[string]media, len(sr.Includes.Media))
	for _, m := range sr.Includes.Media {
		mediaByKey[m.MediaKey] = m
	}
	placeByID := make(map[string]place, len(sr.Includes.Places))
	for _, p := range sr.Includes.Places {
		placeByID[p.ID] = p
	}
	userByID := make(map[string]user, len(sr.Includes.Users))
	for _, u := range sr.Includes.Users {
		userByID[u.ID] = u
	}

	out := make([]record.Record, 0, len(sr.Data))
	for i := range sr.Data {
		t := &sr.Data[i]
		rec := record.Record{
			ID:                  t.ID,
			Author:              record.Author{ID: t.AuthorID, Username: userByID[t.AuthorID].Username},
			Text:                &t.Text,
			CreatedAt:           t.CreatedAt,
			IsPossiblySensitive: t.PossiblySensitive,
		}
		if t.Lang != "" {
			rec.Language = &t.Lang
		}
		if m := t.PublicMetrics; m != nil {
			rec.Likes = &m.LikeCount
			rec.ReplyCount = &m.ReplyCount
			rec.RetweetCount = &m.RetweetCount
			rec.QuoteCount = &m.QuoteCount
			rec.ViewCount = m.ImpressionCount
		}
		if e := t.Entities; e != nil {
			rec.Hashtags = toEntities(e.Hashtags)
			rec.Symbols = toEntities(e.Cashtags)
		}
		if t.Attachments != nil {
			for _, key := range t.Attachments.MediaKeys {
				m, ok := mediaByKey[key]
				if !ok {
					continue
				}
				u := m.URL
				if u == "" {
					u = m.PreviewImageURL
				}
				if u != "" {
					rec.Media = append(rec.Media, record.Media{SecureURL: u})
				}
			}
		}
		if t.Geo != nil {
			if p, ok := placeByID[t.Geo.PlaceID]; ok {
				rec.Place = &record.Place{FullName: p.FullName}
			}
		}
		for _, ref := range t.ReferencedTweets {
			switch ref.Type {
			case "retweeted":
				rec.IsRetweet = true
			case "quoted":
				rec.IsQuoted = true
			case "replied_to":
				rec.IsReply = true
			}
		}
		out = append(out, rec)
	}
	return out
}

func toEntities(tags []tag) []record.Entity {
	if tags == nil {
		return nil
	}
	out := make([]record.Entity, 0, len(tags))
	for _, t := range tags {
		out = append(out, record.Entity{Text: t.Tag})
	}
	return out
}
