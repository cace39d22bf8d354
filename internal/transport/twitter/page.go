package twitter

import (
	"context"
	"net/url"

	"github.com/kailas-cloud/tweetloader/internal/domain/record"
	"github.com/kailas-cloud/tweetloader/internal/usecase/ingest"
)

// page is one search result page. The continuation is the API next_token.
type page struct {
	client    *Client
	params    url.Values
	records   []record.Record
	nextToken string
}

func (p *page) Records() []record.Record { return p.records }

func (p *page) HasNext() bool { return p.nextToken != "" }

// Next fetches the page after p. The original query parameters are reused.
func (p *page) Next(ctx context.Context) (ingest.Page, error) {
	params := url.Values{}
	for k, v := range p.params {
		params[k] = append([]string(nil), v...)
	}
	params.Set("next_token", p.nextToken)

	next, err := p.client.fetch(ctx, params)
	if err != nil {
		return nil, err
	}
	return next, nil
}
