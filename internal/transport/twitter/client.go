// Package twitter implements the search source over the X API v2
// recent search endpoint.
package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/tweetloader/internal/usecase/ingest"
)

// Defaults applied when Config leaves a field zero.
const (
	DefaultBaseURL  = "https://api.twitter.com/2"
	DefaultPageSize = 100
	DefaultTimeout  = 30 * time.Second

	minPageSize = 10
	maxPageSize = 100

	// maxResetWait bounds how far ahead a rate-limit reset is honored.
	maxResetWait = 15 * time.Minute
)

// ErrUnknownFilter is returned for a search filter the client cannot map.
var ErrUnknownFilter = errors.New("unknown search filter")

const (
	tweetFields = "author_id,created_at,lang,possibly_sensitive,public_metrics," +
		"entities,attachments,geo,referenced_tweets"
	expansions  = "author_id,attachments.media_keys,geo.place_id"
	mediaFields = "url,preview_image_url,type"
	placeFields = "full_name"
	userFields  = "username"
)

// Config holds the source client settings.
type Config struct {
	BaseURL        string
	BearerToken    string
	PageSize       int
	RequestsPerSec float64 // 0 disables pacing
	Timeout        time.Duration
	Logger         *zap.Logger
}

// Client runs recent searches. It implements ingest.Source.
type Client struct {
	http     *http.Client
	baseURL  string
	token    string
	pageSize int
	limiter  *rate.Limiter
	logger   *zap.Logger

	mu      sync.Mutex
	retryAt time.Time
}

// NewClient creates a search client.
func NewClient(cfg *Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	pageSize := cfg.PageSize
	switch {
	case pageSize == 0:
		pageSize = DefaultPageSize
	case pageSize < minPageSize:
		pageSize = minPageSize
	case pageSize > maxPageSize:
		pageSize = maxPageSize
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		http:     &http.Client{Timeout: timeout},
		baseURL:  baseURL,
		token:    cfg.BearerToken,
		pageSize: pageSize,
		logger:   logger,
	}
	if cfg.RequestsPerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1)
	}
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	if h != nil {
		c.http = h
	}
	return c
}

// Search fetches the first page of results for keyword under filter.
func (c *Client) Search(ctx context.Context, keyword, filter string) (ingest.Page, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, errors.New("keyword is required")
	}
	query, sortOrder, err := buildQuery(keyword, filter)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("max_results", strconv.Itoa(c.pageSize))
	params.Set("tweet.fields", tweetFields)
	params.Set("expansions", expansions)
	params.Set("media.fields", mediaFields)
	params.Set("place.fields", placeFields)
	params.Set("user.fields", userFields)
	if sortOrder != "" {
		params.Set("sort_order", sortOrder)
	}

	p, err := c.fetch(ctx, params)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (c *Client) fetch(ctx context.Context, params url.Values) (*page, error) {
	if err := c.waitReset(ctx); err != nil {
		return nil, err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	endpoint := c.baseURL + "/tweets/search/recent?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp, body)
		if apiErr.RateLimited() {
			c.recordReset(apiErr.RateLimitReset)
		}
		return nil, apiErr
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	c.logger.Debug("Search page fetched",
		zap.Int("results", sr.Meta.ResultCount),
		zap.Bool("has_next", sr.Meta.NextToken != ""),
		zap.Duration("duration", time.Since(start)),
	)

	return &page{
		client:    c,
		params:    params,
		records:   sr.records(),
		nextToken: sr.Meta.NextToken,
	}, nil
}

// waitReset blocks until a reset announced by an earlier 429 has passed.
func (c *Client) waitReset(ctx context.Context) error {
	c.mu.Lock()
	retryAt := c.retryAt
	c.mu.Unlock()

	wait := time.Until(retryAt)
	if wait <= 0 {
		return nil
	}
	c.logger.Info("Waiting for search rate limit reset",
		zap.Time("reset", retryAt),
		zap.Duration("wait", wait),
	)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limit reset wait: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// recordReset stores the reset time of a throttled response. Past or
// missing resets are ignored and far-off ones are capped at maxResetWait.
func (c *Client) recordReset(reset time.Time) {
	now := time.Now()
	if reset.IsZero() || !reset.After(now) {
		return
	}
	if limit := now.Add(maxResetWait); reset.After(limit) {
		reset = limit
	}
	c.mu.Lock()
	if reset.After(c.retryAt) {
		c.retryAt = reset
	}
	c.mu.Unlock()
}

// buildQuery maps a search filter onto query operators and sort order.
func buildQuery(keyword, filter string) (query, sortOrder string, err error) {
	query = strings.TrimSpace(keyword)
	switch strings.ToLower(strings.TrimSpace(filter)) {
	case "":
	case "latest":
		sortOrder = "recency"
	case "top":
		sortOrder = "relevancy"
	case "media":
		query += " has:media"
	case "photos":
		query += " has:images"
	case "videos":
		query += " has:videos"
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnknownFilter, filter)
	}
	return query, sortOrder, nil
}
