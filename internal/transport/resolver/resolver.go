// Package resolver expands shortened redirect links found in record text.
package resolver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/tweetloader/internal/domain/text"
	"github.com/kailas-cloud/tweetloader/internal/metrics"
)

// Defaults applied when Config leaves a field zero.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultConcurrency = 4
)

// Config configures link lookups.
type Config struct {
	Timeout        time.Duration // per link
	Concurrency    int           // parallel lookups within one text
	RequestsPerSec float64       // 0 disables pacing
	UserAgent      string
}

// Resolver follows redirects for every short link in a text.
type Resolver struct {
	client      *http.Client
	limiter     *rate.Limiter
	timeout     time.Duration
	concurrency int
	userAgent   string
	logger      *zap.Logger
}

// New creates a Resolver.
func New(cfg Config, logger *zap.Logger) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{
		client:      &http.Client{},
		timeout:     cfg.Timeout,
		concurrency: cfg.Concurrency,
		userAgent:   cfg.UserAgent,
		logger:      logger,
	}
	if cfg.RequestsPerSec > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1)
	}
	return r
}

// WithHTTPClient replaces the HTTP client. Its redirect policy is kept.
func (r *Resolver) WithHTTPClient(c *http.Client) *Resolver {
	if c != nil {
		r.client = c
	}
	return r
}

// Resolve replaces each short link with its redirect destination and then
// unescapes HTML entities. A link whose lookup fails is left unchanged.
func (r *Resolver) Resolve(ctx context.Context, s string) string {
	links := text.ShortLinks(s)
	if len(links) == 0 {
		return text.UnescapeEntities(s)
	}

	var (
		mu       sync.Mutex
		resolved = make(map[string]string, len(links))
		g        errgroup.Group
	)
	g.SetLimit(r.concurrency)

	for _, link := range links {
		g.Go(func() error {
			dst, err := r.lookup(ctx, link)
			if err != nil {
				metrics.LinkResolutionsTotal.WithLabelValues("failed").Inc()
				r.logger.Debug("Short link not resolved", zap.String("link", link), zap.Error(err))
				return nil
			}
			metrics.LinkResolutionsTotal.WithLabelValues("resolved").Inc()
			mu.Lock()
			resolved[link] = dst
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // lookups never fail the group

	return text.UnescapeEntities(text.ReplaceShortLinks(s, resolved))
}

// lookup issues a HEAD request following redirects and returns the final URL.
func (r *Resolver) lookup(ctx context.Context, link string) (string, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, link, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("head %s: %w", link, err)
	}
	_ = resp.Body.Close()

	if resp.Request == nil || resp.Request.URL == nil {
		return "", fmt.Errorf("head %s: no final request", link)
	}
	return resp.Request.URL.String(), nil
}
