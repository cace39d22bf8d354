package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tweetloader/internal/domain"
	domdoc "github.com/kailas-cloud/tweetloader/internal/domain/document"
	"github.com/kailas-cloud/tweetloader/internal/domain/record"
	"github.com/kailas-cloud/tweetloader/internal/domain/text"
	"github.com/kailas-cloud/tweetloader/internal/logger"
	"github.com/kailas-cloud/tweetloader/internal/metrics"
)

// DefaultMaxRecords is the record cap used when a run does not set one.
const DefaultMaxRecords = 100000

// Config holds the per-driver settings.
type Config struct {
	DatabaseID        string
	CollectionID      string
	Retry             RetryPolicy
	RetryInitialFetch bool
}

// Result is the outcome of one run. It is returned together with any error.
type Result struct {
	RunID       string             `json:"run_id"`
	Keyword     string             `json:"keyword"`
	Filter      string             `json:"filter"`
	MaxRecords  int                `json:"max_records"`
	Counters    domain.Counters    `json:"counters"`
	Termination domain.Termination `json:"termination"`
	Pages       int                `json:"pages"`
	Retries     int                `json:"retries"`
	Embedded    int                `json:"embedded"`
	Indexed     bool               `json:"indexed"`
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  time.Time          `json:"finished_at"`
	Error       string             `json:"error,omitempty"`
}

// Driver walks search result pages and feeds every record through
// filter, transformer and sink. Counters are owned by the run.
type Driver struct {
	source      Source
	transformer Transformer
	repo        Repository
	sink        *Sink
	embedder    Embedder
	history     *History
	cfg         Config
	breaker     *breaker
	logger      *zap.Logger
	newRunID    func() string
}

// NewDriver creates a pagination driver.
func NewDriver(source Source, transformer Transformer, repo Repository, cfg Config, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Retry.Mode == "" {
		cfg.Retry = DefaultRetryPolicy()
	}
	return &Driver{
		source:      source,
		transformer: transformer,
		repo:        repo,
		sink:        NewSink(repo),
		cfg:         cfg,
		breaker:     newBreaker(cfg.Retry.BreakerThreshold, cfg.Retry.BreakerCooldown),
		logger:      logger,
		newRunID:    uuid.NewString,
	}
}

// WithEmbedder enables the embedding stage.
func (d *Driver) WithEmbedder(e Embedder) *Driver {
	d.embedder = e
	return d
}

// WithHistory records every finished run in h.
func (d *Driver) WithHistory(h *History) *Driver {
	d.history = h
	return d
}

// Run ingests up to maxRecords records for keyword and filter.
// Partial results are returned alongside any error.
func (d *Driver) Run(ctx context.Context, keyword, filter string, maxRecords int) (Result, error) {
	res := Result{
		RunID:      d.newRunID(),
		Keyword:    keyword,
		Filter:     filter,
		MaxRecords: maxRecords,
		StartedAt:  time.Now().UTC(),
	}
	log := logger.ForRun(d.logger, res.RunID, keyword, filter)
	ctx = logger.ContextWithLogger(ctx, log)

	var err error
	if maxRecords <= 0 {
		err = fmt.Errorf("max records must be positive, got %d", maxRecords)
	} else {
		err = d.run(ctx, maxRecords, &res)
	}

	res.FinishedAt = time.Now().UTC()
	if err != nil {
		res.Error = err.Error()
		if res.Termination == "" {
			res.Termination = domain.TerminationFailed
		}
	}
	metrics.RunsTotal.WithLabelValues(string(res.Termination)).Inc()
	if d.history != nil {
		d.history.Record(res)
	}

	fields := []zap.Field{
		zap.String("termination", string(res.Termination)),
		zap.Int("pages", res.Pages),
		zap.Int("retries", res.Retries),
		zap.Int("scraped", res.Counters.Scraped),
		zap.Int("inserted", res.Counters.Inserted),
		zap.Int("ignored", res.Counters.Ignored),
		zap.Int("errors", res.Counters.Errors),
		zap.Duration("duration", res.FinishedAt.Sub(res.StartedAt)),
	}
	if err != nil {
		log.Error("Run failed", append(fields, zap.Error(err))...)
	} else {
		log.Info("Run finished", fields...)
	}
	return res, err
}

func (d *Driver) run(ctx context.Context, maxRecords int, res *Result) error {
	log := logger.FromContext(ctx)

	indexed, err := d.repo.EnsureCollection(ctx, d.cfg.DatabaseID, d.cfg.CollectionID)
	if err != nil {
		res.Termination = domain.TerminationFailed
		return fmt.Errorf("setup collection: %w", err)
	}
	res.Indexed = indexed
	if !indexed {
		log.Warn("Store has no search index support, writing documents without an index")
	}

	page, err := d.first(ctx, res)
	if err != nil {
		res.Termination = terminationFor(err)
		return fmt.Errorf("%w: %w", ErrInitialFetch, err)
	}

	for {
		if page == nil {
			res.Termination = domain.TerminationEmptyPage
			return nil
		}
		records := page.Records()
		if len(records) == 0 {
			res.Termination = domain.TerminationEmptyPage
			return nil
		}
		res.Pages++
		metrics.PagesTotal.Inc()

		for i := range records {
			if res.Counters.Scraped >= maxRecords {
				break
			}
			if err := ctx.Err(); err != nil {
				res.Termination = domain.TerminationCanceled
				return fmt.Errorf("page %d: %w", res.Pages, err)
			}
			d.process(ctx, &records[i], res)
		}

		hasNext := page.HasNext()
		log.Info("Page processed",
			zap.Int("page", res.Pages),
			zap.Int("scraped", res.Counters.Scraped),
			zap.Int("inserted", res.Counters.Inserted),
			zap.Int("ignored", res.Counters.Ignored),
			zap.Int("errors", res.Counters.Errors),
			zap.Bool("has_next", hasNext),
		)

		if res.Counters.Scraped >= maxRecords {
			res.Termination = domain.TerminationReached
			return nil
		}
		if !hasNext {
			res.Termination = domain.TerminationExhausted
			return nil
		}

		page, err = d.fetch(ctx, res, page.Next)
		if err != nil {
			res.Termination = terminationFor(err)
			return fmt.Errorf("fetch page %d: %w", res.Pages+1, err)
		}
	}
}

// first fetches the first page. It is retried only when configured.
func (d *Driver) first(ctx context.Context, res *Result) (Page, error) {
	search := func(ctx context.Context) (Page, error) {
		return d.source.Search(ctx, res.Keyword, res.Filter)
	}
	if d.cfg.RetryInitialFetch {
		return d.fetch(ctx, res, search)
	}
	page, err := search(ctx)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return page, nil
}

// fetch calls fn under the retry policy.
func (d *Driver) fetch(ctx context.Context, res *Result, fn func(context.Context) (Page, error)) (Page, error) {
	log := logger.FromContext(ctx)
	policy := d.cfg.Retry
	bounded := policy.Mode != RetryUnbounded

	for attempt := 1; ; attempt++ {
		if bounded {
			if err := d.breaker.allow(); err != nil {
				return nil, err
			}
		}

		page, err := fn(ctx)
		if err == nil {
			d.breaker.success()
			return page, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		if bounded {
			d.breaker.failure()
		}
		res.Retries++
		metrics.PageFetchRetriesTotal.Inc()
		log.Warn("Page fetch failed",
			zap.Int("attempt", attempt),
			zap.String("mode", string(policy.Mode)),
			zap.Error(err),
		)

		if policy.exhausted(attempt) {
			return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, err)
		}
		if err := sleep(ctx, policy.backoff(attempt)); err != nil {
			return nil, err
		}
	}
}

func (d *Driver) process(ctx context.Context, rec *record.Record, res *Result) {
	log := logger.FromContext(ctx)
	res.Counters.Scraped++
	log.Debug("Processing record", zap.Int("n", res.Counters.Scraped), zap.String("id", rec.ID))

	if reason := record.IgnoreReason(rec); reason != record.ReasonNone {
		res.Counters.Ignored++
		metrics.RecordsTotal.WithLabelValues("filtered").Inc()
		log.Debug("Record filtered", zap.String("id", rec.ID), zap.String("reason", string(reason)))
		return
	}

	doc, err := d.transformer.Transform(ctx, rec)
	if err != nil {
		res.Counters = res.Counters.Record(domain.OutcomeError)
		metrics.RecordsTotal.WithLabelValues(domain.OutcomeError.String()).Inc()
		log.Error("Failed to transform record", zap.String("id", rec.ID), zap.Error(err))
		return
	}

	doc = d.embed(ctx, rec.ID, doc, res)

	outcome := d.sink.Write(ctx, d.cfg.DatabaseID, d.cfg.CollectionID, rec.ID, doc)
	res.Counters = res.Counters.Record(outcome)
	metrics.RecordsTotal.WithLabelValues(outcome.String()).Inc()
}

// embed attaches an embedding of the prepared text. Failures leave doc as is.
func (d *Driver) embed(ctx context.Context, id string, doc domdoc.Document, res *Result) domdoc.Document {
	if d.embedder == nil {
		return doc
	}
	input := text.PrepareForEmbedding(doc.Text())
	if strings.TrimSpace(input) == "" {
		return doc
	}
	log := logger.FromContext(ctx).With(zap.String("id", id))
	r, err := d.embedder.Embed(logger.ContextWithLogger(ctx, log), input)
	if err != nil {
		log.Warn("Embedding failed, writing document without it", zap.Error(err))
		return doc
	}
	res.Embedded++
	return doc.With(domdoc.KeyEmbedding, r.Embedding)
}

func terminationFor(err error) domain.Termination {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.TerminationCanceled
	case errors.Is(err, ErrRetriesExhausted), errors.Is(err, ErrCircuitOpen):
		return domain.TerminationRetriesExhausted
	default:
		return domain.TerminationFailed
	}
}
