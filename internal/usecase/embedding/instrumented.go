package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tweetloader/internal/domain"
	"github.com/kailas-cloud/tweetloader/internal/logger"
	"github.com/kailas-cloud/tweetloader/internal/metrics"
)

// errTypeBudget labels embedding errors raised before the provider is called.
const errTypeBudget = "budget"

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// InstrumentedEmbedder guards an Embedder with the token budget. Log lines
// use the run logger carried by ctx, so they are tagged with the run and
// record being embedded. Transport metrics live in transport/openai.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	budget   BudgetChecker
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps inner. budget may be nil.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string,
	budget BudgetChecker, logger *zap.Logger,
) *InstrumentedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		budget:   budget,
		logger:   logger,
	}
}

// Embed rejects the call when the budget is spent, otherwise embeds text and
// charges the reported tokens.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	log := logger.FromContextOr(ctx, p.logger).With(
		zap.String("provider", p.provider),
		zap.String("model", p.model),
	)

	if err := p.admit(ctx); err != nil {
		log.Warn("Embedding skipped, token budget exhausted", zap.Error(err))
		return domain.EmbeddingResult{}, err
	}

	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	if err != nil {
		log.Error("Embedding request failed",
			zap.Int("input_chars", len(text)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.charge(result.TotalTokens)
	log.Debug("Text embedded",
		zap.Int("input_chars", len(text)),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (p *InstrumentedEmbedder) admit(ctx context.Context) error {
	if p.budget == nil {
		return nil
	}
	if err := p.budget.Check(ctx); err != nil {
		metrics.EmbeddingErrorsTotal.WithLabelValues(p.provider, p.model, errTypeBudget).Inc()
		return fmt.Errorf("budget check: %w", err)
	}
	return nil
}

// charge records usage and publishes what is left of the budget.
func (p *InstrumentedEmbedder) charge(tokens int) {
	if p.budget == nil || tokens <= 0 {
		return
	}
	p.budget.Record(int64(tokens))
	remaining := metrics.EmbeddingBudgetTokensRemaining
	remaining.WithLabelValues(p.provider, "daily").Set(float64(p.budget.RemainingDaily()))
	remaining.WithLabelValues(p.provider, "monthly").Set(float64(p.budget.RemainingMonthly()))
}
