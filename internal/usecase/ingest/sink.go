package ingest

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tweetloader/internal/domain"
	domdoc "github.com/kailas-cloud/tweetloader/internal/domain/document"
	"github.com/kailas-cloud/tweetloader/internal/logger"
	"github.com/kailas-cloud/tweetloader/internal/metrics"
)

// Sink writes documents and classifies each write. It never retries.
type Sink struct {
	repo Repository
}

// NewSink creates a sink over repo.
func NewSink(repo Repository) *Sink {
	return &Sink{repo: repo}
}

// Write stores doc under id and reports what happened. Failures other than
// duplicates are logged with the full payload.
func (s *Sink) Write(ctx context.Context, databaseID, collectionID, id string, doc domdoc.Document) domain.Outcome {
	start := time.Now()
	err := s.repo.Create(ctx, databaseID, collectionID, id, doc)
	metrics.WriteDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		return domain.OutcomeInserted
	case errors.Is(err, domain.ErrAlreadyExists):
		logger.FromContext(ctx).Debug("Duplicate document ignored", zap.String("id", id))
		return domain.OutcomeDuplicateIgnored
	default:
		logger.FromContext(ctx).Error("Failed to write document",
			zap.String("id", id),
			zap.Any("document", doc),
			zap.Error(err),
		)
		return domain.OutcomeError
	}
}
