package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Ingest Prometheus metrics.
var (
	RecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tweetloader",
			Name:      "records_total",
			Help:      "Records processed by outcome",
		},
		[]string{"outcome"}, // inserted / duplicate / error / filtered
	)

	PagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tweetloader",
			Name:      "pages_total",
			Help:      "Result pages fetched from the source",
		},
	)

	PageFetchRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tweetloader",
			Name:      "page_fetch_retries_total",
			Help:      "Failed page fetch attempts that were retried or gave up",
		},
	)

	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tweetloader",
			Name:      "runs_total",
			Help:      "Completed ingest runs by termination state",
		},
		[]string{"termination"},
	)

	LinkResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tweetloader",
			Name:      "link_resolutions_total",
			Help:      "Short link lookups by result",
		},
		[]string{"result"}, // resolved / failed
	)

	WriteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tweetloader",
			Name:      "write_duration_seconds",
			Help:      "Document write duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)
)

var ingestOnce sync.Once

// RegisterIngestMetrics registers the ingest metrics. Safe to call repeatedly.
func RegisterIngestMetrics() {
	ingestOnce.Do(func() {
		prometheus.MustRegister(
			RecordsTotal,
			PagesTotal,
			PageFetchRetriesTotal,
			RunsTotal,
			LinkResolutionsTotal,
			WriteDuration,
		)
	})
}
