// Package chi serves the operational HTTP surface of the loader.
package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tweetloader/internal/metrics"
	healthuc "github.com/kailas-cloud/tweetloader/internal/usecase/health"
	"github.com/kailas-cloud/tweetloader/internal/usecase/ingest"
	"github.com/kailas-cloud/tweetloader/internal/version"
)

// Runner executes one ingest run.
type Runner interface {
	Run(ctx context.Context, keyword, filter string, maxRecords int) (ingest.Result, error)
}

// HistoryReader exposes the latest finished run.
type HistoryReader interface {
	Last() (ingest.Result, bool)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// RunRequest is the body of POST /runs.
type RunRequest struct {
	Keyword    string `json:"keyword"`
	Filter     string `json:"filter"`
	MaxRecords int    `json:"max_records,omitempty"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  healthuc.Status                 `json:"status"`
	Checks  map[string]healthuc.CheckResult `json:"checks"`
	Version string                          `json:"version"`
}

// Server handles ops requests: health, metrics and run control.
type Server struct {
	runner     Runner
	history    HistoryReader
	health     HealthChecker
	defaultMax int
	baseCtx    context.Context
	logger     *zap.Logger

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// NewServer creates an ops server. runner may be nil to disable POST /runs.
// Background runs use baseCtx, so canceling it stops them.
func NewServer(
	baseCtx context.Context,
	runner Runner,
	history HistoryReader,
	health HealthChecker,
	defaultMax int,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultMax <= 0 {
		defaultMax = ingest.DefaultMaxRecords
	}
	return &Server{
		runner:     runner,
		history:    history,
		health:     health,
		defaultMax: defaultMax,
		baseCtx:    baseCtx,
		logger:     logger,
	}
}

// Router builds the chi router with the standard middleware chain.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/runs/last", s.LastRun)
	r.Post("/runs", s.StartRun)
	return r
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  report.Status,
		Checks:  report.Checks,
		Version: version.Version,
	})
}

// LastRun handles GET /runs/last.
func (s *Server) LastRun(w http.ResponseWriter, _ *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "no runs recorded")
		return
	}
	res, ok := s.history.Last()
	if !ok {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "no runs recorded")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// StartRun handles POST /runs. One run executes at a time.
func (s *Server) StartRun(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "run control is disabled")
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	req.Keyword = strings.TrimSpace(req.Keyword)
	if req.Keyword == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "keyword is required")
		return
	}
	if req.MaxRecords < 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "max_records must be positive")
		return
	}
	if req.MaxRecords == 0 {
		req.MaxRecords = s.defaultMax
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, ErrorCodeRunInFlight, "a run is already in progress")
		return
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()
		// Errors are logged by the driver and kept in the run history.
		_, _ = s.runner.Run(s.baseCtx, req.Keyword, req.Filter, req.MaxRecords)
	}()

	writeJSON(w, http.StatusAccepted, req)
}

// Running reports whether a background run is in flight.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Wait blocks until background runs finish.
func (s *Server) Wait() {
	s.wg.Wait()
}
