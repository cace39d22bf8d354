package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tweetloader/internal/config"
	"github.com/kailas-cloud/tweetloader/internal/db"
	dbPostgres "github.com/kailas-cloud/tweetloader/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/tweetloader/internal/db/redis"
	dbSQLite "github.com/kailas-cloud/tweetloader/internal/db/sqlite"
	"github.com/kailas-cloud/tweetloader/internal/domain/attribute"
	logpkg "github.com/kailas-cloud/tweetloader/internal/logger"
	"github.com/kailas-cloud/tweetloader/internal/metrics"
	documentrepo "github.com/kailas-cloud/tweetloader/internal/repository/document"
	chiTransport "github.com/kailas-cloud/tweetloader/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/tweetloader/internal/transport/openai"
	"github.com/kailas-cloud/tweetloader/internal/transport/resolver"
	"github.com/kailas-cloud/tweetloader/internal/transport/twitter"
	embeddinguc "github.com/kailas-cloud/tweetloader/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/tweetloader/internal/usecase/health"
	"github.com/kailas-cloud/tweetloader/internal/usecase/ingest"
	"github.com/kailas-cloud/tweetloader/internal/usecase/transform"
	"github.com/kailas-cloud/tweetloader/internal/version"
)

// app is the composition root shared by run and serve.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	store   db.DocumentStore
	driver  *ingest.Driver
	history *ingest.History
	health  *healthuc.Service
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(envName, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	logger.Info("Starting tweetloader",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", envName),
		zap.String("db_driver", cfg.Database.Driver),
	)

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("open store: %w", err)
	}

	if err := db.WaitForReady(ctx, store, cfg.Database.ReadinessTimeoutDuration()); err != nil {
		store.Close()
		_ = logger.Sync()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterIngestMetrics()
	metrics.RegisterEmbeddingMetrics()

	spec := attribute.Tweets()
	if err := spec.Validate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("attribute table: %w", err)
	}

	links := resolver.New(resolver.Config{
		Timeout:        cfg.Resolver.Timeout(),
		Concurrency:    cfg.Resolver.Concurrency,
		RequestsPerSec: cfg.Resolver.RequestsPerSec,
		UserAgent:      cfg.Resolver.UserAgent,
	}, logger)

	source := twitter.NewClient(&twitter.Config{
		BaseURL:        cfg.Source.BaseURL,
		BearerToken:    cfg.Source.BearerToken,
		PageSize:       cfg.Source.PageSize,
		RequestsPerSec: cfg.Source.RequestsPerSec,
		Timeout:        cfg.Source.Timeout(),
		Logger:         logger,
	})

	history := ingest.NewHistory()
	driver := ingest.NewDriver(
		source,
		transform.New(spec, links),
		documentrepo.New(store, spec),
		cfg.DriverConfig(),
		logger,
	).WithHistory(history)

	health := healthuc.New(store)

	if cfg.Embedding.Enabled {
		base, embedder := buildEmbedder(cfg.Embedding, logger)
		driver.WithEmbedder(embedder)
		health.Register("embedding", base)
		logger.Info("Embedding stage enabled",
			zap.String("provider", cfg.Embedding.Provider),
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
		)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		driver:  driver,
		history: history,
		health:  health,
	}, nil
}

func (a *app) Close() {
	a.store.Close()
	_ = a.logger.Sync()
}

// opsServer builds the HTTP server, or nil when the port is 0.
func (a *app) opsServer(ctx context.Context, runner chiTransport.Runner) (*http.Server, *chiTransport.Server) {
	if a.cfg.HTTP.Port == 0 {
		return nil, nil
	}
	ops := chiTransport.NewServer(ctx, runner, a.history, a.health, a.cfg.Ingest.MaxRecords, a.logger)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.HTTP.Port),
		Handler:      ops.Router(nonEmpty(a.cfg.HTTP.APIKeys)),
		ReadTimeout:  time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(a.cfg.HTTP.WriteTimeoutSec) * time.Second,
	}
	return srv, ops
}

func (a *app) shutdown(srv *http.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Error during shutdown", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (db.DocumentStore, error) {
	switch cfg.Driver {
	case "valkey", "redis":
		return dbRedis.NewStore(dbRedis.Config{
			Addrs:     cfg.Addrs,
			Username:  cfg.Username,
			Password:  cfg.Password,
			KeyPrefix: cfg.KeyPrefix,
		})
	case "postgres":
		return dbPostgres.New(ctx, cfg.DSN)
	case "sqlite":
		return dbSQLite.New(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// buildEmbedder assembles the decorator chain: OpenAI -> Instrumented (budget + logging).
func buildEmbedder(cfg config.EmbeddingConfig, logger *zap.Logger) (*openaiEmb.Embedder, ingest.Embedder) {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	// Pass a nil interface, not a typed nil pointer, when no budget is set.
	var budget embeddinguc.BudgetChecker
	if cfg.Budget.DailyTokenLimit > 0 || cfg.Budget.MonthlyTokenLimit > 0 {
		action := embeddinguc.BudgetActionWarn
		if cfg.Budget.Action == "reject" {
			action = embeddinguc.BudgetActionReject
		}
		budget = embeddinguc.NewBudgetTracker(
			cfg.Provider, cfg.Budget.DailyTokenLimit, cfg.Budget.MonthlyTokenLimit, action, logger,
		)
	}

	return base, embeddinguc.NewInstrumentedEmbedder(base, cfg.Provider, cfg.Model, budget, logger)
}

func nonEmpty(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
