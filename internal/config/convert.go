package config

import (
	"time"

	"github.com/kailas-cloud/tweetloader/internal/usecase/ingest"
)

// RetryPolicy converts the retry section into the driver policy.
func (r RetryConfig) RetryPolicy() ingest.RetryPolicy {
	return ingest.RetryPolicy{
		Mode:             ingest.RetryMode(r.Mode),
		MaxAttempts:      r.MaxAttempts,
		InitialBackoff:   time.Duration(r.InitialBackoffMS) * time.Millisecond,
		MaxBackoff:       time.Duration(r.MaxBackoffMS) * time.Millisecond,
		Multiplier:       r.Multiplier,
		BreakerThreshold: r.BreakerThreshold,
		BreakerCooldown:  time.Duration(r.BreakerCooldownS) * time.Second,
	}
}

// DriverConfig builds the driver configuration.
func (c *Config) DriverConfig() ingest.Config {
	return ingest.Config{
		DatabaseID:        c.Ingest.DatabaseID,
		CollectionID:      c.Ingest.CollectionID,
		Retry:             c.Retry.RetryPolicy(),
		RetryInitialFetch: c.Retry.RetryInitialFetch,
	}
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// ReadinessTimeoutDuration returns the store readiness wait.
func (d DatabaseConfig) ReadinessTimeoutDuration() time.Duration { return seconds(d.ReadinessTimeout) }

// Timeout returns the source request timeout.
func (s SourceConfig) Timeout() time.Duration { return seconds(s.TimeoutSec) }

// Timeout returns the per-link lookup timeout.
func (r ResolverConfig) Timeout() time.Duration { return seconds(r.TimeoutSec) }
