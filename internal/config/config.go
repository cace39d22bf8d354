package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the loader configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Source    SourceConfig    `yaml:"source"`
	Resolver  ResolverConfig  `yaml:"resolver"`
	Retry     RetryConfig     `yaml:"retry"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds ops server settings. Port 0 disables the server for one-shot runs.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	APIKeys         []string `yaml:"api_keys"`
}

// DatabaseConfig holds document store settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, postgres, sqlite (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DSN              string   `yaml:"dsn"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SourceConfig holds search API settings.
type SourceConfig struct {
	BaseURL        string  `yaml:"base_url"`
	BearerToken    string  `yaml:"bearer_token"`
	PageSize       int     `yaml:"page_size"`
	RequestsPerSec float64 `yaml:"requests_per_sec"`
	TimeoutSec     int     `yaml:"timeout_sec"`
}

// ResolverConfig holds short link resolution settings.
type ResolverConfig struct {
	TimeoutSec     int     `yaml:"timeout_sec"`
	Concurrency    int     `yaml:"concurrency"`
	RequestsPerSec float64 `yaml:"requests_per_sec"`
	UserAgent      string  `yaml:"user_agent"`
}

// RetryConfig holds next-page retry settings.
type RetryConfig struct {
	Mode              string  `yaml:"mode"` // bounded (default), unbounded
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialBackoffMS  int     `yaml:"initial_backoff_ms"`
	MaxBackoffMS      int     `yaml:"max_backoff_ms"`
	Multiplier        float64 `yaml:"multiplier"`
	BreakerThreshold  int     `yaml:"breaker_threshold"` // 0 disables the breaker
	BreakerCooldownS  int     `yaml:"breaker_cooldown_sec"`
	RetryInitialFetch bool    `yaml:"retry_initial_fetch"`
}

// IngestConfig names the destination and the default cap.
type IngestConfig struct {
	DatabaseID   string `yaml:"database_id"`
	CollectionID string `yaml:"collection_id"`
	MaxRecords   int    `yaml:"max_records"`
}

// EmbeddingConfig holds the optional embedding stage settings.
type EmbeddingConfig struct {
	Enabled    bool         `yaml:"enabled"`
	Provider   string       `yaml:"provider"`
	APIKey     string       `yaml:"api_key"`
	BaseURL    string       `yaml:"base_url"`
	Model      string       `yaml:"model"`
	Dimensions int          `yaml:"dimensions"`
	Budget     BudgetConfig `yaml:"budget"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands env variables, decodes, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "tweetloader:"
	}

	if c.Source.PageSize <= 0 {
		c.Source.PageSize = 100
	}
	if c.Source.TimeoutSec <= 0 {
		c.Source.TimeoutSec = 30
	}

	if c.Resolver.TimeoutSec <= 0 {
		c.Resolver.TimeoutSec = 30
	}
	if c.Resolver.Concurrency <= 0 {
		c.Resolver.Concurrency = 4
	}

	if c.Retry.Mode == "" {
		c.Retry.Mode = "bounded"
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 5
	}
	if c.Retry.InitialBackoffMS <= 0 {
		c.Retry.InitialBackoffMS = 500
	}
	if c.Retry.MaxBackoffMS <= 0 {
		c.Retry.MaxBackoffMS = 30000
	}
	if c.Retry.Multiplier <= 0 {
		c.Retry.Multiplier = 2
	}
	if c.Retry.BreakerCooldownS <= 0 {
		c.Retry.BreakerCooldownS = 60
	}

	if c.Ingest.DatabaseID == "" {
		c.Ingest.DatabaseID = "tweets"
	}
	if c.Ingest.CollectionID == "" {
		c.Ingest.CollectionID = "search"
	}
	if c.Ingest.MaxRecords <= 0 {
		c.Ingest.MaxRecords = 100000
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 0 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Database.Driver {
	case "valkey", "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case "postgres", "sqlite":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf(
			"database.driver must be one of valkey, redis, postgres, sqlite, got %q",
			c.Database.Driver,
		)
	}

	if c.Source.BearerToken == "" {
		return fmt.Errorf("source.bearer_token is required")
	}

	switch c.Retry.Mode {
	case "bounded", "unbounded":
	default:
		return fmt.Errorf("retry.mode must be \"bounded\" or \"unbounded\", got %q", c.Retry.Mode)
	}
	if c.Retry.BreakerThreshold < 0 {
		return fmt.Errorf("retry.breaker_threshold must not be negative")
	}

	if c.Embedding.Enabled {
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required when embedding is enabled")
		}
		if c.Embedding.APIKey == "" {
			return fmt.Errorf("embedding.api_key is required when embedding is enabled")
		}
	}
	switch c.Embedding.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf(
			"embedding.budget.action must be \"warn\" or \"reject\", got %q",
			c.Embedding.Budget.Action,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
