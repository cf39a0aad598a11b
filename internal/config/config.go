// Package config provides configuration loading using koanf.
// Precedence: environment (optionally seeded from a .env file) → compiled defaults.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/aelexs/symptomcheck/internal/domain"
)

// Session backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds all client configuration.
type Config struct {
	// Environment identifier: "local", "dev", "prod"
	Environment string `koanf:"environment"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	API     APIConfig     `koanf:"api"`
	Session SessionConfig `koanf:"session"`
	Redis   RedisConfig   `koanf:"redis"`
	OTEL    OTELConfig    `koanf:"otel"`
	Stub    StubConfig    `koanf:"stub"`
}

// APIConfig points the client at the prediction service.
type APIConfig struct {
	BaseURL string        `koanf:"base_url"` // Required
	Timeout time.Duration `koanf:"timeout"`
}

// SessionConfig selects where the credential is kept between runs.
type SessionConfig struct {
	Backend string `koanf:"backend"` // file | redis | memory
	Dir     string `koanf:"dir"`     // Empty means the user config dir
}

// RedisConfig holds Redis configuration for the redis session backend.
type RedisConfig struct {
	Addr     string        `koanf:"addr"` // Required when session.backend is redis
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	Timeout  time.Duration `koanf:"timeout"`
}

// OTELConfig holds OpenTelemetry configuration.
type OTELConfig struct {
	Endpoint    string `koanf:"endpoint"` // Empty disables OTLP export
	ServiceName string `koanf:"service_name"`
}

// StubConfig configures cmd/stubapi.
type StubConfig struct {
	Port       int           `koanf:"port"`
	SigningKey string        `koanf:"signing_key"`
	TokenTTL   time.Duration `koanf:"token_ttl"`
}

// envKeys maps environment variables to koanf keys. Variables not listed are
// ignored so unrelated process environment never leaks into the config.
var envKeys = map[string]string{
	"ENVIRONMENT":       "environment",
	"LOG_LEVEL":         "log_level",
	"LOG_FORMAT":        "log_format",
	"API_BASE_URL":      "api.base_url",
	"API_TIMEOUT":       "api.timeout",
	"SESSION_BACKEND":   "session.backend",
	"SESSION_DIR":       "session.dir",
	"REDIS_ADDR":        "redis.addr",
	"REDIS_PASSWORD":    "redis.password",
	"REDIS_DB":          "redis.db",
	"REDIS_TIMEOUT":     "redis.timeout",
	"OTEL_ENDPOINT":     "otel.endpoint",
	"OTEL_SERVICE_NAME": "otel.service_name",
	"STUB_PORT":         "stub.port",
	"STUB_SIGNING_KEY":  "stub.signing_key",
	"STUB_TOKEN_TTL":    "stub.token_ttl",
}

// defaults returns a Config with compiled default values.
func defaults() *Config {
	return &Config{
		Environment: "local",
		LogLevel:    "warn",
		LogFormat:   "text",

		API: APIConfig{
			BaseURL: domain.DefaultAPIBaseURL,
			Timeout: domain.APITimeout,
		},
		Session: SessionConfig{
			Backend: BackendFile,
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Timeout: domain.RedisTimeout,
		},
		OTEL: OTELConfig{
			ServiceName: "symptomcheck",
		},
		Stub: StubConfig{
			Port:       8000,
			SigningKey: "stub-signing-key",
			TokenTTL:   30 * time.Minute,
		},
	}
}

// LoadDotEnv seeds the process environment from the first readable file in
// paths. Variables already set are not overridden. It returns the file used,
// or "" when none was found.
func LoadDotEnv(paths ...string) (string, error) {
	for _, p := range paths {
		err := godotenv.Load(p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("load %s: %w", p, err)
		}
	}
	return "", nil
}

// Load loads configuration from the environment over compiled defaults and
// validates it. Missing required keys fail with domain.ErrConfigRequired.
func Load(ctx context.Context) (*Config, error) {
	k := koanf.New(".")

	cfg := defaults()

	err := k.Load(env.Provider("", ".", func(s string) string {
		return envKeys[s]
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validateRequired(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateRequired checks that required configuration is present and usable.
func validateRequired(cfg *Config) error {
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url", domain.ErrConfigRequired)
	}
	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: api.base_url must be an http(s) URL, got %q", domain.ErrConfigRequired, cfg.API.BaseURL)
	}

	switch cfg.Session.Backend {
	case BackendFile, BackendMemory:
	case BackendRedis:
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("%w: redis.addr", domain.ErrConfigRequired)
		}
	default:
		return fmt.Errorf("%w: session.backend must be file, redis or memory, got %q", domain.ErrConfigRequired, cfg.Session.Backend)
	}

	if cfg.API.Timeout <= 0 {
		return fmt.Errorf("%w: api.timeout must be positive", domain.ErrConfigRequired)
	}

	return nil
}

// IsLocal returns true if running in local development environment.
func (c *Config) IsLocal() bool {
	return c.Environment == "local"
}
