package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration file.
type Config struct {
	App       AppConfig       `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Redis     RedisConfig     `yaml:"redis"`
	Sentry    SentryConfig    `yaml:"sentry"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// AppConfig holds application identity and error display settings.
type AppConfig struct {
	Name     string `yaml:"name"`
	Env      string `yaml:"env"`
	BasePath string `yaml:"base_path"`
	BaseURL  string `yaml:"base_url"`
	Timezone string `yaml:"timezone"`
	Locale   string `yaml:"locale"`

	// ExceptionHandler installs the error boundary in front of the pipeline.
	ExceptionHandler bool `yaml:"exception_handler"`

	// DisplayException adds fault details to error responses.
	DisplayException bool `yaml:"display_exception"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn or error
	Format string `yaml:"format"` // json or text
}

// RedisConfig holds the Redis connection. An empty URL disables Redis.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// SentryConfig holds error reporting settings. An empty DSN disables Sentry.
type SentryConfig struct {
	DSN string `yaml:"dsn"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend string        `yaml:"backend"`
	TTL     time.Duration `yaml:"ttl"`
	Enabled bool          `yaml:"enabled"`
}

// RateLimitConfig holds per-client rate limits.
type RateLimitConfig struct {
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
	Enabled bool    `yaml:"enabled"`

	// TrustProxy keys clients by forwarded headers instead of the peer address.
	TrustProxy bool `yaml:"trust_proxy"`
}

// Defaults returns the configuration used for keys missing from the file.
func Defaults() *Config {
	return &Config{
		App: AppConfig{
			Name:             "conveyor",
			Env:              "production",
			BasePath:         "",
			Timezone:         "UTC",
			Locale:           "en",
			ExceptionHandler: true,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     time.Minute,
		},
		RateLimit: RateLimitConfig{
			RPS:   10,
			Burst: 20,
		},
	}
}

// Load reads the YAML file at path. See Parse.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrRead, err)
	}
	return Parse(data)
}

// Parse decodes YAML over Defaults and validates the result.
// ${VAR} and ${VAR:-fallback} references are expanded from the environment
// before decoding. Other $ characters are kept; $$ yields a literal $.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(expandEnv(string(data))), cfg); err != nil {
		return nil, errors.Join(ErrParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.App.BasePath != "" && !strings.HasPrefix(c.App.BasePath, "/") {
		return fmt.Errorf("%w: app.base_path must start with /: %q", ErrInvalid, c.App.BasePath)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is required", ErrInvalid)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("%w: log.level %q", ErrInvalid, c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("%w: log.format must be json or text: %q", ErrInvalid, c.Log.Format)
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.Enabled && c.Redis.URL == "" {
			return fmt.Errorf("%w: cache.backend redis requires redis.url", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown cache.backend %q", ErrInvalid, c.Cache.Backend)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("%w: rate_limit.rps and rate_limit.burst must be positive", ErrInvalid)
	}
	return nil
}

// IsDevelopment reports whether app.env is "development" or "local".
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development" || c.App.Env == "local"
}

// envRef matches ${NAME}, ${NAME:-fallback} and the $$ escape.
var envRef = regexp.MustCompile(`\$\$|\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// expandEnv substitutes ${NAME} references. Any other $ is kept as is,
// and $$ yields a literal $.
func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		if ref == "$$" {
			return "$"
		}
		m := envRef.FindStringSubmatch(ref)
		if v, ok := os.LookupEnv(m[1]); ok && v != "" {
			return v
		}
		return m[2]
	})
}
