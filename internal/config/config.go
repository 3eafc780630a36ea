// Package config loads the service configuration from the environment.
//
// Variables are declared as envconfig struct tags on Config. Nested groups
// prefix their members, so OTELConfig.Endpoint is read from
// OTEL_EXPORTER_OTLP_ENDPOINT. A value that does not parse is an error
// rather than a silent fallback to the default.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

// CORSConfig is read from CORS_*.
type CORSConfig struct {
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" desc:"comma-separated origins; empty allows any"`
}

// SecurityConfig is read from HSTS_*.
type SecurityConfig struct {
	EnableHSTS bool          `envconfig:"ENABLED" default:"false" desc:"send Strict-Transport-Security on HTTPS requests"`
	HSTSMaxAge time.Duration `envconfig:"MAX_AGE" default:"4320h"`
}

// OTELConfig is read from OTEL_*.
type OTELConfig struct {
	Enabled     bool    `envconfig:"ENABLED" default:"false"`
	Endpoint    string  `envconfig:"EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
	Insecure    bool    `envconfig:"EXPORTER_OTLP_INSECURE" default:"true"`
	ServiceName string  `envconfig:"SERVICE_NAME" default:"campus-market"`
	SampleRatio float64 `envconfig:"TRACES_SAMPLER_ARG" default:"1" desc:"fraction of traces sampled, 0..1"`
}

// Config is the full service configuration.
type Config struct {
	Port              string        `envconfig:"PORT" default:"8080"`
	ReadTimeout       time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"10s"`
	WriteTimeout      time.Duration `envconfig:"WRITE_TIMEOUT" default:"20s"`
	IdleTimeout       time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes    int           `envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	MaxBodyBytes      int64         `envconfig:"MAX_BODY_BYTES" default:"1048576"`
	GinMode           string        `envconfig:"GIN_MODE" default:"release" desc:"debug, release or test"`

	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false" desc:"human-readable console logs"`
	SwaggerEnabled bool   `envconfig:"SWAGGER_ENABLED" default:"false"`
	APIBasePath    string `envconfig:"API_BASE_PATH" default:"/api"`

	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite" desc:"sqlite or postgres"`
	DBPath      string `envconfig:"DB_PATH" default:"marketplace.db"`
	DatabaseURL string `envconfig:"DATABASE_URL" desc:"postgres DSN, required for DB_DRIVER=postgres"`

	EnableDeletion bool `envconfig:"ENABLE_DELETION" default:"false" desc:"allow secret-gated listing deletion"`
	DegradeReads   bool `envconfig:"DEGRADE_READS" default:"true" desc:"answer reads with empty/not-found when the store fails"`
	SecretBytes    int  `envconfig:"SECRET_BYTES" default:"16"`
	SecretHashCost int  `envconfig:"SECRET_HASH_COST" default:"10"`

	RateRPS   float64 `envconfig:"RATE_RPS" default:"5"`
	RateBurst int     `envconfig:"RATE_BURST" default:"10"`
	RedisURL  string  `envconfig:"REDIS_URL" desc:"share the rate limit through redis when set"`

	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	CORS     CORSConfig     `envconfig:"CORS"`
	Security SecurityConfig `envconfig:"HSTS"`
	OTEL     OTELConfig     `envconfig:"OTEL"`
}

// Load reads, normalizes and validates the configuration. On error the
// returned Config holds whatever was parsed.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	cfg.normalize()
	return cfg, cfg.validate()
}

// Usage writes a table of every variable with its default.
func Usage(w io.Writer) error {
	return envconfig.Usagef("", &Config{}, w, envconfig.DefaultTableFormat)
}

func (c *Config) normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "warning" {
		c.LogLevel = "warn"
	}
	c.GinMode = strings.ToLower(strings.TrimSpace(c.GinMode))
	if c.GinMode != "debug" && c.GinMode != "test" {
		c.GinMode = "release"
	}
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.APIBasePath = normalizeBasePath(c.APIBasePath)
	c.CORS.AllowedOrigins = compact(c.CORS.AllowedOrigins)
}

// validate reports every problem at once.
func (c *Config) validate() error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error, fatal, panic", c.LogLevel))
	}
	check(strings.TrimSpace(c.Port) != "", "PORT must not be empty")
	check(c.ReadTimeout > 0 && c.ReadHeaderTimeout > 0 && c.WriteTimeout > 0 && c.IdleTimeout > 0,
		"timeouts must be positive durations")
	check(c.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0")
	check(c.MaxBodyBytes > 0, "MAX_BODY_BYTES must be > 0")

	switch c.DBDriver {
	case "sqlite":
		check(strings.TrimSpace(c.DBPath) != "", "DB_PATH must not be empty")
	case "postgres":
		check(strings.TrimSpace(c.DatabaseURL) != "", "DATABASE_URL is required when DB_DRIVER=postgres")
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not one of sqlite, postgres", c.DBDriver))
	}

	check(c.SecretBytes >= 6 && c.SecretBytes <= 36, "SECRET_BYTES must be between 6 and 36")
	check(c.SecretHashCost >= 4 && c.SecretHashCost <= 31, "SECRET_HASH_COST must be between 4 and 31")
	check(c.RateRPS >= 0, "RATE_RPS must be >= 0")
	check(c.RateBurst >= 1, "RATE_BURST must be >= 1")
	check(c.IdempotencyTTL > 0, "IDEMPOTENCY_TTL must be > 0")
	check(c.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0")
	check(c.OTEL.SampleRatio >= 0 && c.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")

	return multierr.Combine(errs...)
}

// compact trims entries and drops empty ones; nil when nothing is left.
func compact(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// normalizeBasePath returns "/" for blank input, otherwise the path with a
// leading slash and no trailing one.
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
