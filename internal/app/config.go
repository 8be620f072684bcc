package app

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the console.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	APIBaseURL string        `envconfig:"API_BASE_URL" required:"true"`
	APIToken   string        `envconfig:"API_TOKEN"`
	APITimeout time.Duration `envconfig:"API_TIMEOUT" default:"15s"`

	RedisAddr   string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	CacheTTL    time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	CacheWarmup bool          `envconfig:"CACHE_WARMUP" default:"false"`

	// CacheWarmupCron periodically warms every cached list view, e.g. "@every 10m". Empty
	// disables the schedule.
	CacheWarmupCron string `envconfig:"CACHE_WARMUP_CRON"`

	PrincipalTTL    time.Duration `envconfig:"PRINCIPAL_TTL" default:"30s"`
	Currency        string        `envconfig:"CURRENCY" default:"IDR"`
	RateLimitPerMin int           `envconfig:"RATE_LIMIT_PER_MIN" default:"120"`
}

// LoadConfig reads configuration from environment variables, after loading the given dotenv
// files. A missing file is skipped; without arguments ".env" is tried.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot express.
func (c *Config) Validate() error {
	base, err := url.Parse(c.APIBaseURL)
	if err != nil || !base.IsAbs() || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return fmt.Errorf("api base url %q must be an absolute http(s) url", c.APIBaseURL)
	}
	if c.RateLimitPerMin < 0 {
		return errors.New("rate limit must not be negative")
	}
	if c.Currency == "" {
		return errors.New("currency must be provided")
	}
	return nil
}

// IsProduction returns true when the console runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
