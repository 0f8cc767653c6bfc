package frappekit

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Config is the file and environment configuration of a client. Values are
// resolved in order: DefaultConfig, the YAML file, FRAPPE_* variables.
type Config struct {
	BaseURL    string        `yaml:"base_url" env:"FRAPPE_URL"`
	Timeout    time.Duration `yaml:"timeout" env:"FRAPPE_TIMEOUT"`
	CSRFCookie string        `yaml:"csrf_cookie" env:"FRAPPE_CSRF_COOKIE"`
	CSRFHeader string        `yaml:"csrf_header" env:"FRAPPE_CSRF_HEADER"`

	APIKey    string `yaml:"api_key" env:"FRAPPE_API_KEY"`
	APISecret string `yaml:"api_secret" env:"FRAPPE_API_SECRET"`
	Username  string `yaml:"username" env:"FRAPPE_USERNAME"`
	Password  string `yaml:"password" env:"FRAPPE_PASSWORD"`

	StaleTime     time.Duration `yaml:"stale_time" env:"FRAPPE_STALE_TIME"`
	QueryRetries  int           `yaml:"query_retries" env:"FRAPPE_QUERY_RETRIES"`
	RetryBackoff  time.Duration `yaml:"retry_backoff" env:"FRAPPE_RETRY_BACKOFF"`
	RetryStrategy string        `yaml:"retry_strategy" env:"FRAPPE_RETRY_STRATEGY"`

	RateLimit    int           `yaml:"rate_limit" env:"FRAPPE_RATE_LIMIT"`
	RateInterval time.Duration `yaml:"rate_interval" env:"FRAPPE_RATE_INTERVAL"`

	ListenAddr string `yaml:"listen" env:"FRAPPE_LISTEN"`
	LogLevel   string `yaml:"log_level" env:"FRAPPE_LOG_LEVEL"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:       DefaultBaseURL,
		Timeout:       DefaultTimeout,
		CSRFCookie:    DefaultCSRFCookie,
		CSRFHeader:    DefaultCSRFHeader,
		StaleTime:     DefaultStaleTime,
		QueryRetries:  1,
		RetryBackoff:  time.Second,
		RetryStrategy: "constant",
		RateInterval:  time.Second,
		ListenAddr:    ":3000",
		LogLevel:      "info",
	}
}

// LoadConfig resolves the configuration. path may be empty; a missing file
// is an error only when path is set.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("config from environment: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var result *multierror.Error

	if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		result = multierror.Append(result, fmt.Errorf("base_url must be an absolute http(s) URL, got %q", c.BaseURL))
	}
	if c.Timeout <= 0 {
		result = multierror.Append(result, errors.New("timeout must be positive"))
	}
	if c.StaleTime < 0 {
		result = multierror.Append(result, errors.New("stale_time must not be negative"))
	}
	if c.QueryRetries < 0 {
		result = multierror.Append(result, errors.New("query_retries must not be negative"))
	}
	if c.RetryBackoff < 0 {
		result = multierror.Append(result, errors.New("retry_backoff must not be negative"))
	}
	if _, err := parseBackoffStrategy(c.RetryStrategy); err != nil {
		result = multierror.Append(result, err)
	}
	if c.RateLimit < 0 {
		result = multierror.Append(result, errors.New("rate_limit must not be negative"))
	}
	if c.RateLimit > 0 && c.RateInterval <= 0 {
		result = multierror.Append(result, errors.New("rate_interval must be positive when rate_limit is set"))
	}
	if (c.APIKey == "") != (c.APISecret == "") {
		result = multierror.Append(result, errors.New("api_key and api_secret must be set together"))
	}
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		result = multierror.Append(result, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}

	if result != nil {
		result.ErrorFormat = joinErrors
	}
	return result.ErrorOrNil()
}

func parseBackoffStrategy(s string) (BackoffStrategy, error) {
	switch strings.ToLower(s) {
	case "", "constant":
		return ConstantDelay, nil
	case "exponential":
		return ExponentialJitter, nil
	case "decorrelated":
		return DecorrelatedJitter, nil
	default:
		return ConstantDelay, fmt.Errorf("unknown retry_strategy %q", s)
	}
}

// RetryPolicy builds the default query retry policy.
func (c Config) RetryPolicy() RetryPolicy {
	strategy, _ := parseBackoffStrategy(c.RetryStrategy)
	p := DefaultRetryPolicy()
	p.MaxRetries = c.QueryRetries
	p.Strategy = strategy
	p.InitialBackoff = c.RetryBackoff
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	return p
}

// ClientOptions translates c into client options.
func (c Config) ClientOptions() []Option {
	opts := []Option{
		WithBaseURL(c.BaseURL),
		WithTimeout(c.Timeout),
		WithCSRF(c.CSRFCookie, c.CSRFHeader),
	}
	if c.APIKey != "" {
		opts = append(opts, WithAPIKey(c.APIKey, c.APISecret))
	}
	if c.RateLimit > 0 {
		opts = append(opts, WithRateLimiter(c.RateLimit, c.RateInterval))
	}
	return opts
}

// NewFromConfig builds a Client and a QueryClient over it. logger and metrics
// may be nil.
func NewFromConfig(cfg Config, logger hclog.Logger, metrics *MetricsCollector) (*Client, *QueryClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	opts := append(cfg.ClientOptions(), WithLogger(logger), WithMetricsCollector(metrics))
	client := New(opts...)
	if err := client.ValidationError(); err != nil {
		return nil, nil, err
	}

	qc := NewQueryClient(client,
		WithDefaultStaleTime(cfg.StaleTime),
		WithDefaultRetry(cfg.RetryPolicy()),
		WithCacheLogger(logger),
		WithCacheMetrics(metrics),
	)
	return client, qc, nil
}
