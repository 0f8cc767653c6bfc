package frappekit

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

// WithBaseURL sets the backend address, e.g. "https://erp.example.com".
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTimeout sets the request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
		if c.httpClient != nil {
			c.httpClient.Timeout = d
		}
	}
}

// WithCSRF overrides the cookie the CSRF token is read from and the header it
// is sent in.
func WithCSRF(cookie, header string) Option {
	return func(c *Client) {
		c.csrfCookie = cookie
		c.csrfHeader = header
	}
}

// WithHTTPClient sets a custom HTTP client. The client's jar is replaced with
// the session jar unless it already has one.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
		if client == nil {
			return
		}
		if c.timeout != 0 {
			c.httpClient.Timeout = c.timeout
		}
		if client.Jar == nil {
			client.Jar = c.jar
		} else {
			c.jar = client.Jar
		}
	}
}

// WithCookieJar sets the jar holding the session cookies.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) {
		c.jar = jar
		if c.httpClient != nil {
			c.httpClient.Jar = jar
		}
	}
}

// WithAuthToken sends "Authorization: <scheme> <token()>" on every request,
// for token or bearer authentication instead of a cookie session.
func WithAuthToken(scheme string, token func() string) Option {
	return func(c *Client) {
		c.tokenScheme = scheme
		c.token = token
	}
}

// WithAPIKey authenticates with a user's API key and secret.
func WithAPIKey(key, secret string) Option {
	return WithAuthToken("token", func() string { return key + ":" + secret })
}

// WithMiddleware adds middleware to the client
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, middleware...)
	}
}

// WithRateLimiter sets the rate limiter
func WithRateLimiter(maxTokens int, refillRate time.Duration) Option {
	return func(c *Client) {
		c.rateLimiter = NewRateLimiter(maxTokens, refillRate)
	}
}

// WithMetrics enables Prometheus metrics collection
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger hclog.Logger) Option {
	return func(c *Client) {
		if logger == nil {
			logger = hclog.NewNullLogger()
		}
		c.logger = logger.Named("client")
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		c.requestIDGen = gen
	}
}

// ValidateConfiguration validates the client configuration and returns an error if invalid
func (c *Client) ValidateConfiguration() error {
	var result *multierror.Error

	result = multierror.Append(result, c.validateBaseURL()...)
	result = multierror.Append(result, c.validateTransportConfig()...)
	result = multierror.Append(result, c.validateRateLimiterConfig()...)
	result = multierror.Append(result, c.validateMiddlewareConfig()...)

	if err := result.ErrorOrNil(); err != nil {
		result.ErrorFormat = joinErrors
		return &ClientError{
			Kind:    ErrorKindValidation,
			Message: "invalid client configuration: " + result.Error(),
			Cause:   err,
		}
	}

	return nil
}

func (c *Client) validateBaseURL() []error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return []error{fmt.Errorf("baseURL: %w", err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return []error{fmt.Errorf("baseURL must be an absolute http(s) URL, got %q", c.baseURL)}
	}
	if u.Host == "" {
		return []error{fmt.Errorf("baseURL has no host")}
	}
	return nil
}

func (c *Client) validateTransportConfig() []error {
	var errs []error

	if c.httpClient == nil {
		errs = append(errs, fmt.Errorf("HTTP client cannot be nil"))
	}
	if c.timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}
	if c.csrfCookie != "" && c.csrfHeader == "" {
		errs = append(errs, fmt.Errorf("CSRF header must be set when a CSRF cookie is configured"))
	}
	if c.token != nil && c.tokenScheme == "" {
		errs = append(errs, fmt.Errorf("token scheme must be set when a token is configured"))
	}
	if c.requestIDGen == nil {
		errs = append(errs, fmt.Errorf("request ID generator cannot be nil"))
	}

	return errs
}

func (c *Client) validateRateLimiterConfig() []error {
	var errs []error

	if c.rateLimiter != nil {
		if c.rateLimiter.maxTokens <= 0 {
			errs = append(errs, fmt.Errorf("rateLimiter maxTokens must be positive"))
		}
		if c.rateLimiter.refillRate <= 0 {
			errs = append(errs, fmt.Errorf("rateLimiter refillRate must be positive"))
		}
	}

	return errs
}

func (c *Client) validateMiddlewareConfig() []error {
	var errs []error

	for i, middleware := range c.middleware {
		if middleware == nil {
			errs = append(errs, fmt.Errorf("middleware[%d] cannot be nil", i))
		}
	}

	return errs
}

func joinErrors(errs []error) string {
	parts := make([]string, len(errs))
	for i, err := range errs {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}
