package frappekit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/net/publicsuffix"
)

const (
	// DefaultBaseURL is the address of a local bench.
	DefaultBaseURL = "http://localhost:8000"
	// DefaultTimeout bounds every request.
	DefaultTimeout = 15 * time.Second
	// DefaultCSRFCookie is the cookie the backend stores its CSRF token in.
	DefaultCSRFCookie = "csrf_token"
	// DefaultCSRFHeader carries the token on mutating requests.
	DefaultCSRFHeader = "X-Frappe-CSRF-Token"
	// RequestIDHeader carries the generated request ID.
	RequestIDHeader = "X-Request-ID"
)

// Client is the transport to a Frappe backend. It keeps the session cookies
// in its own jar, injects the CSRF token on mutating requests and folds every
// failure into a *ClientError. It is safe for concurrent use; construct it
// once and share it.
type Client struct {
	httpClient      *http.Client
	jar             http.CookieJar
	baseURL         string
	timeout         time.Duration
	csrfCookie      string
	csrfHeader      string
	middleware      []Middleware
	rateLimiter     *RateLimiter
	metrics         *MetricsCollector
	logger          hclog.Logger
	requestIDGen    func() string
	tokenScheme     string
	token           func() string
	validationError error
}

// New constructs a Client using the provided functional options. Invalid
// configuration does not panic; it is kept in ValidationError and returned
// from every Send.
func New(options ...Option) *Client {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	client := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Jar:     jar,
		},
		jar:          jar,
		baseURL:      DefaultBaseURL,
		timeout:      DefaultTimeout,
		csrfCookie:   DefaultCSRFCookie,
		csrfHeader:   DefaultCSRFHeader,
		middleware:   []Middleware{},
		logger:       hclog.NewNullLogger(),
		requestIDGen: uuid.NewString,
	}

	for _, option := range options {
		option(client)
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.baseURL
}

// Cookie returns the value of a session cookie for the backend, URL-unescaped.
func (c *Client) Cookie(name string) (string, bool) {
	if c == nil || c.jar == nil {
		return "", false
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", false
	}
	for _, ck := range c.jar.Cookies(u) {
		if ck.Name != name {
			continue
		}
		if v, err := url.QueryUnescape(ck.Value); err == nil {
			return v, true
		}
		return ck.Value, true
	}
	return "", false
}

// Send performs one request. A 2xx response is returned as an Envelope; every
// other outcome is a *ClientError.
func (c *Client) Send(ctx context.Context, r *Request) (*Envelope, error) {
	if c == nil {
		return nil, ErrNotInitialized
	}
	if c.validationError != nil {
		return nil, c.validationError
	}
	if r == nil {
		return nil, &ClientError{Kind: ErrorKindValidation, Message: "nil request"}
	}

	method := strings.ToUpper(r.Method)
	if method == "" {
		method = http.MethodGet
	}
	requestID := c.requestIDGen()
	endpoint := endpointLabel(r.Path)
	start := time.Now()

	c.metrics.RecordRequestStart(method, endpoint)
	defer c.metrics.RecordRequestEnd(method, endpoint)

	c.logger.Debug("sending request", "request_id", requestID, "method", method, "path", r.Path)

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			ce := newNetworkError(r, requestID, err)
			c.metrics.RecordError(string(ce.Kind), method, endpoint)
			return nil, ce
		}
		c.metrics.RecordRateLimiterTokens("default", c.rateLimiter.Tokens())
	}

	req, err := c.buildRequest(ctx, method, requestID, r)
	if err != nil {
		ce := &ClientError{
			Kind:      ErrorKindValidation,
			Message:   err.Error(),
			Method:    method,
			Path:      r.Path,
			RequestID: requestID,
			Cause:     err,
		}
		c.metrics.RecordError(string(ce.Kind), method, endpoint)
		return nil, ce
	}

	resp, err := c.executeMiddleware(req)
	if err != nil {
		ce := newNetworkError(r, requestID, err)
		c.metrics.RecordError(string(ce.Kind), method, endpoint)
		c.metrics.RecordRequest(method, endpoint, 0, time.Since(start))
		c.logger.Debug("request failed", "request_id", requestID, "error", ce.Message)
		return nil, ce
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	duration := time.Since(start)
	c.metrics.RecordRequest(method, endpoint, resp.StatusCode, duration)
	if err != nil {
		ce := newNetworkError(r, requestID, err)
		c.metrics.RecordError(string(ce.Kind), method, endpoint)
		return nil, ce
	}

	c.logger.Debug("request completed", "request_id", requestID, "status", resp.StatusCode, "duration", duration)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ce := newStatusError(r, requestID, resp.StatusCode, body)
		c.metrics.RecordError(string(ce.Kind), method, endpoint)
		return nil, ce
	}

	return &Envelope{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (c *Client) buildRequest(ctx context.Context, method, requestID string, r *Request) (*http.Request, error) {
	target := strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(r.Path, "/")
	if len(r.Params) > 0 {
		target += "?" + r.Params.Encode()
	}

	var (
		body        io.Reader
		length      int64
		contentType string
	)
	switch {
	case r.Multipart != nil:
		length = int64(len(r.Multipart.Data))
		body = bytes.NewReader(r.Multipart.Data)
		contentType = r.Multipart.ContentType
	case r.Body != nil:
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, err
		}
		length = int64(len(data))
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	if body != nil && r.OnProgress != nil {
		body = &progressReader{r: body, total: length, fn: r.OnProgress}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.ContentLength = length
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", c.tokenScheme+" "+tok)
		}
	}
	if r.Multipart == nil && method != http.MethodGet && method != http.MethodHead {
		if token, ok := c.csrfToken(req.URL); ok {
			req.Header.Set(c.csrfHeader, token)
		}
	}
	return req, nil
}

func (c *Client) csrfToken(u *url.URL) (string, bool) {
	if c.jar == nil || c.csrfCookie == "" {
		return "", false
	}
	for _, ck := range c.jar.Cookies(u) {
		if ck.Name != c.csrfCookie || ck.Value == "" {
			continue
		}
		if v, err := url.QueryUnescape(ck.Value); err == nil {
			return v, true
		}
		return ck.Value, true
	}
	return "", false
}

func (c *Client) executeMiddleware(req *http.Request) (*http.Response, error) {
	if len(c.middleware) == 0 {
		return c.httpClient.Do(req)
	}

	current := RoundTripperFunc(c.httpClient.Do)

	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := current
		current = RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return middleware(r, next)
		})
	}

	return current.RoundTrip(req)
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c != nil && c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	if c == nil {
		return ErrNotInitialized
	}
	return c.validationError
}

type progressReader struct {
	r     io.Reader
	total int64
	n     int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.n += int64(n)
		p.fn(p.n, p.total)
	}
	return n, err
}

// endpointLabel keeps metric cardinality bounded by collapsing document IDs.
func endpointLabel(path string) string {
	if path == "" {
		return "/"
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if rest, ok := strings.CutPrefix(path, "/api/resource/"); ok {
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			return "/api/resource/" + rest[:i] + "/:id"
		}
	}
	return path
}
