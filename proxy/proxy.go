// Package proxy serves an application on the same origin as the backend API:
// /api/* is reverse-proxied to the backend, so session cookies set by the
// backend land on the application's origin, and every other route passes
// through a session cookie Guard.
package proxy

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/ambiyansyah-risyal/frappekit"
)

// APIPrefix is forwarded to the backend.
const APIPrefix = "/api/"

// Server routes API calls to the backend and everything else, guarded, to
// the application handler.
type Server struct {
	backend *url.URL
	proxy   *httputil.ReverseProxy
	guard   *Guard
	app     http.Handler
	logger  hclog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithApp sets the handler for non-API routes. The default answers 404.
func WithApp(h http.Handler) Option {
	return func(s *Server) {
		s.app = h
	}
}

// WithGuard replaces the default guard.
func WithGuard(g *Guard) Option {
	return func(s *Server) {
		s.guard = g
	}
}

// WithLogger sets the logger.
func WithLogger(logger hclog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTransport sets the round tripper used to reach the backend.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *Server) {
		s.proxy.Transport = rt
	}
}

// New returns a Server forwarding to backend, e.g. "https://erp.example.com".
func New(backend string, metrics *frappekit.MetricsCollector, opts ...Option) (*Server, error) {
	u, err := url.Parse(backend)
	if err != nil {
		return nil, fmt.Errorf("proxy: backend: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("proxy: backend must be an absolute http(s) URL, got %q", backend)
	}

	s := &Server{
		backend: u,
		app:     http.NotFoundHandler(),
		logger:  hclog.NewNullLogger(),
	}
	s.proxy = &httputil.ReverseProxy{
		Director:       s.direct,
		ModifyResponse: stripCookieDomain,
		ErrorHandler:   s.proxyError,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("proxy")
	if s.guard == nil {
		s.guard = NewGuard(s.logger, metrics)
	}
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, APIPrefix) {
		s.logger.Debug("forwarding", "method", r.Method, "path", r.URL.Path)
		s.proxy.ServeHTTP(w, r)
		return
	}
	s.guard.Wrap(s.app).ServeHTTP(w, r)
}

// direct points the request at the backend. Path and query are kept; the
// Host header is the backend's since sites are selected by host name.
func (s *Server) direct(r *http.Request) {
	r.URL.Scheme = s.backend.Scheme
	r.URL.Host = s.backend.Host
	if p := strings.TrimRight(s.backend.Path, "/"); p != "" {
		r.URL.Path = p + r.URL.Path
		r.URL.RawPath = ""
	}
	r.Host = s.backend.Host
	if _, ok := r.Header["User-Agent"]; !ok {
		r.Header.Set("User-Agent", "")
	}
}

func (s *Server) proxyError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Warn("backend unreachable", "path", r.URL.Path, "error", err)
	http.Error(w, "backend unreachable", http.StatusBadGateway)
}

// stripCookieDomain drops the Domain attribute of backend cookies so the
// browser stores them for the proxy's origin.
func stripCookieDomain(resp *http.Response) error {
	cookies := resp.Header.Values("Set-Cookie")
	if len(cookies) == 0 {
		return nil
	}
	resp.Header.Del("Set-Cookie")
	for _, c := range cookies {
		parts := strings.Split(c, ";")
		kept := []string{parts[0]}
		for _, attr := range parts[1:] {
			if strings.HasPrefix(strings.ToLower(strings.TrimSpace(attr)), "domain=") {
				continue
			}
			kept = append(kept, attr)
		}
		resp.Header.Add("Set-Cookie", strings.Join(kept, ";"))
	}
	return nil
}
