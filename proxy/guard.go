package proxy

import (
	"net/http"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/ambiyansyah-risyal/frappekit"
)

const (
	// SessionCookie is the backend's session cookie.
	SessionCookie = "sid"
	// HomePath is where logged in users visiting a public route are sent.
	HomePath = "/"
)

// DefaultPublicPaths are reachable without a session.
var DefaultPublicPaths = []string{"/login", "/register"}

// DefaultSkipPrefixes are never guarded.
var DefaultSkipPrefixes = []string{"/api", "/_next/static", "/_next/image", "/favicon.ico"}

// Guard redirects requests by session cookie: routes other than the public
// ones need a session, and the public ones send logged in users home.
type Guard struct {
	PublicPaths  []string
	SkipPrefixes []string
	LoginPath    string
	HomePath     string
	Cookie       string
	Logger       hclog.Logger
	Metrics      *frappekit.MetricsCollector
}

// NewGuard returns a Guard with the default routes.
func NewGuard(logger hclog.Logger, metrics *frappekit.MetricsCollector) *Guard {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Guard{
		PublicPaths:  DefaultPublicPaths,
		SkipPrefixes: DefaultSkipPrefixes,
		LoginPath:    frappekit.DefaultLoginPath,
		HomePath:     HomePath,
		Cookie:       SessionCookie,
		Logger:       logger.Named("guard"),
		Metrics:      metrics,
	}
}

// LoggedIn reports whether r carries a session that is not the guest one.
func (g *Guard) LoggedIn(r *http.Request) bool {
	c, err := r.Cookie(g.Cookie)
	if err != nil {
		return false
	}
	return c.Value != "" && c.Value != frappekit.GuestUser
}

// Redirect returns where r must be sent instead, or "" to let it through.
func (g *Guard) Redirect(r *http.Request) string {
	path := r.URL.Path
	for _, p := range g.SkipPrefixes {
		if strings.HasPrefix(path, p) {
			return ""
		}
	}

	public := false
	for _, p := range g.PublicPaths {
		if strings.HasPrefix(path, p) {
			public = true
			break
		}
	}

	loggedIn := g.LoggedIn(r)
	switch {
	case !loggedIn && !public:
		return g.LoginPath
	case loggedIn && public:
		return g.HomePath
	default:
		return ""
	}
}

// Wrap guards next.
func (g *Guard) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if target := g.Redirect(r); target != "" {
			g.Logger.Debug("redirecting", "path", r.URL.Path, "target", target)
			g.Metrics.RecordRedirect("guard", target)
			http.Redirect(w, r, target, http.StatusTemporaryRedirect)
			return
		}
		next.ServeHTTP(w, r)
	})
}
