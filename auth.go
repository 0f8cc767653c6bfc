package frappekit

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	// IdentityEndpoint returns the logged in user, or "Guest".
	IdentityEndpoint = "/api/method/frappe.auth.get_logged_user"
	// LoginEndpoint starts a session.
	LoginEndpoint = "/api/method/login"
	// LogoutEndpoint ends the session.
	LogoutEndpoint = "/api/method/logout"

	// GuestUser is the identity of an anonymous session.
	GuestUser = "Guest"
	// DefaultLoginPath is where expired sessions are sent.
	DefaultLoginPath = "/login"
	// IdentityStaleTime is how long the identity is served without
	// revalidation.
	IdentityStaleTime = 5 * time.Minute
)

// IdentityKey is the cache key of the current identity. Its value is the user
// name, or "" for an anonymous session.
var IdentityKey = NewKey("auth", "currentUser", nil)

// Navigator moves the user between routes.
type Navigator interface {
	CurrentPath() string
	Navigate(path string)
}

// SessionState is the position of the session state machine.
type SessionState int

const (
	SessionUnknown SessionState = iota
	SessionAnonymous
	SessionAuthenticated
)

func (s SessionState) String() string {
	switch s {
	case SessionAnonymous:
		return "anonymous"
	case SessionAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// AuthStatus is the observable session.
type AuthStatus struct {
	State        SessionState
	CurrentUser  string
	IsLoading    bool
	IsValidating bool
	Err          error
}

// Credentials are the login form fields.
type Credentials struct {
	Usr string `json:"usr"`
	Pwd string `json:"pwd"`
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Message  string `json:"message"`
	HomePage string `json:"home_page"`
	FullName string `json:"full_name"`
}

// AuthOption configures an Auth.
type AuthOption func(*Auth)

// WithLoginPath overrides the route expired sessions are sent to.
func WithLoginPath(path string) AuthOption {
	return func(a *Auth) {
		a.loginPath = path
	}
}

// WithAuthLogger sets the logger.
func WithAuthLogger(logger hclog.Logger) AuthOption {
	return func(a *Auth) {
		if logger == nil {
			logger = hclog.NewNullLogger()
		}
		a.logger = logger.Named("auth")
	}
}

// WithAuthMetrics records login outcomes and redirects on m.
func WithAuthMetrics(m *MetricsCollector) AuthOption {
	return func(a *Auth) {
		a.metrics = m
	}
}

// Auth owns the session: the cached identity, login and logout. It is the
// only writer of IdentityKey.
type Auth struct {
	qc        *QueryClient
	t         Transport
	nav       Navigator
	loginPath string
	logger    hclog.Logger
	metrics   *MetricsCollector

	identity *Query[string]
	login    *Mutation[Credentials, LoginResponse]
}

// NewAuth returns the session manager over qc. nav may be nil when there is
// nowhere to redirect to.
func NewAuth(qc *QueryClient, nav Navigator, opts ...AuthOption) *Auth {
	a := &Auth{
		qc:        qc,
		t:         qc.Transport(),
		nav:       nav,
		loginPath: DefaultLoginPath,
		logger:    qc.Logger().Named("auth"),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.identity = NewQuery(qc, IdentityKey, a.fetchIdentity,
		WithStaleTime(IdentityStaleTime),
		WithRetry(NoRetry()),
	)
	a.login = NewMutation("login", func(ctx context.Context, c Credentials) (LoginResponse, error) {
		env, err := a.t.Send(ctx, &Request{Method: http.MethodPost, Path: LoginEndpoint, Body: c})
		if err != nil {
			return LoginResponse{}, err
		}
		return DecodeEnvelope[LoginResponse](env, ShapeRaw)
	}).WithMutationMetrics(a.metrics)
	return a
}

// fetchIdentity resolves the identity. A 401/403 is an anonymous session and
// sends the user to the login route, unless they are already on it. A body
// without a string message is anonymous too.
func (a *Auth) fetchIdentity(ctx context.Context) (string, error) {
	env, err := a.t.Send(ctx, &Request{Method: http.MethodGet, Path: IdentityEndpoint})
	if err != nil {
		if IsUnauthorized(err) {
			a.logger.Debug("session rejected", "error", err)
			a.redirectToLogin()
			return "", nil
		}
		return "", err
	}
	if env == nil {
		return "", nil
	}
	user := unwrapString(env.Body, ShapeRPC)
	if user == GuestUser {
		return "", nil
	}
	return user, nil
}

func (a *Auth) redirectToLogin() {
	if a.nav == nil {
		return
	}
	if strings.HasPrefix(a.nav.CurrentPath(), a.loginPath) {
		return
	}
	a.metrics.RecordRedirect("auth", a.loginPath)
	a.nav.Navigate(a.loginPath)
}

// Observe reports the session, revalidating the identity when it is stale.
func (a *Auth) Observe(ctx context.Context) AuthStatus {
	return authStatus(a.identity.Observe(ctx))
}

// Status is the pure view of the session.
func (a *Auth) Status() AuthStatus {
	return authStatus(a.identity.Status())
}

// Wait blocks until no identity fetch is running.
func (a *Auth) Wait(ctx context.Context) (AuthStatus, error) {
	st, err := a.identity.Wait(ctx)
	return authStatus(st), err
}

func authStatus(st Status[string]) AuthStatus {
	as := AuthStatus{
		IsLoading:    st.IsLoading,
		IsValidating: st.IsValidating,
		Err:          st.Err,
	}
	switch {
	case !st.HasData:
		as.State = SessionUnknown
	case st.Data == "":
		as.State = SessionAnonymous
	default:
		as.State = SessionAuthenticated
		as.CurrentUser = st.Data
	}
	return as
}

// CurrentUser returns the logged in user, or "" for an anonymous session.
func (a *Auth) CurrentUser(ctx context.Context) (string, error) {
	return a.identity.Fetch(ctx)
}

// Login starts a session and then refetches the identity. The session state
// follows from that refetch, not from the login response.
func (a *Auth) Login(ctx context.Context, usr, pwd string) (LoginResponse, error) {
	res, err := a.login.Run(ctx, Credentials{Usr: usr, Pwd: pwd})
	if err != nil {
		return LoginResponse{}, err
	}
	a.identity.register()
	if err := a.qc.InvalidateQueries(ctx, MatchKey(IdentityKey)); err != nil {
		a.logger.Warn("identity refresh after login failed", "error", err)
	}
	return res, nil
}

// LoginState returns the state of the login mutation.
func (a *Auth) LoginState() MutationState[LoginResponse] {
	return a.login.State()
}

// Logout ends the session locally whatever the server says: it clears every
// cached entry, marks the session anonymous and navigates to the login
// route. A failed logout request is logged and otherwise ignored.
func (a *Auth) Logout(ctx context.Context) {
	if _, err := a.t.Send(ctx, &Request{Method: http.MethodPost, Path: LogoutEndpoint}); err != nil {
		a.logger.Warn("logout request failed", "error", err)
	}
	a.qc.Clear()
	a.qc.SetData(IdentityKey, "")
	if a.nav != nil {
		a.metrics.RecordRedirect("logout", a.loginPath)
		a.nav.Navigate(a.loginPath)
	}
}

// UpdateCurrentUser refetches the identity.
func (a *Auth) UpdateCurrentUser(ctx context.Context) (string, error) {
	return a.identity.Refetch(ctx)
}

// ResetSession marks the session anonymous without contacting the server.
func (a *Auth) ResetSession() {
	a.qc.SetData(IdentityKey, "")
}
