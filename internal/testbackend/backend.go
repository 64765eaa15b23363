// Package testbackend is an in-process fake of the DealScope auth backend used by the client tests.
// It issues cookie sessions with a double-submit CSRF cookie, rotates refresh tokens on every use and
// rejects reuse of a rotated refresh token, like the real backend.
package testbackend

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
	CSRFCookie    = "csrf_token"
	CSRFHeader    = "X-CSRF-Token"

	TestEmail    = "investor@example.com"
	TestPassword = "hunter22"
	MFAEmail     = "mfa@example.com"
	MFACode      = "123456"
)

// CapturedRequest is a copy of what the backend received.
type CapturedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

type Backend struct {
	Router chi.Router
	Server *httptest.Server

	// FailRefresh makes the refresh endpoint answer 401.
	FailRefresh atomic.Bool

	refreshCalls atomic.Int64
	unauthorized atomic.Int64

	mu       sync.Mutex
	gate     chan struct{}
	access   map[string]bool
	refresh  map[string]bool
	csrf     string
	users    map[string]string
	sessions []string
	captured []CapturedRequest
}

// New starts a backend and closes it when the test ends.
func New(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		access:   make(map[string]bool),
		refresh:  make(map[string]bool),
		users:    map[string]string{TestEmail: TestPassword, MFAEmail: TestPassword},
		sessions: []string{"sess-current", "sess-laptop", "sess-phone"},
	}

	r := chi.NewRouter()
	r.Use(b.capture)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", b.handleLogin)
		r.Post("/login/mfa", b.handleLoginMFA)
		r.Post("/register", b.handleRegister)
		r.Post("/refresh", b.handleRefresh)
		r.Post("/logout", b.handleLogout)
		r.Get("/me", b.Protected(b.handleMe))
		r.Post("/forgot-password", b.handleForgotPassword)
		r.Post("/reset-password", b.handleResetPassword)
		r.Post("/verify-email", b.handleVerifyEmail)
		r.Post("/change-password", b.Protected(b.handleChangePassword))
		r.Get("/sessions", b.Protected(b.handleListSessions))
		r.Delete("/sessions", b.Protected(b.handleRevokeOtherSessions))
		r.Delete("/sessions/{sessionID}", b.Protected(b.handleRevokeSession))
		r.Post("/mfa/setup", b.Protected(b.handleMFASetup))
		r.Post("/mfa/verify", b.Protected(b.handleMFAVerify))
		r.Post("/mfa/disable", b.Protected(b.handleMFADisable))
	})
	b.Router = r
	b.Server = httptest.NewServer(r)
	t.Cleanup(b.Server.Close)
	return b
}

func (b *Backend) URL() string {
	return b.Server.URL
}

// RefreshCalls is the number of requests that reached the refresh endpoint.
func (b *Backend) RefreshCalls() int64 {
	return b.refreshCalls.Load()
}

// Unauthorized is the number of 401s returned by Protected handlers.
func (b *Backend) Unauthorized() int64 {
	return b.unauthorized.Load()
}

// HoldRefresh blocks the refresh endpoint until the returned release func is called.
func (b *Backend) HoldRefresh() (release func()) {
	gate := make(chan struct{})
	b.mu.Lock()
	b.gate = gate
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			b.gate = nil
			b.mu.Unlock()
			close(gate)
		})
	}
}

// ExpireAccessTokens invalidates every access token issued so far.
func (b *Backend) ExpireAccessTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.access = make(map[string]bool)
}

// IssueAccessToken returns a valid access token without going through login.
func (b *Backend) IssueAccessToken() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	tok := "access-" + uuid.NewString()
	b.access[tok] = true
	return tok
}

// IssueRefreshToken returns a valid refresh token without going through login.
func (b *Backend) IssueRefreshToken() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	tok := "refresh-" + uuid.NewString()
	b.refresh[tok] = true
	return tok
}

// CSRFToken is the token currently mirrored in the csrf cookie.
func (b *Backend) CSRFToken() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.csrf
}

// Requests returns the captured requests for path, in arrival order.
func (b *Backend) Requests(path string) []CapturedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []CapturedRequest
	for _, r := range b.captured {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// Protected rejects requests without a valid bearer or access cookie.
func (b *Backend) Protected(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !b.authorised(r) {
			b.unauthorized.Add(1)
			WriteJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}
		next(w, r)
	}
}

func (b *Backend) authorised(r *http.Request) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if b.access[strings.TrimPrefix(auth, "Bearer ")] {
			return true
		}
	}
	if c, err := r.Cookie(AccessCookie); err == nil && b.access[c.Value] {
		return true
	}
	return false
}

func (b *Backend) capture(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		b.mu.Lock()
		b.captured = append(b.captured, CapturedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
