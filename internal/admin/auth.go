// Package admin implements the notification admin panel: server-side
// password verification, cookie sessions and sending with history.
package admin

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrDisabled           = errors.New("admin panel is not configured")
	ErrInvalidCredentials = errors.New("invalid password")
	ErrUnauthenticated    = errors.New("not authenticated")
)

const (
	sessionName   = "spectrum_admin"
	keyAuthorized = "authorized"
	keyLoginAt    = "login_at"
)

// Authenticator verifies the admin password against a bcrypt hash.
type Authenticator struct {
	hash []byte
}

// NewAuthenticator validates the hash. An empty hash disables the panel.
func NewAuthenticator(hash string) (*Authenticator, error) {
	if hash == "" {
		return &Authenticator{}, nil
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("admin password hash: %w", err)
	}
	return &Authenticator{hash: []byte(hash)}, nil
}

// Enabled reports whether a password hash is configured.
func (a *Authenticator) Enabled() bool {
	return len(a.hash) > 0
}

// Check compares password with the configured hash.
func (a *Authenticator) Check(password string) error {
	if !a.Enabled() {
		return ErrDisabled
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Sessions issues signed HttpOnly cookie sessions for the admin.
type Sessions struct {
	store sessions.Store
	now   func() time.Time
}

// NewSessions wraps a cookie store. maxAge bounds the session lifetime.
func NewSessions(store *sessions.CookieStore, maxAge time.Duration, secure bool) *Sessions {
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
	return &Sessions{store: store, now: time.Now}
}

// Login marks the request's session as authorized.
func (s *Sessions) Login(w http.ResponseWriter, r *http.Request) error {
	sess, _ := s.store.Get(r, sessionName) // a tampered cookie yields a fresh session
	sess.Values[keyAuthorized] = true
	sess.Values[keyLoginAt] = s.now().Unix()
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("save admin session: %w", err)
	}
	return nil
}

// Logout expires the session cookie.
func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) error {
	sess, _ := s.store.Get(r, sessionName)
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("expire admin session: %w", err)
	}
	return nil
}

// Authenticated reports whether the request carries a valid admin session.
func (s *Sessions) Authenticated(r *http.Request) bool {
	sess, err := s.store.Get(r, sessionName)
	if err != nil {
		return false
	}
	ok, _ := sess.Values[keyAuthorized].(bool)
	return ok
}

// LoginTime returns when the current session was established.
func (s *Sessions) LoginTime(r *http.Request) (time.Time, bool) {
	sess, err := s.store.Get(r, sessionName)
	if err != nil {
		return time.Time{}, false
	}
	ts, ok := sess.Values[keyLoginAt].(int64)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(ts, 0), true
}
