// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package session issues and reads the signed, encrypted session cookie.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/config"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/keys"
	"github.com/gorilla/securecookie"
)

// Data is the cookie payload.
type Data struct {
	UserID    string    `json:"uid"`
	ExpiresAt time.Time `json:"exp"`
}

// Manager encodes and decodes session cookies.
type Manager struct {
	codec       *securecookie.SecureCookie
	cookieName  string
	rememberFor time.Duration
	secure      bool
}

// NewManager creates a Manager with keys derived from cfg.Secret.
// An empty secret produces random keys, valid until the process exits.
func NewManager(cfg *config.SessionConfig, secure bool) (*Manager, error) {
	if cfg.Secret == "" {
		slog.Warn("no session secret configured, sessions will not survive a restart")
	}

	hashKey, err := keys.Derive(cfg.Secret, "session-hash")
	if err != nil {
		return nil, err
	}
	blockKey, err := keys.Derive(cfg.Secret, "session-block")
	if err != nil {
		return nil, err
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(int(cfg.RememberFor.Seconds()))
	codec.SetSerializer(securecookie.JSONEncoder{})

	return &Manager{
		codec:       codec,
		cookieName:  cfg.CookieName,
		rememberFor: cfg.RememberFor,
		secure:      secure,
	}, nil
}

// Create returns a cookie holding userID. With remember the cookie persists
// for the configured lifetime, otherwise it lasts for the browser session.
func (m *Manager) Create(userID string, remember bool) (*http.Cookie, error) {
	data := Data{
		UserID:    userID,
		ExpiresAt: time.Now().Add(m.rememberFor),
	}

	encoded, err := m.codec.Encode(m.cookieName, data)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}

	cookie := m.cookie(encoded)
	if remember {
		cookie.MaxAge = int(m.rememberFor.Seconds())
		cookie.Expires = data.ExpiresAt
	}
	return cookie, nil
}

// Parse reads the session from the request. Missing, tampered or expired
// cookies yield nil without an error.
func (m *Manager) Parse(r *http.Request) (*Data, error) {
	cookie, err := r.Cookie(m.cookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return nil, nil //nolint:nilnil // no session is not an error
	}
	if err != nil {
		return nil, err
	}

	var data Data
	if err := m.codec.Decode(m.cookieName, cookie.Value, &data); err != nil {
		return nil, nil //nolint:nilnil,nilerr // invalid cookies are treated as absent
	}

	if data.UserID == "" || time.Now().After(data.ExpiresAt) {
		return nil, nil //nolint:nilnil // expired session
	}
	return &data, nil
}

// UserID returns the signed-in user's ID, if any.
func (m *Manager) UserID(r *http.Request) (string, bool) {
	data, err := m.Parse(r)
	if err != nil || data == nil {
		return "", false
	}
	return data.UserID, true
}

// RequireUserID returns the signed-in user's ID or a *LoginRedirect error
// pointing back at the requested page.
func (m *Manager) RequireUserID(r *http.Request) (string, error) {
	if id, ok := m.UserID(r); ok {
		return id, nil
	}
	return "", NewLoginRedirect(r)
}

// Clear returns a cookie that removes the session.
func (m *Manager) Clear() *http.Cookie {
	cookie := m.cookie("")
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	return cookie
}

func (m *Manager) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// LoginRedirect signals that the request needs an authenticated user.
type LoginRedirect struct {
	Location string
}

func (e *LoginRedirect) Error() string {
	return "login required: redirect to " + e.Location
}

// NewLoginRedirect builds a redirect to /login that returns to r's path and query.
func NewLoginRedirect(r *http.Request) *LoginRedirect {
	return &LoginRedirect{
		Location: "/login?redirectTo=" + url.QueryEscape(r.URL.RequestURI()),
	}
}
