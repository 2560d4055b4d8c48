// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package csrf implements double-submit CSRF protection with a signed cookie.
package csrf

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/ctxkeys"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/keys"
	"github.com/gorilla/securecookie"
	"github.com/labstack/echo/v4"
)

const (
	CookieName = "__csrf"
	FormField  = "_csrf"
	HeaderName = "X-CSRF-Token"

	tokenBytes = 32
)

// ErrInvalid is returned to clients whose token does not match.
var ErrInvalid = errors.New("Invalid CSRF") //nolint:staticcheck // user-facing message

// Guard issues and verifies CSRF tokens.
type Guard struct {
	codec  *securecookie.SecureCookie
	secure bool
}

// NewGuard creates a Guard signing its cookie with a key derived from secret.
func NewGuard(secret string, secure bool) (*Guard, error) {
	hashKey, err := keys.Derive(secret, "csrf-hash")
	if err != nil {
		return nil, err
	}

	codec := securecookie.New(hashKey, nil)
	codec.MaxAge(0)
	codec.SetSerializer(securecookie.JSONEncoder{})

	return &Guard{codec: codec, secure: secure}, nil
}

// Token returns the request's CSRF token. When the request carries no valid
// token a new one is minted and returned with the cookie to set; otherwise
// the cookie is nil.
func (g *Guard) Token(r *http.Request) (string, *http.Cookie, error) {
	if token := g.cookieToken(r); token != "" {
		return token, nil, nil
	}

	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, fmt.Errorf("generate csrf token: %w", err)
	}
	token := hex.EncodeToString(raw)

	encoded, err := g.codec.Encode(CookieName, token)
	if err != nil {
		return "", nil, fmt.Errorf("encode csrf cookie: %w", err)
	}

	return token, &http.Cookie{
		Name:     CookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Verify reports whether submitted matches the token in the request's cookie.
func (g *Guard) Verify(r *http.Request, submitted string) bool {
	expected := g.cookieToken(r)
	if expected == "" || submitted == "" || len(expected) != len(submitted) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(submitted)) == 1
}

func (g *Guard) cookieToken(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	var token string
	if err := g.codec.Decode(CookieName, cookie.Value, &token); err != nil {
		return ""
	}
	if len(token) != tokenBytes*2 {
		return ""
	}
	return token
}

// Issue returns the token for the current request, setting the cookie on
// the response when a new token was minted. Repeated calls within one
// request return the same token.
func (g *Guard) Issue(c echo.Context) (string, error) {
	req := c.Request()
	if token, ok := req.Context().Value(ctxkeys.CSRFToken{}).(string); ok {
		return token, nil
	}

	token, cookie, err := g.Token(req)
	if err != nil {
		return "", err
	}
	if cookie != nil {
		c.SetCookie(cookie)
	}

	ctx := context.WithValue(req.Context(), ctxkeys.CSRFToken{}, token)
	c.SetRequest(req.WithContext(ctx))
	return token, nil
}

// Protect rejects state-changing requests without a matching token.
func (g *Guard) Protect() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			submitted := c.FormValue(FormField)
			if submitted == "" {
				submitted = c.Request().Header.Get(HeaderName)
			}

			if !g.Verify(c.Request(), submitted) {
				slog.Warn("csrf_failure",
					"path", c.Request().URL.Path,
					"method", c.Request().Method,
					"ip", c.RealIP(),
				)
				return echo.NewHTTPError(http.StatusBadRequest, ErrInvalid.Error())
			}
			return next(c)
		}
	}
}
