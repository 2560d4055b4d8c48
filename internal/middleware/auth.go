// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package middleware provides the application's Echo middleware.
package middleware

import (
	"context"
	"errors"
	"log/slog"

	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/appcontext"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/auth"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/models"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/repository"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/services/session"
	"github.com/labstack/echo/v4"
)

// UserLoader is an interface for loading full user data
type UserLoader interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// LoadUser wraps the context in an appcontext.Context carrying the session
// user. Sessions of deleted accounts are treated as signed out.
func LoadUser(sessions *session.Manager, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &appcontext.Context{Context: c}

			if userID, ok := sessions.UserID(c.Request()); ok {
				user, err := users.GetUserByID(c.Request().Context(), userID)
				switch {
				case err == nil:
					cc.User = user
					c.SetRequest(c.Request().WithContext(auth.WithUser(c.Request().Context(), user)))
				case errors.Is(err, repository.ErrNotFound):
					slog.Debug("session for unknown user", "user_id", userID)
				default:
					return err
				}
			}

			return next(cc)
		}
	}
}

// RequireAuth sends anonymous requests to the login page, remembering the
// requested location.
func RequireAuth(sessions *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if appcontext.UserOf(c) != nil {
				return next(c)
			}

			if _, err := sessions.RequireUserID(c.Request()); err != nil {
				return err
			}

			// Valid cookie for an account that no longer exists
			c.SetCookie(sessions.Clear())
			return session.NewLoginRedirect(c.Request())
		}
	}
}
