// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/appcontext"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/csrf"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/repository"
	"github.com/labstack/echo/v4"
)

// Handlers contains the health, dashboard and post handlers.
type Handlers struct {
	repo       *repository.Repository
	csrf       *csrf.Guard
	production bool
}

// New creates a new Handlers instance. In production, backend errors are
// not echoed to clients.
func New(repo *repository.Repository, guard *csrf.Guard, production bool) *Handlers {
	return &Handlers{repo: repo, csrf: guard, production: production}
}

// Health pings the database.
func (h *Handlers) Health(c echo.Context) error {
	if err := h.repo.Ping(c.Request().Context()); err != nil {
		slog.Error("health check failed", "error", err)
		message := err.Error()
		if h.production {
			message = internalErrorMessage
		}
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"ok":    false,
			"error": message,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}

// Dashboard returns the signed-in user and the name to greet them with.
func (h *Handlers) Dashboard(c echo.Context) error {
	user := appcontext.UserOf(c)
	return c.JSON(http.StatusOK, map[string]any{
		"user":        user,
		"displayName": user.DisplayName(),
	})
}

// csrfResponse issues the CSRF token and returns it together with extra fields.
func csrfResponse(c echo.Context, guard *csrf.Guard, extra map[string]any) error {
	token, err := guard.Issue(c)
	if err != nil {
		return err
	}
	body := map[string]any{"csrfToken": token}
	for k, v := range extra {
		body[k] = v
	}
	return c.JSON(http.StatusOK, body)
}
