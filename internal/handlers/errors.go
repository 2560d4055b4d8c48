// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/services/session"
	"github.com/labstack/echo/v4"
)

const internalErrorMessage = "Internal server error"

// ErrorHandler renders errors as {"error": message} and turns login
// redirects into 302 responses. Outside production, unexpected errors expose
// their text.
func ErrorHandler(production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var redirect *session.LoginRedirect
		if errors.As(err, &redirect) {
			respondErr(c, c.Redirect(http.StatusFound, redirect.Location))
			return
		}

		code := http.StatusInternalServerError
		message := internalErrorMessage

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			message = httpErrorMessage(he)
			if code >= http.StatusInternalServerError {
				slog.Error("request failed", "error", err, "path", c.Request().URL.Path)
				if production {
					message = internalErrorMessage
				}
			}
		} else {
			slog.Error("unhandled error", "error", err, "path", c.Request().URL.Path)
			if !production {
				message = err.Error()
			}
		}

		if c.Request().Method == http.MethodHead {
			respondErr(c, c.NoContent(code))
			return
		}
		respondErr(c, c.JSON(code, map[string]string{"error": message}))
	}
}

func httpErrorMessage(he *echo.HTTPError) string {
	switch m := he.Message.(type) {
	case string:
		return m
	case error:
		return m.Error()
	case nil:
		return http.StatusText(he.Code)
	default:
		return fmt.Sprint(m)
	}
}

func respondErr(c echo.Context, err error) {
	if err != nil {
		slog.Error("failed to write error response", "error", err, "path", c.Request().URL.Path)
	}
}

// badRequest returns a 400 with a client-facing message.
func badRequest(message string) error {
	return echo.NewHTTPError(http.StatusBadRequest, message)
}
