// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/appcontext"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/csrf"
	authsvc "codeberg.org/oliverandrich/go-webapp-boilerplate/internal/services/auth"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/services/email"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/services/session"
	"github.com/labstack/echo/v4"
)

const mailTimeout = 30 * time.Second

// AuthHandlers contains handlers for authentication.
type AuthHandlers struct {
	auth     *authsvc.Service
	sessions *session.Manager
	csrf     *csrf.Guard
	mailer   email.Sender

	pending sync.WaitGroup
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(svc *authsvc.Service, sess *session.Manager, guard *csrf.Guard, mailer email.Sender) *AuthHandlers {
	return &AuthHandlers{
		auth:     svc,
		sessions: sess,
		csrf:     guard,
		mailer:   mailer,
	}
}

// LoginPage returns the CSRF token, or redirects signed-in users to the dashboard.
func (h *AuthHandlers) LoginPage(c echo.Context) error {
	if appcontext.UserOf(c) != nil {
		return c.Redirect(http.StatusFound, "/dashboard")
	}
	return csrfResponse(c, h.csrf, nil)
}

// Login verifies credentials and starts a session.
func (h *AuthHandlers) Login(c echo.Context) error {
	var form LoginForm
	if err := bindForm(c, &form); err != nil {
		return err
	}

	user, err := h.auth.Login(c.Request().Context(), form.Email, form.Password)
	if errors.Is(err, authsvc.ErrInvalidCredentials) {
		return badRequest(err.Error())
	}
	if err != nil {
		return err
	}

	return h.startSession(c, user.ID, checked(form.Remember), form.RedirectTo)
}

// RegisterPage returns the CSRF token for the registration form.
func (h *AuthHandlers) RegisterPage(c echo.Context) error {
	return csrfResponse(c, h.csrf, nil)
}

// Register creates an account and signs the new user in.
func (h *AuthHandlers) Register(c echo.Context) error {
	var form RegisterForm
	if err := bindForm(c, &form); err != nil {
		return err
	}

	user, err := h.auth.Register(c.Request().Context(), authsvc.RegisterParams{
		Email:    form.Email,
		Password: form.Password,
		Name:     form.Name,
	})
	if errors.Is(err, authsvc.ErrEmailInUse) || errors.Is(err, authsvc.ErrPasswordTooLong) {
		return badRequest(err.Error())
	}
	if err != nil {
		return err
	}

	return h.startSession(c, user.ID, true, form.RedirectTo)
}

// Logout clears the session cookie.
func (h *AuthHandlers) Logout(c echo.Context) error {
	c.SetCookie(h.sessions.Clear())
	if user := appcontext.UserOf(c); user != nil {
		slog.Info("logout", "user_id", user.ID)
	}
	return c.Redirect(http.StatusFound, "/login")
}

// ForgotPasswordPage returns the CSRF token for the forgot-password form.
func (h *AuthHandlers) ForgotPasswordPage(c echo.Context) error {
	return csrfResponse(c, h.csrf, nil)
}

// ForgotPassword sends a reset link if the account exists. The response is
// the same either way.
func (h *AuthHandlers) ForgotPassword(c echo.Context) error {
	var form ForgotPasswordForm
	if err := c.Bind(&form); err != nil {
		return badRequest("Invalid form data")
	}

	raw, user, err := h.auth.RequestPasswordReset(c.Request().Context(), form.Email)
	if err != nil {
		return err
	}
	if user != nil {
		h.sendResetLink(c.Request().Context(), user.Email, raw)
	}

	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}

// ResetPasswordPage reports whether the token is usable and returns the CSRF token.
func (h *AuthHandlers) ResetPasswordPage(c echo.Context) error {
	_, err := h.auth.VerifyResetToken(c.Request().Context(), c.Param("token"))
	if errors.Is(err, authsvc.ErrInvalidResetToken) {
		return c.JSON(http.StatusOK, map[string]any{"valid": false})
	}
	if err != nil {
		return err
	}
	return csrfResponse(c, h.csrf, map[string]any{"valid": true})
}

// ResetPassword sets a new password using a reset token.
func (h *AuthHandlers) ResetPassword(c echo.Context) error {
	var form ResetPasswordForm
	if err := c.Bind(&form); err != nil {
		return badRequest("Invalid form data")
	}

	err := h.auth.ResetPassword(c.Request().Context(), c.Param("token"), form.Password)
	switch {
	case errors.Is(err, authsvc.ErrInvalidResetToken),
		errors.Is(err, authsvc.ErrPasswordTooShort),
		errors.Is(err, authsvc.ErrPasswordTooLong):
		return badRequest(err.Error())
	case err != nil:
		return err
	}

	return c.Redirect(http.StatusFound, "/login")
}

// Wait blocks until queued reset emails have been handed off.
func (h *AuthHandlers) Wait() {
	h.pending.Wait()
}

func (h *AuthHandlers) startSession(c echo.Context, userID string, remember bool, redirectTo string) error {
	cookie, err := h.sessions.Create(userID, remember)
	if err != nil {
		return err
	}
	c.SetCookie(cookie)
	return c.Redirect(http.StatusFound, safeRedirect(redirectTo))
}

// sendResetLink delivers the link in the background so the response time
// does not depend on whether the account exists.
func (h *AuthHandlers) sendResetLink(ctx context.Context, to, token string) {
	// Keep the locale but outlive the request
	ctx = context.WithoutCancel(ctx)

	h.pending.Add(1)
	go func() {
		defer h.pending.Done()

		ctx, cancel := context.WithTimeout(ctx, mailTimeout)
		defer cancel()

		if err := h.mailer.SendPasswordReset(ctx, to, token); err != nil {
			slog.Error("failed to send password reset email", "error", err)
		}
	}()
}
