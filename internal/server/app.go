// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"fmt"

	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/config"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/csrf"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/handlers"
	appmw "codeberg.org/oliverandrich/go-webapp-boilerplate/internal/middleware"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/ratelimit"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/repository"
	authsvc "codeberg.org/oliverandrich/go-webapp-boilerplate/internal/services/auth"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/services/email"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/services/session"
	"github.com/labstack/echo/v4"
	"github.com/vinovest/sqlx"
)

// App owns everything a request needs. It lives as long as the process.
type App struct {
	Config   *config.Config
	DB       *sqlx.DB
	Repo     *repository.Repository
	Auth     *authsvc.Service
	Sessions *session.Manager
	CSRF     *csrf.Guard
	Limiter  *ratelimit.Limiter
	Mailer   email.Sender

	authHandlers *handlers.AuthHandlers
}

// NewApp wires services on top of an open database.
func NewApp(cfg *config.Config, db *sqlx.DB) (*App, error) {
	repo := repository.New(db)

	sessions, err := session.NewManager(&cfg.Session, cfg.Session.Secure)
	if err != nil {
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}

	guard, err := csrf.NewGuard(cfg.Session.Secret, cfg.Session.Secure)
	if err != nil {
		return nil, fmt.Errorf("failed to create csrf guard: %w", err)
	}

	mailer, err := email.New(&cfg.SMTP, cfg.Server.BaseURL, cfg.Auth.ResetTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create mailer: %w", err)
	}

	return &App{
		Config:   cfg,
		DB:       db,
		Repo:     repo,
		Auth:     authsvc.NewService(repo, &cfg.Auth),
		Sessions: sessions,
		CSRF:     guard,
		Limiter:  ratelimit.New(cfg.RateLimit.Window, cfg.RateLimit.Max),
		Mailer:   mailer,
	}, nil
}

// Echo builds the HTTP handler with middleware and routes.
func (a *App) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewValidator()
	e.HTTPErrorHandler = handlers.ErrorHandler(a.Config.IsProduction())
	e.IPExtractor = echo.ExtractIPDirect()
	if a.Config.Server.TrustProxy {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	}

	setupMiddleware(e, a)
	a.setupRoutes(e)

	return e
}

// Wait blocks until background work started by requests has finished.
func (a *App) Wait() {
	if a.authHandlers != nil {
		a.authHandlers.Wait()
	}
}

func (a *App) setupRoutes(e *echo.Echo) {
	h := handlers.New(a.Repo, a.CSRF, a.Config.IsProduction())
	ah := handlers.NewAuth(a.Auth, a.Sessions, a.CSRF, a.Mailer)
	a.authHandlers = ah

	protect := a.CSRF.Protect()
	limit := func(action string) echo.MiddlewareFunc {
		return ratelimit.Middleware(a.Limiter, action)
	}
	requireAuth := appmw.RequireAuth(a.Sessions)

	e.GET("/api/health", h.Health)

	// Auth
	e.GET("/login", ah.LoginPage)
	e.POST("/login", ah.Login, limit("login"), protect)
	e.GET("/register", ah.RegisterPage)
	e.POST("/register", ah.Register, limit("register"), protect)
	e.POST("/logout", ah.Logout)
	e.GET("/forgot-password", ah.ForgotPasswordPage)
	e.POST("/forgot-password", ah.ForgotPassword, limit("forgot"), protect)
	e.GET("/reset-password/:token", ah.ResetPasswordPage)
	e.POST("/reset-password/:token", ah.ResetPassword, protect)

	// Signed-in area
	e.GET("/dashboard", h.Dashboard, requireAuth)
	e.GET("/posts", h.ListPosts, requireAuth)
	e.GET("/posts/new", h.NewPost, requireAuth)
	e.POST("/posts/new", h.CreatePost, requireAuth, protect)
	e.GET("/posts/:id", h.ShowPost, requireAuth)
}
