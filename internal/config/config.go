// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

// Environment modes.
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// MinSecretLength is the minimum length of the session secret.
const MinSecretLength = 16

var (
	ErrInvalidEnv      = errors.New("env must be one of development, test, production")
	ErrSecretRequired  = errors.New("session secret is required in production")
	ErrSecretTooShort  = fmt.Errorf("session secret must be at least %d characters", MinSecretLength)
	ErrDatabaseMissing = errors.New("database url is required")
)

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Env       string
	Server    ServerConfig
	Log       LogConfig
	Database  DatabaseConfig
	Session   SessionConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	SMTP      SMTPConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int // in MB
	TrustProxy  bool // take client IPs from X-Forwarded-For set by a private-network proxy
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	URL string // SQLite path or postgres:// URL
}

type SessionConfig struct { //nolint:govet // fieldalignment not critical
	CookieName  string
	Secret      string        // HKDF input for cookie keys, random keys if empty
	RememberFor time.Duration // lifetime of "remember me" sessions
	Secure      bool
}

type AuthConfig struct {
	BcryptCost    int
	ResetTokenTTL time.Duration
}

type RateLimitConfig struct {
	Window time.Duration
	Max    int
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical
	Host     string // empty disables SMTP, reset links are logged instead
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      string // starttls, tls, none
}

// Enabled reports whether an SMTP host is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

func NewFromCLI(cmd *cli.Command) *Config {
	env := strings.ToLower(strings.TrimSpace(cmd.String("env")))
	if env == "" {
		env = EnvDevelopment
	}

	cfg := &Config{
		Env: env,
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
			TrustProxy:  cmd.Bool("trust-proxy"),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			URL: cmd.String("database-url"),
		},
		Session: SessionConfig{
			CookieName:  "__session",
			Secret:      cmd.String("session-secret"),
			RememberFor: 30 * 24 * time.Hour,
			Secure:      env == EnvProduction,
		},
		Auth: AuthConfig{
			BcryptCost:    int(cmd.Int("bcrypt-cost")),
			ResetTokenTTL: cmd.Duration("reset-token-ttl"),
		},
		RateLimit: RateLimitConfig{
			Window: cmd.Duration("rate-limit-window"),
			Max:    int(cmd.Int("rate-limit-max")),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.String("smtp-tls"),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}
	applyLogDefaults(cfg)

	return cfg
}

// Validate checks settings that cannot be expressed as flag defaults.
func (c *Config) Validate() error {
	switch c.Env {
	case EnvDevelopment, EnvTest, EnvProduction:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidEnv, c.Env)
	}

	if c.Session.Secret == "" && c.IsProduction() {
		return ErrSecretRequired
	}
	if c.Session.Secret != "" && len(c.Session.Secret) < MinSecretLength {
		return ErrSecretTooShort
	}

	if strings.TrimSpace(c.Database.URL) == "" {
		return ErrDatabaseMissing
	}
	return nil
}

// IsProduction reports whether the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// applyLogDefaults picks level and format from the env mode unless set explicitly.
func applyLogDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		switch cfg.Env {
		case EnvProduction:
			cfg.Log.Level = "info"
		case EnvTest:
			cfg.Log.Level = "warn"
		default:
			cfg.Log.Level = "debug"
		}
	}
	if cfg.Log.Format == "" {
		if cfg.Env == EnvProduction {
			cfg.Log.Format = "json"
		} else {
			cfg.Log.Format = "text"
		}
	}
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	port := cfg.Server.Port

	// Production runs behind a TLS-terminating proxy
	scheme := "http"
	if cfg.IsProduction() && !IsLocalhost(host) {
		scheme = "https"
	}

	// Hide default ports in URL
	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
		return fmt.Sprintf("%s://%s", scheme, host)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

// IsLocalhost checks if the host is a localhost address.
func IsLocalhost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	// Check for *.localhost subdomains (e.g., app.localhost)
	return strings.HasSuffix(host, ".localhost")
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "env",
			Value:   EnvDevelopment,
			Usage:   "Environment mode (development, test, production)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("APP_ENV"), cli.EnvVar("NODE_ENV"), toml.TOML("app.env", configFile)),
		},
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL for links in emails",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.BoolFlag{
			Name:    "trust-proxy",
			Usage:   "Trust X-Forwarded-For from loopback and private-network proxies",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TRUST_PROXY"), toml.TOML("server.trust_proxy", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error), derived from env if empty",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json), derived from env if empty",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-url",
			Value:   "./data/app.db",
			Usage:   "SQLite path or postgres:// URL",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_URL"), toml.TOML("database.url", configFile)),
		},
		// Session flags
		&cli.StringFlag{
			Name:    "session-secret",
			Usage:   "Secret for cookie signing and encryption (random if empty outside production)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_SECRET"), toml.TOML("session.secret", configFile)),
		},
		// Auth flags
		&cli.IntFlag{
			Name:    "bcrypt-cost",
			Value:   12,
			Usage:   "bcrypt cost factor for password hashes",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BCRYPT_COST"), toml.TOML("auth.bcrypt_cost", configFile)),
		},
		&cli.DurationFlag{
			Name:    "reset-token-ttl",
			Value:   30 * time.Minute,
			Usage:   "Lifetime of password reset links",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RESET_TOKEN_TTL"), toml.TOML("auth.reset_token_ttl", configFile)),
		},
		&cli.DurationFlag{
			Name:    "rate-limit-window",
			Value:   60 * time.Second,
			Usage:   "Rate limit window",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RATE_LIMIT_WINDOW"), toml.TOML("rate_limit.window", configFile)),
		},
		&cli.IntFlag{
			Name:    "rate-limit-max",
			Value:   10,
			Usage:   "Requests allowed per client and action within one window",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RATE_LIMIT_MAX"), toml.TOML("rate_limit.max", configFile)),
		},
		// SMTP flags
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP host (reset links are logged if empty)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Value:   "noreply@localhost",
			Usage:   "Sender address",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "Go Web App",
			Usage:   "Sender display name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-tls",
			Value:   "starttls",
			Usage:   "SMTP TLS mode (starttls, tls, none)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},
	}
}
