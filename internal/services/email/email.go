// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email delivers password reset links.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/config"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/i18n"
	"github.com/wneessen/go-mail"
)

// Sender delivers password reset links.
type Sender interface {
	SendPasswordReset(ctx context.Context, to, token string) error
}

// New returns an SMTP sender when a host is configured and a LogSender otherwise.
func New(cfg *config.SMTPConfig, baseURL string, ttl time.Duration) (Sender, error) {
	if !cfg.Enabled() {
		slog.Info("no SMTP host configured, reset links will be logged")
		return NewLogSender(baseURL), nil
	}
	return NewService(cfg, baseURL, ttl)
}

// ResetURL returns the link that opens the reset form for token.
func ResetURL(baseURL, token string) string {
	return strings.TrimSuffix(baseURL, "/") + "/reset-password/" + token
}

// Service sends email via SMTP.
type Service struct {
	cfg     *config.SMTPConfig
	baseURL string
	ttl     time.Duration
}

// NewService creates a new email service.
func NewService(cfg *config.SMTPConfig, baseURL string, ttl time.Duration) (*Service, error) {
	if cfg.Host == "" {
		return nil, errors.New("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("SMTP from address is required")
	}

	switch cfg.TLS {
	case "", "starttls", "tls", "none":
	default:
		return nil, fmt.Errorf("unknown SMTP TLS mode %q", cfg.TLS)
	}

	return &Service{
		cfg:     cfg,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		ttl:     ttl,
	}, nil
}

// SendPasswordReset sends the reset link for token to the given address.
func (s *Service) SendPasswordReset(ctx context.Context, to, token string) error {
	msg, err := s.passwordResetMessage(ctx, to, token)
	if err != nil {
		return err
	}
	return s.send(ctx, msg)
}

func (s *Service) passwordResetMessage(ctx context.Context, to, token string) (*mail.Msg, error) {
	subject := i18n.T(ctx, "password_reset_subject")
	body := i18n.TData(ctx, "password_reset_body", map[string]any{
		"ResetURL":  ResetURL(s.baseURL, token),
		"ExpiresIn": int(s.ttl.Minutes()),
	})
	return s.newMessage(to, subject, body)
}

func (s *Service) newMessage(to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

// clientOptions maps the configuration to go-mail client options.
func (s *Service) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(15 * time.Second),
	}

	switch s.cfg.TLS {
	case "tls":
		opts = append(opts, mail.WithSSL())
	case "none":
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	// Add authentication if credentials are provided
	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}

func (s *Service) send(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}

// LogSender writes reset links to the log instead of sending mail.
type LogSender struct {
	baseURL string
}

// NewLogSender creates a LogSender.
func NewLogSender(baseURL string) *LogSender {
	return &LogSender{baseURL: strings.TrimSuffix(baseURL, "/")}
}

// SendPasswordReset logs the reset link.
func (l *LogSender) SendPasswordReset(_ context.Context, to, token string) error {
	slog.Info("password reset link", "to", to, "url", ResetURL(l.baseURL, token))
	return nil
}
