// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/config"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/i18n"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/services/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
	"golang.org/x/text/language"
)

func validSMTPConfig() *config.SMTPConfig {
	return &config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "testuser",
		Password: "testpass",
		From:     "noreply@example.com",
		FromName: "Test App",
		TLS:      "starttls",
	}
}

func TestNew_SelectsSender(t *testing.T) {
	smtp, err := email.New(validSMTPConfig(), "https://example.com", 30*time.Minute)
	require.NoError(t, err)
	assert.IsType(t, &email.Service{}, smtp)

	logged, err := email.New(&config.SMTPConfig{}, "https://example.com", 30*time.Minute)
	require.NoError(t, err)
	assert.IsType(t, &email.LogSender{}, logged)
}

func TestNewService(t *testing.T) {
	svc, err := email.NewService(validSMTPConfig(), "https://example.com", 30*time.Minute)

	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestNewService_MissingHost(t *testing.T) {
	cfg := validSMTPConfig()
	cfg.Host = ""

	_, err := email.NewService(cfg, "https://example.com", time.Minute)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP host is required")
}

func TestNewService_MissingFrom(t *testing.T) {
	cfg := validSMTPConfig()
	cfg.From = ""

	_, err := email.NewService(cfg, "https://example.com", time.Minute)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP from address is required")
}

func TestNewService_UnknownTLSMode(t *testing.T) {
	cfg := validSMTPConfig()
	cfg.TLS = "sometimes"

	_, err := email.NewService(cfg, "https://example.com", time.Minute)

	assert.Error(t, err)
}

func TestClientOptions(t *testing.T) {
	cfg := validSMTPConfig()
	svc, err := email.NewService(cfg, "https://example.com", time.Minute)
	require.NoError(t, err)

	// port, timeout, TLS policy and three auth options
	assert.Equal(t, 6, svc.ClientOptionCount())

	cfg.Username = ""
	assert.Equal(t, 3, svc.ClientOptionCount())
}

func TestResetURL(t *testing.T) {
	assert.Equal(t, "https://example.com/reset-password/abc", email.ResetURL("https://example.com/", "abc"))
	assert.Equal(t, "http://localhost:8080/reset-password/abc", email.ResetURL("http://localhost:8080", "abc"))
}

func TestPasswordResetMessage(t *testing.T) {
	svc, err := email.NewService(validSMTPConfig(), "https://example.com/", 30*time.Minute)
	require.NoError(t, err)

	msg, err := svc.PasswordResetMessage(context.Background(), "user@example.com", "abc123")
	require.NoError(t, err)

	to, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"user@example.com"}, to)
	assert.Equal(t, []string{"Reset your password"}, msg.GetGenHeader(mail.HeaderSubject))

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "https://example.com/reset-password/abc123")
	assert.Contains(t, buf.String(), "30 minutes")
}

func TestPasswordResetMessage_Localized(t *testing.T) {
	svc, err := email.NewService(validSMTPConfig(), "https://example.com", 30*time.Minute)
	require.NoError(t, err)

	ctx := i18n.WithLocale(context.Background(), language.German)
	msg, err := svc.PasswordResetMessage(ctx, "user@example.com", "abc123")
	require.NoError(t, err)

	assert.Equal(t, []string{"Passwort zurücksetzen"}, msg.GetGenHeader(mail.HeaderSubject))
}

func TestPasswordResetMessage_InvalidRecipient(t *testing.T) {
	svc, err := email.NewService(validSMTPConfig(), "https://example.com", time.Minute)
	require.NoError(t, err)

	_, err = svc.PasswordResetMessage(context.Background(), "not an address", "abc")

	assert.Error(t, err)
}

func TestLogSender(t *testing.T) {
	sender := email.NewLogSender("https://example.com/")

	assert.NoError(t, sender.SendPasswordReset(context.Background(), "user@example.com", "abc"))
}
