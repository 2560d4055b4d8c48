// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/models"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/repository"
)

const resetTokenBytes = 32

// GenerateResetToken returns a random hex-encoded reset secret.
func GenerateResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashToken returns the SHA-256 hex digest stored in place of a raw secret.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// RequestPasswordReset creates a reset token for email and returns the raw
// secret for delivery. Unknown addresses return an empty secret, a nil user
// and no error, so callers respond identically either way.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, *models.User, error) {
	email = NormalizeEmail(email)

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Info("password_reset_unknown_email", "email", email)
			return "", nil, nil
		}
		return "", nil, fmt.Errorf("failed to get user: %w", err)
	}

	now := time.Now()
	if purged, err := s.repo.DeleteExpiredPasswordResetTokens(ctx, now); err != nil {
		slog.Warn("failed to purge expired reset tokens", "error", err)
	} else if purged > 0 {
		slog.Debug("purged expired reset tokens", "count", purged)
	}

	raw, err := GenerateResetToken()
	if err != nil {
		return "", nil, err
	}

	if _, err := s.repo.CreatePasswordResetToken(ctx, user.ID, HashToken(raw), now.Add(s.ttl)); err != nil {
		return "", nil, fmt.Errorf("failed to store reset token: %w", err)
	}

	slog.Info("password_reset_requested", "user_id", user.ID)
	return raw, user, nil
}

// VerifyResetToken returns the stored token for raw if it exists and has
// not expired.
func (s *Service) VerifyResetToken(ctx context.Context, raw string) (*models.PasswordResetToken, error) {
	if raw == "" {
		return nil, ErrInvalidResetToken
	}

	token, err := s.repo.GetPasswordResetToken(ctx, HashToken(raw))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidResetToken
		}
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}

	if token.Expired(time.Now()) {
		return nil, ErrInvalidResetToken
	}
	return token, nil
}

// ResetPassword sets a new password for the token's user and consumes the token.
func (s *Service) ResetPassword(ctx context.Context, raw, newPassword string) error {
	token, err := s.VerifyResetToken(ctx, raw)
	if err != nil {
		return err
	}

	if len(newPassword) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(newPassword) > MaxPasswordLength {
		return ErrPasswordTooLong
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateUserPassword(ctx, token.UserID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.repo.DeletePasswordResetToken(ctx, token.Token); err != nil {
		slog.Error("failed to delete reset token", "user_id", token.UserID, "error", err)
	}

	slog.Info("password_reset_completed", "user_id", token.UserID)
	return nil
}
