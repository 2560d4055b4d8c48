// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"time"

	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/models"
)

// CreatePasswordResetToken stores the hash of a reset secret.
func (r *Repository) CreatePasswordResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.PasswordResetToken, error) {
	token := &models.PasswordResetToken{
		Token:     tokenHash,
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx, r.q(
		`INSERT INTO password_reset_tokens (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`),
		token.Token, token.UserID, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return nil, wrapError(err)
	}
	return token, nil
}

// GetPasswordResetToken retrieves a reset token by hash.
func (r *Repository) GetPasswordResetToken(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error) {
	var token models.PasswordResetToken
	err := r.db.GetContext(ctx, &token, r.q(`SELECT * FROM password_reset_tokens WHERE token = ?`), tokenHash)
	if err != nil {
		return nil, wrapError(err)
	}
	return &token, nil
}

// DeletePasswordResetToken deletes a token by hash. Returns ErrNotFound if
// nothing was deleted.
func (r *Repository) DeletePasswordResetToken(ctx context.Context, tokenHash string) error {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM password_reset_tokens WHERE token = ?`), tokenHash)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// DeleteExpiredPasswordResetTokens deletes tokens that expired before now.
func (r *Repository) DeleteExpiredPasswordResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM password_reset_tokens WHERE expires_at < ?`), now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
