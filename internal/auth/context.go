// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth carries the signed-in user on the request context for code
// that has no access to the Echo context, such as the request logger.
package auth

import (
	"context"

	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/ctxkeys"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/models"
)

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, ctxkeys.User{}, user)
}

// GetUser returns the authenticated user from the context, or nil if not authenticated.
func GetUser(ctx context.Context) *models.User {
	if user, ok := ctx.Value(ctxkeys.User{}).(*models.User); ok {
		return user
	}
	return nil
}

// UserID returns the authenticated user's ID, or "" for anonymous requests.
func UserID(ctx context.Context) string {
	if user := GetUser(ctx); user != nil {
		return user.ID
	}
	return ""
}
