// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth implements registration, login and password reset.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/config"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/models"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/repository"
)

// Password length bounds. The maximum is bcrypt's input limit in bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// DefaultResetTokenTTL is the lifetime of a reset link when none is configured.
const DefaultResetTokenTTL = 30 * time.Minute

// Errors carry the message shown to the user.
var (
	ErrEmailInUse         = errors.New("Email already in use")     //nolint:staticcheck // user-facing message
	ErrInvalidCredentials = errors.New("Invalid credentials")      //nolint:staticcheck // user-facing message
	ErrInvalidResetToken  = errors.New("Invalid or expired token") //nolint:staticcheck // user-facing message
	ErrPasswordTooShort   = errors.New("Password too short")       //nolint:staticcheck // user-facing message
	ErrPasswordTooLong    = errors.New("Password too long")        //nolint:staticcheck // user-facing message
)

type Service struct {
	repo   *repository.Repository
	hasher *Hasher
	ttl    time.Duration
}

func NewService(repo *repository.Repository, cfg *config.AuthConfig) *Service {
	ttl := cfg.ResetTokenTTL
	if ttl == 0 {
		ttl = DefaultResetTokenTTL
	}
	return &Service{
		repo:   repo,
		hasher: NewHasher(cfg.BcryptCost),
		ttl:    ttl,
	}
}

// Hasher returns the password hasher used by the service.
func (s *Service) Hasher() *Hasher {
	return s.hasher
}

// RegisterParams holds the parameters for user registration
type RegisterParams struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user account
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	email := NormalizeEmail(params.Email)

	if len(params.Password) > MaxPasswordLength {
		return nil, ErrPasswordTooLong
	}

	exists, err := s.repo.UserExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		return nil, ErrEmailInUse
	}

	passwordHash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		Role:         params.Role,
	}
	if name := strings.TrimSpace(params.Name); name != "" {
		user.Name = &name
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		// Lost a race against a concurrent registration
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("register_success", "user_id", user.ID, "email", email)

	return user, nil
}

// Login authenticates a user and returns the user if successful
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = NormalizeEmail(email)

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.CompareDummy(password)
			slog.Warn("login_failed", "email", email, "reason", "user_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		slog.Warn("login_failed", "email", email, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	slog.Info("login_success", "user_id", user.ID, "email", email)
	return user, nil
}

// EnsureAdmin makes sure an admin account with email exists, creating it
// with password or promoting an existing user.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, name string) (*models.User, error) {
	user, err := s.Register(ctx, RegisterParams{
		Email:    email,
		Password: password,
		Name:     name,
		Role:     models.RoleAdmin,
	})
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrEmailInUse) {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	existing, err := s.repo.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !existing.IsAdmin() {
		if err := s.repo.SetUserRole(ctx, existing.ID, models.RoleAdmin); err != nil {
			return nil, fmt.Errorf("failed to set admin: %w", err)
		}
		existing.Role = models.RoleAdmin
	}
	return existing, nil
}
