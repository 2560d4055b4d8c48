// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"

	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/models"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/repository"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	name := "Alice"

	user := &models.User{Email: "a@x.com", PasswordHash: "hash", Name: &name}
	err := repo.CreateUser(ctx, user)

	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotZero(t, user.CreatedAt)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	first := testutil.NewTestUser(t, repo, "a@x.com")

	err := repo.CreateUser(ctx, &models.User{Email: "a@x.com", PasswordHash: "other"})

	require.ErrorIs(t, err, repository.ErrDuplicate)

	// The first record is unaffected
	stored, err := repo.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, first.PasswordHash, stored.PasswordHash)
}

func TestGetUserByID(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	created := testutil.NewTestUser(t, repo, "a@x.com")

	retrieved, err := repo.GetUserByID(ctx, created.ID)

	require.NoError(t, err)
	assert.Equal(t, created.ID, retrieved.ID)
	assert.Equal(t, "a@x.com", retrieved.Email)
	assert.Nil(t, retrieved.Name)
	assert.WithinDuration(t, created.CreatedAt, retrieved.CreatedAt, 0)
}

func TestGetUserByID_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetUserByID(context.Background(), "missing")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetUserByEmail(context.Background(), "nobody@x.com")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserExists(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	testutil.NewTestUser(t, repo, "a@x.com")

	exists, err := repo.UserExists(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.UserExists(ctx, "b@x.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpdateUserPassword(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "a@x.com")

	err := repo.UpdateUserPassword(ctx, user.ID, "new-hash")
	require.NoError(t, err)

	stored, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", stored.PasswordHash)
}

func TestUpdateUserPassword_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	err := repo.UpdateUserPassword(context.Background(), "missing", "hash")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSetUserRole(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "a@x.com")

	require.NoError(t, repo.SetUserRole(ctx, user.ID, models.RoleAdmin))

	stored, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsAdmin())
}
