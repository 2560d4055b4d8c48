// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/models"
	"github.com/google/uuid"
)

// CreatePost inserts a post, assigning ID and timestamps.
func (r *Repository) CreatePost(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, r.q(
		`INSERT INTO posts (id, title, content, published, author_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		post.ID, post.Title, post.Content, post.Published, post.AuthorID, post.CreatedAt, post.UpdatedAt)
	return wrapError(err)
}

// GetPostByID retrieves a post by ID.
func (r *Repository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.db.GetContext(ctx, &post, r.q(`SELECT * FROM posts WHERE id = ?`), id); err != nil {
		return nil, wrapError(err)
	}
	return &post, nil
}

// ListPostsByAuthor returns a user's posts, newest first.
func (r *Repository) ListPostsByAuthor(ctx context.Context, authorID string) ([]models.Post, error) {
	posts := []models.Post{}
	err := r.db.SelectContext(ctx, &posts, r.q(
		`SELECT * FROM posts WHERE author_id = ? ORDER BY created_at DESC`), authorID)
	if err != nil {
		return nil, err
	}
	return posts, nil
}
