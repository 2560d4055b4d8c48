// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Post is a blog post owned by a user.
type Post struct { //nolint:govet // fieldalignment not critical for models
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	Published bool      `db:"published" json:"published"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// VisibleTo reports whether userID may read the post.
func (p *Post) VisibleTo(userID string) bool {
	return p.Published || p.AuthorID == userID
}
