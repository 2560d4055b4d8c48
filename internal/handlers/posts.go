// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/appcontext"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/models"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/repository"
	"github.com/labstack/echo/v4"
)

// ListPosts returns the signed-in user's posts, newest first.
func (h *Handlers) ListPosts(c echo.Context) error {
	user := appcontext.UserOf(c)

	posts, err := h.repo.ListPostsByAuthor(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"posts": posts})
}

// NewPost returns the CSRF token for the post form.
func (h *Handlers) NewPost(c echo.Context) error {
	return csrfResponse(c, h.csrf, nil)
}

// CreatePost stores a post and redirects to it.
func (h *Handlers) CreatePost(c echo.Context) error {
	user := appcontext.UserOf(c)

	var form PostForm
	if err := c.Bind(&form); err != nil {
		return badRequest("Invalid form data")
	}
	form.Title = strings.TrimSpace(form.Title)
	if err := c.Validate(&form); err != nil {
		return err
	}

	post := &models.Post{
		Title:     form.Title,
		Content:   form.Content,
		Published: checked(form.Published),
		AuthorID:  user.ID,
	}
	if err := h.repo.CreatePost(c.Request().Context(), post); err != nil {
		return err
	}

	slog.Info("post_created", "post_id", post.ID, "user_id", user.ID)
	return c.Redirect(http.StatusFound, "/posts/"+post.ID)
}

// ShowPost returns a post owned by the user or any published post.
func (h *Handlers) ShowPost(c echo.Context) error {
	user := appcontext.UserOf(c)

	post, err := h.repo.GetPostByID(c.Request().Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Post not found")
	}
	if err != nil {
		return err
	}

	if !post.VisibleTo(user.ID) {
		return echo.NewHTTPError(http.StatusNotFound, "Post not found")
	}
	return c.JSON(http.StatusOK, map[string]any{"post": post})
}
