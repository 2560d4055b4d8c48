// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPost_IssuesCSRFToken(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.NewTestUser(t, env.repo, "a@x.com")
	c, rec := env.get("/posts/new", user)

	require.NoError(t, env.h.NewPost(c))

	assert.Len(t, decode(t, rec)["csrfToken"], 64)
}

func TestCreatePost(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.NewTestUser(t, env.repo, "a@x.com")
	c, rec := env.post("/posts/new", url.Values{
		"title":     {"  Hello  "},
		"content":   {"World"},
		"published": {"on"},
	}, user)

	err := env.h.CreatePost(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, rec.Code)
	location := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/posts/"))

	post, err := env.repo.GetPostByID(c.Request().Context(), strings.TrimPrefix(location, "/posts/"))
	require.NoError(t, err)
	assert.Equal(t, "Hello", post.Title)
	assert.Equal(t, "World", post.Content)
	assert.True(t, post.Published)
	assert.Equal(t, user.ID, post.AuthorID)
}

func TestCreatePost_TitleRequired(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.NewTestUser(t, env.repo, "a@x.com")

	for _, title := range []string{"", "   "} {
		c, _ := env.post("/posts/new", url.Values{"title": {title}}, user)

		err := env.h.CreatePost(c)

		requireHTTPError(t, err, http.StatusBadRequest, "Title is required")
	}
}

func TestListPosts(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.NewTestUser(t, env.repo, "alice@x.com")
	bob := testutil.NewTestUser(t, env.repo, "bob@x.com")
	testutil.NewTestPost(t, env.repo, alice.ID, "first", false)
	testutil.NewTestPost(t, env.repo, alice.ID, "second", true)
	testutil.NewTestPost(t, env.repo, bob.ID, "other", true)

	c, rec := env.get("/posts", alice)

	require.NoError(t, env.h.ListPosts(c))

	posts := decode(t, rec)["posts"].([]any)
	require.Len(t, posts, 2)
	assert.Equal(t, "second", posts[0].(map[string]any)["title"])
	assert.Equal(t, "first", posts[1].(map[string]any)["title"])
}

func TestListPosts_Empty(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.NewTestUser(t, env.repo, "a@x.com")
	c, rec := env.get("/posts", user)

	require.NoError(t, env.h.ListPosts(c))

	assert.JSONEq(t, `{"posts":[]}`, rec.Body.String())
}

func TestShowPost(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.NewTestUser(t, env.repo, "alice@x.com")
	bob := testutil.NewTestUser(t, env.repo, "bob@x.com")
	draft := testutil.NewTestPost(t, env.repo, alice.ID, "draft", false)
	public := testutil.NewTestPost(t, env.repo, alice.ID, "public", true)

	show := func(id string, viewer string) (int, error) {
		user := alice
		if viewer == "bob" {
			user = bob
		}
		c, rec := env.get("/posts/"+id, user)
		c.SetParamNames("id")
		c.SetParamValues(id)
		err := env.h.ShowPost(c)
		return rec.Code, err
	}

	code, err := show(draft.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)

	code, err = show(public.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)

	_, err = show(draft.ID, "bob")
	requireHTTPError(t, err, http.StatusNotFound, "Post not found")

	_, err = show("missing", "alice")
	requireHTTPError(t, err, http.StatusNotFound, "Post not found")
}
