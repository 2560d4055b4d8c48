// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/config"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/csrf"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/i18n"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeMailer struct {
	mu     sync.Mutex
	tokens []string
}

func (f *fakeMailer) SendPasswordReset(_ context.Context, _, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	return nil
}

func (f *fakeMailer) Tokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens...)
}

func testConfig() *config.Config {
	return &config.Config{
		Env: config.EnvTest,
		Server: config.ServerConfig{
			Host:        "localhost",
			Port:        8080,
			BaseURL:     "http://localhost:8080",
			MaxBodySize: 1,
		},
		Log:      config.LogConfig{Level: "warn", Format: "text"},
		Database: config.DatabaseConfig{URL: ":memory:"},
		Session: config.SessionConfig{
			CookieName:  "__session",
			Secret:      "0123456789abcdef0123456789abcdef",
			RememberFor: time.Hour,
		},
		Auth:      config.AuthConfig{BcryptCost: bcrypt.MinCost, ResetTokenTTL: 30 * time.Minute},
		RateLimit: config.RateLimitConfig{Window: time.Minute, Max: 10},
	}
}

func newTestApp(t *testing.T) (*App, *echo.Echo, *fakeMailer) {
	t.Helper()
	require.NoError(t, i18n.Init())
	db, _ := testutil.NewTestDB(t)

	app, err := NewApp(testConfig(), db)
	require.NoError(t, err)

	mailer := &fakeMailer{}
	app.Mailer = mailer
	return app, app.Echo(), mailer
}

// client drives the app like a browser, keeping cookies between requests.
type client struct {
	t   *testing.T
	e   *echo.Echo
	jar *testutil.CookieJar
}

func newClient(t *testing.T, e *echo.Echo) *client {
	return &client{t: t, e: e, jar: testutil.NewCookieJar()}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	c.jar.Apply(req)
	rec := httptest.NewRecorder()
	c.e.ServeHTTP(rec, req)
	c.jar.Store(rec)
	return rec
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) post(path string, form url.Values) *httptest.ResponseRecorder {
	return c.do(testutil.NewFormRequest(path, form))
}

// submit fetches the CSRF token from page and posts form with it to path.
func (c *client) submit(page, path string, form url.Values) *httptest.ResponseRecorder {
	c.t.Helper()
	rec := c.get(page)
	require.Equal(c.t, http.StatusOK, rec.Code, rec.Body.String())
	token, _ := decode(c.t, rec)["csrfToken"].(string)
	require.NotEmpty(c.t, token)

	withToken := url.Values{}
	for k, v := range form {
		withToken[k] = v
	}
	withToken.Set(csrf.FormField, token)
	return c.post(path, withToken)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestHealth(t *testing.T) {
	_, e, _ := newTestApp(t)
	c := newClient(t, e)

	rec := c.get("/api/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestHealth_TrailingSlash(t *testing.T) {
	_, e, _ := newTestApp(t)

	rec := newClient(t, e).get("/api/health/")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	_, e, _ := newTestApp(t)

	rec := newClient(t, e).get("/nope")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode(t, rec), "error")
}

func TestRegisterLoginLogout(t *testing.T) {
	_, e, _ := newTestApp(t)
	c := newClient(t, e)

	rec := c.submit("/register", "/register", url.Values{
		"email":    {"alice@example.com"},
		"password": {"correct-horse"},
		"name":     {"Alice"},
	})
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	rec = c.get("/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	user := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, "alice@example.com", user["email"])

	rec = c.post("/logout", url.Values{})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Nil(t, c.jar.Get("__session"))

	rec = c.get("/dashboard")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?redirectTo=%2Fdashboard", rec.Header().Get("Location"))

	rec = c.submit("/login", "/login", url.Values{
		"email":      {"alice@example.com"},
		"password":   {"correct-horse"},
		"redirectTo": {"/posts"},
	})
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, "/posts", rec.Header().Get("Location"))

	rec = c.get("/posts")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginPage_SignedInRedirects(t *testing.T) {
	app, e, _ := newTestApp(t)
	testutil.NewTestUser(t, app.Repo, "a@x.com")
	c := newClient(t, e)
	c.submit("/login", "/login", url.Values{"email": {"a@x.com"}, "password": {testutil.TestPassword}})

	rec := c.get("/login")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestProtectedRouteKeepsQuery(t *testing.T) {
	_, e, _ := newTestApp(t)

	rec := newClient(t, e).get("/posts?page=2")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?redirectTo=%2Fposts%3Fpage%3D2", rec.Header().Get("Location"))
}

func TestLogin_MissingCSRF(t *testing.T) {
	app, e, _ := newTestApp(t)
	testutil.NewTestUser(t, app.Repo, "a@x.com")
	c := newClient(t, e)

	rec := c.post("/login", url.Values{"email": {"a@x.com"}, "password": {testutil.TestPassword}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid CSRF"}`, rec.Body.String())
	assert.Nil(t, c.jar.Get("__session"))
}

func TestLogin_WrongCSRF(t *testing.T) {
	_, e, _ := newTestApp(t)
	c := newClient(t, e)
	c.get("/login")

	rec := c.post("/login", url.Values{
		"email":        {"a@x.com"},
		"password":     {"whatever"},
		csrf.FormField: {strings.Repeat("0", 64)},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid CSRF"}`, rec.Body.String())
}

func TestLogin_RateLimited(t *testing.T) {
	_, e, _ := newTestApp(t)
	c := newClient(t, e)
	form := url.Values{"email": {"a@x.com"}, "password": {"wrong-password"}}

	for i := range 10 {
		rec := c.submit("/login", "/login", form)
		require.Equal(t, http.StatusBadRequest, rec.Code, "attempt %d", i+1)
	}

	rec := c.submit("/login", "/login", form)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Too many requests"}`, rec.Body.String())

	// Other actions have their own budget
	rec = c.submit("/forgot-password", "/forgot-password", url.Values{"email": {"a@x.com"}})
	assert.Equal(t, http.StatusOK, rec.Code)
}

// loginFrom posts a failed login from remoteAddr with the given X-Forwarded-For.
func (c *client) loginFrom(remoteAddr, forwardedFor string) *httptest.ResponseRecorder {
	c.t.Helper()
	rec := c.get("/login")
	require.Equal(c.t, http.StatusOK, rec.Code, rec.Body.String())
	token, _ := decode(c.t, rec)["csrfToken"].(string)

	req := testutil.NewFormRequest("/login", url.Values{
		"email":        {"a@x.com"},
		"password":     {"wrong-password"},
		csrf.FormField: {token},
	})
	req.RemoteAddr = remoteAddr
	req.Header.Set(echo.HeaderXForwardedFor, forwardedFor)
	return c.do(req)
}

func TestLogin_RateLimitIgnoresForwardedFor(t *testing.T) {
	_, e, _ := newTestApp(t)
	c := newClient(t, e)

	for i := range 10 {
		rec := c.loginFrom("203.0.113.7:4000", fmt.Sprintf("198.51.100.%d", i+1))
		require.Equal(t, http.StatusBadRequest, rec.Code, "attempt %d", i+1)
	}

	rec := c.loginFrom("203.0.113.7:4000", "198.51.100.99")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestLogin_RateLimitTrustedProxy(t *testing.T) {
	require.NoError(t, i18n.Init())
	db, _ := testutil.NewTestDB(t)
	cfg := testConfig()
	cfg.Server.TrustProxy = true
	app, err := NewApp(cfg, db)
	require.NoError(t, err)
	c := newClient(t, app.Echo())

	for i := range 11 {
		rec := c.loginFrom("10.0.0.2:4000", fmt.Sprintf("198.51.100.%d", i+1))
		require.Equal(t, http.StatusBadRequest, rec.Code, "attempt %d", i+1)
	}

	// Forwarded headers from untrusted peers are ignored
	for i := range 10 {
		rec := c.loginFrom("203.0.113.7:4000", fmt.Sprintf("198.51.100.%d", i+100))
		require.Equal(t, http.StatusBadRequest, rec.Code, "attempt %d", i+1)
	}
	rec := c.loginFrom("203.0.113.7:4000", "198.51.100.200")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	app, e, mailer := newTestApp(t)
	c := newClient(t, e)

	rec := c.submit("/forgot-password", "/forgot-password", url.Values{"email": {"nobody@example.com"}})
	app.Wait()

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Empty(t, mailer.Tokens())

	var count int
	require.NoError(t, app.DB.Get(&count, "SELECT COUNT(*) FROM password_reset_tokens"))
	assert.Zero(t, count)
}

func TestResetPassword_SingleUse(t *testing.T) {
	app, e, mailer := newTestApp(t)
	testutil.NewTestUser(t, app.Repo, "a@x.com")
	c := newClient(t, e)

	rec := c.submit("/forgot-password", "/forgot-password", url.Values{"email": {"a@x.com"}})
	require.Equal(t, http.StatusOK, rec.Code)
	app.Wait()
	tokens := mailer.Tokens()
	require.Len(t, tokens, 1)
	resetPath := "/reset-password/" + tokens[0]

	rec = c.get(resetPath)
	assert.Equal(t, true, decode(t, rec)["valid"])

	rec = c.submit(resetPath, resetPath, url.Values{"password": {"new-password"}})
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = c.get(resetPath)
	assert.JSONEq(t, `{"valid":false}`, rec.Body.String())

	// Replaying the form with a fresh CSRF token still fails
	rec = c.submit("/login", resetPath, url.Values{"password": {"another-password"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid or expired token"}`, rec.Body.String())

	rec = c.submit("/login", "/login", url.Values{"email": {"a@x.com"}, "password": {"new-password"}})
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestPosts(t *testing.T) {
	app, e, _ := newTestApp(t)
	testutil.NewTestUser(t, app.Repo, "a@x.com")
	c := newClient(t, e)
	c.submit("/login", "/login", url.Values{"email": {"a@x.com"}, "password": {testutil.TestPassword}})

	rec := c.submit("/posts/new", "/posts/new", url.Values{"title": {""}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Title is required"}`, rec.Body.String())

	rec = c.submit("/posts/new", "/posts/new", url.Values{"title": {"Hello"}, "content": {"World"}})
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	location := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/posts/"))

	rec = c.get(location)
	require.Equal(t, http.StatusOK, rec.Code)
	post := decode(t, rec)["post"].(map[string]any)
	assert.Equal(t, "Hello", post["title"])
	assert.Equal(t, false, post["published"])

	rec = c.get("/posts")
	assert.Len(t, decode(t, rec)["posts"], 1)

	// Drafts are private
	testutil.NewTestUser(t, app.Repo, "b@x.com")
	other := newClient(t, e)
	other.submit("/login", "/login", url.Values{"email": {"b@x.com"}, "password": {testutil.TestPassword}})
	rec = other.get(location)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
