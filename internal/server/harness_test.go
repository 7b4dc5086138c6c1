package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"microblog/internal/config"
	"microblog/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func testConfig() *config.Config {
	return &config.Config{
		Port:                     "0",
		JWTSecret:                testSecret,
		JWTAlgorithm:             "HS256",
		JWTIssuer:                "microblog-api",
		JWTAudience:              "microblog-client",
		AccessTokenExpireMinutes: 30,
		BcryptCost:               4,
	}
}

type testEnv struct {
	srv *Server
	app *fiber.App
	db  *gorm.DB
	mr  *miniredis.Miniredis
}

type envOption func(*config.Config)

func withFlags(raw string) envOption {
	return func(c *config.Config) { c.FeatureFlags = raw }
}

func withAppEnv(env string) envOption {
	return func(c *config.Config) { c.Env = env }
}

// newTestEnv builds a full server over SQLite. withRedis adds a miniredis
// instance so the ticket and feed-stream paths are available.
func newTestEnv(t *testing.T, withRedis bool, opts ...envOption) *testEnv {
	t.Helper()

	cfg := testConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	env := &testEnv{db: testutil.NewSQLiteDB(t)}

	var rdb *redis.Client
	if withRedis {
		env.mr = miniredis.RunT(t)
		rdb = redis.NewClient(&redis.Options{Addr: env.mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
	}

	srv, err := NewServerWithDeps(cfg, env.db, rdb)
	require.NoError(t, err)
	env.srv = srv
	env.app = srv.App()
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// signup registers username with a fixed password and returns a bearer token.
func (e *testEnv) signup(t *testing.T, username string) string {
	t.Helper()

	resp := e.do(t, http.MethodPost, "/users", fiber.Map{
		"username": username,
		"email":    username + "@example.com",
		"password": "Password123!",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = e.postForm(t, "/login", url.Values{
		"username": {username},
		"password": {"Password123!"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, resp, &tok)
	require.NotEmpty(t, tok.AccessToken)
	return tok.AccessToken
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}
