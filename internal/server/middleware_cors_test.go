package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"microblog/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "http://localhost:5173"

// middlewareOnlyApp runs the global middleware stack in front of a single
// /limited route, without any of the API routes.
func middlewareOnlyApp(t *testing.T, origins string) *fiber.App {
	t.Helper()
	srv := &Server{config: &config.Config{AllowedOrigins: origins}}

	app := fiber.New()
	srv.SetupMiddleware(app)
	app.All("/limited", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func sendFromOrigin(t *testing.T, app *fiber.App, method string, header http.Header) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, "/limited", nil)
	req.Header.Set("Origin", testOrigin)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// exhaustGlobalLimiter spends the whole per-IP budget of the global limiter.
func exhaustGlobalLimiter(t *testing.T, app *fiber.App, method string) {
	t.Helper()
	for i := 0; i < 100; i++ {
		resp := sendFromOrigin(t, app, method, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, "request %d", i)
	}
}

func TestSetupMiddleware_RateLimitedResponseIncludesCORSHeaders(t *testing.T) {
	app := middlewareOnlyApp(t, testOrigin)
	exhaustGlobalLimiter(t, app, http.MethodGet)

	resp := sendFromOrigin(t, app, http.MethodGet, nil)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, testOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestSetupMiddleware_PreflightBypassesLimiter(t *testing.T) {
	app := middlewareOnlyApp(t, testOrigin)
	exhaustGlobalLimiter(t, app, http.MethodPost)

	resp := sendFromOrigin(t, app, http.MethodPost, nil)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	preflight := sendFromOrigin(t, app, http.MethodOptions, http.Header{
		"Access-Control-Request-Method":  {http.MethodPost},
		"Access-Control-Request-Headers": {"authorization,content-type"},
	})
	assert.Equal(t, fiber.StatusNoContent, preflight.StatusCode)
	assert.Equal(t, testOrigin, preflight.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, preflight.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestSetupMiddleware_DefaultOriginsAllowLocalDev(t *testing.T) {
	app := middlewareOnlyApp(t, "")

	resp := sendFromOrigin(t, app, http.MethodGet, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, testOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestSetupMiddleware_UnknownOriginGetsNoCORSHeader(t *testing.T) {
	app := middlewareOnlyApp(t, "https://microblog.example")

	resp := sendFromOrigin(t, app, http.MethodGet, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
