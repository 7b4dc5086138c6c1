package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

var loginQuota = Quota{Name: "login", Limit: 3, Window: time.Minute}

func TestQuotasEnforced(t *testing.T) {
	tests := map[string]bool{
		"":            false,
		"test":        false,
		"development": false,
		" Stress ":    false,
		"production":  true,
		"staging":     true,
	}
	for env, want := range tests {
		t.Run("env="+env, func(t *testing.T) {
			assert.Equal(t, want, QuotasEnforced(env))
		})
	}
}

func TestQuotaAllow_NoRedis(t *testing.T) {
	allowed, err := loginQuota.Allow(context.Background(), nil, "ip:1.2.3.4")
	assert.ErrorIs(t, err, ErrNoRedis)
	assert.False(t, allowed)
}

func TestQuotaAllow_FixedWindow(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()

	for i := 0; i < loginQuota.Limit; i++ {
		allowed, err := loginQuota.Allow(ctx, rdb, "ip:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i+1)
	}
	allowed, err := loginQuota.Allow(ctx, rdb, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, time.Minute, mr.TTL("rl:login:ip:1.2.3.4"))

	allowed, err = loginQuota.Allow(ctx, rdb, "ip:5.6.7.8")
	require.NoError(t, err)
	assert.True(t, allowed, "callers are counted separately")

	mr.FastForward(loginQuota.Window + time.Second)
	allowed, err = loginQuota.Allow(ctx, rdb, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, allowed, "window reopens after expiry")
}

func TestRateLimit(t *testing.T) {
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	hit := func(t *testing.T, app *fiber.App, method string) *http.Response {
		t.Helper()
		resp, err := app.Test(httptest.NewRequest(method, "/limited", nil))
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	t.Run("disabled in test env", func(t *testing.T) {
		app := fiber.New()
		app.Get("/limited", RateLimit(nil, Quota{Name: "x", Limit: 1, Window: time.Minute}, "test"), ok)
		for i := 0; i < 3; i++ {
			assert.Equal(t, http.StatusOK, hit(t, app, http.MethodGet).StatusCode)
		}
	})

	t.Run("configured env wins over APP_ENV", func(t *testing.T) {
		t.Setenv("APP_ENV", "development")
		_, rdb := newTestRedis(t)
		app := fiber.New()
		app.Get("/limited", RateLimit(rdb, Quota{Name: "x", Limit: 1, Window: time.Minute}, "production"), ok)
		assert.Equal(t, http.StatusOK, hit(t, app, http.MethodGet).StatusCode)
		assert.Equal(t, http.StatusTooManyRequests, hit(t, app, http.MethodGet).StatusCode)
	})

	t.Run("fails open without redis", func(t *testing.T) {
		app := fiber.New()
		app.Get("/limited", RateLimit(nil, Quota{Name: "x", Limit: 1, Window: time.Minute}, "production"), ok)
		assert.Equal(t, http.StatusOK, hit(t, app, http.MethodGet).StatusCode)
	})

	t.Run("fails closed when asked", func(t *testing.T) {
		app := fiber.New()
		app.Get("/limited", RateLimit(nil, Quota{Name: "x", Limit: 1, Window: time.Minute, FailClosed: true}, "production"), ok)
		assert.Equal(t, http.StatusServiceUnavailable, hit(t, app, http.MethodGet).StatusCode)
	})

	t.Run("429 with Retry-After once spent", func(t *testing.T) {
		_, rdb := newTestRedis(t)
		app := fiber.New()
		app.Post("/limited", RateLimit(rdb, Quota{Name: "create_post", Limit: 2, Window: time.Minute}, "production"), ok)

		var statuses []int
		for i := 0; i < 3; i++ {
			statuses = append(statuses, hit(t, app, http.MethodPost).StatusCode)
		}
		assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)

		resp := hit(t, app, http.MethodPost)
		assert.Equal(t, "60", resp.Header.Get(fiber.HeaderRetryAfter))
	})
}
