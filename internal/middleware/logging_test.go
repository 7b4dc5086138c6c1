package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewLoggerAddsContextValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("production", &buf)

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	ctx = WithUserID(WithRequestID(ctx, "req-1"), 7)
	logger.With("component", "test").InfoContext(ctx, "hello")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "req-1", record["request_id"])
	assert.Equal(t, float64(7), record["user_id"])
	assert.Equal(t, span.SpanContext().TraceID().String(), record["trace_id"])
	assert.Equal(t, "test", record["component"])
}

func TestNewLoggerOmitsMissingContextValues(t *testing.T) {
	var buf bytes.Buffer
	NewLogger("prod", &buf).InfoContext(context.Background(), "bare")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.NotContains(t, record, "request_id")
	assert.NotContains(t, record, "user_id")
	assert.NotContains(t, record, "trace_id")
}

func TestNewLoggerTextOutsideProduction(t *testing.T) {
	var buf bytes.Buffer
	NewLogger("development", &buf).Info("hello")

	assert.Contains(t, buf.String(), "msg=hello")
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger
	Logger = NewLogger("production", &buf)
	t.Cleanup(func() { Logger = prev })

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "req-42")
		return c.Next()
	})
	app.Use(ContextMiddleware())
	app.Use(StructuredLogger())
	app.Get("/ok", func(c *fiber.Ctx) error {
		c.SetUserContext(WithUserID(c.UserContext(), 9))
		return c.SendString("ok")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "request processed", record["msg"])
	assert.Equal(t, float64(200), record["status"])
	assert.Equal(t, "/ok", record["path"])
	assert.Equal(t, "req-42", record["request_id"])
	assert.Equal(t, float64(9), record["user_id"], "user id set downstream still reaches the access log")
}
