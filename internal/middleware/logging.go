package middleware

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/trace"
)

// Logger is the process-wide structured logger. Records logged with a
// request context carry request_id, user_id and trace_id automatically.
var Logger = NewLogger(os.Getenv("APP_ENV"), os.Stdout)

type requestIDKey struct{}
type userIDKey struct{}

// WithRequestID returns ctx tagged with the request id for log records.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// WithUserID returns ctx tagged with the authenticated user id.
func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the id set by WithUserID.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(userIDKey{}).(uint)
	return id, ok
}

// requestAttrs copies request-scoped values from ctx onto every record.
type requestAttrs struct {
	slog.Handler
}

func (h requestAttrs) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		r.AddAttrs(slog.String("request_id", id))
	}
	if id, ok := UserIDFromContext(ctx); ok {
		r.AddAttrs(slog.Uint64("user_id", uint64(id)))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", sc.TraceID().String()))
	}
	return h.Handler.Handle(ctx, r)
}

func (h requestAttrs) WithAttrs(attrs []slog.Attr) slog.Handler {
	return requestAttrs{h.Handler.WithAttrs(attrs)}
}

func (h requestAttrs) WithGroup(name string) slog.Handler {
	return requestAttrs{h.Handler.WithGroup(name)}
}

// NewLogger writes JSON in production and logfmt-style text elsewhere.
func NewLogger(env string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if env := strings.ToLower(strings.TrimSpace(env)); env == "production" || env == "prod" {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(requestAttrs{h})
}

// ContextMiddleware moves the request id from Fiber locals into the request
// context. The auth middleware adds the user id once the caller is known.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			c.SetUserContext(WithRequestID(c.UserContext(), rid))
		}
		return c.Next()
	}
}

// StructuredLogger logs one record per request once the handler chain returns.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		attrs := []slog.Attr{
			slog.Int("status", status),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
			slog.String("user_agent", c.Get(fiber.HeaderUserAgent)),
		}

		level, msg := slog.LevelInfo, "request processed"
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		if err != nil || status >= fiber.StatusInternalServerError {
			level, msg = slog.LevelError, "request failed"
		}
		Logger.LogAttrs(c.UserContext(), level, msg, attrs...)
		return err
	}
}
