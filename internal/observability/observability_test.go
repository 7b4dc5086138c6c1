package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.NotNil(t, Tracer)
}

func TestStartRepoSpan_RecordsErrors(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := Tracer
	Tracer = tp.Tracer("test")
	t.Cleanup(func() { Tracer = prev })

	ctx, span := StartRepoSpan(context.Background(), "PostRepository", "Create")
	RecordError(ctx, errors.New("insert failed"))
	RecordError(ctx, nil)
	span.End()

	ended := sr.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "PostRepository.Create", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), samplerFor(1.5).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), samplerFor(0).Description())
	assert.Contains(t, samplerFor(0.25).Description(), "ParentBased")
}

func TestTableLog(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() {
		SetLogger(slog.Default())
		AuditTables.Store(true)
	})

	l := NewTableLog("posts")
	l.Wrote(context.Background(), "create", slog.Uint64("post_id", 7))

	out := buf.String()
	assert.Contains(t, out, `msg="posts create"`)
	assert.Contains(t, out, "table=posts")
	assert.Contains(t, out, "post_id=7")

	buf.Reset()
	l.Failed(context.Background(), "delete", nil)
	assert.Empty(t, buf.String(), "nil errors are not logged")

	AuditTables.Store(false)
	l.Wrote(context.Background(), "delete")
	assert.Empty(t, buf.String())
}

func TestFeedLog(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { SetLogger(slog.Default()) })

	l := NewFeedLog("feed")
	l.Disconnected(context.Background(), 3, "going away")
	l.Failed(context.Background(), 3, "write", errors.New("broken pipe"))

	out := buf.String()
	assert.Contains(t, out, "hub=feed")
	assert.Contains(t, out, "user_id=3")
	assert.Contains(t, out, `reason="going away"`)
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, `error="broken pipe"`)
}
