// Package observability holds the tracing, metrics and audit logging shared
// by the repositories, the feed hub and the HTTP middleware.
package observability

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

var auditLogger atomic.Pointer[slog.Logger]

func init() {
	SetLogger(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

// SetLogger replaces the sink for table and feed audit records.
func SetLogger(l *slog.Logger) {
	auditLogger.Store(l)
}

func audit() *slog.Logger {
	return auditLogger.Load()
}

// Audit toggles, both on by default.
var (
	AuditTables atomic.Bool
	AuditFeed   atomic.Bool
)

func init() {
	AuditTables.Store(true)
	AuditFeed.Store(true)
}

// TableLog records writes against one table.
type TableLog struct {
	table string
}

func NewTableLog(table string) *TableLog {
	return &TableLog{table: table}
}

// Wrote records a successful insert, update or delete.
func (l *TableLog) Wrote(ctx context.Context, op string, attrs ...slog.Attr) {
	if !AuditTables.Load() {
		return
	}
	attrs = append([]slog.Attr{slog.String("table", l.table), slog.String("op", op)}, attrs...)
	audit().LogAttrs(ctx, slog.LevelInfo, l.table+" "+op, attrs...)
}

func (l *TableLog) Failed(ctx context.Context, op string, err error) {
	if !AuditTables.Load() || err == nil {
		return
	}
	audit().LogAttrs(ctx, slog.LevelError, l.table+" "+op+" failed",
		slog.String("table", l.table),
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
}

// FeedLog records live feed connections for one hub.
type FeedLog struct {
	hub string
}

func NewFeedLog(hub string) *FeedLog {
	return &FeedLog{hub: hub}
}

func (l *FeedLog) Connected(ctx context.Context, userID uint) {
	l.emit(ctx, slog.LevelInfo, "feed connected", slog.Uint64("user_id", uint64(userID)))
}

func (l *FeedLog) Disconnected(ctx context.Context, userID uint, reason string) {
	l.emit(ctx, slog.LevelInfo, "feed disconnected",
		slog.Uint64("user_id", uint64(userID)),
		slog.String("reason", reason),
	)
}

// Failed records an error on one user's connection. userID 0 means the hub itself.
func (l *FeedLog) Failed(ctx context.Context, userID uint, op string, err error) {
	if err == nil {
		return
	}
	l.emit(ctx, slog.LevelError, "feed error",
		slog.Uint64("user_id", uint64(userID)),
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
}

// Event records a hub lifecycle change such as subscribe or shutdown.
func (l *FeedLog) Event(ctx context.Context, event string, attrs ...slog.Attr) {
	l.emit(ctx, slog.LevelInfo, "feed "+event, attrs...)
}

func (l *FeedLog) emit(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	if !AuditFeed.Load() {
		return
	}
	audit().LogAttrs(ctx, level, msg, append([]slog.Attr{slog.String("hub", l.hub)}, attrs...)...)
}
