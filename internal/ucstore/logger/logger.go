package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// ContextHandler is a slog.Handler that copies the active trace and span ids
// from the context onto every record.
type ContextHandler struct {
	slog.Handler
}

// Handle adds tracing attributes before calling the wrapped handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	spanContext := trace.SpanContextFromContext(ctx)
	if spanContext.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", spanContext.TraceID().String()))
	}
	if spanContext.HasSpanID() {
		r.AddAttrs(slog.String("span_id", spanContext.SpanID().String()))
	}
	return h.Handler.Handle(ctx, r)
}

// WithAttrs keeps the wrapper when attributes are bound.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

// WithGroup keeps the wrapper when a group is opened.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(name)}
}

// New returns a JSON logger writing to w at the given level.
func New(w io.Writer, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(&ContextHandler{Handler: handler})
}

// Init installs the JSON logger on stderr as the slog default.
func Init(level string) {
	slog.SetDefault(New(os.Stderr, level))
}

// ParseLevel maps a textual level onto slog, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Audit records an administrative or payment action.
func Audit(ctx context.Context, action, entityType, entityID string, args ...any) {
	attrs := append([]any{
		slog.Bool("audit", true),
		slog.String("action", action),
		slog.String("entity_type", entityType),
		slog.String("entity_id", entityID),
	}, args...)
	slog.InfoContext(ctx, "audit", attrs...)
}

// Audit actions
const (
	ActionAdminLogin        = "admin.login"
	ActionAdminLoginFailed  = "admin.login_failed"
	ActionAdminLogout       = "admin.logout"
	ActionProductUpdate     = "product.update"
	ActionProductDelete     = "product.delete"
	ActionOrderCreate       = "order.create"
	ActionOrderStatusChange = "order.status_change"
	ActionCallbackRejected  = "payment.callback_rejected"
)
