package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// SlogFormatter is a chi LogFormatter writing access records through slog
type SlogFormatter struct {
	Logger *slog.Logger
}

// RequestLogger logs every request through slog. A nil logger uses slog.Default at request time.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return chiMiddleware.RequestLogger(&SlogFormatter{Logger: logger})
}

func (f *SlogFormatter) NewLogEntry(r *http.Request) chiMiddleware.LogEntry {
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &slogEntry{
		logger: logger.With(
			slog.String("request_id", chiMiddleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr),
		),
		ctx: r.Context(),
	}
}

type slogEntry struct {
	logger *slog.Logger
	ctx    context.Context
}

func (e *slogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	level := slog.LevelInfo
	switch {
	case status >= http.StatusInternalServerError:
		level = slog.LevelError
	case status >= http.StatusBadRequest:
		level = slog.LevelWarn
	}
	e.logger.LogAttrs(e.ctx, level, "http request",
		slog.Int("status", status),
		slog.Int("bytes", bytes),
		slog.Duration("elapsed", elapsed),
	)
}

func (e *slogEntry) Panic(v interface{}, stack []byte) {
	e.logger.ErrorContext(e.ctx, "panic recovered",
		slog.String("panic", fmt.Sprint(v)),
		slog.String("stack", string(stack)),
	)
}
