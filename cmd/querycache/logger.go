package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/bool64/ctxd"
	"github.com/spf13/cobra"
)

// slogLogger exposes slog.Logger as ctxd.Logger.
type slogLogger struct {
	l *slog.Logger
}

var _ ctxd.Logger = slogLogger{}

func (s slogLogger) Debug(ctx context.Context, msg string, keysAndValues ...interface{}) {
	s.l.DebugContext(ctx, msg, keysAndValues...)
}

func (s slogLogger) Info(ctx context.Context, msg string, keysAndValues ...interface{}) {
	s.l.InfoContext(ctx, msg, keysAndValues...)
}

// Important uses a level between warn and error.
func (s slogLogger) Important(ctx context.Context, msg string, keysAndValues ...interface{}) {
	s.l.Log(ctx, slog.LevelWarn+1, msg, keysAndValues...)
}

func (s slogLogger) Warn(ctx context.Context, msg string, keysAndValues ...interface{}) {
	s.l.WarnContext(ctx, msg, keysAndValues...)
}

func (s slogLogger) Error(ctx context.Context, msg string, keysAndValues ...interface{}) {
	s.l.ErrorContext(ctx, msg, keysAndValues...)
}

func levelName(cmd *cobra.Command) string {
	switch level := flagOrEnv(cmd, "log-level", "QUERYCACHE_LOG_LEVEL", "info"); level {
	case "debug", "DEBUG":
		return "debug"
	case "warn", "WARN":
		return "warn"
	case "error", "ERROR":
		return "error"
	default:
		return "info"
	}
}

func newLogger(cmd *cobra.Command) ctxd.Logger {
	var level slog.Level

	switch levelName(cmd) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slogLogger{l: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}
