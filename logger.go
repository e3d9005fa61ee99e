package mediacache

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with cache-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses a default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithURL adds a url field to the logger.
func (l *Logger) WithURL(url string) *Logger {
	return &Logger{
		Logger: l.Logger.With("url", url),
	}
}

// WithAssetID adds an asset_id field to the logger.
func (l *Logger) WithAssetID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("asset_id", id),
	}
}

// LogFetch logs an origin fetch.
func (l *Logger) LogFetch(ctx context.Context, url string, size int, duration time.Duration, err error) {
	if err != nil {
		l.WarnContext(ctx, "origin fetch failed, falling back to raw url",
			"url", url,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "origin fetch completed",
			"url", url,
			"size_bytes", size,
			"duration", duration,
		)
	}
}

// LogEviction logs an eviction pass.
func (l *Logger) LogEviction(ctx context.Context, evicted int, freedBytes int64) {
	l.DebugContext(ctx, "evicted least-recently-used entries",
		"evicted", evicted,
		"freed_bytes", freedBytes,
	)
}

// LogStore logs a tiered store, warning when a tier rejected the payload.
func (l *Logger) LogStore(ctx context.Context, id string, result StoreResult) {
	if result.FastTierOK && result.DurableTierOK {
		l.DebugContext(ctx, "payload stored in both tiers", "id", id)
		return
	}
	l.WarnContext(ctx, "payload stored degraded",
		"id", id,
		"fast_tier_ok", result.FastTierOK,
		"durable_tier_ok", result.DurableTierOK,
	)
}

// LogPreloadJob logs a settled preload job.
func (l *Logger) LogPreloadJob(ctx context.Context, job PreloadJob, duration time.Duration, err error) {
	if err != nil {
		l.WarnContext(ctx, "preload job failed",
			"job_id", job.ID,
			"priority", job.Priority.String(),
			"asset_id", job.AssetID,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "preload job completed",
			"job_id", job.ID,
			"priority", job.Priority.String(),
			"duration", duration,
		)
	}
}

// LogPreloadBatch logs a settled batch of same-priority preload jobs.
func (l *Logger) LogPreloadBatch(ctx context.Context, priority Priority, count, failed int) {
	if failed > 0 {
		l.WarnContext(ctx, "preload batch completed with failures",
			"priority", priority.String(),
			"total", count,
			"failed", failed,
		)
	} else {
		l.DebugContext(ctx, "preload batch completed",
			"priority", priority.String(),
			"count", count,
		)
	}
}
