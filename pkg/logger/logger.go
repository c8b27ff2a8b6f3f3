// Package logger builds the slog loggers used by the binaries.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type options struct {
	writer     io.Writer
	file       string
	maxSizeMB  int
	maxAgeDays int
	maxBackups int
}

type Option func(*options)

// WithWriter replaces stdout as the primary sink.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.writer = w
	}
}

// WithRotatingFile mirrors every record into path, rotated by lumberjack once
// it grows past maxSizeMB and pruned after maxAgeDays.
func WithRotatingFile(path string, maxSizeMB, maxAgeDays int) Option {
	return func(o *options) {
		o.file = path
		o.maxSizeMB = maxSizeMB
		o.maxAgeDays = maxAgeDays
	}
}

// New returns a logger writing json or text records at the given level.
// Unknown levels fall back to info, unknown formats to json.
func New(level, format string, opts ...Option) *slog.Logger {
	o := &options{writer: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}

	w := o.writer
	if o.file != "" {
		if dir := filepath.Dir(o.file); dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		w = io.MultiWriter(o.writer, &lumberjack.Logger{
			Filename:   o.file,
			MaxSize:    o.maxSizeMB,
			MaxAge:     o.maxAgeDays,
			MaxBackups: o.maxBackups,
			Compress:   true,
		})
	}

	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text", "console":
		handler = slog.NewTextHandler(w, handlerOpts)
	default:
		handler = slog.NewJSONHandler(w, handlerOpts)
	}

	return slog.New(handler)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
