// Package logging builds the slog loggers used across pathranger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LevelSilent is above every standard level and suppresses all output.
const LevelSilent = slog.Level(100)

// New creates a text logger writing to w at the given level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewFile creates a logger appending to the file at path, creating its
// directory if needed. The caller closes the returned file.
func NewFile(path string, level slog.Level) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}
	return New(f, level), f, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return New(io.Discard, LevelSilent)
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// LevelFromString converts debug, info, warn, error or silent (case-insensitive)
// to a slog.Level. Unknown strings map to warn.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "silent", "off", "none":
		return LevelSilent
	default:
		return slog.LevelWarn
	}
}

// LevelFromVerbosity lowers base by one step per -v flag: warn, info, debug.
func LevelFromVerbosity(base slog.Level, verbosity int) slog.Level {
	switch {
	case verbosity <= 0:
		return base
	case verbosity == 1:
		return min(base, slog.LevelInfo)
	default:
		return slog.LevelDebug
	}
}
