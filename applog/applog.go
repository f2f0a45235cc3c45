// Package applog builds the slog loggers used across the player and the
// server. Nothing here installs a global default; callers pass loggers
// down explicitly.
package applog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger construction.
//
// Format is "text" or "json". When File is set the output goes to a
// rotating file instead of Output.
type Options struct {
	Level     string
	Format    string
	AddSource bool
	File      string
	Output    io.Writer // defaults to os.Stderr
}

// New returns a logger and a close function for any file it opened.
func New(opts Options) (*slog.Logger, func() error) {
	w := opts.Output
	if w == nil {
		w = os.Stderr
	}
	closer := func() error { return nil }

	if strings.TrimSpace(opts.File) != "" {
		_ = os.MkdirAll(filepath.Dir(opts.File), 0o755)
		rot := &lj.Logger{Filename: opts.File, MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true}
		w = rot
		closer = rot.Close
	}

	hopts := &slog.HandlerOptions{Level: ParseLevel(opts.Level), AddSource: opts.AddSource}
	var h slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		h = slog.NewJSONHandler(w, hopts)
	} else {
		h = slog.NewTextHandler(w, hopts)
	}
	return slog.New(h).With(slog.String("app", "vnplayer")), closer
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

// WithComponent returns l with the component attribute pre-set.
func WithComponent(l *slog.Logger, name string) *slog.Logger {
	return l.With(slog.String("component", name))
}

// ParseLevel converts a level name to slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
