// Package log provides structured logging for go-safedrive.
// It wraps slog with sensible defaults for in-car use.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileName is the log file written inside Options.Dir.
const FileName = "safedrive.log"

// Options configures the global logger.
type Options struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "text" or "json"; GO_ENV=production forces json
	Dir    string `yaml:"dir"`    // optional directory for FileName
}

var (
	logger *slog.Logger
	file   *os.File
	mu     sync.Mutex
)

// ParseLevel maps a level name to a slog.Level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init initializes the global logger. Calling it again replaces the logger
// and closes any previously opened log file.
func Init(opts Options) error {
	var w io.Writer = os.Stdout

	var f *os.File
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		var err error
		f, err = os.OpenFile(filepath.Join(opts.Dir, FileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, f)
	}

	l := New(w, opts)

	mu.Lock()
	if file != nil {
		file.Close()
	}
	file = f
	logger = l
	mu.Unlock()

	slog.SetDefault(l)
	return nil
}

// New builds a logger writing to w without touching the global state.
func New(w io.Writer, opts Options) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	// Use JSON in production, text in development
	if opts.Format == "json" || os.Getenv("GO_ENV") == "production" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

// Close flushes and closes the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

// L returns the global logger instance.
func L() *slog.Logger {
	mu.Lock()
	l := logger
	mu.Unlock()
	if l == nil {
		return slog.Default()
	}
	return l
}

// With returns the global logger with the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}
