// Package logging builds the slog logger shared by winsessiond and winsession.
//
// Records go to a console handler and, unless disabled, to a file handler.
// Each sink filters by its own level. The file sink is either one file per
// session (session_<timestamp>.log) or a numbered series (app_N.log) that
// rolls over once a file reaches the configured size.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmylchreest/winsession/internal/config"
)

// WindowKey is the attribute naming the window a record originates from.
const WindowKey = "window"

// Options configures Setup.
type Options struct {
	ConsoleLevel string
	FileLevel    string
	Mode         config.LogMode
	Dir          string
	MaxFileSize  int64
	Console      io.Writer // Defaults to os.Stderr
	Now          func() time.Time
}

// OptionsFromConfig maps the [logging] section onto Options.
func OptionsFromConfig(cfg *config.DaemonConfig) Options {
	return Options{
		ConsoleLevel: cfg.Logging.ConsoleLevel,
		FileLevel:    cfg.Logging.FileLevel,
		Mode:         config.LogMode(cfg.Logging.Mode),
		Dir:          cfg.LogDir(),
		MaxFileSize:  cfg.Logging.MaxFileSize,
	}
}

// Setup returns a logger writing to the console and the configured file sink.
// The returned closer releases the log file and must be called on exit.
func Setup(opts Options) (*slog.Logger, io.Closer, error) {
	if opts.Console == nil {
		opts.Console = os.Stderr
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	consoleLevel, err := config.ParseLevel(opts.ConsoleLevel)
	if err != nil {
		return nil, nil, err
	}
	handlers := []slog.Handler{
		slog.NewTextHandler(opts.Console, &slog.HandlerOptions{Level: consoleLevel}),
	}

	var closer io.Closer = nopCloser{}
	if opts.Mode != config.LogModeOff && opts.Mode != "" {
		fileLevel, err := config.ParseLevel(opts.FileLevel)
		if err != nil {
			return nil, nil, err
		}
		if err := os.MkdirAll(opts.Dir, 0700); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		var w io.WriteCloser
		switch opts.Mode {
		case config.LogModeSession:
			w, err = openAppend(SessionFileName(opts.Dir, opts.Now()))
		case config.LogModeUnified:
			w, err = newRollingFile(opts.Dir, opts.MaxFileSize)
		default:
			err = fmt.Errorf("unknown log mode %q", opts.Mode)
		}
		if err != nil {
			return nil, nil, err
		}
		closer = w
		handlers = append(handlers, slog.NewTextHandler(w, &slog.HandlerOptions{Level: fileLevel}))
	}

	return slog.New(newTeeHandler(handlers...)), closer, nil
}

// ForWindow returns a logger tagging every record with the window label.
func ForWindow(logger *slog.Logger, label string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(WindowKey, label)
}

// SessionFileName returns the per-session log file path for t.
func SessionFileName(dir string, t time.Time) string {
	return filepath.Join(dir, "session_"+t.Format("2006-01-02_15-04-05")+".log")
}

// UnifiedFileName returns the n-th numbered log file path.
func UnifiedFileName(dir string, n int) string {
	return filepath.Join(dir, fmt.Sprintf("app_%d.log", n))
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// teeHandler forwards each record to every handler that accepts its level.
type teeHandler struct {
	handlers []slog.Handler
}

func newTeeHandler(handlers ...slog.Handler) *teeHandler {
	return &teeHandler{handlers: handlers}
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &teeHandler{handlers: next}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithGroup(name)
	}
	return &teeHandler{handlers: next}
}
