package display

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
)

//go:embed style.css
var defaultCSS string

// Stylesheet applies the built-in window CSS plus an optional user
// stylesheet, reloading the user file when it changes.
type Stylesheet struct {
	mu       sync.Mutex
	path     string
	modTime  time.Time
	provider *gtk.CSSProvider
	logger   *slog.Logger
}

// NewStylesheet creates a Stylesheet. path may be empty.
func NewStylesheet(path string, logger *slog.Logger) *Stylesheet {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stylesheet{path: path, logger: logger}
}

// Apply installs the stylesheet on the default display. It must run on the
// main loop, after the application has started.
func (s *Stylesheet) Apply() error {
	display := gdk.DisplayGetDefault()
	if display == nil {
		return ErrNoDisplay
	}

	css, modTime, err := composeCSS(s.path)
	if err != nil {
		s.logger.Warn("failed to read stylesheet, using built-in", "path", s.path, "error", err)
		css = defaultCSS
	}

	s.mu.Lock()
	s.provider = gtk.NewCSSProvider()
	s.provider.LoadFromString(css)
	s.modTime = modTime
	s.mu.Unlock()

	gtk.StyleContextAddProviderForDisplay(display, s.provider, gtk.STYLE_PROVIDER_PRIORITY_APPLICATION)
	s.logger.Debug("applied stylesheet", "path", s.path)
	return nil
}

// Watch polls the user stylesheet until ctx is done.
func (s *Stylesheet) Watch(ctx context.Context, interval time.Duration) {
	if s.path == "" {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reload()
		}
	}
}

func (s *Stylesheet) reload() {
	info, err := os.Stat(s.path)
	if err != nil {
		return
	}

	s.mu.Lock()
	unchanged := s.provider == nil || !info.ModTime().After(s.modTime)
	s.mu.Unlock()
	if unchanged {
		return
	}

	css, modTime, err := composeCSS(s.path)
	if err != nil {
		s.logger.Warn("failed to reload stylesheet", "path", s.path, "error", err)
		return
	}
	glib.IdleAdd(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.provider.LoadFromString(css)
		s.modTime = modTime
	})
	s.logger.Info("stylesheet changed, reloaded", "path", s.path)
}

// composeCSS returns the built-in CSS followed by the user stylesheet at
// path, and the user file's modification time.
func composeCSS(path string) (string, time.Time, error) {
	if path == "" {
		return defaultCSS, time.Time{}, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultCSS, time.Time{}, nil
		}
		return "", time.Time{}, fmt.Errorf("failed to stat stylesheet: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to read stylesheet: %w", err)
	}
	return defaultCSS + "\n" + string(data), info.ModTime(), nil
}
