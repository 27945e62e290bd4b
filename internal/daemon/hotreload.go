package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmylchreest/winsession/internal/config"
	"github.com/jmylchreest/winsession/internal/store"
)

// ConfigChange lists what differs between two daemon configs.
type ConfigChange struct {
	Attention  bool // shake, reclaim and beep settings; applied live
	LayerShell bool // applied live to windows opened afterwards

	// Restart names the sections that only take effect on the next start.
	Restart []string
}

// Empty reports whether nothing changed.
func (c ConfigChange) Empty() bool {
	return !c.Attention && !c.LayerShell && len(c.Restart) == 0
}

// DiffConfig compares a running config with a reloaded one.
func DiffConfig(prev, next *config.DaemonConfig) ConfigChange {
	var c ConfigChange
	c.Attention = prev.Attention != next.Attention
	c.LayerShell = prev.Display.LayerShell != next.Display.LayerShell

	if prev.Workspace() != next.Workspace() {
		c.Restart = append(c.Restart, "session.workspace")
	}
	if prev.Store != next.Store {
		c.Restart = append(c.Restart, "store")
	}
	if prev.Bus != next.Bus {
		c.Restart = append(c.Restart, "bus")
	}
	if prev.Windows != next.Windows {
		c.Restart = append(c.Restart, "windows")
	}
	if prev.Display.Stylesheet != next.Display.Stylesheet {
		c.Restart = append(c.Restart, "display.stylesheet")
	}
	if prev.Logging != next.Logging {
		c.Restart = append(c.Restart, "logging")
	}
	return c
}

// ConfigWatcher reloads the daemon config when its file is written and
// reports what changed. An invalid file is reported and otherwise ignored;
// the last good config stays current.
type ConfigWatcher struct {
	path   string
	logger *slog.Logger

	mu       sync.Mutex
	current  *config.DaemonConfig
	watcher  *store.FileWatcher
	onReload func(cfg *config.DaemonConfig, change ConfigChange)
	onError  func(err error)
}

// NewConfigWatcher creates a ConfigWatcher for path, or for the default
// config location if path is empty.
func NewConfigWatcher(path string, logger *slog.Logger) (*ConfigWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		p, err := config.DaemonConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &ConfigWatcher{path: path, logger: logger}, nil
}

// SetReloadCallback sets the function called with each changed config.
func (w *ConfigWatcher) SetReloadCallback(fn func(cfg *config.DaemonConfig, change ConfigChange)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = fn
}

// SetErrorCallback sets the function called when a changed file fails to load.
func (w *ConfigWatcher) SetErrorCallback(fn func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = fn
}

// Current returns the last config that loaded cleanly.
func (w *ConfigWatcher) Current() *config.DaemonConfig {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Start watches the config file until Stop or ctx ends. The config
// directory is created if missing so the file can appear later.
func (w *ConfigWatcher) Start(ctx context.Context, initial *config.DaemonConfig) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	fw, err := store.NewFileWatcher(w.path, w.reload, w.logger)
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := fw.Start(); err != nil {
		_ = fw.Stop()
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}
	if initial == nil {
		initial = config.DefaultDaemonConfig()
	}
	w.current = initial
	w.watcher = fw

	go func() {
		<-ctx.Done()
		w.Stop()
	}()
	w.logger.Debug("config watcher started", "path", w.path)
	return nil
}

// Stop stops watching. It is safe to call more than once.
func (w *ConfigWatcher) Stop() {
	w.mu.Lock()
	fw := w.watcher
	w.mu.Unlock()
	if fw == nil {
		return
	}
	if err := fw.Stop(); err != nil {
		w.logger.Debug("failed to close config watcher", "error", err)
	}
}

// reload runs on every write event. Editors often write twice per save;
// the second load finds no change and is dropped.
func (w *ConfigWatcher) reload() {
	// A rename-over save briefly leaves no file; wait for its create event.
	if _, err := os.Stat(w.path); os.IsNotExist(err) {
		return
	}
	next, err := config.LoadDaemonConfig(w.path)

	w.mu.Lock()
	onReload, onError := w.onReload, w.onError
	if err != nil {
		w.mu.Unlock()
		w.logger.Warn("config file changed but failed to load", "path", w.path, "error", err)
		if onError != nil {
			onError(err)
		}
		return
	}
	change := DiffConfig(w.current, next)
	if change.Empty() {
		w.mu.Unlock()
		return
	}
	w.current = next
	w.mu.Unlock()

	w.logger.Info("config reloaded", "attention", change.Attention, "layer_shell", change.LayerShell, "restart", change.Restart)
	if onReload != nil {
		onReload(next, change)
	}
}
