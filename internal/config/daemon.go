package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "50ms", "1s", "1m30s", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '50ms', '1s', '1m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Milliseconds returns the duration in milliseconds.
func (d Duration) Milliseconds() int {
	return int(time.Duration(d).Milliseconds())
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DaemonConfig is the configuration for winsessiond and the winsession CLI.
// Loaded from ~/.config/winsession/winsession.toml
type DaemonConfig struct {
	Store     StoreConfig     `toml:"store"`
	Session   SessionConfig   `toml:"session"`
	Bus       BusConfig       `toml:"bus"`
	Windows   WindowsConfig   `toml:"windows"`
	Attention AttentionConfig `toml:"attention"`
	Display   DisplayConfig   `toml:"display"`
	Logging   LoggingConfig   `toml:"logging"`
}

// StoreConfig contains layout persistence settings.
type StoreConfig struct {
	Path     string   `toml:"path"`     // Empty = $XDG_DATA_HOME/winsession/window-state.json
	Debounce Duration `toml:"debounce"` // Quiet period before a save hits disk
}

// SessionConfig contains session selection settings.
type SessionConfig struct {
	Workspace string `toml:"workspace"`
}

// BusKind selects the cross-process transport.
type BusKind string

const (
	BusKindDBus   BusKind = "dbus"
	BusKindMemory BusKind = "memory"
)

// ValidBusKinds returns all valid bus kinds.
func ValidBusKinds() []BusKind {
	return []BusKind{BusKindDBus, BusKindMemory}
}

// BusConfig contains transport settings.
type BusConfig struct {
	Kind  string `toml:"kind"`  // "dbus" or "memory"
	Queue int    `toml:"queue"` // Per-subscriber buffer for the memory bus
}

// WindowsConfig contains the built-in defaults for each window type.
type WindowsConfig struct {
	Main  WindowDefaults `toml:"main"`
	Aux   WindowDefaults `toml:"aux"`
	Child WindowDefaults `toml:"child"`
}

// WindowDefaults is the lowest-priority source of window creation options.
type WindowDefaults struct {
	Title       string  `toml:"title"`
	Width       float64 `toml:"width"`
	Height      float64 `toml:"height"`
	Resizable   bool    `toml:"resizable"`
	Decorations bool    `toml:"decorations"`
	Minimizable bool    `toml:"minimizable"`
	SkipTaskbar bool    `toml:"skip_taskbar"`
	Center      bool    `toml:"center"`
}

// AttentionConfig contains the modal nudge settings.
type AttentionConfig struct {
	Offset    float64  `toml:"offset"`     // Horizontal shake distance in pixels
	Steps     int      `toml:"steps"`      // Number of shake moves before restoring
	StepDelay Duration `toml:"step_delay"` // Delay between moves
	Settle    Duration `toml:"settle"`     // Wait after owner focus before reclaiming
	Grace     Duration `toml:"grace"`      // Reclaim suppression after a child closes
	Beep      bool     `toml:"beep"`
	Sound     string   `toml:"sound"`  // Sound file; empty = terminal bell
	Volume    int      `toml:"volume"` // 0-100
}

// DisplayConfig contains GTK display settings.
type DisplayConfig struct {
	LayerShell bool   `toml:"layer_shell"` // Position windows as layer surfaces when supported
	Stylesheet string `toml:"stylesheet"`  // Extra CSS; empty = $XDG_CONFIG_HOME/winsession/style.css
}

// LogMode selects the file sink strategy.
type LogMode string

const (
	LogModeSession LogMode = "session"
	LogModeUnified LogMode = "unified"
	LogModeOff     LogMode = "off"
)

// ValidLogModes returns all valid log modes.
func ValidLogModes() []LogMode {
	return []LogMode{LogModeSession, LogModeUnified, LogModeOff}
}

// LoggingConfig contains log sink settings.
type LoggingConfig struct {
	ConsoleLevel string `toml:"console_level"`
	FileLevel    string `toml:"file_level"`
	Mode         string `toml:"mode"`          // "session", "unified", or "off"
	Dir          string `toml:"dir"`           // Empty = $XDG_STATE_HOME/winsession/logs
	MaxFileSize  int64  `toml:"max_file_size"` // Bytes, unified mode only
}

// DefaultDaemonConfig returns the default configuration.
func DefaultDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		Store: StoreConfig{
			Debounce: Duration(time.Second),
		},
		Session: SessionConfig{
			Workspace: "default",
		},
		Bus: BusConfig{
			Kind:  string(BusKindDBus),
			Queue: 64,
		},
		Windows: WindowsConfig{
			Main: WindowDefaults{
				Title:       "winsession",
				Width:       1024,
				Height:      768,
				Resizable:   true,
				Decorations: true,
				Minimizable: true,
			},
			Aux: WindowDefaults{
				Title:       "Auxiliary Window",
				Width:       800,
				Height:      600,
				Resizable:   true,
				Decorations: true,
				Minimizable: true,
			},
			Child: WindowDefaults{
				Title:       "Child Window",
				Width:       600,
				Height:      400,
				Decorations: true,
				SkipTaskbar: true,
				Center:      true,
			},
		},
		Attention: AttentionConfig{
			Offset:    10,
			Steps:     6,
			StepDelay: Duration(30 * time.Millisecond),
			Settle:    Duration(50 * time.Millisecond),
			Grace:     Duration(200 * time.Millisecond),
			Beep:      true,
			Volume:    80,
		},
		Display: DisplayConfig{
			LayerShell: true,
		},
		Logging: LoggingConfig{
			ConsoleLevel: "info",
			FileLevel:    "debug",
			Mode:         string(LogModeSession),
			MaxFileSize:  10 * 1024 * 1024,
		},
	}
}

// DaemonConfigPath returns the path to the config file.
func DaemonConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "winsession", "winsession.toml"), nil
}

// LoadDaemonConfig loads the configuration from path, or from the default
// location if path is empty. A missing file yields the defaults.
func LoadDaemonConfig(path string) (*DaemonConfig, error) {
	if path == "" {
		p, err := DaemonConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultDaemonConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	config := DefaultDaemonConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveDaemonConfig writes the configuration to path atomically.
func SaveDaemonConfig(path string, config *DaemonConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *DaemonConfig) Validate() error {
	validBus := false
	for _, k := range ValidBusKinds() {
		if c.Bus.Kind == string(k) {
			validBus = true
			break
		}
	}
	if !validBus {
		return fmt.Errorf("invalid bus kind %q, must be one of: %v", c.Bus.Kind, ValidBusKinds())
	}
	if c.Bus.Queue < 1 {
		return fmt.Errorf("bus queue must be at least 1, got %d", c.Bus.Queue)
	}

	if c.Store.Debounce < 0 {
		return fmt.Errorf("store debounce cannot be negative")
	}

	for name, w := range map[string]WindowDefaults{"main": c.Windows.Main, "aux": c.Windows.Aux, "child": c.Windows.Child} {
		if w.Width <= 0 || w.Height <= 0 {
			return fmt.Errorf("windows.%s size must be positive, got %vx%v", name, w.Width, w.Height)
		}
	}

	if c.Attention.Steps < 0 || c.Attention.Steps > 50 {
		return fmt.Errorf("attention steps must be between 0 and 50, got %d", c.Attention.Steps)
	}
	if c.Attention.Offset < 0 {
		return fmt.Errorf("attention offset cannot be negative")
	}
	if c.Attention.Volume < 0 || c.Attention.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Attention.Volume)
	}

	validMode := false
	for _, m := range ValidLogModes() {
		if c.Logging.Mode == string(m) {
			validMode = true
			break
		}
	}
	if !validMode {
		return fmt.Errorf("invalid log mode %q, must be one of: %v", c.Logging.Mode, ValidLogModes())
	}
	for _, lvl := range []string{c.Logging.ConsoleLevel, c.Logging.FileLevel} {
		if _, err := ParseLevel(lvl); err != nil {
			return err
		}
	}
	if c.Logging.Mode == string(LogModeUnified) && c.Logging.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive in unified mode")
	}

	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug", "trace":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
}

// Workspace returns the configured workspace, falling back to "default".
func (c *DaemonConfig) Workspace() string {
	if c.Session.Workspace == "" {
		return "default"
	}
	return c.Session.Workspace
}

// LayoutPath returns the configured layout file path with ~ expanded.
// Empty means the store's default location.
func (c *DaemonConfig) LayoutPath() string {
	return expandPath(c.Store.Path)
}

// SoundPath returns the configured attention sound with ~ expanded.
func (c *DaemonConfig) SoundPath() string {
	return expandPath(c.Attention.Sound)
}

// StylesheetPath returns the user stylesheet path with ~ expanded.
func (c *DaemonConfig) StylesheetPath() string {
	if c.Display.Stylesheet != "" {
		return expandPath(c.Display.Stylesheet)
	}
	return filepath.Join(xdg.ConfigHome, "winsession", "style.css")
}

// LogDir returns the directory for log files: the configured dir, or
// winsession/logs under the XDG state home.
func (c *DaemonConfig) LogDir() string {
	if c.Logging.Dir != "" {
		return expandPath(c.Logging.Dir)
	}
	return filepath.Join(xdg.StateHome, "winsession", "logs")
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
