package audio

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/jmylchreest/winsession/internal/config"
)

// bell is the terminal bell character.
const bell = "\a"

// Beeper plays the configured attention sound, falling back to the
// terminal bell.
type Beeper struct {
	logger *slog.Logger

	mu       sync.Mutex
	enabled  bool
	sound    string
	player   *Player
	bell     io.Writer
	loaded   bool // preload attempted for sound
	disabled bool // sound failed to load, use the bell until reconfigured
}

// NewBeeper creates a Beeper from the [attention] section.
func NewBeeper(cfg config.AttentionConfig, logger *slog.Logger) *Beeper {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Beeper{
		bell:   os.Stderr,
		logger: logger,
	}
	b.Configure(cfg)
	return b
}

// Configure applies a new [attention] section, e.g. after a config reload.
func (b *Beeper) Configure(cfg config.AttentionConfig) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.enabled = cfg.Beep
	if cfg.Sound != b.sound {
		b.loaded = false
		b.disabled = false
	}
	b.sound = cfg.Sound
	if cfg.Sound == "" {
		return
	}
	if b.player == nil {
		b.player = NewPlayer(b.logger)
	}
	b.player.SetVolume(float64(cfg.Volume) / 100.0)
}

// SetBellWriter redirects the fallback bell.
func (b *Beeper) SetBellWriter(w io.Writer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bell = w
}

// Preload decodes the configured sound so the first beep plays promptly.
func (b *Beeper) Preload() {
	b.mu.Lock()
	if !b.enabled || b.sound == "" || b.loaded {
		b.mu.Unlock()
		return
	}
	b.loaded = true
	player, sound := b.player, b.sound
	b.mu.Unlock()

	if err := player.Preload(sound); err != nil {
		b.logger.Warn("attention sound unavailable, using terminal bell", "path", sound, "error", err)
		b.mu.Lock()
		if b.sound == sound {
			b.disabled = true
		}
		b.mu.Unlock()
	}
}

// Beep plays the attention sound once.
func (b *Beeper) Beep() {
	b.Preload()

	b.mu.Lock()
	if !b.enabled {
		b.mu.Unlock()
		return
	}
	useBell := b.sound == "" || b.disabled
	player, sound, out := b.player, b.sound, b.bell
	b.mu.Unlock()

	if !useBell {
		err := player.Play(sound)
		if err == nil {
			return
		}
		b.logger.Debug("attention sound failed", "error", err)
	}
	if _, err := io.WriteString(out, bell); err != nil {
		b.logger.Debug("failed to ring bell", "error", err)
	}
}

// Close releases the audio device.
func (b *Beeper) Close() {
	b.mu.Lock()
	player := b.player
	b.mu.Unlock()
	if player != nil {
		player.Close()
	}
}
