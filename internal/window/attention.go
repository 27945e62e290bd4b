package window

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmylchreest/winsession/internal/config"
	"github.com/jmylchreest/winsession/internal/host"
)

// Beeper plays the system attention sound.
type Beeper interface {
	Beep()
}

type nopBeeper struct{}

func (nopBeeper) Beep() {}

// ShakeOptions controls the attention shake.
type ShakeOptions struct {
	Offset float64       // physical pixels
	Steps  int           // moves before restoring
	Delay  time.Duration // pause after each move
	Logger *slog.Logger
}

// DefaultShakeOptions returns 6 moves of 10px, 30ms apart.
func DefaultShakeOptions() ShakeOptions {
	return ShakeOptions{
		Offset: 10,
		Steps:  6,
		Delay:  30 * time.Millisecond,
	}
}

// ShakeOptionsFromConfig builds ShakeOptions from the [attention] section.
func ShakeOptionsFromConfig(cfg config.AttentionConfig, logger *slog.Logger) ShakeOptions {
	opts := DefaultShakeOptions()
	if cfg.Offset > 0 {
		opts.Offset = cfg.Offset
	}
	if cfg.Steps > 0 {
		opts.Steps = cfg.Steps
	}
	if cfg.StepDelay > 0 {
		opts.Delay = cfg.StepDelay.Duration()
	}
	opts.Logger = logger
	return opts
}

// Shake moves w left and right around its current position and puts it
// back exactly where it started. Failures are logged and swallowed; a
// cancelled ctx cuts the sequence short but still restores the position.
func Shake(ctx context.Context, w host.Window, opts ShakeOptions) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("window", w.Label())

	pos, err := w.OuterPosition()
	if err != nil {
		logger.Debug("shake skipped", "error", err)
		return
	}
	scale, err := w.ScaleFactor()
	if err != nil || scale <= 0 {
		scale = 1
	}

	x0 := float64(pos.X)
	y := float64(pos.Y) / scale

	for i := 0; i < opts.Steps; i++ {
		offset := opts.Offset
		if i%2 == 1 {
			offset = -offset
		}
		if err := w.SetPosition((x0+offset)/scale, y); err != nil {
			logger.Debug("shake aborted", "step", i, "error", err)
			return
		}
		if !sleep(ctx, opts.Delay) {
			break
		}
	}

	if err := w.SetPosition(x0/scale, y); err != nil {
		logger.Debug("failed to restore position after shake", "error", err)
	}
}

// sleep waits for d or until ctx is done. Returns false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
