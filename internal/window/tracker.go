package window

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/jmylchreest/winsession/internal/host"
	"github.com/jmylchreest/winsession/internal/model"
)

// PresetSender is the messenger subset the tracker uses.
type PresetSender interface {
	RegisterWindow(ctx context.Context, label, category string, windowType model.WindowType, url string) error
	UpdatePreset(ctx context.Context, category string, preset model.CategoryPreset) error
}

// Tracker follows window geometry and reports it as category presets.
type Tracker struct {
	sender PresetSender
	logger *slog.Logger

	mu      sync.Mutex
	tracked map[string]*trackedWindow
}

type trackedWindow struct {
	win      host.Window
	category string
	bounds   model.CategoryPreset // last non-maximized bounds
	known    bool
	unlisten []func()
}

// NewTracker creates a Tracker reporting through sender.
func NewTracker(sender PresetSender, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		sender:  sender,
		logger:  logger,
		tracked: make(map[string]*trackedWindow),
	}
}

// Track registers w and starts reporting its geometry under category.
// seed, if set, is used as the restore bounds while w is maximized and
// nothing better is known yet.
func (t *Tracker) Track(w host.Window, category string, windowType model.WindowType, url string, seed *model.CategoryPreset) {
	label := w.Label()
	t.Release(label)

	if err := t.sender.RegisterWindow(context.Background(), label, category, windowType, url); err != nil {
		t.logger.Warn("failed to register window", "window", label, "error", err)
	}

	tw := &trackedWindow{win: w, category: category}
	if seed != nil {
		tw.bounds = *seed
		tw.bounds.Maximized = false
		tw.known = true
	}

	capture := func(host.Event) { t.capture(label) }
	tw.unlisten = []func(){
		w.On(host.EventMoved, capture),
		w.On(host.EventResized, capture),
	}

	t.mu.Lock()
	t.tracked[label] = tw
	t.mu.Unlock()

	t.logger.Debug("tracking window", "window", label, "category", category)
	t.capture(label)
}

// Release stops tracking label. Releasing an untracked label is a no-op.
func (t *Tracker) Release(label string) {
	t.mu.Lock()
	tw, ok := t.tracked[label]
	delete(t.tracked, label)
	t.mu.Unlock()

	if !ok {
		return
	}
	for _, unlisten := range tw.unlisten {
		unlisten()
	}
}

// Tracked returns the tracked labels, sorted.
func (t *Tracker) Tracked() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	labels := make([]string, 0, len(t.tracked))
	for label := range t.tracked {
		labels = append(labels, label)
	}
	slices.Sort(labels)
	return labels
}

func (t *Tracker) capture(label string) {
	t.mu.Lock()
	tw, ok := t.tracked[label]
	if !ok {
		t.mu.Unlock()
		return
	}
	w, category := tw.win, tw.category
	bounds, known := tw.bounds, tw.known
	t.mu.Unlock()

	logger := t.logger.With("window", label)

	if minimized, err := w.IsMinimized(); err != nil {
		logger.Debug("geometry capture failed", "error", err)
		return
	} else if minimized {
		return
	}

	maximized, err := w.IsMaximized()
	if err != nil {
		logger.Debug("geometry capture failed", "error", err)
		return
	}

	var preset model.CategoryPreset
	if maximized && known {
		preset = bounds
	} else {
		current, err := logicalBounds(w)
		if err != nil {
			logger.Debug("geometry capture failed", "error", err)
			return
		}
		preset = current
		if !maximized {
			t.mu.Lock()
			if tw, ok := t.tracked[label]; ok {
				tw.bounds = current
				tw.known = true
			}
			t.mu.Unlock()
		}
	}
	preset.Maximized = maximized

	if err := t.sender.UpdatePreset(context.Background(), category, preset); err != nil {
		logger.Warn("failed to send preset", "category", category, "error", err)
	}
}

func logicalBounds(w host.Window) (model.CategoryPreset, error) {
	pos, err := w.OuterPosition()
	if err != nil {
		return model.CategoryPreset{}, err
	}
	size, err := w.InnerSize()
	if err != nil {
		return model.CategoryPreset{}, err
	}
	scale, err := w.ScaleFactor()
	if err != nil {
		return model.CategoryPreset{}, err
	}
	if scale <= 0 {
		scale = 1
	}
	return model.CategoryPreset{
		X:      round2(float64(pos.X) / scale),
		Y:      round2(float64(pos.Y) / scale),
		Width:  round2(float64(size.Width) / scale),
		Height: round2(float64(size.Height) / scale),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
