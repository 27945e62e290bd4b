package hosttest

import (
	"math"
	"slices"
	"sync"

	"github.com/jmylchreest/winsession/internal/host"
)

var _ host.Window = (*Window)(nil)

// Window is an in-memory host.Window that records what was done to it.
type Window struct {
	runtime *Runtime
	label   string

	mu          sync.Mutex
	cfg         host.WindowConfig
	pos         host.Position
	size        host.Size
	scale       float64
	maximized   bool
	minimized   bool
	visible     bool
	destroyed   bool
	focusCount  int
	xs          []int
	handlers    map[string]map[int]func(host.Event)
	nextID      int
	onDestroyed func()
	opErr       error
}

func newWindow(r *Runtime, label string, cfg host.WindowConfig) *Window {
	w := &Window{
		runtime:  r,
		label:    label,
		cfg:      cfg,
		scale:    1,
		size:     host.Size{Width: int(cfg.Width), Height: int(cfg.Height)},
		visible:  cfg.Visible,
		handlers: make(map[string]map[int]func(host.Event)),
	}
	if cfg.X != nil && cfg.Y != nil {
		w.pos = host.Position{X: int(math.Round(*cfg.X)), Y: int(math.Round(*cfg.Y))}
	}
	return w
}

// Label implements host.Window.
func (w *Window) Label() string { return w.label }

// Config returns the configuration the window was created with.
func (w *Window) Config() host.WindowConfig {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg
}

// SetScale sets the scale factor.
func (w *Window) SetScale(scale float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.scale = scale
}

// SetMinimized sets the minimized flag without emitting events.
func (w *Window) SetMinimized(minimized bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.minimized = minimized
}

// SetMaximized sets the maximized flag without emitting events.
func (w *Window) SetMaximized(maximized bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.maximized = maximized
}

// FailOps makes every subsequent geometry or focus operation return err.
func (w *Window) FailOps(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.opErr = err
}

// Visible reports whether Show was called.
func (w *Window) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

// Destroyed reports whether Destroy was called.
func (w *Window) Destroyed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destroyed
}

// FocusCount returns how many times SetFocus succeeded.
func (w *Window) FocusCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.focusCount
}

// XHistory returns every physical x the window was moved to, in order.
func (w *Window) XHistory() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.xs)
}

// Listeners returns the number of handlers subscribed to event.
func (w *Window) Listeners(event string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.handlers[event])
}

// Emit delivers ev to the handlers subscribed to ev.Name.
func (w *Window) Emit(ev host.Event) {
	w.mu.Lock()
	hs := make([]func(host.Event), 0, len(w.handlers[ev.Name]))
	ids := make([]int, 0, len(w.handlers[ev.Name]))
	for id := range w.handlers[ev.Name] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		hs = append(hs, w.handlers[ev.Name][id])
	}
	w.mu.Unlock()

	for _, h := range hs {
		h(ev)
	}
}

// RequestClose emits close-requested.
func (w *Window) RequestClose() {
	w.Emit(host.Event{Name: host.EventCloseRequested})
}

// Focus emits focus-changed.
func (w *Window) Focus(focused bool) {
	w.Emit(host.Event{Name: host.EventFocusChanged, Focused: focused})
}

func (w *Window) check() error {
	if w.destroyed {
		return host.ErrWindowDestroyed
	}
	return w.opErr
}

// OuterPosition implements host.Window.
func (w *Window) OuterPosition() (host.Position, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.check(); err != nil {
		return host.Position{}, err
	}
	return w.pos, nil
}

// SetPosition implements host.Window.
func (w *Window) SetPosition(x, y float64) error {
	w.mu.Lock()
	if err := w.check(); err != nil {
		w.mu.Unlock()
		return err
	}
	w.pos = host.Position{X: int(math.Round(x * w.scale)), Y: int(math.Round(y * w.scale))}
	w.xs = append(w.xs, w.pos.X)
	w.mu.Unlock()

	w.Emit(host.Event{Name: host.EventMoved})
	return nil
}

// InnerSize implements host.Window.
func (w *Window) InnerSize() (host.Size, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.check(); err != nil {
		return host.Size{}, err
	}
	return w.size, nil
}

// SetSize implements host.Window.
func (w *Window) SetSize(width, height float64) error {
	w.mu.Lock()
	if err := w.check(); err != nil {
		w.mu.Unlock()
		return err
	}
	w.size = host.Size{Width: int(math.Round(width * w.scale)), Height: int(math.Round(height * w.scale))}
	w.mu.Unlock()

	w.Emit(host.Event{Name: host.EventResized})
	return nil
}

// ScaleFactor implements host.Window.
func (w *Window) ScaleFactor() (float64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.check(); err != nil {
		return 0, err
	}
	return w.scale, nil
}

// IsMaximized implements host.Window.
func (w *Window) IsMaximized() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.check(); err != nil {
		return false, err
	}
	return w.maximized, nil
}

// IsMinimized implements host.Window.
func (w *Window) IsMinimized() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.check(); err != nil {
		return false, err
	}
	return w.minimized, nil
}

// Maximize implements host.Window.
func (w *Window) Maximize() error {
	w.mu.Lock()
	if err := w.check(); err != nil {
		w.mu.Unlock()
		return err
	}
	w.maximized = true
	w.mu.Unlock()

	w.Emit(host.Event{Name: host.EventResized})
	return nil
}

// Show implements host.Window.
func (w *Window) Show() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.check(); err != nil {
		return err
	}
	w.visible = true
	return nil
}

// SetFocus implements host.Window.
func (w *Window) SetFocus() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.check(); err != nil {
		return err
	}
	w.focusCount++
	return nil
}

// Destroy implements host.Window. OnDestroyed fires after the window is
// removed from the runtime.
func (w *Window) Destroy() error {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return host.ErrWindowDestroyed
	}
	w.destroyed = true
	w.visible = false
	onDestroyed := w.onDestroyed
	w.handlers = make(map[string]map[int]func(host.Event))
	w.mu.Unlock()

	w.runtime.remove(w.label)
	if onDestroyed != nil {
		onDestroyed()
	}
	return nil
}

// On implements host.Window.
func (w *Window) On(event string, handler func(host.Event)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextID
	w.nextID++
	if w.handlers[event] == nil {
		w.handlers[event] = make(map[int]func(host.Event))
	}
	w.handlers[event][id] = handler

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.handlers[event], id)
	}
}
