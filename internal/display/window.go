package display

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/winsession/internal/host"
)

var _ host.Window = (*Window)(nil)

// lockedClass is added to a window's content while it is locked.
const lockedClass = "winsession-locked"

// Window is a GTK window. Fields below win are owned by the main loop.
type Window struct {
	rt          *Runtime
	label       string
	onDestroyed func()
	events      *dispatcher
	gone        atomic.Bool

	win       *gtk.Window
	page      *adw.StatusPage
	layered   bool
	maximized bool
	locked    bool

	mu  sync.Mutex
	pos host.Position // logical
}

func newWindow(rt *Runtime, label string, onDestroyed func()) *Window {
	return &Window{
		rt:          rt,
		label:       label,
		onDestroyed: onDestroyed,
		events:      newDispatcher(),
	}
}

func newPage(cfg host.WindowConfig) *adw.StatusPage {
	page := adw.NewStatusPage()
	page.SetTitle(cfg.Title)
	page.SetDescription(cfg.URL)
	page.SetIconName("window-new-symbolic")
	return page
}

// Label implements host.Window.
func (w *Window) Label() string { return w.label }

// OuterPosition implements host.Window. GTK only knows the position of
// layer surfaces; other windows report the last requested position.
func (w *Window) OuterPosition() (host.Position, error) {
	scale, err := w.ScaleFactor()
	if err != nil {
		return host.Position{}, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return host.Position{
		X: int(math.Round(float64(w.pos.X) * scale)),
		Y: int(math.Round(float64(w.pos.Y) * scale)),
	}, nil
}

// SetPosition implements host.Window.
func (w *Window) SetPosition(x, y float64) error {
	err := w.call(func() error {
		if w.layered && !w.maximized {
			w.setMargins(x, y)
			return nil
		}
		w.mu.Lock()
		w.pos = host.Position{X: int(math.Round(x)), Y: int(math.Round(y))}
		w.mu.Unlock()
		if !w.layered {
			w.rt.logger.Debug("window cannot be positioned", "label", w.label)
		}
		return nil
	})
	if err != nil {
		return err
	}
	w.events.emit(host.Event{Name: host.EventMoved})
	return nil
}

// InnerSize implements host.Window.
func (w *Window) InnerSize() (host.Size, error) {
	var size host.Size
	err := w.call(func() error {
		width, height := w.win.Width(), w.win.Height()
		if width == 0 || height == 0 {
			width, height = w.win.DefaultSize()
		}
		scale := w.win.ScaleFactor()
		size = host.Size{Width: width * scale, Height: height * scale}
		return nil
	})
	return size, err
}

// SetSize implements host.Window.
func (w *Window) SetSize(width, height float64) error {
	return w.call(func() error {
		w.win.SetDefaultSize(int(math.Round(width)), int(math.Round(height)))
		return nil
	})
}

// ScaleFactor implements host.Window.
func (w *Window) ScaleFactor() (float64, error) {
	var scale float64
	err := w.call(func() error {
		scale = float64(max(w.win.ScaleFactor(), 1))
		return nil
	})
	return scale, err
}

// IsMaximized implements host.Window.
func (w *Window) IsMaximized() (bool, error) {
	var maximized bool
	err := w.call(func() error {
		maximized = w.maximized || w.win.IsMaximized()
		return nil
	})
	return maximized, err
}

// IsMinimized implements host.Window. GTK4 does not expose minimization,
// so only a hidden window counts.
func (w *Window) IsMinimized() (bool, error) {
	var hidden bool
	err := w.call(func() error {
		hidden = w.win.Realized() && !w.win.Visible()
		return nil
	})
	return hidden, err
}

// Maximize implements host.Window. A layer surface is maximized by
// anchoring it to every edge.
func (w *Window) Maximize() error {
	layered := false
	err := w.call(func() error {
		if !w.layered {
			w.win.Maximize()
			return nil
		}
		layered = true
		w.maximized = true
		for _, edge := range []layershell.LayerShellEdge{
			layershell.LayerShellEdgeTop,
			layershell.LayerShellEdgeBottom,
			layershell.LayerShellEdgeLeft,
			layershell.LayerShellEdgeRight,
		} {
			layershell.SetAnchor(w.win, edge, true)
			layershell.SetMargin(w.win, edge, 0)
		}
		return nil
	})
	if err == nil && layered {
		w.events.emit(host.Event{Name: host.EventResized})
	}
	return err
}

// Show implements host.Window.
func (w *Window) Show() error {
	return w.call(func() error {
		w.win.Present()
		return nil
	})
}

// SetFocus implements host.Window.
func (w *Window) SetFocus() error {
	return w.call(func() error {
		w.win.Present()
		return nil
	})
}

// Destroy implements host.Window.
func (w *Window) Destroy() error {
	return w.call(func() error {
		w.win.Destroy()
		return nil
	})
}

// On implements host.Window.
func (w *Window) On(event string, handler func(host.Event)) func() {
	return w.events.on(event, handler)
}

// call runs fn on the main loop unless the window is gone.
func (w *Window) call(fn func() error) error {
	if w.gone.Load() {
		return host.ErrWindowDestroyed
	}
	var err error
	w.rt.invoke(func() {
		if w.win == nil || w.gone.Load() {
			err = host.ErrWindowDestroyed
			return
		}
		err = fn()
	})
	return err
}

// connect runs on the main loop, once the window is built.
func (w *Window) connect() {
	w.win.ConnectCloseRequest(func() bool {
		w.events.emit(host.Event{Name: host.EventCloseRequested})
		return true
	})

	resized := func() {
		w.events.emit(host.Event{Name: host.EventResized})
	}
	w.win.NotifyProperty("default-width", resized)
	w.win.NotifyProperty("default-height", resized)
	w.win.NotifyProperty("maximized", resized)
	w.win.NotifyProperty("is-active", func() {
		w.events.emit(host.Event{Name: host.EventFocusChanged, Focused: w.win.IsActive()})
	})

	w.win.ConnectDestroy(func() {
		if w.gone.Swap(true) {
			return
		}
		w.rt.remove(w.label)
		w.rt.logger.Debug("window destroyed", "label", w.label)
		onDestroyed := w.onDestroyed
		w.events.close()
		if onDestroyed != nil {
			go func() {
				w.events.wait()
				onDestroyed()
			}()
		}
	})
}

// fail marks a window whose build failed.
func (w *Window) fail() {
	w.gone.Store(true)
	w.events.close()
}

// setMargins runs on the main loop. x and y are logical.
func (w *Window) setMargins(x, y float64) {
	mx, my := int(math.Round(x)), int(math.Round(y))
	layershell.SetMargin(w.win, layershell.LayerShellEdgeLeft, mx)
	layershell.SetMargin(w.win, layershell.LayerShellEdgeTop, my)
	w.mu.Lock()
	w.pos = host.Position{X: mx, Y: my}
	w.mu.Unlock()
}

func (w *Window) attachClick(onBlocked func(label string)) {
	click := gtk.NewGestureClick()
	click.SetPropagationPhase(gtk.PhaseCapture)
	click.ConnectPressed(func(nPress int, x, y float64) {
		if w.locked {
			onBlocked(w.label)
		}
	})
	w.win.AddController(click)
}

func (w *Window) setLocked(locked bool) {
	if w.gone.Load() {
		return
	}
	glib.IdleAdd(func() {
		if w.page == nil || w.gone.Load() {
			return
		}
		w.locked = locked
		w.page.SetSensitive(!locked)
		if locked {
			w.page.AddCSSClass(lockedClass)
		} else {
			w.page.RemoveCSSClass(lockedClass)
		}
	})
}
