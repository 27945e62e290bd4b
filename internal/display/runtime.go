package display

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/winsession/internal/host"
)

var _ host.Runtime = (*Runtime)(nil)

// ErrNoDisplay is reported through Lifecycle.OnError when GTK has no display.
var ErrNoDisplay = errors.New("no display available")

// layerNamespace identifies our layer surfaces to the compositor.
const layerNamespace = "winsession"

// Runtime creates GTK windows for an application. Its methods may be called
// from any goroutine except the GTK main loop.
type Runtime struct {
	app    *gtk.Application
	logger *slog.Logger

	mu             sync.Mutex
	windows        map[string]*Window
	layerShell     bool
	onBlockedClick func(label string)
}

// NewRuntime creates a Runtime whose windows belong to app.
func NewRuntime(app *gtk.Application, logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{
		app:     app,
		logger:  logger,
		windows: make(map[string]*Window),
	}
}

// SetLayerShell enables layer-shell surfaces for windows created with an
// explicit position. It has no effect when the compositor lacks support.
func (r *Runtime) SetLayerShell(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.layerShell = enabled
}

// SetBlockedClickCallback sets the function called when a locked window is clicked.
func (r *Runtime) SetBlockedClickCallback(fn func(label string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onBlockedClick = fn
}

// CreateWindow implements host.Runtime. The window is built on the next
// main loop iteration; lc.OnCreated or lc.OnError fires once that is done.
func (r *Runtime) CreateWindow(label string, cfg host.WindowConfig, lc host.Lifecycle) (host.Window, error) {
	r.mu.Lock()
	if _, exists := r.windows[label]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("window %q already exists", label)
	}
	w := newWindow(r, label, lc.OnDestroyed)
	r.windows[label] = w
	layered := r.layerShell
	r.mu.Unlock()

	glib.IdleAdd(func() {
		if err := r.build(w, cfg, layered); err != nil {
			r.remove(label)
			w.fail()
			r.logger.Error("failed to create window", "label", label, "error", err)
			if lc.OnError != nil {
				go lc.OnError(err)
			}
			return
		}
		r.logger.Debug("window created", "label", label, "layered", w.layered)
		if lc.OnCreated != nil {
			w.events.run(func() { lc.OnCreated(w) })
		}
	})
	return w, nil
}

// Window implements host.Runtime.
func (r *Runtime) Window(label string) (host.Window, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.windows[label]
	if !ok {
		return nil, false
	}
	return w, true
}

// Labels implements host.Runtime.
func (r *Runtime) Labels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	labels := make([]string, 0, len(r.windows))
	for label := range r.windows {
		labels = append(labels, label)
	}
	slices.Sort(labels)
	return labels
}

// SetLocked marks the window's content insensitive while one of its
// children is open.
func (r *Runtime) SetLocked(label string, locked bool) {
	r.mu.Lock()
	w, ok := r.windows[label]
	r.mu.Unlock()
	if !ok {
		r.logger.Debug("lock for unknown window", "label", label)
		return
	}
	w.setLocked(locked)
}

// build runs on the main loop.
func (r *Runtime) build(w *Window, cfg host.WindowConfig, layered bool) error {
	if gdk.DisplayGetDefault() == nil {
		return ErrNoDisplay
	}

	win := gtk.NewWindow()
	win.SetApplication(r.app)
	win.SetTitle(cfg.Title)
	win.SetResizable(cfg.Resizable)
	win.SetDecorated(cfg.Decorations)
	if cfg.Width > 0 && cfg.Height > 0 {
		win.SetDefaultSize(int(cfg.Width), int(cfg.Height))
	}

	w.win = win
	w.page = newPage(cfg)
	win.SetChild(w.page)
	w.attachClick(r.blockedClick)

	if cfg.X != nil && cfg.Y != nil && layered {
		if layershell.IsSupported() {
			w.layered = true
			layershell.InitForWindow(win)
			layershell.SetNamespace(win, layerNamespace)
			layershell.SetLayer(win, layershell.LayerShellLayerTop)
			layershell.SetKeyboardMode(win, layershell.LayerShellKeyboardModeOnDemand)
			layershell.SetAnchor(win, layershell.LayerShellEdgeTop, true)
			layershell.SetAnchor(win, layershell.LayerShellEdgeLeft, true)
			w.setMargins(*cfg.X, *cfg.Y)
		} else {
			r.logger.Debug("layer shell unsupported, position ignored", "label", w.label)
		}
	}

	if cfg.Parent != "" && !w.layered {
		r.mu.Lock()
		parent, ok := r.windows[cfg.Parent]
		r.mu.Unlock()
		if ok && parent.win != nil {
			win.SetTransientFor(parent.win)
			win.SetModal(true)
		}
	}

	w.connect()
	if cfg.Visible {
		win.Present()
	}
	return nil
}

func (r *Runtime) blockedClick(label string) {
	r.mu.Lock()
	fn := r.onBlockedClick
	r.mu.Unlock()
	if fn != nil {
		go fn(label)
	}
}

func (r *Runtime) remove(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.windows, label)
}

// invoke runs fn on the main loop and waits for it.
func (r *Runtime) invoke(fn func()) {
	done := make(chan struct{})
	glib.IdleAdd(func() {
		defer close(done)
		fn()
	})
	<-done
}
