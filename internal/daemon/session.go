package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/jmylchreest/winsession/internal/bus"
	"github.com/jmylchreest/winsession/internal/config"
	"github.com/jmylchreest/winsession/internal/host"
	"github.com/jmylchreest/winsession/internal/messenger"
	"github.com/jmylchreest/winsession/internal/model"
	"github.com/jmylchreest/winsession/internal/registry"
	"github.com/jmylchreest/winsession/internal/store"
	"github.com/jmylchreest/winsession/internal/window"
)

// LockView shows the UI lock of a window whose child is open.
type LockView interface {
	SetLocked(label string, locked bool)
}

// Options wires a Session.
type Options struct {
	Config   *config.DaemonConfig
	Runtime  host.Runtime
	Layout   *store.LayoutStore
	Bus      bus.Bus
	Beeper   window.Beeper
	LockView LockView
	Logger   *slog.Logger
}

// Session is one running application: the main window, every window
// opened from it and the layout they share.
type Session struct {
	cfg       *config.DaemonConfig
	runtime   host.Runtime
	layout    *store.LayoutStore
	registry  *registry.Registry
	bus       bus.Bus
	messenger *messenger.Messenger
	beeper    window.Beeper
	lockView  LockView
	logger    *slog.Logger

	mu       sync.Mutex
	main     *window.Service
	services map[string]*window.Service
	views    map[string]*registry.Registry
	stops    []func()
	done     chan struct{}
	doneOnce sync.Once
}

// NewSession loads the layout and prepares the main-process registry.
func NewSession(opts Options) (*Session, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Runtime == nil {
		return nil, errors.New("runtime is required")
	}
	if opts.Layout == nil {
		return nil, errors.New("layout store is required")
	}
	if opts.Bus == nil {
		return nil, errors.New("bus is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		cfg:      opts.Config,
		runtime:  opts.Runtime,
		layout:   opts.Layout,
		bus:      opts.Bus,
		beeper:   opts.Beeper,
		lockView: opts.LockView,
		logger:   logger,
		services: make(map[string]*window.Service),
		views:    make(map[string]*registry.Registry),
		done:     make(chan struct{}),
	}
	s.registry = registry.New(opts.Layout.Load(), sessionSaver{s}, logger)
	s.registry.SetWorkspace(opts.Config.Workspace())
	s.messenger = messenger.New(true, s.registry, opts.Bus, logger)
	return s, nil
}

// Registry returns the main-process registry.
func (s *Session) Registry() *registry.Registry {
	return s.registry
}

// Main returns the main window's Service, or nil before Start.
func (s *Session) Main() *window.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.main
}

// Services returns the labels of windows with a running Service, sorted.
func (s *Session) Services() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	labels := make([]string, 0, len(s.services))
	for label := range s.services {
		labels = append(labels, label)
	}
	slices.Sort(labels)
	return labels
}

// Done is closed once the main window has been destroyed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Start listens for registry mutations, opens the main window and
// restores the saved session around it.
func (s *Session) Start(ctx context.Context) error {
	stopListen, err := s.messenger.Listen()
	if err != nil {
		return fmt.Errorf("failed to listen for window state: %w", err)
	}
	s.addStop(stopListen)

	if s.lockView != nil {
		stopLock, err := s.bus.Subscribe(window.LockChannel, s.onLock)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", window.LockChannel, err)
		}
		s.addStop(stopLock)
	}

	owner, err := s.openMain(ctx)
	if err != nil {
		return err
	}

	svc, err := s.newService(owner, s.messenger, s.registry)
	if err != nil {
		return err
	}
	if err := svc.Start(); err != nil {
		return fmt.Errorf("failed to start main window service: %w", err)
	}
	s.mu.Lock()
	s.main = svc
	s.services[owner.Label()] = svc
	s.mu.Unlock()

	s.logger.Info("session started", "workspace", s.registry.Workspace(), "layout", s.layout.Path())
	return svc.Restore(ctx)
}

// openMain creates the main window at its saved geometry and waits for it.
func (s *Session) openMain(ctx context.Context) (host.Window, error) {
	var preset *model.CategoryPreset
	if p, ok := s.registry.GetCategoryPreset(model.MainCategory); ok {
		preset = &p
	}

	created := make(chan host.Window, 1)
	failed := make(chan error, 1)
	_, err := s.runtime.CreateWindow(model.MainLabel, mainWindowConfig(s.cfg.Windows.Main, preset), host.Lifecycle{
		OnCreated:   func(w host.Window) { created <- w },
		OnError:     func(err error) { failed <- err },
		OnDestroyed: s.finish,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", window.ErrWindowCreation, err)
	}

	select {
	case w := <-created:
		return w, nil
	case err := <-failed:
		return nil, fmt.Errorf("%w: %w", window.ErrWindowCreation, err)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func mainWindowConfig(d config.WindowDefaults, preset *model.CategoryPreset) host.WindowConfig {
	cfg := host.WindowConfig{
		URL:         "/",
		Title:       d.Title,
		Width:       d.Width,
		Height:      d.Height,
		Resizable:   d.Resizable,
		Decorations: d.Decorations,
		Minimizable: d.Minimizable,
		SkipTaskbar: d.SkipTaskbar,
		Center:      d.Center,
	}
	if preset != nil && preset.Validate() == nil {
		x, y := preset.X, preset.Y
		cfg.X, cfg.Y = &x, &y
		cfg.Width, cfg.Height = preset.Width, preset.Height
		cfg.Center = false
	}
	return cfg
}

func (s *Session) newService(owner host.Window, m *messenger.Messenger, reg *registry.Registry) (*window.Service, error) {
	return window.NewService(window.Dependencies{
		Owner:           owner,
		Runtime:         sessionRuntime{Runtime: s.runtime, session: s},
		Messenger:       m,
		Registry:        reg,
		Bus:             s.bus,
		Beeper:          s.beeper,
		Windows:         s.cfg.Windows,
		Attention:       s.cfg.Attention,
		Logger:          s.logger,
		OnWindowCreated: s.spawn,
	})
}

// spawn starts the Service of a window opened by another Service. It
// talks to the registry through the bus, like a separate process would,
// and reads from its own copy that has no saver.
func (s *Session) spawn(w host.Window, _ model.WindowType) {
	view := registry.New(s.registry.Snapshot(), nil, s.logger)
	view.SetWorkspace(s.registry.Workspace())

	svc, err := s.newService(w, messenger.New(false, nil, s.bus, s.logger), view)
	if err != nil {
		s.logger.Error("failed to create window service", "label", w.Label(), "error", err)
		return
	}
	if err := svc.Start(); err != nil {
		s.logger.Error("failed to start window service", "label", w.Label(), "error", err)
		return
	}

	s.mu.Lock()
	prev := s.services[w.Label()]
	s.services[w.Label()] = svc
	s.views[w.Label()] = view
	s.mu.Unlock()
	if prev != nil {
		go prev.Stop()
	}
}

// release stops the Service of a destroyed window. Stop waits for the
// Service's own handlers, which may be the caller, so it runs detached.
func (s *Session) release(label string) {
	s.mu.Lock()
	svc, ok := s.services[label]
	delete(s.services, label)
	delete(s.views, label)
	s.mu.Unlock()
	if ok {
		go svc.Stop()
	}
}

func (s *Session) onLock(data []byte) {
	var msg window.LockMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Debug("ignoring malformed lock message", "error", err)
		return
	}
	s.lockView.SetLocked(msg.WindowLabel, msg.Locked)
}

// RequestShake asks the Service owning label to draw attention to its child.
func (s *Session) RequestShake(label string) {
	if err := window.RequestShake(context.Background(), s.bus, label); err != nil {
		s.logger.Debug("failed to request shake", "label", label, "error", err)
	}
}

// Reconfigure applies the live parts of a reloaded config.
func (s *Session) Reconfigure(cfg *config.DaemonConfig, change ConfigChange) {
	if change.Attention {
		if r, ok := s.beeper.(interface {
			Configure(config.AttentionConfig)
		}); ok {
			r.Configure(cfg.Attention)
		}
		s.mu.Lock()
		services := make([]*window.Service, 0, len(s.services))
		for _, svc := range s.services {
			services = append(services, svc)
		}
		s.mu.Unlock()
		for _, svc := range services {
			svc.SetAttention(cfg.Attention)
		}
	}
	if len(change.Restart) > 0 {
		s.logger.Warn("config changes take effect after restart", "sections", change.Restart)
	}
}

// Shutdown marks the session closing, so windows destroyed from now on
// stay in the saved layout, and stops every Service.
func (s *Session) Shutdown() {
	s.mu.Lock()
	main := s.main
	services := s.services
	s.services = make(map[string]*window.Service)
	s.views = make(map[string]*registry.Registry)
	stops := s.stops
	s.stops = nil
	s.mu.Unlock()

	if main != nil {
		main.Shutdown()
	}
	for _, svc := range services {
		svc.Stop()
	}
	for _, stop := range stops {
		stop()
	}
	s.logger.Info("session stopped")
}

func (s *Session) addStop(stop func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops = append(s.stops, stop)
}

func (s *Session) finish() {
	s.doneOnce.Do(func() {
		s.release(model.MainLabel)
		close(s.done)
	})
}

// sessionRuntime stops a window's Service when the window is destroyed.
type sessionRuntime struct {
	host.Runtime
	session *Session
}

func (r sessionRuntime) CreateWindow(label string, cfg host.WindowConfig, lc host.Lifecycle) (host.Window, error) {
	onDestroyed := lc.OnDestroyed
	lc.OnDestroyed = func() {
		if onDestroyed != nil {
			onDestroyed()
		}
		r.session.release(label)
	}
	return r.Runtime.CreateWindow(label, cfg, lc)
}

// sessionSaver persists each registry snapshot and refreshes the copies
// held by secondary Services. It runs under the registry's write lock.
type sessionSaver struct {
	session *Session
}

func (v sessionSaver) Save(state *model.AppState) {
	s := v.session
	s.layout.Save(state)

	s.mu.Lock()
	views := make([]*registry.Registry, 0, len(s.views))
	for _, view := range s.views {
		views = append(views, view)
	}
	s.mu.Unlock()

	for _, view := range views {
		view.Replace(state.Clone())
	}
}
