// Package window orchestrates the lifecycle of the application's top-level
// windows: opening and restoring them, enforcing child modality and
// tearing everything down on close.
//
// Each window gets its own Service. The Service owned by the main window
// is the only one that restores the session.
package window

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/winsession/internal/bus"
	"github.com/jmylchreest/winsession/internal/config"
	"github.com/jmylchreest/winsession/internal/host"
	"github.com/jmylchreest/winsession/internal/logging"
	"github.com/jmylchreest/winsession/internal/messenger"
	"github.com/jmylchreest/winsession/internal/model"
	"github.com/jmylchreest/winsession/internal/registry"
)

// Errors returned by Service.
var (
	ErrWindowCreation     = errors.New("window creation failed")
	ErrModalDepthExceeded = errors.New("modal depth exceeded")
	ErrClosing            = errors.New("application is closing")
	ErrNotMain            = errors.New("only the main window can do this")
	ErrLabelType          = errors.New("label prefix names another window type")
)

// Options are explicit creation settings. They override the category
// preset, which overrides the configured defaults.
type Options struct {
	Label     string
	Category  string
	Title     string
	X         *float64
	Y         *float64
	Width     *float64
	Height    *float64
	Maximized *bool
}

// Dependencies wires a Service.
type Dependencies struct {
	Owner     host.Window
	Runtime   host.Runtime
	Messenger *messenger.Messenger
	Registry  *registry.Registry
	Bus       bus.Bus
	Beeper    Beeper
	Windows   config.WindowsConfig
	Attention config.AttentionConfig
	Logger    *slog.Logger

	// OnWindowCreated is called after a window opened by this Service is
	// shown and tracked. The host uses it to start that window's own Service.
	OnWindowCreated func(w host.Window, windowType model.WindowType)
}

// Service manages the windows owned by one window.
type Service struct {
	owner     host.Window
	runtime   host.Runtime
	messenger *messenger.Messenger
	registry  *registry.Registry
	bus       bus.Bus
	beeper    Beeper
	windows   config.WindowsConfig
	attention config.AttentionConfig
	shake     ShakeOptions
	tracker   *Tracker
	onCreated func(host.Window, model.WindowType)
	logger    *slog.Logger
	isMain    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	aux          map[string]host.Window
	modal        []*modalEntry
	grace        bool
	graceTimer   *time.Timer
	closing      bool
	reclaimArmed bool
	shaking      bool
	started      bool
	stops        []func()
}

// NewService creates a Service for d.Owner.
func NewService(d Dependencies) (*Service, error) {
	if d.Owner == nil {
		return nil, errors.New("owner window is required")
	}
	if d.Runtime == nil {
		return nil, errors.New("runtime is required")
	}
	if d.Messenger == nil {
		return nil, errors.New("messenger is required")
	}
	if d.Registry == nil {
		d.Registry = registry.New(nil, nil, d.Logger)
	}
	if d.Beeper == nil {
		d.Beeper = nopBeeper{}
	}
	logger := logging.ForWindow(cmp.Or(d.Logger, slog.Default()), d.Owner.Label())

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		owner:     d.Owner,
		runtime:   d.Runtime,
		messenger: d.Messenger,
		registry:  d.Registry,
		bus:       d.Bus,
		beeper:    d.Beeper,
		windows:   d.Windows,
		attention: d.Attention,
		shake:     ShakeOptionsFromConfig(d.Attention, logger),
		tracker:   NewTracker(d.Messenger, logger),
		onCreated: d.OnWindowCreated,
		logger:    logger,
		isMain:    d.Owner.Label() == model.MainLabel,
		ctx:       ctx,
		cancel:    cancel,
		aux:       make(map[string]host.Window),
	}
	return s, nil
}

// Label returns the owner's label.
func (s *Service) Label() string {
	return s.owner.Label()
}

// IsMain reports whether the owner is the main window.
func (s *Service) IsMain() bool {
	return s.isMain
}

// Tracker returns the geometry tracker.
func (s *Service) Tracker() *Tracker {
	return s.tracker
}

// AuxLabels returns the labels of live auxiliary windows, sorted.
func (s *Service) AuxLabels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	labels := make([]string, 0, len(s.aux))
	for label := range s.aux {
		labels = append(labels, label)
	}
	slices.Sort(labels)
	return labels
}

// SetAttention replaces the shake and reclaim timings used from now on.
func (s *Service) SetAttention(cfg config.AttentionConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attention = cfg
	s.shake = ShakeOptionsFromConfig(cfg, s.logger)
}

// Closing reports whether shutdown has started.
func (s *Service) Closing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// Start subscribes to the owner's close requests and to the bus channels
// addressed to windows.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	stops := []func(){s.owner.On(host.EventCloseRequested, s.onCloseRequested)}

	if s.bus != nil {
		stopCommands, err := s.bus.Subscribe(CommandChannel, s.onCommand)
		if err != nil {
			stops[0]()
			return fmt.Errorf("failed to subscribe to %s: %w", CommandChannel, err)
		}
		stops = append(stops, stopCommands)

		stopShake, err := s.bus.Subscribe(ShakeChannel, s.onShakeRequest)
		if err != nil {
			for _, stop := range stops {
				stop()
			}
			return fmt.Errorf("failed to subscribe to %s: %w", ShakeChannel, err)
		}
		stops = append(stops, stopShake)
	}

	s.mu.Lock()
	s.stops = append(s.stops, stops...)
	s.mu.Unlock()

	s.logger.Debug("window service started", "main", s.isMain)
	return nil
}

// Stop detaches every listener and waits for background work.
func (s *Service) Stop() {
	s.cancel()

	s.mu.Lock()
	stops := s.stops
	s.stops = nil
	if s.graceTimer != nil {
		s.graceTimer.Stop()
	}
	s.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
	s.wg.Wait()
	s.tracker.Release(s.owner.Label())
}

// Serve starts the Service and blocks until ctx is done.
func (s *Service) Serve(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Shutdown marks the application as closing without destroying anything.
// Windows destroyed afterwards stay in the saved layout.
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closing = true
}

// OpenAuxiliaryWindow opens an independent window at path. It returns the
// label once the window exists.
func (s *Service) OpenAuxiliaryWindow(ctx context.Context, path string, opts Options) (string, error) {
	if s.Closing() {
		return "", ErrClosing
	}

	label, err := labelFor(model.WindowTypeAux, opts.Label)
	if err != nil {
		return "", err
	}
	path = cmp.Or(path, "/")
	category := cmp.Or(opts.Category, string(model.WindowTypeAux))
	cfg, maximized, seed := s.resolve(s.windows.Aux, path, category, opts)

	done := make(chan error, 1)
	lc := host.Lifecycle{
		OnCreated: func(w host.Window) {
			s.logger.Info("auxiliary window created", "label", label, "category", category)
			s.reveal(w, maximized, false)
			s.track(w, category, model.WindowTypeAux, path, seed)
			s.spawned(w, model.WindowTypeAux)
			done <- nil
		},
		OnError: func(err error) {
			s.logger.Error("failed to create auxiliary window", "label", label, "error", err)
			s.mu.Lock()
			delete(s.aux, label)
			s.mu.Unlock()
			done <- err
		},
		OnDestroyed: func() {
			s.auxDestroyed(label)
		},
	}

	s.mu.Lock()
	if _, exists := s.aux[label]; exists {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: window %q is already open", ErrWindowCreation, label)
	}
	s.aux[label] = nil
	s.mu.Unlock()

	w, err := s.runtime.CreateWindow(label, cfg, lc)
	if err != nil {
		s.mu.Lock()
		delete(s.aux, label)
		s.mu.Unlock()
		return "", fmt.Errorf("%w: %s: %w", ErrWindowCreation, label, err)
	}

	s.mu.Lock()
	if _, pending := s.aux[label]; pending {
		s.aux[label] = w
	}
	s.mu.Unlock()

	return s.await(ctx, label, done)
}

func (s *Service) auxDestroyed(label string) {
	s.mu.Lock()
	_, known := s.aux[label]
	delete(s.aux, label)
	closing := s.closing
	s.mu.Unlock()

	s.tracker.Release(label)
	if !known {
		return
	}
	s.logger.Debug("auxiliary window destroyed", "label", label)
	if !closing {
		s.removeRecord(label)
	}
}

// resolve merges defaults, the category preset and explicit options.
func (s *Service) resolve(defaults config.WindowDefaults, path, category string, opts Options) (host.WindowConfig, bool, *model.CategoryPreset) {
	cfg := host.WindowConfig{
		URL:         path,
		Title:       defaults.Title,
		Width:       defaults.Width,
		Height:      defaults.Height,
		Resizable:   defaults.Resizable,
		Decorations: defaults.Decorations,
		Minimizable: defaults.Minimizable,
		SkipTaskbar: defaults.SkipTaskbar,
		Center:      defaults.Center,
	}
	maximized := false

	var seed *model.CategoryPreset
	if preset, ok := s.registry.GetCategoryPreset(category); ok && preset.Validate() == nil {
		x, y := preset.X, preset.Y
		cfg.X, cfg.Y = &x, &y
		cfg.Width, cfg.Height = preset.Width, preset.Height
		maximized = preset.Maximized
		seed = &preset
	}

	if opts.Title != "" {
		cfg.Title = opts.Title
	}
	if opts.X != nil {
		cfg.X = opts.X
	}
	if opts.Y != nil {
		cfg.Y = opts.Y
	}
	if opts.Width != nil {
		cfg.Width = *opts.Width
	}
	if opts.Height != nil {
		cfg.Height = *opts.Height
	}
	if opts.Maximized != nil {
		maximized = *opts.Maximized
	}

	if cfg.X != nil && cfg.Y != nil {
		cfg.Center = false
	}
	return cfg, maximized, seed
}

func (s *Service) reveal(w host.Window, maximized, focus bool) {
	if err := w.Show(); err != nil {
		s.logger.Warn("failed to show window", "label", w.Label(), "error", err)
	}
	if maximized {
		if err := w.Maximize(); err != nil {
			s.logger.Warn("failed to maximize window", "label", w.Label(), "error", err)
		}
	}
	if focus {
		if err := w.SetFocus(); err != nil {
			s.logger.Debug("failed to focus window", "label", w.Label(), "error", err)
		}
	}
}

func (s *Service) track(w host.Window, category string, windowType model.WindowType, path string, seed *model.CategoryPreset) {
	label := w.Label()
	s.tracker.Track(w, category, windowType, path, seed)
	s.registry.Track(label, func() { s.tracker.Release(label) })
}

func (s *Service) spawned(w host.Window, windowType model.WindowType) {
	if s.onCreated != nil {
		s.onCreated(w, windowType)
	}
}

func (s *Service) await(ctx context.Context, label string, done <-chan error) (string, error) {
	select {
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrWindowCreation, label, err)
		}
		return label, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *Service) removeRecord(label string) {
	if err := s.messenger.RemoveWindow(context.Background(), label); err != nil {
		s.logger.Warn("failed to remove window record", "label", label, "error", err)
	}
}

// onCloseRequested drops the records of this window's children and, for
// a secondary window, of the window itself. The main window then tears
// the whole application down.
func (s *Service) onCloseRequested(host.Event) {
	s.mu.Lock()
	if s.isMain {
		if s.closing {
			s.mu.Unlock()
			s.logger.Debug("close already in progress")
			return
		}
		s.closing = true
	}
	children := s.modalLabelsLocked()
	s.mu.Unlock()

	s.logger.Info("close requested", "children", len(children))
	for _, child := range children {
		s.removeRecord(child)
	}
	if !s.isMain {
		s.removeRecord(s.owner.Label())
		s.destroyAll(false)
		return
	}

	s.destroyAll(true)
}

// RequestClose runs the close handling as if the user closed the owner.
func (s *Service) RequestClose() {
	s.onCloseRequested(host.Event{Name: host.EventCloseRequested})
}

// destroyAll destroys the children, the auxiliary windows if withAux is
// set, and finally the owner.
func (s *Service) destroyAll(withAux bool) {
	s.mu.Lock()
	var targets []host.Window
	if withAux {
		for _, w := range s.aux {
			if w != nil {
				targets = append(targets, w)
			}
		}
	}
	for _, entry := range s.modal {
		if entry.win != nil {
			targets = append(targets, entry.win)
		}
	}
	s.mu.Unlock()

	var g errgroup.Group
	for _, w := range targets {
		g.Go(func() error {
			if err := w.Destroy(); err != nil && !errors.Is(err, host.ErrWindowDestroyed) {
				s.logger.Error("failed to destroy window", "label", w.Label(), "error", err)
				return err
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := s.owner.Destroy(); err != nil && !errors.Is(err, host.ErrWindowDestroyed) {
		s.logger.Error("failed to destroy window", "label", s.owner.Label(), "error", err)
	}
}

func labelFor(windowType model.WindowType, explicit string) (string, error) {
	if explicit != "" {
		if t, ok := model.LabelType(explicit); ok && t != windowType {
			return "", fmt.Errorf("%w: %q is not a %s label", ErrLabelType, explicit, windowType)
		}
		return explicit, nil
	}
	label, err := model.NewLabel(windowType)
	if err != nil {
		return "", fmt.Errorf("failed to generate label: %w", err)
	}
	return label, nil
}
