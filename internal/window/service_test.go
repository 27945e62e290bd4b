package window

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/winsession/internal/bus"
	"github.com/jmylchreest/winsession/internal/config"
	"github.com/jmylchreest/winsession/internal/host"
	"github.com/jmylchreest/winsession/internal/host/hosttest"
	"github.com/jmylchreest/winsession/internal/messenger"
	"github.com/jmylchreest/winsession/internal/model"
	"github.com/jmylchreest/winsession/internal/registry"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type countingBeeper struct{ n atomic.Int32 }

func (b *countingBeeper) Beep() { b.n.Add(1) }

type fixture struct {
	rt     *hosttest.Runtime
	main   *hosttest.Window
	reg    *registry.Registry
	bus    *bus.MemoryBus
	msgr   *messenger.Messenger
	svc    *Service
	beeper *countingBeeper

	mu    sync.Mutex
	locks []LockMessage
}

func testAttention() config.AttentionConfig {
	return config.AttentionConfig{
		Offset:    10,
		Steps:     6,
		StepDelay: config.Duration(time.Millisecond),
		Settle:    config.Duration(5 * time.Millisecond),
		Grace:     config.Duration(20 * time.Millisecond),
	}
}

func newFixture(t *testing.T, state *model.AppState) *fixture {
	t.Helper()

	f := &fixture{
		rt:     hosttest.NewRuntime(),
		reg:    registry.New(state, nil, nil),
		bus:    bus.NewMemoryBus(64, nil),
		beeper: &countingBeeper{},
	}
	f.main = f.rt.AddWindow(model.MainLabel, host.WindowConfig{Width: 1024, Height: 768})
	f.msgr = messenger.New(true, f.reg, f.bus, nil)

	_, err := f.bus.Subscribe(LockChannel, func(data []byte) {
		var msg LockMessage
		if assert.NoError(t, json.Unmarshal(data, &msg)) {
			f.mu.Lock()
			f.locks = append(f.locks, msg)
			f.mu.Unlock()
		}
	})
	require.NoError(t, err)

	f.svc = f.newService(t, f.main, f.msgr, f.reg)
	t.Cleanup(func() {
		f.svc.Stop()
		_ = f.bus.Close()
	})
	return f
}

func (f *fixture) newService(t *testing.T, owner host.Window, m *messenger.Messenger, reg *registry.Registry) *Service {
	t.Helper()
	svc, err := NewService(Dependencies{
		Owner:     owner,
		Runtime:   f.rt,
		Messenger: m,
		Registry:  reg,
		Bus:       f.bus,
		Beeper:    f.beeper,
		Windows:   config.DefaultDaemonConfig().Windows,
		Attention: testAttention(),
	})
	require.NoError(t, err)
	require.NoError(t, svc.Start())
	return svc
}

func (f *fixture) lockMessages() []LockMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]LockMessage(nil), f.locks...)
}

func (f *fixture) window(t *testing.T, label string) *hosttest.Window {
	t.Helper()
	w, ok := f.rt.Get(label)
	require.True(t, ok, "window %s not found", label)
	return w
}

func TestNewService_RequiresDependencies(t *testing.T) {
	_, err := NewService(Dependencies{})
	assert.Error(t, err)

	rt := hosttest.NewRuntime()
	w := rt.AddWindow("main", host.WindowConfig{})
	_, err = NewService(Dependencies{Owner: w, Runtime: rt})
	assert.Error(t, err)
}

func TestService_OpenAuxiliaryWindow(t *testing.T) {
	f := newFixture(t, nil)

	label, err := f.svc.OpenAuxiliaryWindow(context.Background(), "/settings", Options{Category: "settings"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(label, "aux-"), label)

	w := f.window(t, label)
	assert.True(t, w.Visible())
	cfg := w.Config()
	assert.Equal(t, "/settings", cfg.URL)
	assert.Equal(t, "Auxiliary Window", cfg.Title)
	assert.Equal(t, 800.0, cfg.Width)
	assert.Equal(t, 600.0, cfg.Height)
	assert.True(t, cfg.Resizable)
	assert.False(t, cfg.Visible)

	assert.Equal(t, []string{label}, f.svc.AuxLabels())
	rec, ok := f.reg.GetActiveWindows()[label]
	require.True(t, ok)
	assert.Equal(t, model.ActiveWindow{Category: "settings", Type: model.WindowTypeAux, URL: "/settings"}, rec)
	_, ok = f.reg.GetCategoryPreset("settings")
	assert.True(t, ok)
}

func TestService_OpenAuxiliaryWindowDefaultCategory(t *testing.T) {
	f := newFixture(t, nil)

	label, err := f.svc.OpenAuxiliaryWindow(context.Background(), "", Options{})
	require.NoError(t, err)

	rec := f.reg.GetActiveWindows()[label]
	assert.Equal(t, "aux", rec.Category)
	assert.Equal(t, "/", rec.URL)
}

func TestService_MergePriority(t *testing.T) {
	state := model.NewAppState()
	ws := state.EnsureWorkspace(model.DefaultWorkspace)
	ws.CategoryPresets["settings"] = model.CategoryPreset{X: 100, Y: 200, Width: 900, Height: 700, Maximized: true}
	f := newFixture(t, state)

	label, err := f.svc.OpenAuxiliaryWindow(context.Background(), "/settings", Options{
		Category:  "settings",
		Width:     ptr(1000.0),
		Maximized: ptr(false),
	})
	require.NoError(t, err)

	cfg := f.window(t, label).Config()
	require.NotNil(t, cfg.X)
	require.NotNil(t, cfg.Y)
	assert.Equal(t, 100.0, *cfg.X)
	assert.Equal(t, 200.0, *cfg.Y)
	assert.Equal(t, 1000.0, cfg.Width)
	assert.Equal(t, 700.0, cfg.Height)

	maximized, err := f.window(t, label).IsMaximized()
	require.NoError(t, err)
	assert.False(t, maximized)
}

func TestService_ChildCentersUnlessPositioned(t *testing.T) {
	f := newFixture(t, nil)

	label, err := f.svc.OpenChildWindow(context.Background(), "/confirm", Options{})
	require.NoError(t, err)
	cfg := f.window(t, label).Config()
	assert.True(t, cfg.Center)
	assert.True(t, cfg.SkipTaskbar)
	assert.False(t, cfg.Resizable)
	assert.False(t, cfg.Minimizable)
	assert.Equal(t, model.MainLabel, cfg.Parent)
	assert.Equal(t, 600.0, cfg.Width)
	assert.Equal(t, 400.0, cfg.Height)
	require.NoError(t, f.window(t, label).Destroy())

	label, err = f.svc.OpenChildWindow(context.Background(), "/confirm", Options{X: ptr(5.0), Y: ptr(6.0)})
	require.NoError(t, err)
	assert.False(t, f.window(t, label).Config().Center)
}

func TestService_ModalStackLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	assert.False(t, f.svc.Locked())

	first, err := f.svc.OpenChildWindow(ctx, "/confirm", Options{Category: "confirm"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first, "child-"), first)
	assert.True(t, f.svc.Locked())
	assert.Equal(t, []string{first}, f.svc.ModalLabels())

	child := f.window(t, first)
	assert.True(t, child.Visible())
	assert.GreaterOrEqual(t, child.FocusCount(), 1)
	assert.Equal(t, 1, f.main.Listeners(host.EventFocusChanged))

	created := len(f.rt.Created())
	second, err := f.svc.OpenChildWindow(ctx, "/other", Options{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, f.rt.Created(), created)
	assert.Equal(t, []string{first}, f.svc.ModalLabels())

	require.Eventually(t, func() bool {
		return f.beeper.n.Load() == 1 && len(child.XHistory()) == 7
	}, waitFor, tick)

	require.NoError(t, child.Destroy())
	assert.False(t, f.svc.Locked())
	assert.Empty(t, f.svc.ModalLabels())
	assert.NotContains(t, f.reg.GetActiveWindows(), first)

	require.Eventually(t, func() bool {
		locks := f.lockMessages()
		return len(locks) == 2
	}, waitFor, tick)
	assert.Equal(t, []LockMessage{
		{WindowLabel: model.MainLabel, Locked: true},
		{WindowLabel: model.MainLabel, Locked: false},
	}, f.lockMessages())

	// the focus listener is armed once per service
	_, err = f.svc.OpenChildWindow(ctx, "/again", Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.main.Listeners(host.EventFocusChanged))
}

func TestService_ModalDepthAssertedOnPush(t *testing.T) {
	f := newFixture(t, nil)

	f.svc.mu.Lock()
	require.NoError(t, f.svc.pushModalLocked(&modalEntry{label: "child-a"}))
	err := f.svc.pushModalLocked(&modalEntry{label: "child-b"})
	f.svc.mu.Unlock()

	assert.ErrorIs(t, err, ErrModalDepthExceeded)
}

func TestService_FocusReclaim(t *testing.T) {
	f := newFixture(t, nil)

	label, err := f.svc.OpenChildWindow(context.Background(), "/confirm", Options{})
	require.NoError(t, err)
	child := f.window(t, label)
	focused := child.FocusCount()

	f.main.Focus(false)
	f.main.Focus(true)

	require.Eventually(t, func() bool {
		return child.FocusCount() > focused && f.beeper.n.Load() == 1 && len(child.XHistory()) == 7
	}, waitFor, tick)
}

func TestService_FocusReclaimNoChild(t *testing.T) {
	f := newFixture(t, nil)

	label, err := f.svc.OpenChildWindow(context.Background(), "/confirm", Options{})
	require.NoError(t, err)
	require.NoError(t, f.window(t, label).Destroy())

	f.main.Focus(true)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), f.beeper.n.Load())
}

func TestService_RequestShake(t *testing.T) {
	f := newFixture(t, nil)

	label, err := f.svc.OpenChildWindow(context.Background(), "/confirm", Options{})
	require.NoError(t, err)
	child := f.window(t, label)

	require.NoError(t, RequestShake(context.Background(), f.bus, "someone-else"))
	require.NoError(t, RequestShake(context.Background(), f.bus, model.MainLabel))

	require.Eventually(t, func() bool {
		return len(child.XHistory()) == 7
	}, waitFor, tick)
	assert.Equal(t, int32(1), f.beeper.n.Load())
}

func TestService_OverlappingShakesRestorePosition(t *testing.T) {
	f := newFixture(t, nil)

	label, err := f.svc.OpenChildWindow(context.Background(), "/confirm", Options{})
	require.NoError(t, err)
	child := f.window(t, label)
	start, err := child.OuterPosition()
	require.NoError(t, err)

	require.NoError(t, RequestShake(context.Background(), f.bus, model.MainLabel))
	require.NoError(t, RequestShake(context.Background(), f.bus, model.MainLabel))

	idle := func() bool {
		f.svc.mu.Lock()
		defer f.svc.mu.Unlock()
		return !f.svc.shaking
	}
	require.Eventually(t, func() bool {
		return len(child.XHistory()) >= 7 && idle()
	}, waitFor, tick)
	time.Sleep(30 * time.Millisecond)
	require.Eventually(t, idle, waitFor, tick)

	history := child.XHistory()
	assert.Zero(t, len(history)%7, "every shake runs to completion: %v", history)
	pos, err := child.OuterPosition()
	require.NoError(t, err)
	assert.Equal(t, start, pos)
}

func TestService_ExplicitLabels(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.OpenAuxiliaryWindow(context.Background(), "/x", Options{Label: model.MainLabel})
	assert.ErrorIs(t, err, ErrLabelType)
	_, err = f.svc.OpenAuxiliaryWindow(context.Background(), "/x", Options{Label: "child-x"})
	assert.ErrorIs(t, err, ErrLabelType)
	_, err = f.svc.OpenChildWindow(context.Background(), "/x", Options{Label: "aux-x"})
	assert.ErrorIs(t, err, ErrLabelType)
	assert.Empty(t, f.svc.ModalLabels())

	label, err := f.svc.OpenAuxiliaryWindow(context.Background(), "/notes", Options{Label: "notes"})
	require.NoError(t, err)
	assert.Equal(t, "notes", label)
	label, err = f.svc.OpenAuxiliaryWindow(context.Background(), "/logs", Options{Label: "aux-logs"})
	require.NoError(t, err)
	assert.Equal(t, "aux-logs", label)
	assert.ElementsMatch(t, []string{"aux-logs", "notes"}, f.svc.AuxLabels())
}

func TestService_ChildCreationFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.rt.FailCreate("child-broken", errors.New("no display"))

	label, err := f.svc.OpenChildWindow(context.Background(), "/confirm", Options{Label: "child-broken"})
	assert.ErrorIs(t, err, ErrWindowCreation)
	assert.Empty(t, label)
	assert.False(t, f.svc.Locked())
	assert.NotContains(t, f.reg.GetActiveWindows(), "child-broken")

	require.Eventually(t, func() bool {
		locks := f.lockMessages()
		return len(locks) == 2 && !locks[1].Locked
	}, waitFor, tick)
}

func TestService_AuxCreationFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.rt.FailCreate("aux-broken", errors.New("no display"))

	_, err := f.svc.OpenAuxiliaryWindow(context.Background(), "/", Options{Label: "aux-broken"})
	assert.ErrorIs(t, err, ErrWindowCreation)
	assert.Empty(t, f.svc.AuxLabels())
	assert.Empty(t, f.reg.GetActiveWindows())
}

func TestService_AuxDestroyedRemovesRecord(t *testing.T) {
	f := newFixture(t, nil)

	label, err := f.svc.OpenAuxiliaryWindow(context.Background(), "/", Options{})
	require.NoError(t, err)
	require.Contains(t, f.reg.GetActiveWindows(), label)

	w := f.window(t, label)
	require.NoError(t, w.Destroy())
	assert.NotContains(t, f.reg.GetActiveWindows(), label)
	assert.Empty(t, f.svc.AuxLabels())
	assert.Empty(t, f.svc.Tracker().Tracked())

	// a late destroyed event is a no-op
	f.svc.auxDestroyed(label)
	assert.Empty(t, f.svc.AuxLabels())
}

func TestService_MainCloseTearsDown(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	aux1, err := f.svc.OpenAuxiliaryWindow(ctx, "/a", Options{})
	require.NoError(t, err)
	aux2, err := f.svc.OpenAuxiliaryWindow(ctx, "/b", Options{})
	require.NoError(t, err)
	child, err := f.svc.OpenChildWindow(ctx, "/c", Options{})
	require.NoError(t, err)

	f.main.RequestClose()

	assert.True(t, f.svc.Closing())
	assert.True(t, f.main.Destroyed())
	assert.Empty(t, f.rt.Labels())

	records := f.reg.GetActiveWindows()
	assert.Contains(t, records, aux1)
	assert.Contains(t, records, aux2)
	assert.NotContains(t, records, child)

	_, err = f.svc.OpenAuxiliaryWindow(ctx, "/", Options{})
	assert.ErrorIs(t, err, ErrClosing)
	_, err = f.svc.OpenChildWindow(ctx, "/", Options{})
	assert.ErrorIs(t, err, ErrClosing)

	// a second close request is ignored
	assert.NotPanics(t, f.svc.RequestClose)
}

func TestService_SecondaryCloseForwardsRemoval(t *testing.T) {
	f := newFixture(t, nil)
	stop, err := f.msgr.Listen()
	require.NoError(t, err)
	defer stop()

	label, err := f.svc.OpenAuxiliaryWindow(context.Background(), "/a", Options{})
	require.NoError(t, err)
	auxWin := f.window(t, label)

	auxMsgr := messenger.New(false, nil, f.bus, nil)
	auxSvc := f.newService(t, auxWin, auxMsgr, registry.New(f.reg.Snapshot(), nil, nil))
	defer auxSvc.Stop()
	assert.False(t, auxSvc.IsMain())

	child, err := auxSvc.OpenChildWindow(context.Background(), "/c", Options{})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, ok := f.reg.GetActiveWindows()[child]
		return ok
	}, waitFor, tick)

	auxWin.RequestClose()

	assert.True(t, auxWin.Destroyed())
	_, ok := f.rt.Get(child)
	assert.False(t, ok)
	require.Eventually(t, func() bool {
		records := f.reg.GetActiveWindows()
		_, hasAux := records[label]
		_, hasChild := records[child]
		return !hasAux && !hasChild
	}, waitFor, tick)
	assert.False(t, f.main.Destroyed())
}

func TestService_ShutdownKeepsLayout(t *testing.T) {
	f := newFixture(t, nil)

	label, err := f.svc.OpenAuxiliaryWindow(context.Background(), "/a", Options{})
	require.NoError(t, err)

	f.svc.Shutdown()
	require.NoError(t, f.window(t, label).Destroy())

	assert.Contains(t, f.reg.GetActiveWindows(), label)
	assert.False(t, f.main.Destroyed())
}

func TestService_OnWindowCreated(t *testing.T) {
	rt := hosttest.NewRuntime()
	main := rt.AddWindow(model.MainLabel, host.WindowConfig{})
	reg := registry.New(nil, nil, nil)

	var mu sync.Mutex
	spawned := map[string]model.WindowType{}
	svc, err := NewService(Dependencies{
		Owner:     main,
		Runtime:   rt,
		Messenger: messenger.New(true, reg, nil, nil),
		Registry:  reg,
		Windows:   config.DefaultDaemonConfig().Windows,
		Attention: testAttention(),
		OnWindowCreated: func(w host.Window, windowType model.WindowType) {
			mu.Lock()
			defer mu.Unlock()
			spawned[w.Label()] = windowType
		},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Start())
	defer svc.Stop()

	aux, err := svc.OpenAuxiliaryWindow(context.Background(), "/", Options{})
	require.NoError(t, err)
	child, err := svc.OpenChildWindow(context.Background(), "/", Options{})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]model.WindowType{aux: model.WindowTypeAux, child: model.WindowTypeChild}, spawned)
}

func TestService_Commands(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, SendCommand(ctx, f.bus, Command{Target: model.MainLabel, Action: ActionOpenAux, Path: "/logs", Category: "logs"}))
	require.Eventually(t, func() bool {
		return hasRecord(f.reg, "logs", model.WindowTypeAux)
	}, waitFor, tick)

	require.NoError(t, SendCommand(ctx, f.bus, Command{Target: "aux-nobody", Action: ActionOpenChild}))
	require.NoError(t, SendCommand(ctx, f.bus, Command{Target: model.MainLabel, Action: ActionOpenChild, Path: "/confirm"}))
	require.Eventually(t, func() bool {
		return hasRecord(f.reg, "child", model.WindowTypeChild)
	}, waitFor, tick)
	assert.True(t, f.svc.Locked())

	require.NoError(t, SendCommand(ctx, f.bus, Command{Target: model.MainLabel, Action: ActionShake}))
	require.Eventually(t, func() bool {
		return f.beeper.n.Load() == 1
	}, waitFor, tick)

	require.NoError(t, SendCommand(ctx, f.bus, Command{Target: model.MainLabel, Action: ActionClose}))
	require.Eventually(t, f.main.Destroyed, waitFor, tick)
}

func hasRecord(reg *registry.Registry, category string, windowType model.WindowType) bool {
	for _, rec := range reg.GetActiveWindows() {
		if rec.Category == category && rec.Type == windowType {
			return true
		}
	}
	return false
}

func TestCommand_Validate(t *testing.T) {
	assert.NoError(t, Command{Target: "main", Action: ActionClose}.Validate())
	assert.Error(t, Command{Action: ActionClose}.Validate())
	assert.Error(t, Command{Target: "main", Action: "explode"}.Validate())

	b := bus.NewMemoryBus(1, nil)
	defer func() { _ = b.Close() }()
	assert.Error(t, SendCommand(context.Background(), b, Command{Target: "main"}))
}
