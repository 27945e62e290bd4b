package window

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/winsession/internal/host"
	"github.com/jmylchreest/winsession/internal/host/hosttest"
	"github.com/jmylchreest/winsession/internal/messenger"
	"github.com/jmylchreest/winsession/internal/model"
	"github.com/jmylchreest/winsession/internal/registry"
)

func savedSession() *model.AppState {
	state := model.NewAppState()
	ws := state.EnsureWorkspace(model.DefaultWorkspace)
	ws.ActiveWindows["main"] = model.ActiveWindow{Category: model.MainCategory, Type: model.WindowTypeMain, URL: "/"}
	ws.ActiveWindows["aux-settings"] = model.ActiveWindow{Category: "settings", Type: model.WindowTypeAux, URL: "/settings"}
	ws.ActiveWindows["aux-stale"] = model.ActiveWindow{Category: "logs", Type: model.WindowTypeAux, URL: "/logs"}
	ws.ActiveWindows["child-confirm"] = model.ActiveWindow{Category: "confirm", Type: model.WindowTypeChild, URL: "/confirm"}
	ws.ActiveWindows["widget-1"] = model.ActiveWindow{Category: "widget", Type: "widget", URL: "/w"}
	ws.CategoryPresets[model.MainCategory] = model.CategoryPreset{X: 40, Y: 30, Width: 1200, Height: 900}
	ws.CategoryPresets["settings"] = model.CategoryPreset{X: 300, Y: 200, Width: 640, Height: 480}
	return state
}

func TestService_RestoreEndToEnd(t *testing.T) {
	f := newFixture(t, savedSession())
	f.rt.FailCreate("aux-stale", errors.New("webview crashed"))

	require.NoError(t, f.svc.Restore(context.Background()))

	pos, err := f.main.OuterPosition()
	require.NoError(t, err)
	assert.Equal(t, host.Position{X: 40, Y: 30}, pos)
	size, err := f.main.InnerSize()
	require.NoError(t, err)
	assert.Equal(t, host.Size{Width: 1200, Height: 900}, size)
	assert.True(t, f.main.Visible())
	assert.GreaterOrEqual(t, f.main.FocusCount(), 1)

	settings := f.window(t, "aux-settings")
	cfg := settings.Config()
	require.NotNil(t, cfg.X)
	assert.Equal(t, 300.0, *cfg.X)
	assert.Equal(t, 640.0, cfg.Width)
	assert.Equal(t, "/settings", cfg.URL)

	_, ok := f.rt.Get("child-confirm")
	assert.True(t, ok)
	assert.Equal(t, []string{"child-confirm"}, f.svc.ModalLabels())
	assert.Equal(t, []string{"aux-settings"}, f.svc.AuxLabels())

	records := f.reg.GetActiveWindows()
	assert.Len(t, records, 3)
	assert.Contains(t, records, "main")
	assert.Contains(t, records, "aux-settings")
	assert.Contains(t, records, "child-confirm")
	assert.Equal(t, model.WindowTypeMain, records["main"].Type)

	preset, ok := f.reg.GetCategoryPreset(model.MainCategory)
	require.True(t, ok)
	assert.Equal(t, model.CategoryPreset{X: 40, Y: 30, Width: 1200, Height: 900}, preset)
	assert.Contains(t, f.svc.Tracker().Tracked(), "main")
}

func TestService_RestoreKeepsOneChild(t *testing.T) {
	state := model.NewAppState()
	ws := state.EnsureWorkspace(model.DefaultWorkspace)
	ws.ActiveWindows["child-a"] = model.ActiveWindow{Category: "confirm", Type: model.WindowTypeChild, URL: "/a"}
	ws.ActiveWindows["child-b"] = model.ActiveWindow{Category: "confirm", Type: model.WindowTypeChild, URL: "/b"}
	f := newFixture(t, state)

	require.NoError(t, f.svc.Restore(context.Background()))

	modal := f.svc.ModalLabels()
	require.Len(t, modal, 1)
	records := f.reg.GetActiveWindows()
	assert.Len(t, records, 2)
	assert.Contains(t, records, "main")
	assert.Contains(t, records, modal[0])
}

func TestService_RestoreMaximizedMain(t *testing.T) {
	state := model.NewAppState()
	state.EnsureWorkspace(model.DefaultWorkspace).CategoryPresets[model.MainCategory] =
		model.CategoryPreset{X: 10, Y: 20, Width: 800, Height: 600, Maximized: true}
	f := newFixture(t, state)

	require.NoError(t, f.svc.Restore(context.Background()))

	maximized, err := f.main.IsMaximized()
	require.NoError(t, err)
	assert.True(t, maximized)

	preset, ok := f.reg.GetCategoryPreset(model.MainCategory)
	require.True(t, ok)
	assert.Equal(t, model.CategoryPreset{X: 10, Y: 20, Width: 800, Height: 600, Maximized: true}, preset)
}

func TestService_RestoreShowsMainOnPresetFailure(t *testing.T) {
	state := model.NewAppState()
	state.EnsureWorkspace(model.DefaultWorkspace).CategoryPresets[model.MainCategory] =
		model.CategoryPreset{X: 10, Y: 20, Width: 800, Height: 600}

	rt := hosttest.NewRuntime()
	main := rt.AddWindow(model.MainLabel, host.WindowConfig{})
	reg := registry.New(state, nil, nil)
	svc, err := NewService(Dependencies{
		Owner:     main,
		Runtime:   rt,
		Messenger: messenger.New(true, reg, nil, nil),
		Registry:  reg,
	})
	require.NoError(t, err)

	main.FailOps(errors.New("compositor refused"))
	assert.NoError(t, svc.Restore(context.Background()))
	assert.Empty(t, main.XHistory())
}

func TestService_RestoreEmptySession(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.svc.Restore(context.Background()))
	assert.True(t, f.main.Visible())
	assert.Equal(t, []string{"main"}, keys(f.reg.GetActiveWindows()))
	assert.Empty(t, f.rt.Created())
}

func TestService_RestoreRequiresMain(t *testing.T) {
	rt := hosttest.NewRuntime()
	aux := rt.AddWindow("aux-1", host.WindowConfig{})
	svc, err := NewService(Dependencies{
		Owner:     aux,
		Runtime:   rt,
		Messenger: messenger.New(false, nil, nil, nil),
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Restore(context.Background()), ErrNotMain)
	assert.False(t, aux.Visible())
}

func keys(m map[string]model.ActiveWindow) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
