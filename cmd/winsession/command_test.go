package main

import (
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/winsession/internal/config"
	"github.com/jmylchreest/winsession/internal/model"
	"github.com/jmylchreest/winsession/internal/store"
)

func useLayout(t *testing.T, state *model.AppState) {
	t.Helper()
	path := filepath.Join(t.TempDir(), store.LayoutFile)
	require.NoError(t, store.NewJSONPersistence(path).Write(state))

	prevFile, prevCfg := globalOpts.layoutFile, daemonCfg
	globalOpts.layoutFile = path
	daemonCfg = config.DefaultDaemonConfig()
	t.Cleanup(func() {
		globalOpts.layoutFile, daemonCfg = prevFile, prevCfg
	})
}

func completionState() *model.AppState {
	state := model.NewAppState()
	ws := state.EnsureWorkspace(model.DefaultWorkspace)
	ws.ActiveWindows[model.MainLabel] = model.ActiveWindow{Category: model.MainCategory, Type: model.WindowTypeMain, URL: "/"}
	ws.ActiveWindows["aux-a"] = model.ActiveWindow{Category: "settings", Type: model.WindowTypeAux, URL: "/settings"}
	ws.ActiveWindows["aux-b"] = model.ActiveWindow{Category: "settings", Type: model.WindowTypeAux, URL: "/settings/advanced"}
	state.EnsureWorkspace("work").ActiveWindows["aux-c"] = model.ActiveWindow{Category: "logs", Type: model.WindowTypeAux, URL: "/logs"}
	return state
}

func TestCompleteCategories(t *testing.T) {
	useLayout(t, completionState())

	got, directive := completeCategories(openCmd, nil, "")
	assert.Equal(t, []string{model.MainCategory, "settings"}, got)
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)
}

func TestCompleteLabels(t *testing.T) {
	useLayout(t, completionState())

	got, _ := completeLabels(closeCmd, nil, "")
	assert.Equal(t, []string{"aux-a", "aux-b", model.MainLabel}, got)

	got, _ = completeLabels(openCmd, []string{model.MainLabel}, "")
	assert.Empty(t, got)
}

func TestCompleteLabels_MissingLayout(t *testing.T) {
	prevFile := globalOpts.layoutFile
	globalOpts.layoutFile = filepath.Join(t.TempDir(), "missing.json")
	t.Cleanup(func() { globalOpts.layoutFile = prevFile })

	got, _ := completeLabels(closeCmd, nil, "")
	assert.Empty(t, got)
}
