package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/winsession/internal/model"
)

func testState() *model.AppState {
	state := model.NewAppState()
	ws := state.EnsureWorkspace("default")
	ws.ActiveWindows["main"] = model.ActiveWindow{Category: model.MainCategory, Type: model.WindowTypeMain, URL: "/"}
	ws.ActiveWindows["aux-01"] = model.ActiveWindow{Category: "settings", Type: model.WindowTypeAux, URL: "/settings"}
	ws.CategoryPresets["settings"] = model.CategoryPreset{X: 10, Y: 20, Width: 640, Height: 480}
	state.EnsureWorkspace("work").ActiveWindows["main"] = model.ActiveWindow{Category: model.MainCategory, Type: model.WindowTypeMain, URL: "/"}
	return state
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loaded(t *testing.T, actions Actions) Model {
	t.Helper()
	m := New(nil, testState, actions, nil)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	updated, _ = updated.Update(m.loadState())
	return updated.(Model)
}

func TestModel_LoadsState(t *testing.T) {
	m := loaded(t, Actions{})

	assert.Equal(t, "default", m.Workspace())
	require.Len(t, m.list.Items(), 2)
	first := m.list.Items()[0].(windowItem)
	assert.Equal(t, "aux-01", first.label)
	require.NotNil(t, first.preset)
	assert.Contains(t, first.Description(), "10,20 640x480")
	assert.Contains(t, m.View(), "[default]")
}

func TestModel_SwitchesWorkspace(t *testing.T) {
	m := loaded(t, Actions{})

	updated, _ := m.Update(runes("l"))
	m = updated.(Model)
	assert.Equal(t, "work", m.Workspace())
	assert.Len(t, m.list.Items(), 1)

	updated, _ = m.Update(runes("l"))
	m = updated.(Model)
	assert.Equal(t, "default", m.Workspace())

	updated, _ = m.Update(runes("h"))
	assert.Equal(t, "work", updated.(Model).Workspace())
}

func TestModel_RefreshKeepsWorkspace(t *testing.T) {
	m := loaded(t, Actions{})
	updated, _ := m.Update(runes("l"))
	m = updated.(Model)

	state := testState()
	state.EnsureWorkspace("work").ActiveWindows["aux-02"] = model.ActiveWindow{Category: "logs", Type: model.WindowTypeAux, URL: "/logs"}
	updated, cmd := m.Update(stateMsg{state: state, watched: true})
	m = updated.(Model)

	assert.Equal(t, "work", m.Workspace())
	assert.Len(t, m.list.Items(), 2)
	assert.NotNil(t, cmd)
}

func TestModel_Detail(t *testing.T) {
	m := loaded(t, Actions{})

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	assert.Equal(t, ModeDetail, m.mode)
	assert.Contains(t, m.View(), "/settings")

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ModeList, updated.(Model).mode)
}

func TestModel_Actions(t *testing.T) {
	var closed, shaken string
	m := loaded(t, Actions{
		Close: func(label string) error { closed = label; return nil },
		Shake: func(string) error { return errors.New("no session") },
	})

	_, cmd := m.Update(runes("x"))
	require.NotNil(t, cmd)
	msg := cmd().(statusMsg)
	assert.False(t, msg.isErr)
	assert.Equal(t, "aux-01", closed)

	_, cmd = m.Update(runes("s"))
	require.NotNil(t, cmd)
	msg = cmd().(statusMsg)
	assert.True(t, msg.isErr)
	assert.Contains(t, msg.text, "no session")
	assert.Empty(t, shaken)
}

func TestModel_ActionWithoutSession(t *testing.T) {
	m := loaded(t, Actions{})

	_, cmd := m.Update(runes("x"))
	require.NotNil(t, cmd)
	msg := cmd().(statusMsg)
	assert.True(t, msg.isErr)
}

func TestModel_HelpToggle(t *testing.T) {
	m := loaded(t, Actions{})

	updated, _ := m.Update(runes("?"))
	m = updated.(Model)
	assert.Equal(t, ModeHelp, m.mode)
	assert.Contains(t, m.View(), "next workspace")

	updated, _ = m.Update(runes("?"))
	assert.Equal(t, ModeList, updated.(Model).mode)
}

func TestModel_EmptyState(t *testing.T) {
	m := New(nil, nil, Actions{}, nil)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	updated, _ = updated.Update(m.loadState())
	m = updated.(Model)

	assert.Empty(t, m.Workspace())
	assert.Contains(t, m.View(), "no saved layout")

	updated, _ = m.Update(runes("l"))
	assert.Empty(t, updated.(Model).Workspace())
}
