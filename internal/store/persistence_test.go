package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/winsession/internal/model"
)

func testState() *model.AppState {
	s := model.NewAppState()
	ws := s.EnsureWorkspace(model.DefaultWorkspace)
	ws.ActiveWindows["main"] = model.ActiveWindow{Category: model.MainCategory, Type: model.WindowTypeMain, URL: "/"}
	ws.ActiveWindows["aux-1"] = model.ActiveWindow{Category: "settings", Type: model.WindowTypeAux, URL: "/settings"}
	ws.CategoryPresets["settings"] = model.CategoryPreset{X: 10, Y: 20, Width: 800, Height: 600}
	return s
}

func TestJSONPersistence_WriteAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "window-state.json")
	p := NewJSONPersistence(path)

	require.NoError(t, p.Write(testState()))

	loaded, err := p.Load()
	require.NoError(t, err)
	assert.Equal(t, testState(), loaded)

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestJSONPersistence_LoadMissing(t *testing.T) {
	p := NewJSONPersistence(filepath.Join(t.TempDir(), "window-state.json"))
	_, err := p.Load()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJSONPersistence_WritesCamelCase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "window-state.json")
	require.NoError(t, NewJSONPersistence(path).Write(testState()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"activeWindows"`)
	assert.Contains(t, string(data), `"categoryPresets"`)
	assert.Contains(t, string(data), `"maximized": false`)
}

func TestDecodeState(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{
			name: "valid",
			data: `{"workspaces":{"default":{"activeWindows":{"aux-1":{"category":"a","type":"aux","url":"/a"}},"categoryPresets":{}}}}`,
		},
		{
			name: "empty workspaces",
			data: `{"workspaces":{}}`,
		},
		{
			name:    "not json",
			data:    `{{{`,
			wantErr: true,
		},
		{
			name:    "legacy presets and scopes",
			data:    `{"presets":{"a":{"x":1}},"scopes":{}}`,
			wantErr: true,
		},
		{
			name:    "legacy window list",
			data:    `{"windows":[{"label":"main"}]}`,
			wantErr: true,
		},
		{
			name:    "workspaces is an array",
			data:    `{"workspaces":[]}`,
			wantErr: true,
		},
		{
			name:    "workspace missing presets",
			data:    `{"workspaces":{"default":{"activeWindows":{}}}}`,
			wantErr: true,
		},
		{
			name:    "null active windows",
			data:    `{"workspaces":{"default":{"activeWindows":null,"categoryPresets":{}}}}`,
			wantErr: true,
		},
		{
			name:    "preset with wrong types",
			data:    `{"workspaces":{"default":{"activeWindows":{},"categoryPresets":{"a":{"x":"left"}}}}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := DecodeState([]byte(tt.data))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidShape)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, state.Workspaces)
		})
	}
}

func TestReadSnapshot_FallsBackToEmpty(t *testing.T) {
	dir := t.TempDir()

	missing := ReadSnapshot(filepath.Join(dir, "missing.json"), nil)
	assert.Empty(t, missing.Workspaces)

	legacy := filepath.Join(dir, "legacy.json")
	require.NoError(t, os.WriteFile(legacy, []byte(`{"presets":{},"scopes":{}}`), 0600))
	assert.Empty(t, ReadSnapshot(legacy, nil).Workspaces)

	good := filepath.Join(dir, "good.json")
	require.NoError(t, NewJSONPersistence(good).Write(testState()))
	assert.Equal(t, []string{"aux-1", "main"}, ReadSnapshot(good, nil).Workspace("default").Labels())
}
