package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLabel(t *testing.T) {
	aux, err := NewLabel(WindowTypeAux)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(aux, "aux-"))

	child, err := NewLabel(WindowTypeChild)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(child, "child-"))

	main, err := NewLabel(WindowTypeMain)
	require.NoError(t, err)
	assert.Equal(t, MainLabel, main)

	other, err := NewLabel(WindowTypeAux)
	require.NoError(t, err)
	assert.NotEqual(t, aux, other)
}

func TestLabelType(t *testing.T) {
	tests := []struct {
		label  string
		want   WindowType
		wantOK bool
	}{
		{"main", WindowTypeMain, true},
		{"aux-01j0abc", WindowTypeAux, true},
		{"child-01j0abc", WindowTypeChild, true},
		{"settings", "", false},
		{"popup-01j0abc", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := LabelType(tt.label)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestActiveWindow_Validate(t *testing.T) {
	tests := []struct {
		name    string
		label   string
		window  ActiveWindow
		wantErr error
	}{
		{
			name:   "valid aux",
			label:  "aux-1",
			window: ActiveWindow{Category: "settings", Type: WindowTypeAux, URL: "/settings"},
		},
		{
			name:    "empty label",
			window:  ActiveWindow{Category: "settings", Type: WindowTypeAux},
			wantErr: ErrEmptyLabel,
		},
		{
			name:    "empty category",
			label:   "aux-1",
			window:  ActiveWindow{Type: WindowTypeAux},
			wantErr: ErrEmptyCategory,
		},
		{
			name:    "unknown type",
			label:   "aux-1",
			window:  ActiveWindow{Category: "x", Type: "popup"},
			wantErr: ErrInvalidType,
		},
		{
			name:    "main type on other label",
			label:   "aux-1",
			window:  ActiveWindow{Category: "x", Type: WindowTypeMain},
			wantErr: ErrReservedMainType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.window.Validate(tt.label)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAppState_EnsureWorkspace(t *testing.T) {
	s := &AppState{}
	ws := s.EnsureWorkspace("default")
	require.NotNil(t, ws)
	assert.NotNil(t, ws.ActiveWindows)
	assert.NotNil(t, ws.CategoryPresets)
	assert.Same(t, ws, s.EnsureWorkspace("default"))
	assert.Nil(t, s.Workspace("other"))
}

func TestAppState_Clone(t *testing.T) {
	s := NewAppState()
	ws := s.EnsureWorkspace("default")
	ws.ActiveWindows["aux-1"] = ActiveWindow{Category: "a", Type: WindowTypeAux, URL: "/a"}
	ws.CategoryPresets["a"] = CategoryPreset{X: 1, Y: 2, Width: 3, Height: 4}

	clone := s.Clone()
	ws.ActiveWindows["aux-2"] = ActiveWindow{Category: "b", Type: WindowTypeAux}
	ws.CategoryPresets["a"] = CategoryPreset{Width: 10, Height: 10}

	cws := clone.Workspace("default")
	require.NotNil(t, cws)
	assert.Equal(t, []string{"aux-1"}, cws.Labels())
	assert.Equal(t, 3.0, cws.CategoryPresets["a"].Width)
}
