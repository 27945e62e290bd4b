package model

import (
	"maps"
	"slices"
)

// Workspace is a named partition of window records and presets.
type Workspace struct {
	ActiveWindows   map[string]ActiveWindow   `json:"activeWindows" yaml:"activeWindows"`
	CategoryPresets map[string]CategoryPreset `json:"categoryPresets" yaml:"categoryPresets"`
}

// NewWorkspace returns an empty workspace with initialised maps.
func NewWorkspace() *Workspace {
	return &Workspace{
		ActiveWindows:   make(map[string]ActiveWindow),
		CategoryPresets: make(map[string]CategoryPreset),
	}
}

// Clone creates a deep copy of the workspace.
func (w *Workspace) Clone() *Workspace {
	if w == nil {
		return NewWorkspace()
	}
	clone := NewWorkspace()
	maps.Copy(clone.ActiveWindows, w.ActiveWindows)
	maps.Copy(clone.CategoryPresets, w.CategoryPresets)
	return clone
}

// Labels returns the sorted labels of all active windows.
func (w *Workspace) Labels() []string {
	if w == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(w.ActiveWindows))
}

// Categories returns the sorted categories that have a preset.
func (w *Workspace) Categories() []string {
	if w == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(w.CategoryPresets))
}

// AppState is the persisted layout: every workspace keyed by id.
type AppState struct {
	Workspaces map[string]*Workspace `json:"workspaces" yaml:"workspaces"`
}

// NewAppState returns an empty state with no workspaces.
func NewAppState() *AppState {
	return &AppState{Workspaces: make(map[string]*Workspace)}
}

// Workspace returns the named workspace, or nil if it does not exist.
func (s *AppState) Workspace(id string) *Workspace {
	if s == nil || s.Workspaces == nil {
		return nil
	}
	return s.Workspaces[id]
}

// EnsureWorkspace returns the named workspace, creating it if missing.
func (s *AppState) EnsureWorkspace(id string) *Workspace {
	if s.Workspaces == nil {
		s.Workspaces = make(map[string]*Workspace)
	}
	ws, ok := s.Workspaces[id]
	if !ok || ws == nil {
		ws = NewWorkspace()
		s.Workspaces[id] = ws
	}
	if ws.ActiveWindows == nil {
		ws.ActiveWindows = make(map[string]ActiveWindow)
	}
	if ws.CategoryPresets == nil {
		ws.CategoryPresets = make(map[string]CategoryPreset)
	}
	return ws
}

// WorkspaceIDs returns the sorted workspace ids.
func (s *AppState) WorkspaceIDs() []string {
	if s == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(s.Workspaces))
}

// Clone creates a deep copy of the state.
func (s *AppState) Clone() *AppState {
	clone := NewAppState()
	if s == nil {
		return clone
	}
	for id, ws := range s.Workspaces {
		clone.Workspaces[id] = ws.Clone()
	}
	return clone
}
