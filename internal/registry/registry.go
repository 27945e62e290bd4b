// Package registry holds the in-memory window layout for one process.
//
// In the main process the registry is authoritative and every mutation is
// followed by a debounced save. Other processes keep a read-only copy with
// no saver attached.
package registry

import (
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/jmylchreest/winsession/internal/model"
)

// Saver receives a snapshot after each mutation.
type Saver interface {
	Save(state *model.AppState)
}

// Registry tracks active windows and category presets for the current workspace.
type Registry struct {
	mu        sync.RWMutex
	state     *model.AppState
	workspace string
	saver     Saver
	releasers map[string][]func()
	logger    *slog.Logger
}

// New creates a Registry over state. A nil state starts empty and a nil
// saver disables persistence.
func New(state *model.AppState, saver Saver, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if state == nil {
		state = model.NewAppState()
	}
	return &Registry{
		state:     state,
		workspace: model.DefaultWorkspace,
		saver:     saver,
		releasers: make(map[string][]func()),
		logger:    logger,
	}
}

// SetWorkspace selects the current workspace, creating it if missing.
func (r *Registry) SetWorkspace(id string) {
	if id == "" {
		id = model.DefaultWorkspace
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workspace = id
	r.state.EnsureWorkspace(id)
}

// Workspace returns the current workspace id.
func (r *Registry) Workspace() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.workspace
}

// Workspaces returns every known workspace id, sorted.
func (r *Registry) Workspaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.WorkspaceIDs()
}

// RegisterWindow inserts or overwrites the record for label.
func (r *Registry) RegisterWindow(label, category string, windowType model.WindowType, url string) {
	r.mu.Lock()
	ws := r.state.EnsureWorkspace(r.workspace)
	ws.ActiveWindows[label] = model.ActiveWindow{
		Category: category,
		Type:     windowType,
		URL:      url,
	}
	r.saveLocked()
	r.mu.Unlock()

	r.logger.Debug("window registered", "label", label, "category", category, "type", windowType)
}

// UpdateCategoryPreset replaces the preset for category.
func (r *Registry) UpdateCategoryPreset(category string, preset model.CategoryPreset) {
	r.mu.Lock()
	ws := r.state.EnsureWorkspace(r.workspace)
	ws.CategoryPresets[category] = preset
	r.saveLocked()
	r.mu.Unlock()
}

// RemoveWindow deletes the record for label and runs its tracking releasers.
// Removing an unknown label is a no-op.
func (r *Registry) RemoveWindow(label string) {
	r.mu.Lock()
	releasers := r.releasers[label]
	delete(r.releasers, label)

	removed := false
	if ws := r.state.Workspace(r.workspace); ws != nil {
		if _, ok := ws.ActiveWindows[label]; ok {
			delete(ws.ActiveWindows, label)
			removed = true
		}
	}
	if removed {
		r.saveLocked()
	}
	r.mu.Unlock()

	for _, release := range releasers {
		release()
	}
	if removed {
		r.logger.Debug("window removed", "label", label)
	}
}

// PruneInactiveWindows removes every record whose label is not in live.
// Returns the number of records removed.
func (r *Registry) PruneInactiveWindows(live []string) int {
	keep := make(map[string]bool, len(live))
	for _, label := range live {
		keep[label] = true
	}

	r.mu.Lock()
	var pruned []string
	if ws := r.state.Workspace(r.workspace); ws != nil {
		for label := range ws.ActiveWindows {
			if !keep[label] {
				delete(ws.ActiveWindows, label)
				pruned = append(pruned, label)
			}
		}
	}
	if len(pruned) > 0 {
		r.saveLocked()
	}
	r.mu.Unlock()

	if len(pruned) == 0 {
		return 0
	}
	slices.Sort(pruned)
	r.logger.Info("pruned inactive windows", "count", len(pruned), "labels", pruned)
	return len(pruned)
}

// Track attaches a release function to label, run when the label is removed.
func (r *Registry) Track(label string, release func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releasers[label] = append(r.releasers[label], release)
}

// GetCategoryPreset returns the preset for category in the current workspace.
func (r *Registry) GetCategoryPreset(category string) (model.CategoryPreset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ws := r.state.Workspace(r.workspace)
	if ws == nil {
		return model.CategoryPreset{}, false
	}
	preset, ok := ws.CategoryPresets[category]
	return preset, ok
}

// GetActiveWindows returns a copy of the current workspace's records.
func (r *Registry) GetActiveWindows() map[string]model.ActiveWindow {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]model.ActiveWindow)
	if ws := r.state.Workspace(r.workspace); ws != nil {
		maps.Copy(out, ws.ActiveWindows)
	}
	return out
}

// Snapshot returns a deep copy of the whole state.
func (r *Registry) Snapshot() *model.AppState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Clone()
}

// Replace swaps in a new state, keeping the current workspace selection.
// Used to refresh read-only copies from the authoritative registry.
func (r *Registry) Replace(state *model.AppState) {
	if state == nil {
		state = model.NewAppState()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
	r.state.EnsureWorkspace(r.workspace)
}

// saveLocked hands the saver a snapshot taken under the write lock, so
// saves arrive in mutation order. Saver.Save must not block or call back
// into the registry.
func (r *Registry) saveLocked() {
	if r.saver == nil {
		return
	}
	r.saver.Save(r.state.Clone())
}
