package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmylchreest/winsession/internal/model"
)

// Persistence defines the interface for layout storage.
type Persistence interface {
	// Load reads the whole layout. A missing file yields ErrNotFound.
	Load() (*model.AppState, error)

	// Write replaces the whole layout.
	Write(state *model.AppState) error

	// Path returns where the layout is stored.
	Path() string
}

// JSONPersistence stores the layout as a single JSON document.
type JSONPersistence struct {
	mu   sync.Mutex
	path string
}

// NewJSONPersistence creates a JSONPersistence for path.
// The file and its directory are created on first write.
func NewJSONPersistence(path string) *JSONPersistence {
	return &JSONPersistence{path: path}
}

// Path returns the layout file path.
func (p *JSONPersistence) Path() string {
	return p.path
}

// Load reads and validates the layout file.
func (p *JSONPersistence) Load() (*model.AppState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}
	return DecodeState(data)
}

// Write atomically replaces the layout file via a temp file and rename.
func (p *JSONPersistence) Write(state *model.AppState) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p.path), 0700); err != nil {
		return fmt.Errorf("failed to create layout directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal layout: %w", err)
	}

	tmpPath := p.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write layout file: %w", err)
	}
	if err := os.Rename(tmpPath, p.path); err != nil {
		return fmt.Errorf("failed to replace layout file: %w", err)
	}
	return nil
}

// DecodeState parses a layout document and checks its shape:
// a "workspaces" object whose every entry holds an "activeWindows"
// object and a "categoryPresets" object. Anything else is ErrInvalidShape.
func DecodeState(data []byte) (*model.AppState, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}

	rawWorkspaces, ok := top["workspaces"]
	if !ok || !isObject(rawWorkspaces) {
		return nil, fmt.Errorf("%w: missing workspaces object", ErrInvalidShape)
	}

	var workspaces map[string]map[string]json.RawMessage
	if err := json.Unmarshal(rawWorkspaces, &workspaces); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}

	state := model.NewAppState()
	for id, fields := range workspaces {
		windows, ok := fields["activeWindows"]
		if !ok || !isObject(windows) {
			return nil, fmt.Errorf("%w: workspace %q has no activeWindows object", ErrInvalidShape, id)
		}
		presets, ok := fields["categoryPresets"]
		if !ok || !isObject(presets) {
			return nil, fmt.Errorf("%w: workspace %q has no categoryPresets object", ErrInvalidShape, id)
		}

		ws := model.NewWorkspace()
		if err := json.Unmarshal(windows, &ws.ActiveWindows); err != nil {
			return nil, fmt.Errorf("%w: workspace %q: %v", ErrInvalidShape, id, err)
		}
		if err := json.Unmarshal(presets, &ws.CategoryPresets); err != nil {
			return nil, fmt.Errorf("%w: workspace %q: %v", ErrInvalidShape, id, err)
		}
		state.Workspaces[id] = ws
	}
	return state, nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
