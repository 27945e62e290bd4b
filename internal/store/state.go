package store

import (
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/jmylchreest/winsession/internal/model"
)

// LayoutFile is the layout file name inside the data directory.
const LayoutFile = "window-state.json"

// DataDir returns the path to the winsession data directory.
// Uses XDG_DATA_HOME or defaults to ~/.local/share/winsession.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "winsession")
}

// DefaultLayoutPath returns the layout file path, creating its directory.
func DefaultLayoutPath() (string, error) {
	return xdg.DataFile(filepath.Join("winsession", LayoutFile))
}

// ReadSnapshot loads a read-only view of the layout at path.
// It never fails: any problem is logged and an empty state returned.
func ReadSnapshot(path string, logger *slog.Logger) *model.AppState {
	if logger == nil {
		logger = slog.Default()
	}
	return loadOrEmpty(NewJSONPersistence(path), logger)
}

func loadOrEmpty(p Persistence, logger *slog.Logger) *model.AppState {
	state, err := p.Load()
	switch {
	case err == nil:
		return state
	case errors.Is(err, ErrNotFound):
		logger.Debug("no layout file, starting empty", "path", p.Path())
	case errors.Is(err, ErrInvalidShape):
		logger.Warn("discarding layout file with unexpected shape", "path", p.Path(), "error", err)
	default:
		logger.Warn("failed to load layout file", "path", p.Path(), "error", err)
	}
	return model.NewAppState()
}

// Errors
var (
	ErrStoreClosed  = storeError("store is closed")
	ErrNotFound     = storeError("layout file not found")
	ErrInvalidShape = storeError("layout file has invalid shape")
)

type storeError string

func (e storeError) Error() string {
	return string(e)
}
