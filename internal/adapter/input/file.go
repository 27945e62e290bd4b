package input

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jmylchreest/winsession/internal/model"
	"github.com/jmylchreest/winsession/internal/store"
)

// FileAdapter reads the layout file the daemon writes.
type FileAdapter struct {
	path   string
	logger *slog.Logger
}

// NewFileAdapter creates a FileAdapter for path.
func NewFileAdapter(path string) *FileAdapter {
	return &FileAdapter{path: path, logger: slog.Default()}
}

// Name returns the file path.
func (a *FileAdapter) Name() string {
	return a.path
}

// Import loads the layout. A file that does not exist yet is an empty
// layout; a malformed one is an error, unlike in the daemon.
func (a *FileAdapter) Import(ctx context.Context) (*model.AppState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	state, err := store.NewJSONPersistence(a.path).Load()
	switch {
	case err == nil:
		return state, nil
	case errors.Is(err, store.ErrNotFound):
		a.logger.Debug("layout file not found", "path", a.path)
		return model.NewAppState(), nil
	default:
		return nil, &AdapterError{Source: a.path, Message: "failed to read layout", Err: err}
	}
}
