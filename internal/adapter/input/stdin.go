package input

import (
	"context"
	"io"
	"os"

	"github.com/jmylchreest/winsession/internal/model"
	"github.com/jmylchreest/winsession/internal/store"
)

// maxInputSize caps how much of stdin is read.
const maxInputSize = 10 * 1024 * 1024

// StdinAdapter reads a layout document from standard input.
type StdinAdapter struct {
	reader io.Reader
}

// NewStdinAdapter creates a new StdinAdapter reading from os.Stdin.
func NewStdinAdapter() *StdinAdapter {
	return &StdinAdapter{reader: os.Stdin}
}

// NewStdinAdapterWithReader creates a new StdinAdapter with a custom reader.
func NewStdinAdapterWithReader(r io.Reader) *StdinAdapter {
	return &StdinAdapter{reader: r}
}

// Name returns the adapter identifier.
func (a *StdinAdapter) Name() string {
	return "stdin"
}

// Import reads and decodes the whole input. Empty input is an empty layout.
func (a *StdinAdapter) Import(ctx context.Context) (*model.AppState, error) {
	data, err := io.ReadAll(io.LimitReader(a.reader, maxInputSize+1))
	if err != nil {
		return nil, &AdapterError{Source: "stdin", Message: "failed to read stdin", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) > maxInputSize {
		return nil, &AdapterError{Source: "stdin", Message: "input too large"}
	}
	if len(data) == 0 {
		return model.NewAppState(), nil
	}

	state, err := store.DecodeState(data)
	if err != nil {
		return nil, &AdapterError{Source: "stdin", Message: "failed to decode layout", Err: err}
	}
	return state, nil
}
