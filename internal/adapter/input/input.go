// Package input provides sources a saved window layout can be read from.
package input

import (
	"context"

	"github.com/jmylchreest/winsession/internal/model"
)

// StdinSource is the source name that reads from standard input.
const StdinSource = "-"

// InputAdapter fetches a layout from a source.
type InputAdapter interface {
	// Name returns the adapter identifier (a path, or "stdin").
	Name() string

	// Import reads the layout from the source.
	Import(ctx context.Context) (*model.AppState, error)
}

// NewAdapter creates an InputAdapter for source: "-" for stdin, anything
// else is a layout file path.
func NewAdapter(source string) (InputAdapter, error) {
	switch source {
	case "":
		return nil, &AdapterError{Source: source, Message: "no layout source given"}
	case StdinSource:
		return NewStdinAdapter(), nil
	default:
		return NewFileAdapter(source), nil
	}
}

// AdapterError represents an adapter-related error.
type AdapterError struct {
	Source  string
	Message string
	Err     error
}

func (e *AdapterError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}
