// Package model defines the core data structures for winsession.
package model

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// WindowType classifies a top-level window.
type WindowType string

const (
	WindowTypeMain  WindowType = "main"
	WindowTypeAux   WindowType = "aux"
	WindowTypeChild WindowType = "child"
)

// Well-known identifiers.
const (
	// MainLabel is the fixed label of the primary window.
	MainLabel = "main"
	// MainCategory is the preset category the primary window's geometry is stored under.
	MainCategory = "main-window"
	// DefaultWorkspace is selected when no workspace is configured.
	DefaultWorkspace = "default"
)

// ValidWindowTypes returns all valid window types.
func ValidWindowTypes() []WindowType {
	return []WindowType{WindowTypeMain, WindowTypeAux, WindowTypeChild}
}

// Valid reports whether t is a known window type.
func (t WindowType) Valid() bool {
	switch t {
	case WindowTypeMain, WindowTypeAux, WindowTypeChild:
		return true
	}
	return false
}

// ActiveWindow is a record of a window believed to be open.
// The label is the key of the map it is stored in.
type ActiveWindow struct {
	Category string     `json:"category" yaml:"category"`
	Type     WindowType `json:"type" yaml:"type"`
	URL      string     `json:"url" yaml:"url"`
}

// CategoryPreset holds the last known geometry for a category, in logical pixels.
type CategoryPreset struct {
	X         float64 `json:"x" yaml:"x"`
	Y         float64 `json:"y" yaml:"y"`
	Width     float64 `json:"width" yaml:"width"`
	Height    float64 `json:"height" yaml:"height"`
	Maximized bool    `json:"maximized" yaml:"maximized"`
}

// Validation errors.
var (
	ErrEmptyLabel       = errors.New("label cannot be empty")
	ErrEmptyCategory    = errors.New("category cannot be empty")
	ErrInvalidType      = errors.New("type must be main, aux, or child")
	ErrInvalidGeometry  = errors.New("width and height must be greater than 0")
	ErrReservedMainType = errors.New("only the main label may use type main")
)

// Validate checks that the record is well formed for the given label.
func (w ActiveWindow) Validate(label string) error {
	if label == "" {
		return ErrEmptyLabel
	}
	if w.Category == "" {
		return ErrEmptyCategory
	}
	if !w.Type.Valid() {
		return ErrInvalidType
	}
	if w.Type == WindowTypeMain && label != MainLabel {
		return ErrReservedMainType
	}
	return nil
}

// Validate checks the preset has a usable size.
func (p CategoryPreset) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return ErrInvalidGeometry
	}
	return nil
}

// NewLabel generates a label of the form "<type>-<ulid>".
func NewLabel(t WindowType) (string, error) {
	if t == WindowTypeMain {
		return MainLabel, nil
	}
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate ULID: %w", err)
	}
	return string(t) + "-" + strings.ToLower(id.String()), nil
}

// LabelType infers the window type from a generated label.
// Returns false if the label does not carry a known prefix.
func LabelType(label string) (WindowType, bool) {
	if label == MainLabel {
		return WindowTypeMain, true
	}
	prefix, _, ok := strings.Cut(label, "-")
	if !ok {
		return "", false
	}
	t := WindowType(prefix)
	if t != WindowTypeAux && t != WindowTypeChild {
		return "", false
	}
	return t, true
}
