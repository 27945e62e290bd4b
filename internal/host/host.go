// Package host defines the windowing runtime capabilities the window
// services consume.
package host

import "errors"

// ErrWindowDestroyed is returned by operations on a window that no longer exists.
var ErrWindowDestroyed = errors.New("window destroyed")

// Window events delivered through Window.On.
const (
	EventMoved          = "moved"
	EventResized        = "resized"
	EventFocusChanged   = "focus-changed"
	EventCloseRequested = "close-requested"
)

// Position is a physical screen position.
type Position struct {
	X int
	Y int
}

// Size is a physical size.
type Size struct {
	Width  int
	Height int
}

// Event is passed to window event handlers. Focused is only meaningful
// for focus-changed.
type Event struct {
	Name    string
	Focused bool
}

// WindowConfig describes a window to create. Sizes and positions are logical.
type WindowConfig struct {
	URL         string
	Title       string
	Width       float64
	Height      float64
	X           *float64
	Y           *float64
	Resizable   bool
	Decorations bool
	Visible     bool
	Parent      string
	SkipTaskbar bool
	Center      bool
	Minimizable bool
}

// Lifecycle hooks are registered together with window creation, so none
// of them can be missed. Exactly one of OnCreated or OnError fires.
type Lifecycle struct {
	OnCreated   func(Window)
	OnError     func(error)
	OnDestroyed func()
}

// Window is a live top-level window.
type Window interface {
	Label() string

	OuterPosition() (Position, error)
	SetPosition(x, y float64) error
	InnerSize() (Size, error)
	SetSize(width, height float64) error
	ScaleFactor() (float64, error)

	IsMaximized() (bool, error)
	IsMinimized() (bool, error)
	Maximize() error

	Show() error
	SetFocus() error
	Destroy() error

	// On subscribes handler to the named event and returns an unsubscribe function.
	On(event string, handler func(Event)) func()
}

// Runtime creates and looks up windows.
type Runtime interface {
	// CreateWindow starts creating a window. The returned Window may not be
	// usable until Lifecycle.OnCreated fires.
	CreateWindow(label string, cfg WindowConfig, lc Lifecycle) (Window, error)
	Window(label string) (Window, bool)
	Labels() []string
}
