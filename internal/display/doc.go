// Package display runs application windows on GTK4 and libadwaita.
//
// Runtime implements host.Runtime. GTK objects are only touched on the GTK
// main loop: every call from another goroutine is marshalled with
// glib.IdleAdd and waits for its result. Window events and lifecycle hooks
// are delivered on a per-window goroutine, never on the main loop, so
// handlers may call back into the window freely.
//
// GTK4 cannot place a normal toplevel, so windows created with an explicit
// position are turned into layer-shell surfaces and positioned with
// margins when the compositor supports it.
package display
