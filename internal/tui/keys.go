package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the key bindings for the TUI.
type KeyMap struct {
	// Navigation
	Up            key.Binding
	Down          key.Binding
	NextWorkspace key.Binding
	PrevWorkspace key.Binding

	// Actions
	Enter   key.Binding
	Back    key.Binding
	Copy    key.Binding
	CopyAll key.Binding
	Close   key.Binding
	Shake   key.Binding
	Refresh key.Binding

	// Global
	Quit key.Binding
	Help key.Binding
}

// ShortHelp returns a short help message.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Enter, k.NextWorkspace, k.Close, k.Shake, k.Help, k.Quit}
}

// FullHelp returns a full help message.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextWorkspace, k.PrevWorkspace},
		{k.Enter, k.Back, k.Copy, k.CopyAll},
		{k.Close, k.Shake, k.Refresh},
		{k.Help, k.Quit},
	}
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		NextWorkspace: key.NewBinding(
			key.WithKeys("tab", "l"),
			key.WithHelp("tab/l", "next workspace"),
		),
		PrevWorkspace: key.NewBinding(
			key.WithKeys("shift+tab", "h"),
			key.WithHelp("shift+tab/h", "previous workspace"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "view details"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "backspace"),
			key.WithHelp("esc", "back"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy label"),
		),
		CopyAll: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "copy workspace as JSON"),
		),
		Close: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "close window"),
		),
		Shake: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "shake window"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}
