// Package core provides filtering, sorting, and lookup of window records.
package core

import (
	"github.com/jmylchreest/winsession/internal/model"
)

// Entry is one saved window record together with its workspace and label.
type Entry struct {
	Workspace string
	Label     string
	model.ActiveWindow
}

// Entries flattens state into entries, in workspace then label order.
func Entries(state *model.AppState) []Entry {
	var entries []Entry
	for _, id := range state.WorkspaceIDs() {
		entries = append(entries, WorkspaceEntries(id, state.Workspace(id))...)
	}
	return entries
}

// WorkspaceEntries returns the entries of one workspace in label order.
func WorkspaceEntries(id string, ws *model.Workspace) []Entry {
	if ws == nil {
		return nil
	}
	entries := make([]Entry, 0, len(ws.ActiveWindows))
	for _, label := range ws.Labels() {
		entries = append(entries, Entry{Workspace: id, Label: label, ActiveWindow: ws.ActiveWindows[label]})
	}
	return entries
}
