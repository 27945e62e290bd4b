// Package output renders the persisted window layout.
package output

import (
	"io"

	"github.com/jmylchreest/winsession/internal/core"
	"github.com/jmylchreest/winsession/internal/model"
)

// Formatter formats layout state for output.
type Formatter interface {
	// Format writes the state to the writer.
	Format(w io.Writer, state *model.AppState) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatJSON   FormatType = "json"
	FormatYAML   FormatType = "yaml"
	FormatPlain  FormatType = "plain"
	FormatLabels FormatType = "labels"
)

// ValidFormats returns all supported format types.
func ValidFormats() []FormatType {
	return []FormatType{FormatPlain, FormatJSON, FormatYAML, FormatLabels}
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatYAML:
		return NewYAMLFormatter(opts)
	case FormatLabels:
		return NewLabelsFormatter(opts)
	case FormatPlain:
		fallthrough
	default:
		return NewPlainFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Workspace   string // Only this workspace (empty = all)
	ShowPresets bool   // Include category presets in plain output
	Template    string // Custom per-window template for plain output
	Filter      *core.FilterExpr
	Search      string           // Case-insensitive substring of label, category or URL
	Sort        core.SortOptions // Window order in plain and labels output
}

// DefaultFormatterOptions returns sensible defaults.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{ShowPresets: true}
}

// Select returns the part of state the options ask for: one workspace,
// or all, with windows not matching Filter or Search dropped. A missing workspace
// yields an empty state.
func Select(state *model.AppState, opts FormatterOptions) *model.AppState {
	var out *model.AppState
	if opts.Workspace == "" {
		out = state.Clone()
	} else {
		out = model.NewAppState()
		if ws := state.Workspace(opts.Workspace); ws != nil {
			out.Workspaces[opts.Workspace] = ws.Clone()
		}
	}

	if opts.Filter.Empty() && opts.Search == "" {
		return out
	}
	all := core.Entries(out)
	keep := make(map[string]bool, len(all))
	for _, e := range core.Search(core.FilterWithExpr(all, opts.Filter), opts.Search) {
		keep[e.Workspace+"/"+e.Label] = true
	}
	for _, e := range all {
		if !keep[e.Workspace+"/"+e.Label] {
			delete(out.Workspace(e.Workspace).ActiveWindows, e.Label)
		}
	}
	return out
}

// windows returns the records of one selected workspace in output order.
func (o FormatterOptions) windows(id string, ws *model.Workspace) []core.Entry {
	entries := core.WorkspaceEntries(id, ws)
	core.Sort(entries, o.Sort)
	return entries
}
