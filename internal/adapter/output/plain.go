package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"text/template"

	"github.com/jmylchreest/winsession/internal/model"
)

// PlainFormatter formats layout state as human-readable text.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// windowData is passed to custom templates, once per window.
type windowData struct {
	Workspace string
	Label     string
	model.ActiveWindow
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	f := &PlainFormatter{opts: opts}

	// Parse custom template if provided
	if opts.Template != "" {
		tmpl, err := template.New("plain").Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// Format writes one block per workspace.
func (f *PlainFormatter) Format(w io.Writer, state *model.AppState) error {
	selected := Select(state, f.opts)

	if f.template != nil {
		return f.formatTemplate(w, selected)
	}

	ids := selected.WorkspaceIDs()
	if len(ids) == 0 {
		_, err := fmt.Fprintln(w, "no saved layout")
		return err
	}

	for i, id := range ids {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := f.formatWorkspace(w, id, selected.Workspace(id)); err != nil {
			return err
		}
	}
	return nil
}

func (f *PlainFormatter) formatWorkspace(w io.Writer, id string, ws *model.Workspace) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "workspace %s\n", id)
	fmt.Fprintf(tw, "  windows (%d)\n", len(ws.ActiveWindows))
	for _, e := range f.opts.windows(id, ws) {
		fmt.Fprintf(tw, "    %s\t%s\t%s\t%s\n", e.Label, e.Type, e.Category, e.URL)
	}

	if f.opts.ShowPresets {
		fmt.Fprintf(tw, "  presets (%d)\n", len(ws.CategoryPresets))
		for _, category := range ws.Categories() {
			fmt.Fprintf(tw, "    %s\t%s\n", category, FormatPreset(ws.CategoryPresets[category]))
		}
	}

	return tw.Flush()
}

func (f *PlainFormatter) formatTemplate(w io.Writer, state *model.AppState) error {
	for _, id := range state.WorkspaceIDs() {
		for _, e := range f.opts.windows(id, state.Workspace(id)) {
			data := windowData{Workspace: id, Label: e.Label, ActiveWindow: e.ActiveWindow}
			var sb strings.Builder
			if err := f.template.Execute(&sb, data); err != nil {
				return fmt.Errorf("failed to execute template: %w", err)
			}
			line := strings.TrimRight(sb.String(), "\n")
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

// FormatPreset renders a preset as "x,y wxh", with a maximized marker.
func FormatPreset(p model.CategoryPreset) string {
	s := fmt.Sprintf("%g,%g %gx%g", p.X, p.Y, p.Width, p.Height)
	if p.Maximized {
		s += " (maximized)"
	}
	return s
}
