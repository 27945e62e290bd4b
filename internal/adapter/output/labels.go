package output

import (
	"fmt"
	"io"

	"github.com/jmylchreest/winsession/internal/model"
)

// LabelsFormatter outputs just the window labels, one per line.
// Useful for piping to a picker (e.g. winsession close "$(... | fuzzel -d)").
type LabelsFormatter struct {
	opts FormatterOptions
}

// NewLabelsFormatter creates a new labels formatter.
func NewLabelsFormatter(opts FormatterOptions) *LabelsFormatter {
	return &LabelsFormatter{opts: opts}
}

// Format writes labels in workspace order, then in the configured window order.
func (f *LabelsFormatter) Format(w io.Writer, state *model.AppState) error {
	selected := Select(state, f.opts)
	for _, id := range selected.WorkspaceIDs() {
		for _, e := range f.opts.windows(id, selected.Workspace(id)) {
			if _, err := fmt.Fprintln(w, e.Label); err != nil {
				return err
			}
		}
	}
	return nil
}
