package output

import (
	"encoding/json"
	"io"

	"github.com/jmylchreest/winsession/internal/model"
)

// JSONFormatter formats layout state as JSON, in the layout file's shape.
type JSONFormatter struct {
	opts FormatterOptions
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Format writes the selected state as indented JSON.
func (f *JSONFormatter) Format(w io.Writer, state *model.AppState) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(Select(state, f.opts))
}
