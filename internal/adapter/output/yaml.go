package output

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/winsession/internal/model"
)

// YAMLFormatter formats layout state as YAML.
type YAMLFormatter struct {
	opts FormatterOptions
}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter(opts FormatterOptions) *YAMLFormatter {
	return &YAMLFormatter{opts: opts}
}

// Format writes the selected state as YAML.
func (f *YAMLFormatter) Format(w io.Writer, state *model.AppState) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(Select(state, f.opts)); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return encoder.Close()
}
