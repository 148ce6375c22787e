package output

import (
	"encoding/json"
	"io"

	"github.com/jmylchreest/padui/internal/model"
)

// JSONFormatter formats rows as JSON.
type JSONFormatter struct {
	opts FormatterOptions
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Format writes rows as a JSON array.
func (f *JSONFormatter) Format(w io.Writer, rows []model.Row) error {
	if rows == nil {
		rows = []model.Row{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rows)
}

// FormatValue writes any value as indented JSON.
func FormatValue(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
