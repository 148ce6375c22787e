package output

import (
	"fmt"
	"io"

	"github.com/jmylchreest/padui/internal/model"
)

// PathsFormatter outputs just the sound file paths, one per line.
// Useful for piping to other commands (e.g., padui add Other --stdin).
type PathsFormatter struct{}

// NewPathsFormatter creates a new paths formatter.
func NewPathsFormatter() *PathsFormatter {
	return &PathsFormatter{}
}

// Format writes row paths to the writer, one per line.
func (f *PathsFormatter) Format(w io.Writer, rows []model.Row) error {
	for _, r := range rows {
		if _, err := fmt.Fprintln(w, r.Path); err != nil {
			return err
		}
	}
	return nil
}
