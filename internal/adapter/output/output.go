// Package output provides output formatters for sound rows.
package output

import (
	"io"

	"github.com/jmylchreest/padui/internal/model"
)

// Formatter formats rows for output.
type Formatter interface {
	// Format writes formatted rows to the writer.
	Format(w io.Writer, rows []model.Row) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatDmenu FormatType = "dmenu"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
	FormatPlain FormatType = "plain"
	FormatPaths FormatType = "paths"
)

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatYAML:
		return NewYAMLFormatter(opts)
	case FormatDmenu:
		return NewDmenuFormatter(opts)
	case FormatPaths:
		return NewPathsFormatter()
	case FormatPlain:
		fallthrough
	default:
		return NewPlainFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template     string // Custom template for dmenu/plain format
	ShowIndex    bool   // Show 1-based position prefix
	ShowDuration bool   // Show m:ss duration
	ShowSize     bool   // Show humanized file size
	ShowHotkey   bool   // Show bound hotkey label
	NameMaxLen   int    // Maximum name length (0 = unlimited)
	Separator    string // Field separator for dmenu format
}

// DefaultFormatterOptions returns sensible defaults.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowIndex:    true,
		ShowDuration: true,
		ShowSize:     false,
		ShowHotkey:   true,
		NameMaxLen:   60,
		Separator:    " | ",
	}
}
