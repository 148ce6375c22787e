package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/padui/internal/model"
)

// PlainFormatter formats rows as aligned plain text.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	f := &PlainFormatter{opts: opts}

	// Parse custom template if provided
	if opts.Template != "" {
		tmpl, err := template.New("plain").Funcs(templateFuncs()).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// Format writes rows as plain text, one per line.
func (f *PlainFormatter) Format(w io.Writer, rows []model.Row) error {
	width := 0
	for _, r := range rows {
		width = max(width, len([]rune(truncate(r.Name, f.opts.NameMaxLen))))
	}

	for i := range rows {
		if err := f.formatRow(w, &rows[i], width); err != nil {
			return err
		}
	}
	return nil
}

// formatRow formats a single row.
func (f *PlainFormatter) formatRow(w io.Writer, r *model.Row, width int) error {
	// Use custom template if available
	if f.template != nil {
		if err := f.template.Execute(w, newTemplateData(r)); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	}

	var sb strings.Builder

	if f.opts.ShowIndex {
		sb.WriteString(fmt.Sprintf("[%d] ", r.Index+1))
	}

	if r.IsFavorite {
		sb.WriteString("* ")
	} else {
		sb.WriteString("  ")
	}

	name := truncate(r.Name, f.opts.NameMaxLen)
	sb.WriteString(name)
	sb.WriteString(strings.Repeat(" ", width-len([]rune(name))))

	if f.opts.ShowDuration {
		sb.WriteString(fmt.Sprintf("  %5s", r.DurationLabel()))
	}

	if f.opts.ShowSize {
		sb.WriteString(fmt.Sprintf("  %8s", humanize.Bytes(uint64(max(r.Size, 0)))))
	}

	if f.opts.ShowHotkey && r.HotkeyLabel != "" {
		sb.WriteString(fmt.Sprintf("  [%s]", r.HotkeyLabel))
	}

	if r.Playing {
		sb.WriteString("  (playing)")
	}

	sb.WriteString("\n")

	_, err := w.Write([]byte(sb.String()))
	return err
}

// FormatField outputs a specific field from a row.
func FormatField(r *model.Row, field string) string {
	switch strings.ToLower(field) {
	case "index", "position":
		return fmt.Sprintf("%d", r.Index+1)
	case "name":
		return r.Name
	case "path", "file":
		return r.Path
	case "duration":
		return r.DurationLabel()
	case "size":
		return humanize.Bytes(uint64(max(r.Size, 0)))
	case "hotkey", "key":
		return r.HotkeyLabel
	case "favorite", "fav":
		return fmt.Sprintf("%t", r.IsFavorite)
	case "created", "added":
		return humanize.Time(r.CreatedAt)
	default:
		return r.Name
	}
}
