package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/padui/internal/model"
)

// DmenuFormatter formats rows for dmenu/rofi/fuzzel.
type DmenuFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewDmenuFormatter creates a new dmenu formatter.
func NewDmenuFormatter(opts FormatterOptions) *DmenuFormatter {
	f := &DmenuFormatter{opts: opts}

	// Parse custom template if provided
	if opts.Template != "" {
		tmpl, err := template.New("dmenu").Funcs(templateFuncs()).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// Format writes rows in dmenu format (one per line).
func (f *DmenuFormatter) Format(w io.Writer, rows []model.Row) error {
	for i := range rows {
		line := f.formatLine(&rows[i])
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// formatLine formats a single row line.
func (f *DmenuFormatter) formatLine(r *model.Row) string {
	// Use custom template if available
	if f.template != nil {
		var buf strings.Builder
		if err := f.template.Execute(&buf, newTemplateData(r)); err == nil {
			return buf.String()
		}
	}

	// Default format: index | name | duration | hotkey
	var parts []string
	sep := f.opts.Separator
	if sep == "" {
		sep = " | "
	}

	if f.opts.ShowIndex {
		parts = append(parts, fmt.Sprintf("%d", r.Index+1))
	}

	name := truncate(r.Name, f.opts.NameMaxLen)
	if r.IsFavorite {
		name = "* " + name
	}
	parts = append(parts, name)

	if f.opts.ShowDuration {
		parts = append(parts, r.DurationLabel())
	}

	if f.opts.ShowSize {
		parts = append(parts, humanize.Bytes(uint64(max(r.Size, 0))))
	}

	if f.opts.ShowHotkey && r.HotkeyLabel != "" {
		parts = append(parts, r.HotkeyLabel)
	}

	return strings.Join(parts, sep)
}

// templateData provides data for custom templates.
type templateData struct {
	Index    int // 1-based
	Row      *model.Row
	Duration string
	Size     string
	Added    string
}

func newTemplateData(r *model.Row) templateData {
	return templateData{
		Index:    r.Index + 1,
		Row:      r,
		Duration: r.DurationLabel(),
		Size:     humanize.Bytes(uint64(max(r.Size, 0))),
		Added:    humanize.Time(r.CreatedAt),
	}
}

// templateFuncs returns template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"truncate": truncate,
		"bytes": func(n int64) string {
			return humanize.Bytes(uint64(max(n, 0)))
		},
		"ago": func(t time.Time) string {
			return humanize.Time(t)
		},
		"star": func(on bool) string {
			if on {
				return "*"
			}
			return " "
		},
	}
}

// truncate shortens s to maxLen runes, marking the cut with "...".
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if maxLen <= 0 || len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
