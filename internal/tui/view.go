package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/padui/internal/model"
)

var (
	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("8"))
	activeTabStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("12")).Underline(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	selectedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	playingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	favoriteStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
)

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	switch m.mode {
	case ModeHelp:
		return m.viewHelp()
	default:
		return m.viewBoard()
	}
}

func (m Model) viewBoard() string {
	var b strings.Builder

	b.WriteString(m.viewHeader())
	b.WriteString("\n")

	if m.mode == ModeSearch {
		countStr := fmt.Sprintf("(%d matches)", len(m.visible))
		b.WriteString("Search: " + m.searchInput.View() + " " + dimStyle.Render(countStr))
	} else if m.searchQuery != "" {
		b.WriteString(dimStyle.Render(fmt.Sprintf("filter %q (%d matches)", m.searchQuery, len(m.visible))))
	}
	b.WriteString("\n")

	b.WriteString(m.viewRows())
	b.WriteString("\n")
	b.WriteString(m.viewFooter())
	return b.String()
}

// viewHeader renders the tab bar and the volume.
func (m Model) viewHeader() string {
	parts := make([]string, 0, len(m.tabs))
	for i, t := range m.tabs {
		if i == m.current {
			parts = append(parts, activeTabStyle.Render(t))
		} else {
			parts = append(parts, tabStyle.Render(t))
		}
	}
	tabs := lipgloss.JoinHorizontal(lipgloss.Top, parts...)

	right := fmt.Sprintf("vol %d%%", m.volume)
	if m.loading != nil {
		right = fmt.Sprintf("loading %d/%d  %s", m.loading.completed, m.loading.total, right)
	}
	right = dimStyle.Render(right)

	gap := m.width - lipgloss.Width(tabs) - lipgloss.Width(right)
	if gap < 1 {
		return tabs + " " + right
	}
	return tabs + strings.Repeat(" ", gap) + right
}

func (m Model) viewRows() string {
	if len(m.visible) == 0 {
		if m.searchQuery != "" {
			return dimStyle.Render("  no matches")
		}
		return dimStyle.Render("  no sounds in this tab; add some with: padui add " + m.tab() + " <files>")
	}

	page := m.pageSize()
	end := min(m.offset+page, len(m.visible))
	lines := make([]string, 0, end-m.offset)
	for i := m.offset; i < end; i++ {
		lines = append(lines, m.renderRow(m.visible[i], i == m.cursor))
	}
	return strings.Join(lines, "\n")
}

// renderRow renders one sound: position, favorite star, name, length,
// hotkey and a play marker.
func (m Model) renderRow(r model.Row, selected bool) string {
	star := " "
	if r.IsFavorite {
		star = "*"
	}
	marker := " "
	if r.Playing {
		marker = "▶"
	}
	hotkey := ""
	if r.HotkeyLabel != "" {
		hotkey = "[" + r.HotkeyLabel + "]"
	}

	nameWidth := max(m.width-24, 10)
	name := truncate(r.Name, nameWidth)

	if selected {
		line := fmt.Sprintf("%s %3d %s %-*s %6s %5s", marker, r.Index+1, star, nameWidth, name, r.DurationLabel(), hotkey)
		return selectedStyle.Render(line)
	}

	if r.Playing {
		marker = playingStyle.Render(marker)
		name = playingStyle.Render(fmt.Sprintf("%-*s", nameWidth, name))
	} else {
		name = fmt.Sprintf("%-*s", nameWidth, name)
	}
	if r.IsFavorite {
		star = favoriteStyle.Render(star)
	}
	return fmt.Sprintf("%s %3d %s %s %6s %5s", marker, r.Index+1, star, name, dimStyle.Render(r.DurationLabel()), keyStyle.Render(hotkey))
}

func (m Model) viewFooter() string {
	if m.mode == ModeBind {
		if row := m.selected(); row != nil {
			return statusStyle.Render("Press 1-9 or F1-F12 to bind " + row.Name + ", backspace to clear, esc to cancel")
		}
	}
	if m.statusMsg != "" {
		if m.statusErr {
			return errorStyle.Render(m.statusMsg)
		}
		return statusStyle.Render(m.statusMsg)
	}
	mode := "board"
	if m.mode == ModeSearch {
		mode = "search"
	}
	return m.buildKeybindBar(m.width, mode)
}

func (m Model) viewHelp() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)

	s := titleStyle.Render("Keyboard Shortcuts") + "\n\n"
	s += dimStyle.Render("Shortcuts") + "\n"
	s += keyStyle.Render("  1-9, F1-F12") + "  Play the bound sound, or the sound at that position\n\n"
	s += m.help.FullHelpView(m.keys.FullHelp()) + "\n\n"
	s += dimStyle.Render("Press ? or esc to return")
	return s
}

// keybind represents a single keybind with priority for the status bar.
type keybind struct {
	key      string
	desc     string
	priority int // lower = more important (shown first)
}

// buildKeybindBar builds a keybind bar that fits within the given width.
// mode determines which keybinds are shown: "board" or "search"
func (m Model) buildKeybindBar(width int, mode string) string {
	var binds []keybind

	switch mode {
	case "board":
		binds = []keybind{
			{"q", "quit", 1},
			{"enter", "play/stop", 2},
			{"space", "stop all", 3},
			{"?", "help", 4},
			{"tab", "next tab", 5},
			{"f", "fav", 6},
			{"b", "bind", 7},
			{"+/-", "volume", 8},
			{"/", "search", 9},
			{"r", "rescan", 10},
		}
	case "search":
		binds = []keybind{
			{"enter", "keep", 1},
			{"esc", "clear", 2},
			{"↑/↓", "navigate", 3},
		}
	}

	// Build the bar, adding keybinds until we run out of space
	const separator = "  "
	result := ""
	for _, b := range binds {
		item := keyStyle.Render(b.key) + " " + b.desc
		testLen := lipgloss.Width(result) + lipgloss.Width(item)
		if result != "" {
			testLen += len(separator)
		}

		if width > 0 && testLen > width {
			break
		}
		if result != "" {
			result += separator
		}
		result += item
	}

	return dimStyle.Render(result)
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
