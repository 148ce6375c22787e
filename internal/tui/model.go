// Package tui provides the BubbleTea-based soundboard.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jmylchreest/padui/internal/core"
	"github.com/jmylchreest/padui/internal/model"
	"github.com/jmylchreest/padui/internal/pad"
	"github.com/jmylchreest/padui/internal/scheduler"
)

// VolumeStep is how much +/- change the volume.
const VolumeStep = 5

// Board is the part of *pad.Coordinator the TUI drives.
type Board interface {
	Tabs() ([]string, error)
	Rows(tab string) ([]model.Row, error)
	LoadTab(ctx context.Context, tab string) ([]model.Row, error)
	RequestToggle(tab string, index int) (scheduler.Result, error)
	PressShortcut(tab string, slot model.Slot) (scheduler.Result, error)
	StopAll(tab string) int
	ToggleFavorite(tab string, index int) (bool, error)
	AssignHotkey(tab string, index int, slot model.Slot) error
	ClearHotkey(tab string, index int) error
	Volume() int
	SetVolume(volume int) (int, error)
	CurrentTab() int
	SetCurrentTab(position int) error
	Tick() []scheduler.Slot
	Subscribe() <-chan pad.Event
	Unsubscribe(ch <-chan pad.Event)
}

// Mode represents the current UI mode.
type Mode int

const (
	ModeBoard Mode = iota
	ModeSearch
	ModeBind
	ModeHelp
)

// Model is the main TUI model.
type Model struct {
	board Board

	// Current mode
	mode Mode

	// Components
	searchInput textinput.Model
	help        help.Model
	keys        KeyMap

	// State
	tabs        []string
	current     int
	rows        []model.Row // Current tab, unfiltered
	visible     []model.Row // After search
	cursor      int
	offset      int
	searchQuery string
	volume      int
	loading     *loadProgress
	width       int
	height      int
	ready       bool

	tickInterval     time.Duration
	clipboardCommand string

	// Status message
	statusMsg string
	statusErr bool

	events <-chan pad.Event
}

type loadProgress struct {
	tab              string
	completed, total int
}

// Options configures the TUI model.
type Options struct {
	TickInterval     time.Duration
	ClipboardCommand string // Empty auto-detects wl-copy, xclip or xsel
}

// New creates a new TUI model over board. Tabs must already be loaded.
func New(board Board, opts Options) Model {
	if opts.TickInterval <= 0 {
		opts.TickInterval = pad.DefaultTickInterval
	}

	searchInput := textinput.New()
	searchInput.Placeholder = "Search..."
	searchInput.CharLimit = 100

	m := Model{
		board:            board,
		mode:             ModeBoard,
		searchInput:      searchInput,
		help:             help.New(),
		keys:             DefaultKeyMap(),
		tickInterval:     opts.TickInterval,
		clipboardCommand: opts.ClipboardCommand,
		events:           board.Subscribe(),
	}
	m.current = board.CurrentTab()
	m.refresh()
	return m
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.tick(),
		m.waitForEvent,
	)
}

type tickMsg time.Time

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type eventMsg pad.Event

// waitForEvent blocks until the board announces something.
func (m Model) waitForEvent() tea.Msg {
	if m.events == nil {
		return nil
	}
	e, ok := <-m.events
	if !ok {
		return nil
	}
	return eventMsg(e)
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type reloadDoneMsg struct {
	tab string
	err error
}

type copyResultMsg struct {
	err error
}

func status(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.help.Width = msg.Width
		m.clampCursor()
		return m, nil

	case tickMsg:
		m.board.Tick()
		return m, m.tick()

	case eventMsg:
		return m.handleEvent(pad.Event(msg))

	case reloadDoneMsg:
		m.refresh()
		if msg.err != nil && !errors.Is(msg.err, pad.ErrSuperseded) {
			return m, status("Rescan failed: "+msg.err.Error(), true)
		}
		return m, status("Rescanned "+msg.tab, false)

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			return m, status("Copy failed: "+msg.err.Error(), true)
		}
		return m, status("Copied to clipboard", false)
	}

	if m.mode == ModeSearch {
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleEvent refreshes the view for board events and keeps listening.
func (m Model) handleEvent(e pad.Event) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.waitForEvent}

	switch e.Type {
	case pad.EventLoadProgress:
		if e.Total > 0 && e.Completed < e.Total {
			m.loading = &loadProgress{tab: e.Tab, completed: e.Completed, total: e.Total}
		} else {
			m.loading = nil
		}
	case pad.EventTabLoaded:
		if m.loading != nil && m.loading.tab == e.Tab {
			m.loading = nil
		}
		m.refresh()
	case pad.EventVolumeChanged:
		m.volume = e.Volume
	case pad.EventWarning:
		cmds = append(cmds, status("Warning: "+errText(e.Err), true))
	case pad.EventError:
		m.refresh()
		cmds = append(cmds, status("Error: "+errText(e.Err), true))
	default:
		m.refresh()
	}

	return m, tea.Batch(cmds...)
}

func errText(err error) string {
	if err == nil {
		return "unknown"
	}
	return err.Error()
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case ModeSearch:
		return m.handleSearchKey(msg)
	case ModeBind:
		return m.handleBindKey(msg)
	}

	// Global keys
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.board.Unsubscribe(m.events)
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		if m.mode == ModeHelp {
			m.mode = ModeBoard
		} else {
			m.mode = ModeHelp
		}
		return m, nil
	}

	if m.mode == ModeHelp {
		if key.Matches(msg, m.keys.Back) {
			m.mode = ModeBoard
		}
		return m, nil
	}

	return m.handleBoardKey(msg)
}

// handleBoardKey handles keys in board mode.
func (m Model) handleBoardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if slot, err := model.ParseSlot(msg.String()); err == nil {
		return m.pressShortcut(slot)
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		m.cursor--
	case key.Matches(msg, m.keys.Down):
		m.cursor++
	case key.Matches(msg, m.keys.PageUp):
		m.cursor -= m.pageSize()
	case key.Matches(msg, m.keys.PageDown):
		m.cursor += m.pageSize()
	case key.Matches(msg, m.keys.Home):
		m.cursor = 0
	case key.Matches(msg, m.keys.End):
		m.cursor = len(m.visible) - 1

	case key.Matches(msg, m.keys.NextTab):
		return m.switchTab(1)
	case key.Matches(msg, m.keys.PrevTab):
		return m.switchTab(-1)

	case key.Matches(msg, m.keys.Toggle):
		row := m.selected()
		if row == nil {
			return m, nil
		}
		res, err := m.board.RequestToggle(m.tab(), row.Index)
		m.refresh()
		if err != nil {
			return m, status(err.Error(), true)
		}
		return m, status(describeResult(res), false)

	case key.Matches(msg, m.keys.StopAll):
		n := m.board.StopAll("")
		m.refresh()
		return m, status(fmt.Sprintf("Stopped %d sound(s)", n), false)

	case key.Matches(msg, m.keys.Favorite):
		row := m.selected()
		if row == nil {
			return m, nil
		}
		on, err := m.board.ToggleFavorite(m.tab(), row.Index)
		m.refresh()
		if err != nil {
			return m, status("Favorite not saved: "+err.Error(), true)
		}
		if on {
			return m, status("Added "+row.Name+" to favorites", false)
		}
		return m, status("Removed "+row.Name+" from favorites", false)

	case key.Matches(msg, m.keys.Hotkey):
		if m.selected() == nil {
			return m, nil
		}
		m.mode = ModeBind
		return m, nil

	case key.Matches(msg, m.keys.VolumeUp):
		return m.changeVolume(VolumeStep)
	case key.Matches(msg, m.keys.VolumeDown):
		return m.changeVolume(-VolumeStep)

	case key.Matches(msg, m.keys.Copy):
		if row := m.selected(); row != nil {
			path, command := row.Path, m.clipboardCommand
			return m, func() tea.Msg {
				return copyResultMsg{err: copyText(path, command)}
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.searchInput.SetValue("")
		m.searchQuery = ""
		m.applySearch()
		m.mode = ModeSearch
		m.searchInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Refresh):
		tab, board := m.tab(), m.board
		if tab == "" {
			return m, nil
		}
		return m, func() tea.Msg {
			_, err := board.LoadTab(context.Background(), tab)
			return reloadDoneMsg{tab: tab, err: err}
		}
	}

	m.clampCursor()
	return m, nil
}

// handleSearchKey handles keys in search mode.
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		// Esc exits search mode and clears search
		m.mode = ModeBoard
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		m.searchQuery = ""
		m.applySearch()
		return m, nil

	case tea.KeyEnter:
		// Enter keeps the filter and returns to the board
		m.mode = ModeBoard
		m.searchInput.Blur()
		return m, nil

	case tea.KeyUp:
		m.cursor--
		m.clampCursor()
		return m, nil

	case tea.KeyDown:
		m.cursor++
		m.clampCursor()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)

	// Live filtering
	m.searchQuery = m.searchInput.Value()
	m.applySearch()

	return m, cmd
}

// handleBindKey assigns the next shortcut key to the selected sound.
func (m Model) handleBindKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = ModeBoard
	row := m.selected()
	if row == nil {
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEsc:
		return m, nil
	case tea.KeyBackspace, tea.KeyDelete:
		err := m.board.ClearHotkey(m.tab(), row.Index)
		m.refresh()
		if err != nil {
			return m, status("Hotkey not saved: "+err.Error(), true)
		}
		return m, status("Cleared hotkey for "+row.Name, false)
	}

	slot, err := model.ParseSlot(msg.String())
	if err != nil {
		return m, status(err.Error(), true)
	}
	err = m.board.AssignHotkey(m.tab(), row.Index, slot)
	m.refresh()
	if err != nil {
		return m, status("Hotkey not saved: "+err.Error(), true)
	}
	return m, status(fmt.Sprintf("Bound %s to %s", row.Name, slot.Label()), false)
}

func (m Model) pressShortcut(slot model.Slot) (tea.Model, tea.Cmd) {
	tab := m.tab()
	if tab == "" {
		return m, nil
	}
	res, err := m.board.PressShortcut(tab, slot)
	m.refresh()
	if err != nil {
		return m, status(fmt.Sprintf("%s: %v", slot.Label(), err), true)
	}
	return m, status(describeResult(res), false)
}

func (m Model) switchTab(delta int) (tea.Model, tea.Cmd) {
	if len(m.tabs) < 2 {
		return m, nil
	}
	m.current = (m.current + delta + len(m.tabs)) % len(m.tabs)
	m.cursor, m.offset = 0, 0
	m.searchQuery = ""
	m.refresh()
	if err := m.board.SetCurrentTab(m.current); err != nil {
		return m, status("Tab not saved: "+err.Error(), true)
	}
	return m, nil
}

func (m Model) changeVolume(delta int) (tea.Model, tea.Cmd) {
	v, err := m.board.SetVolume(m.volume + delta)
	m.volume = v
	if err != nil {
		return m, status("Volume not saved: "+err.Error(), true)
	}
	return m, status(fmt.Sprintf("Volume %d%%", v), false)
}

func describeResult(res scheduler.Result) string {
	name := model.DisplayName(res.Slot.Path)
	if res.Action == scheduler.Stopped {
		return "Stopped " + name
	}
	if res.Evicted != nil {
		return fmt.Sprintf("Playing %s (replaced %s)", name, model.DisplayName(res.Evicted.Path))
	}
	return "Playing " + name
}

// tab returns the current tab name, or "" when there are none.
func (m Model) tab() string {
	if m.current < 0 || m.current >= len(m.tabs) {
		return ""
	}
	return m.tabs[m.current]
}

// selected returns the row under the cursor.
func (m Model) selected() *model.Row {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return nil
	}
	return &m.visible[m.cursor]
}

// refresh rereads tabs, rows and volume from the board.
func (m *Model) refresh() {
	name := m.tab()
	tabs, err := m.board.Tabs()
	if err == nil {
		m.tabs = tabs
	}

	// Keep the same tab selected when the tab set changes
	if name != "" {
		for i, t := range m.tabs {
			if t == name {
				m.current = i
				break
			}
		}
	}
	if m.current >= len(m.tabs) || m.current < 0 {
		m.current = 0
	}

	m.rows = nil
	if tab := m.tab(); tab != "" {
		if rows, err := m.board.Rows(tab); err == nil {
			m.rows = rows
		}
	}
	m.volume = m.board.Volume()
	m.applySearch()
}

func (m *Model) applySearch() {
	m.visible = core.Search(m.rows, m.searchQuery)
	m.clampCursor()
}

func (m *Model) clampCursor() {
	m.cursor = min(m.cursor, len(m.visible)-1)
	m.cursor = max(m.cursor, 0)

	page := m.pageSize()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+page {
		m.offset = m.cursor - page + 1
	}
	m.offset = max(m.offset, 0)
}

// pageSize is the number of rows that fit between header and footer.
func (m Model) pageSize() int {
	if m.height <= 0 {
		return 20
	}
	return max(m.height-5, 1)
}

// Run shows the board until the user quits or ctx is done.
func Run(ctx context.Context, board Board, opts Options) error {
	m := New(board, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
