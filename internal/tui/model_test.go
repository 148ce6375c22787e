package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/padui/internal/model"
	"github.com/jmylchreest/padui/internal/pad"
	"github.com/jmylchreest/padui/internal/scheduler"
)

type call struct {
	op    string
	tab   string
	index int
	slot  model.Slot
}

type fakeBoard struct {
	tabs    []string
	rows    map[string][]model.Row
	volume  int
	current int
	calls   []call
	ticks   int
	events  chan pad.Event
	loadErr error
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{
		tabs: []string{"Default", "Memes"},
		rows: map[string][]model.Row{
			"Default": {
				{Index: 0, Name: "airhorn", Path: "/s/Default/airhorn.wav", Duration: 2 * time.Second, HasDuration: true},
				{Index: 1, Name: "bruh", Path: "/s/Default/bruh.wav", IsFavorite: true, HotkeyLabel: "F1"},
				{Index: 2, Name: "crickets", Path: "/s/Default/crickets.ogg", Playing: true},
			},
			"Memes": {
				{Index: 0, Name: "vine boom", Path: "/s/Memes/vine boom.mp3"},
			},
		},
		volume: 80,
		events: make(chan pad.Event, 8),
	}
}

func (b *fakeBoard) record(c call) { b.calls = append(b.calls, c) }

func (b *fakeBoard) Tabs() ([]string, error) { return b.tabs, nil }

func (b *fakeBoard) Rows(tab string) ([]model.Row, error) {
	rows, ok := b.rows[tab]
	if !ok {
		return nil, pad.ErrTabNotLoaded
	}
	return append([]model.Row(nil), rows...), nil
}

func (b *fakeBoard) LoadTab(_ context.Context, tab string) ([]model.Row, error) {
	b.record(call{op: "load", tab: tab})
	return b.rows[tab], b.loadErr
}

func (b *fakeBoard) RequestToggle(tab string, index int) (scheduler.Result, error) {
	b.record(call{op: "toggle", tab: tab, index: index})
	rows := b.rows[tab]
	if index >= len(rows) {
		return scheduler.Result{}, pad.ErrIndexOutOfRange
	}
	return scheduler.Result{Action: scheduler.Started, Slot: scheduler.Slot{Tab: tab, Index: index, Path: rows[index].Path}}, nil
}

func (b *fakeBoard) PressShortcut(tab string, slot model.Slot) (scheduler.Result, error) {
	b.record(call{op: "shortcut", tab: tab, slot: slot})
	if int(slot) >= len(b.rows[tab]) {
		return scheduler.Result{}, pad.ErrNotBound
	}
	return scheduler.Result{Action: scheduler.Started, Slot: scheduler.Slot{Tab: tab, Index: int(slot)}}, nil
}

func (b *fakeBoard) StopAll(tab string) int {
	b.record(call{op: "stopall", tab: tab})
	return 1
}

func (b *fakeBoard) ToggleFavorite(tab string, index int) (bool, error) {
	b.record(call{op: "fav", tab: tab, index: index})
	b.rows[tab][index].IsFavorite = !b.rows[tab][index].IsFavorite
	return b.rows[tab][index].IsFavorite, nil
}

func (b *fakeBoard) AssignHotkey(tab string, index int, slot model.Slot) error {
	b.record(call{op: "bind", tab: tab, index: index, slot: slot})
	b.rows[tab][index].HotkeyLabel = slot.Label()
	return nil
}

func (b *fakeBoard) ClearHotkey(tab string, index int) error {
	b.record(call{op: "unbind", tab: tab, index: index})
	b.rows[tab][index].HotkeyLabel = ""
	return nil
}

func (b *fakeBoard) Volume() int { return b.volume }

func (b *fakeBoard) SetVolume(v int) (int, error) {
	b.volume = min(max(v, 0), 100)
	return b.volume, nil
}

func (b *fakeBoard) CurrentTab() int { return b.current }

func (b *fakeBoard) SetCurrentTab(p int) error {
	b.current = p
	return nil
}

func (b *fakeBoard) Tick() []scheduler.Slot {
	b.ticks++
	return nil
}

func (b *fakeBoard) Subscribe() <-chan pad.Event   { return b.events }
func (b *fakeBoard) Unsubscribe(<-chan pad.Event) {}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m
}

func newTestModel(t *testing.T) (Model, *fakeBoard) {
	t.Helper()
	b := newFakeBoard()
	m := New(b, Options{TickInterval: 10 * time.Millisecond})
	m = press(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	return m, b
}

func TestNew_LoadsCurrentTab(t *testing.T) {
	b := newFakeBoard()
	b.current = 1
	m := New(b, Options{})

	assert.Equal(t, "Memes", m.tab())
	require.Len(t, m.visible, 1)
	assert.Equal(t, "vine boom", m.visible[0].Name)
	assert.Equal(t, 80, m.volume)
}

func TestNew_CurrentTabOutOfRange(t *testing.T) {
	b := newFakeBoard()
	b.current = 9
	m := New(b, Options{})
	assert.Equal(t, "Default", m.tab())
}

func TestShortcutKeys(t *testing.T) {
	m, b := newTestModel(t)

	m = press(t, m, runes("2"), tea.KeyMsg{Type: tea.KeyF3})
	require.Len(t, b.calls, 2)
	assert.Equal(t, call{op: "shortcut", tab: "Default", slot: model.Slot(1)}, b.calls[0])
	assert.Equal(t, call{op: "shortcut", tab: "Default", slot: model.Slot(11)}, b.calls[1])
	assert.Equal(t, ModeBoard, m.mode)
}

func TestEnterTogglesSelectedRow(t *testing.T) {
	m, b := newTestModel(t)

	m = press(t, m, runes("j"), tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, b.calls, 1)
	assert.Equal(t, call{op: "toggle", tab: "Default", index: 1}, b.calls[0])

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg, ok := cmd().(statusMsg)
	require.True(t, ok)
	assert.Equal(t, "Playing bruh", msg.text)
}

func TestSpaceStopsAll(t *testing.T) {
	m, b := newTestModel(t)
	press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	require.Len(t, b.calls, 1)
	assert.Equal(t, "stopall", b.calls[0].op)
	assert.Empty(t, b.calls[0].tab)
}

func TestFavoriteKey(t *testing.T) {
	m, b := newTestModel(t)
	m = press(t, m, runes("f"))
	require.Len(t, b.calls, 1)
	assert.Equal(t, call{op: "fav", tab: "Default", index: 0}, b.calls[0])
	assert.True(t, m.visible[0].IsFavorite)
}

func TestBindMode(t *testing.T) {
	m, b := newTestModel(t)

	m = press(t, m, runes("b"))
	assert.Equal(t, ModeBind, m.mode)
	assert.Contains(t, m.View(), "bind airhorn")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyF2})
	assert.Equal(t, ModeBoard, m.mode)
	require.Len(t, b.calls, 1)
	assert.Equal(t, call{op: "bind", tab: "Default", index: 0, slot: model.Slot(10)}, b.calls[0])
	assert.Equal(t, "F2", m.visible[0].HotkeyLabel)

	m = press(t, m, runes("b"), tea.KeyMsg{Type: tea.KeyBackspace})
	require.Len(t, b.calls, 2)
	assert.Equal(t, "unbind", b.calls[1].op)
	assert.Empty(t, m.visible[0].HotkeyLabel)

	m = press(t, m, runes("b"), tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ModeBoard, m.mode)
	assert.Len(t, b.calls, 2)
}

func TestTabSwitchingWrapsAndPersists(t *testing.T) {
	m, b := newTestModel(t)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "Memes", m.tab())
	assert.Equal(t, 1, b.current)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "Default", m.tab())
	assert.Equal(t, 0, b.current)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, "Memes", m.tab())
}

func TestVolumeKeys(t *testing.T) {
	m, b := newTestModel(t)

	m = press(t, m, runes("+"), runes("+"))
	assert.Equal(t, 90, b.volume)
	assert.Equal(t, 90, m.volume)

	m = press(t, m, runes("+"), runes("+"), runes("+"))
	assert.Equal(t, 100, m.volume)

	m = press(t, m, runes("-"))
	assert.Equal(t, 95, m.volume)
}

func TestSearchFiltersAndKeepsIndices(t *testing.T) {
	m, b := newTestModel(t)

	m = press(t, m, runes("/"))
	assert.Equal(t, ModeSearch, m.mode)

	m = press(t, m, runes("c"), runes("r"))
	require.Len(t, m.visible, 1)
	assert.Equal(t, "crickets", m.visible[0].Name)

	// Digits typed while searching are text, not shortcuts
	m = press(t, m, runes("1"))
	assert.Empty(t, b.calls)
	assert.Empty(t, m.visible)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyBackspace}, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ModeBoard, m.mode)
	assert.Equal(t, "cr", m.searchQuery)

	press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, b.calls, 1)
	assert.Equal(t, call{op: "toggle", tab: "Default", index: 2}, b.calls[0])
}

func TestSearchEscClears(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, runes("/"), runes("z"), tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ModeBoard, m.mode)
	assert.Len(t, m.visible, 3)
}

func TestCursorClamps(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, runes("k"))
	assert.Equal(t, 0, m.cursor)

	m = press(t, m, runes("G"))
	assert.Equal(t, 2, m.cursor)

	m = press(t, m, runes("j"), tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, 2, m.cursor)

	m = press(t, m, runes("g"))
	assert.Equal(t, 0, m.cursor)
}

func TestTickCallsBoard(t *testing.T) {
	m, b := newTestModel(t)
	_, cmd := m.Update(tickMsg(time.Now()))
	assert.Equal(t, 1, b.ticks)
	assert.NotNil(t, cmd)
}

func TestEvents(t *testing.T) {
	m, b := newTestModel(t)

	m = press(t, m, eventMsg(pad.Event{Type: pad.EventLoadProgress, Tab: "Default", Completed: 2, Total: 5}))
	require.NotNil(t, m.loading)
	assert.Contains(t, m.View(), "loading 2/5")

	b.rows["Default"] = b.rows["Default"][:1]
	m = press(t, m, eventMsg(pad.Event{Type: pad.EventTabLoaded, Tab: "Default"}))
	assert.Nil(t, m.loading)
	assert.Len(t, m.visible, 1)

	m = press(t, m, eventMsg(pad.Event{Type: pad.EventVolumeChanged, Volume: 30}))
	assert.Equal(t, 30, m.volume)

	_, cmd := m.Update(eventMsg(pad.Event{Type: pad.EventError, Err: errors.New("boom")}))
	assert.NotNil(t, cmd)
}

func TestWaitForEvent(t *testing.T) {
	m, b := newTestModel(t)

	b.events <- pad.Event{Type: pad.EventSoundEnded, Tab: "Default", Index: 2}
	msg := m.waitForEvent()
	e, ok := msg.(eventMsg)
	require.True(t, ok)
	assert.Equal(t, pad.EventSoundEnded, e.Type)

	close(b.events)
	assert.Nil(t, m.waitForEvent())
}

func TestRefreshKeyReloadsTab(t *testing.T) {
	m, b := newTestModel(t)

	_, cmd := m.Update(runes("r"))
	require.NotNil(t, cmd)
	msg, ok := cmd().(reloadDoneMsg)
	require.True(t, ok)
	assert.Equal(t, "Default", msg.tab)
	assert.Equal(t, []call{{op: "load", tab: "Default"}}, b.calls)

	m = press(t, m, msg)
	assert.Len(t, m.visible, 3)
}

func TestView(t *testing.T) {
	m, _ := newTestModel(t)
	view := m.View()

	assert.Contains(t, view, "Default")
	assert.Contains(t, view, "Memes")
	assert.Contains(t, view, "vol 80%")
	assert.Contains(t, view, "airhorn")
	assert.Contains(t, view, "[F1]")
	assert.Contains(t, view, "0:02")
	assert.Contains(t, view, "--:--")

	m = press(t, m, runes("?"))
	assert.Contains(t, m.View(), "Keyboard Shortcuts")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ModeBoard, m.mode)
}

func TestView_EmptyTab(t *testing.T) {
	b := newFakeBoard()
	b.rows["Default"] = nil
	m := press(t, New(b, Options{}), tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Contains(t, m.View(), "no sounds in this tab")
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "é", truncate("éé", 1))
}
