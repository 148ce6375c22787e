package pad

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/padui/internal/library"
	"github.com/jmylchreest/padui/internal/model"
	"github.com/jmylchreest/padui/internal/scheduler"
	"github.com/jmylchreest/padui/internal/store"
)

func TestLoadTab_DefaultScenario(t *testing.T) {
	b := newTestBoard(t, nil, 8)
	b.seedDefault(t)

	rows, err := b.c.LoadTab(context.Background(), "Default")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "b"}, names(rows))
	assert.True(t, rows[0].HasDuration)
	assert.InDelta(t, 1.0, rows[0].Duration.Seconds(), 0.05)
	assert.InDelta(t, 2.0, rows[1].Duration.Seconds(), 0.05)
	assert.False(t, rows[0].IsFavorite)
	assert.Empty(t, rows[0].HotkeyLabel)
}

func TestLoadAll_CreatesDefaultTab(t *testing.T) {
	b := newTestBoard(t, nil, 8)

	require.NoError(t, b.c.LoadAll(context.Background()))

	tabs, err := b.c.Tabs()
	require.NoError(t, err)
	assert.Equal(t, []string{"Default"}, tabs)

	rows, err := b.c.Rows("Default")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRows_UnloadedTab(t *testing.T) {
	b := newTestBoard(t, nil, 8)

	_, err := b.c.Rows("Nope")
	assert.ErrorIs(t, err, ErrTabNotLoaded)
}

func TestRequestToggle_PlayStopPair(t *testing.T) {
	b := newTestBoard(t, nil, 8)
	b.seedDefault(t)
	_, err := b.c.LoadTab(context.Background(), "Default")
	require.NoError(t, err)
	events := b.c.Subscribe()

	res, err := b.c.RequestToggle("Default", 1)
	require.NoError(t, err)
	assert.Equal(t, scheduler.Started, res.Action)
	assert.True(t, res.Slot.HasDuration)

	rows, err := b.c.Rows("Default")
	require.NoError(t, err)
	assert.True(t, rows[1].Playing)

	res, err = b.c.RequestToggle("Default", 1)
	require.NoError(t, err)
	assert.Equal(t, scheduler.Stopped, res.Action)
	assert.Empty(t, b.c.Playing())

	got := drain(events)
	assert.Equal(t, []EventType{EventSoundStarted, EventSoundStopped}, eventTypes(got))
	assert.Equal(t, "b", got[0].Name)
}

func TestRequestToggle_OutOfRange(t *testing.T) {
	b := newTestBoard(t, nil, 8)
	b.seedDefault(t)
	_, err := b.c.LoadTab(context.Background(), "Default")
	require.NoError(t, err)

	_, err = b.c.RequestToggle("Default", 2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = b.c.RequestToggle("Default", -1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestRequestToggle_MissingFileReportsError(t *testing.T) {
	b := newTestBoard(t, nil, 8)
	b.seedDefault(t)
	_, err := b.c.LoadTab(context.Background(), "Default")
	require.NoError(t, err)
	events := b.c.Subscribe()

	// Removed behind the board's back
	require.NoError(t, os.Remove(filepath.Join(b.lib.TabDir("Default"), "A.wav")))

	_, err = b.c.RequestToggle("Default", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, scheduler.ErrPlayback)
	assert.Empty(t, b.c.Playing())

	got := drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, EventError, got[0].Type)
	assert.Equal(t, "A", got[0].Name)
}

func TestRequestToggle_EvictionEvent(t *testing.T) {
	b := newTestBoard(t, nil, 1)
	b.seedDefault(t)
	_, err := b.c.LoadTab(context.Background(), "Default")
	require.NoError(t, err)

	_, err = b.c.RequestToggle("Default", 0)
	require.NoError(t, err)
	events := b.c.Subscribe()

	res, err := b.c.RequestToggle("Default", 1)
	require.NoError(t, err)
	require.NotNil(t, res.Evicted)
	assert.Equal(t, 0, res.Evicted.Index)

	assert.Equal(t, []EventType{EventSoundEvicted, EventSoundStarted}, eventTypes(drain(events)))
}

func TestTick_AnnouncesEndedSounds(t *testing.T) {
	b := newTestBoard(t, nil, 8)
	b.seedDefault(t)
	_, err := b.c.LoadTab(context.Background(), "Default")
	require.NoError(t, err)

	res, err := b.c.RequestToggle("Default", 0)
	require.NoError(t, err)
	events := b.c.Subscribe()

	assert.Empty(t, b.c.Tick())
	b.engine.finish(res.Slot.Channel)

	ended := b.c.Tick()
	require.Len(t, ended, 1)
	got := drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, EventSoundEnded, got[0].Type)
	assert.Equal(t, "Default", got[0].Tab)
	assert.Equal(t, 0, got[0].Index)
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	b := newTestBoard(t, nil, 8)
	b.c.opts.TickInterval = 5 * time.Millisecond
	b.seedDefault(t)
	_, err := b.c.LoadTab(context.Background(), "Default")
	require.NoError(t, err)

	res, err := b.c.RequestToggle("Default", 0)
	require.NoError(t, err)
	events := b.c.Subscribe()
	b.engine.finish(res.Slot.Channel)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.c.Run(ctx)
		close(done)
	}()

	select {
	case e := <-events:
		assert.Equal(t, EventSoundEnded, e.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("sound end was not detected")
	}
	cancel()
	<-done
}

func TestResolveShortcut(t *testing.T) {
	b := newTestBoard(t, nil, 8)
	b.seedDefault(t)
	_, err := b.c.LoadTab(context.Background(), "Default")
	require.NoError(t, err)

	// Unbound slots fall back to their own position
	idx, err := b.c.ResolveShortcut("Default", model.Slot(1))
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = b.c.ResolveShortcut("Default", model.Slot(5))
	assert.ErrorIs(t, err, ErrNotBound)

	require.NoError(t, b.c.AssignHotkey("Default", 0, model.Slot(12)))
	idx, err = b.c.ResolveShortcut("Default", model.Slot(12))
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	_, err = b.c.ResolveShortcut("Default", model.Slot(40))
	assert.ErrorIs(t, err, model.ErrInvalidSlot)

	res, err := b.c.PressShortcut("Default", model.Slot(12))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Slot.Index)
}

func TestFavoritesAndHotkeysInRows(t *testing.T) {
	b := newTestBoard(t, nil, 8)
	b.seedDefault(t)
	_, err := b.c.LoadTab(context.Background(), "Default")
	require.NoError(t, err)

	on, err := b.c.ToggleFavorite("Default", 1)
	require.NoError(t, err)
	assert.True(t, on)
	require.NoError(t, b.c.AssignHotkey("Default", 1, model.Slot(9)))

	rows, err := b.c.Rows("Default")
	require.NoError(t, err)
	assert.True(t, rows[1].IsFavorite)
	assert.Equal(t, "F1", rows[1].HotkeyLabel)

	require.NoError(t, b.c.ClearHotkey("Default", 1))
	rows, err = b.c.Rows("Default")
	require.NoError(t, err)
	assert.Empty(t, rows[1].HotkeyLabel)

	_, err = b.c.ToggleFavorite("Default", 7)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestAssignHotkey_LastWriterWins(t *testing.T) {
	b := newTestBoard(t, nil, 8)
	dir := b.lib.TabDir("Default")
	for _, n := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		writeWAV(t, filepath.Join(dir, n+".wav"), 800)
	}
	_, err := b.c.LoadTab(context.Background(), "Default")
	require.NoError(t, err)

	slot, err := model.ParseSlot("3")
	require.NoError(t, err)
	require.NoError(t, b.c.AssignHotkey("Default", 5, slot))
	require.NoError(t, b.c.AssignHotkey("Default", 7, slot))

	hotkeys, err := b.c.Hotkeys("Default")
	require.NoError(t, err)
	assert.Equal(t, map[model.Slot]int{slot: 7}, hotkeys)
}

func TestDeleteSound_ClearsBindingsAndReloads(t *testing.T) {
	b := newTestBoard(t, nil, 8)
	dir := b.lib.TabDir("Default")
	for _, n := range []string{"a", "b", "c", "d"} {
		writeWAV(t, filepath.Join(dir, n+".wav"), 800)
	}
	_, err := b.c.LoadTab(context.Background(), "Default")
	require.NoError(t, err)

	_, err = b.c.ToggleFavorite("Default", 2)
	require.NoError(t, err)
	require.NoError(t, b.c.AssignHotkey("Default", 2, model.Slot(0)))
	_, err = b.c.ToggleFavorite("Default", 3)
	require.NoError(t, err)
	_, err = b.c.RequestToggle("Default", 2)
	require.NoError(t, err)

	rows, err := b.c.DeleteSound(context.Background(), "Default", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "d"}, names(rows))
	assert.NoFileExists(t, filepath.Join(dir, "c.wav"))
	assert.Equal(t, []string{filepath.Join(dir, "c.wav")}, b.changed)

	// The deleted sound's bindings are gone; d's favorite followed it
	assert.False(t, rows[0].IsFavorite)
	assert.False(t, rows[1].IsFavorite)
	assert.True(t, rows[2].IsFavorite)
	hotkeys, err := b.c.Hotkeys("Default")
	require.NoError(t, err)
	assert.Empty(t, hotkeys)
	assert.Empty(t, b.c.Playing())

	// And that survives a restart
	meta := store.NewMetadata(b.dataDir, "Default", nil)
	require.NoError(t, meta.Load())
	assert.Equal(t, []int{2}, meta.Favorites())
}

func TestAddSounds_BindingsFollowSounds(t *testing.T) {
	b := newTestBoard(t, nil, 8)
	b.seedDefault(t)
	_, err := b.c.LoadTab(context.Background(), "Default")
	require.NoError(t, err)
	_, err = b.c.ToggleFavorite("Default", 1) // b
	require.NoError(t, err)

	src := t.TempDir()
	writeWAV(t, filepath.Join(src, "0 first.wav"), 800)

	results, err := b.c.AddSounds(context.Background(), "Default", []string{filepath.Join(src, "0 first.wav")}, false)
	require.NoError(t, err)
	require.Len(t, results, 1)

	rows, err := b.c.Rows("Default")
	require.NoError(t, err)
	assert.Equal(t, []string{"0 first", "A", "b"}, names(rows))
	assert.True(t, rows[2].IsFavorite)
	assert.False(t, rows[1].IsFavorite)
}

func TestRenameSound_KeepsBindings(t *testing.T) {
	b := newTestBoard(t, nil, 8)
	b.seedDefault(t)
	_, err := b.c.LoadTab(context.Background(), "Default")
	require.NoError(t, err)
	require.NoError(t, b.c.AssignHotkey("Default", 0, model.Slot(2)))

	rows, err := b.c.RenameSound(context.Background(), "Default", 0, "zap")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "zap"}, names(rows))
	assert.Equal(t, "3", rows[1].HotkeyLabel)
}

func TestTabLifecycle(t *testing.T) {
	b := newTestBoard(t, nil, 8)
	b.seedDefault(t)
	ctx := context.Background()
	require.NoError(t, b.c.LoadAll(ctx))

	tab, err := b.c.AddTab(ctx, "Memes!")
	require.NoError(t, err)
	assert.Equal(t, "Memes", tab)

	writeWAV(t, filepath.Join(b.lib.TabDir("Memes"), "bruh.wav"), 800)
	_, err = b.c.LoadTab(ctx, "Memes")
	require.NoError(t, err)
	_, err = b.c.ToggleFavorite("Memes", 0)
	require.NoError(t, err)
	_, err = b.c.RequestToggle("Memes", 0)
	require.NoError(t, err)

	renamed, err := b.c.RenameTab(ctx, "Memes", "Classics")
	require.NoError(t, err)
	assert.Equal(t, "Classics", renamed)
	assert.Empty(t, b.c.Playing())

	rows, err := b.c.Rows("Classics")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsFavorite)
	assert.FileExists(t, store.MetadataPath(b.dataDir, "Classics"))
	assert.NoFileExists(t, store.MetadataPath(b.dataDir, "Memes"))

	_, err = b.c.Rows("Memes")
	assert.ErrorIs(t, err, ErrTabNotLoaded)

	require.NoError(t, b.c.DeleteTab(ctx, "Classics", true))
	assert.NoFileExists(t, store.MetadataPath(b.dataDir, "Classics"))
	tabs, err := b.c.Tabs()
	require.NoError(t, err)
	assert.Equal(t, []string{"Default"}, tabs)
}

func TestDeleteTab_LastTabRecreatesDefault(t *testing.T) {
	b := newTestBoard(t, nil, 8)
	ctx := context.Background()
	require.NoError(t, b.c.LoadAll(ctx))

	require.NoError(t, b.c.DeleteTab(ctx, "Default", true))

	tabs, err := b.c.Tabs()
	require.NoError(t, err)
	assert.Equal(t, []string{"Default"}, tabs)
	_, err = b.c.Rows("Default")
	assert.NoError(t, err)
}

func TestSyncTabs(t *testing.T) {
	b := newTestBoard(t, nil, 8)
	b.seedDefault(t)
	ctx := context.Background()
	require.NoError(t, b.c.LoadAll(ctx))
	_, err := b.c.RequestToggle("Default", 0)
	require.NoError(t, err)

	// Tabs changed on disk
	writeWAV(t, filepath.Join(b.lib.TabDir("Fresh"), "x.wav"), 800)
	require.NoError(t, os.RemoveAll(b.lib.TabDir("Default")))

	require.NoError(t, b.c.SyncTabs(ctx))

	rows, err := b.c.Rows("Fresh")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	_, err = b.c.Rows("Default")
	assert.ErrorIs(t, err, ErrTabNotLoaded)
	assert.Empty(t, b.c.Playing())
}

func TestLoadTab_StopsSoundsWhoseFilesVanished(t *testing.T) {
	b := newTestBoard(t, nil, 8)
	b.seedDefault(t)
	_, err := b.c.LoadTab(context.Background(), "Default")
	require.NoError(t, err)
	_, err = b.c.RequestToggle("Default", 0) // A
	require.NoError(t, err)
	_, err = b.c.RequestToggle("Default", 1) // b
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(b.lib.TabDir("Default"), "A.wav")))
	_, err = b.c.LoadTab(context.Background(), "Default")
	require.NoError(t, err)

	playing := b.c.Playing()
	require.Len(t, playing, 1)
	assert.Equal(t, 0, playing[0].Index)
	assert.Equal(t, filepath.Join(b.lib.TabDir("Default"), "b.wav"), playing[0].Path)
}

func TestLoadTab_SupersededResultDiscarded(t *testing.T) {
	loader := newGatedLoader()
	b := newTestBoard(t, loader, 8)
	b.seedDefault(t)

	type outcome struct {
		rows []model.Row
		err  error
	}
	first := make(chan outcome, 1)
	go func() {
		rows, err := b.c.LoadTab(context.Background(), "Default")
		first <- outcome{rows, err}
	}()
	<-loader.entered

	// A file appears and a second load starts while the first is in flight
	writeWAV(t, filepath.Join(b.lib.TabDir("Default"), "c.wav"), 800)
	rows, err := b.c.LoadTab(context.Background(), "Default")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "b", "c"}, names(rows))

	assert.Error(t, loader.firstCtx.Err(), "superseded load should be cancelled")
	close(loader.release)

	res := <-first
	assert.True(t, errors.Is(res.err, ErrSuperseded))
	assert.Nil(t, res.rows)

	// The newer catalog is still the one in place
	catalog, err := b.c.Catalog("Default")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), catalog.Generation)
	assert.Equal(t, 3, catalog.Len())
}

func TestLoadTab_ProgressEvents(t *testing.T) {
	b := newTestBoard(t, nil, 8)
	b.seedDefault(t)
	events := b.c.Subscribe()

	_, err := b.c.LoadTab(context.Background(), "Default")
	require.NoError(t, err)

	got := drain(events)
	require.Len(t, got, 3)
	assert.Equal(t, EventLoadProgress, got[0].Type)
	assert.Equal(t, EventLoadProgress, got[1].Type)
	assert.Equal(t, 2, got[1].Completed)
	assert.Equal(t, 2, got[1].Total)
	assert.Equal(t, EventTabLoaded, got[2].Type)
	assert.Equal(t, 2, got[2].Total)
}

func TestSetVolume_PersistsSettings(t *testing.T) {
	b := newTestBoard(t, nil, 8)
	assert.Equal(t, 80, b.c.Volume())

	v, err := b.c.SetVolume(140)
	require.NoError(t, err)
	assert.Equal(t, 100, v)

	v, err = b.c.SetVolume(35)
	require.NoError(t, err)
	assert.Equal(t, 35, v)
	require.NoError(t, b.c.SetCurrentTab(2))

	s, err := store.LoadSettings(filepath.Join(b.dataDir, "settings.json"), 80)
	require.NoError(t, err)
	assert.Equal(t, 35, s.Volume)
	assert.Equal(t, 2, s.CurrentTab)

	// A new board picks the saved volume up
	b2, err := New(b.lib, library.NewLoader(1, nil), scheduler.New(newStubEngine(), 4, 80, nil), Options{
		DataDir:      b.dataDir,
		SettingsPath: filepath.Join(b.dataDir, "settings.json"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 35, b2.Volume())
	assert.Equal(t, 2, b2.CurrentTab())
}

func TestStopAll(t *testing.T) {
	b := newTestBoard(t, nil, 8)
	b.seedDefault(t)
	ctx := context.Background()
	require.NoError(t, b.c.LoadAll(ctx))
	writeWAV(t, filepath.Join(b.lib.TabDir("Other"), "o.wav"), 800)
	_, err := b.c.LoadTab(ctx, "Other")
	require.NoError(t, err)

	for _, r := range []struct {
		tab   string
		index int
	}{{"Default", 0}, {"Default", 1}, {"Other", 0}} {
		_, err := b.c.RequestToggle(r.tab, r.index)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, b.c.StopAll("Other"))
	assert.Len(t, b.c.Playing(), 2)
	assert.Equal(t, 2, b.c.StopAll(""))
	assert.Empty(t, b.c.Playing())
}

func TestReloadMetadata_PicksUpExternalEdits(t *testing.T) {
	b := newTestBoard(t, nil, 8)
	b.seedDefault(t)
	_, err := b.c.LoadTab(context.Background(), "Default")
	require.NoError(t, err)

	other := store.NewMetadata(b.dataDir, "Default", nil)
	require.NoError(t, other.Load())
	_, err = other.Reconcile([]string{"A.wav", "b.wav"})
	require.NoError(t, err)
	_, err = other.ToggleFavorite(1)
	require.NoError(t, err)

	rows, err := b.c.Rows("Default")
	require.NoError(t, err)
	assert.False(t, rows[1].IsFavorite)

	events := b.c.Subscribe()
	require.NoError(t, b.c.ReloadMetadata("Default"))

	rows, err = b.c.Rows("Default")
	require.NoError(t, err)
	assert.True(t, rows[1].IsFavorite)
	assert.Contains(t, eventTypes(drain(events)), EventTabLoaded)

	assert.ErrorIs(t, b.c.ReloadMetadata("Nope"), ErrTabNotLoaded)
}

func TestLoadTab_FailureKeepsCatalogAndBindings(t *testing.T) {
	loader := &flakyLoader{inner: library.NewLoader(4, nil)}
	b := newTestBoard(t, loader, 8)
	b.seedDefault(t)
	before, err := b.c.LoadTab(context.Background(), "Default")
	require.NoError(t, err)

	_, err = b.c.ToggleFavorite("Default", 1)
	require.NoError(t, err)
	require.NoError(t, b.c.AssignHotkey("Default", 0, model.Slot(2)))

	events := b.c.Subscribe()
	denied := errors.New("permission denied")
	loader.fail(denied)

	rows, err := b.c.LoadTab(context.Background(), "Default")
	require.ErrorIs(t, err, denied)
	assert.Equal(t, names(before), names(rows))
	assert.True(t, rows[1].IsFavorite)
	assert.Equal(t, "3", rows[0].HotkeyLabel)
	assert.Contains(t, eventTypes(drain(events)), EventError)

	// Nothing was written for the failed load
	meta := store.NewMetadata(b.dataDir, "Default", nil)
	require.NoError(t, meta.Load())
	assert.Equal(t, []int{1}, meta.Favorites())
	assert.Equal(t, map[model.Slot]int{model.Slot(2): 0}, meta.Hotkeys())

	catalog, err := b.c.Catalog("Default")
	require.NoError(t, err)
	assert.Equal(t, len(before), catalog.Len())

	// A later successful load still sees the bindings
	loader.fail(nil)
	rows, err = b.c.LoadTab(context.Background(), "Default")
	require.NoError(t, err)
	assert.True(t, rows[1].IsFavorite)
	assert.Equal(t, "3", rows[0].HotkeyLabel)
}

func TestLoadTab_FailedFirstLoadLeavesTabUnloaded(t *testing.T) {
	loader := &flakyLoader{inner: library.NewLoader(4, nil)}
	b := newTestBoard(t, loader, 8)
	b.seedDefault(t)
	loader.fail(errors.New("permission denied"))

	rows, err := b.c.LoadTab(context.Background(), "Default")
	require.Error(t, err)
	assert.Nil(t, rows)

	_, err = b.c.Rows("Default")
	assert.ErrorIs(t, err, ErrTabNotLoaded)
}

func TestDeleteSound_FileAlreadyGone(t *testing.T) {
	b := newTestBoard(t, nil, 8)
	b.seedDefault(t)
	_, err := b.c.LoadTab(context.Background(), "Default")
	require.NoError(t, err)

	_, err = b.c.ToggleFavorite("Default", 0)
	require.NoError(t, err)
	require.NoError(t, b.c.AssignHotkey("Default", 0, model.Slot(4)))
	require.NoError(t, os.Remove(filepath.Join(b.lib.TabDir("Default"), "A.wav")))

	rows, err := b.c.DeleteSound(context.Background(), "Default", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names(rows))
	assert.False(t, rows[0].IsFavorite)

	hotkeys, err := b.c.Hotkeys("Default")
	require.NoError(t, err)
	assert.Empty(t, hotkeys)
}
