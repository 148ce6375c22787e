// Package pad coordinates the sound library, the metadata stores and the
// channel scheduler behind one board API used by the CLI, TUI and daemon.
package pad

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmylchreest/padui/internal/library"
	"github.com/jmylchreest/padui/internal/model"
	"github.com/jmylchreest/padui/internal/scheduler"
	"github.com/jmylchreest/padui/internal/store"
)

// DefaultTickInterval is the completion check cadence.
const DefaultTickInterval = 100 * time.Millisecond

// Options configures a Coordinator.
type Options struct {
	DataDir       string
	SettingsPath  string
	TickInterval  time.Duration
	DefaultVolume int

	// FileChanged is called with every sound path the board rewrote or
	// removed, so decoded caches can be dropped.
	FileChanged func(path string)
}

// Loader builds a tab's catalog; *library.Loader is the production one.
type Loader interface {
	Load(ctx context.Context, tab, dir string, generation uint64, progress library.ProgressFunc) (model.Catalog, error)
}

// tabState is everything the coordinator knows about one tab.
type tabState struct {
	name       string
	catalog    model.Catalog
	loaded     bool
	meta       *store.Metadata
	generation uint64
	cancel     context.CancelFunc
}

// Coordinator serializes every board mutation behind one lock. Loads run
// outside the lock and are applied only if no newer load of the same tab
// started in the meantime.
type Coordinator struct {
	mu     sync.Mutex
	logger *slog.Logger

	lib    *library.Library
	loader Loader
	sched  *scheduler.Scheduler
	opts   Options

	settings *store.Settings
	tabs     map[string]*tabState

	subsMu      sync.Mutex
	subscribers []chan Event
	closed      bool
}

// New creates a coordinator. Saved settings are loaded and their volume
// applied to sched.
func New(lib *library.Library, loader Loader, sched *scheduler.Scheduler, opts Options, logger *slog.Logger) (*Coordinator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}

	settings := store.DefaultSettings(opts.DefaultVolume)
	if opts.SettingsPath != "" {
		s, err := store.LoadSettings(opts.SettingsPath, opts.DefaultVolume)
		if err != nil {
			return nil, fmt.Errorf("failed to load settings: %w", err)
		}
		settings = s
	}
	sched.SetVolume(settings.Volume)

	return &Coordinator{
		logger:   logger,
		lib:      lib,
		loader:   loader,
		sched:    sched,
		opts:     opts,
		settings: settings,
		tabs:     make(map[string]*tabState),
	}, nil
}

// Library returns the underlying library.
func (c *Coordinator) Library() *library.Library {
	return c.lib
}

// state returns tab's state, creating it and loading its metadata on first
// use. Caller holds c.mu.
func (c *Coordinator) state(tab string) *tabState {
	if ts, ok := c.tabs[tab]; ok {
		return ts
	}

	meta := store.NewMetadata(c.opts.DataDir, tab, c.logger)
	if err := meta.Load(); err != nil {
		c.logger.Warn("failed to read metadata", "tab", tab, "error", err)
		c.notify(Event{Type: EventWarning, Tab: tab, Err: err})
	}
	ts := &tabState{name: tab, meta: meta, catalog: model.Catalog{Tab: tab}}
	c.tabs[tab] = ts
	return ts
}

// loadedState returns a tab that has completed at least one load.
// Caller holds c.mu.
func (c *Coordinator) loadedState(tab string) (*tabState, error) {
	ts, ok := c.tabs[tab]
	if !ok || !ts.loaded {
		return nil, fmt.Errorf("%w: %s", ErrTabNotLoaded, tab)
	}
	return ts, nil
}

// Tabs returns the tab names in display order.
func (c *Coordinator) Tabs() ([]string, error) {
	return c.lib.Tabs()
}

// LoadAll makes sure a tab exists, then loads every tab. Failures of single
// tabs are joined; the other tabs still load.
func (c *Coordinator) LoadAll(ctx context.Context) error {
	if _, err := c.lib.EnsureDefaultTab(); err != nil {
		return err
	}
	tabs, err := c.lib.Tabs()
	if err != nil {
		return err
	}

	var errs []error
	for _, tab := range tabs {
		if _, err := c.LoadTab(ctx, tab); err != nil && !errors.Is(err, ErrSuperseded) {
			errs = append(errs, fmt.Errorf("%s: %w", tab, err))
		}
	}
	return errors.Join(errs...)
}

// SyncTabs reconciles loaded tabs with the directories on disk: vanished
// tabs are stopped and forgotten, new ones are loaded.
func (c *Coordinator) SyncTabs(ctx context.Context) error {
	tabs, err := c.lib.Tabs()
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(tabs))
	for _, tab := range tabs {
		present[tab] = true
	}

	c.mu.Lock()
	var fresh []string
	for name, ts := range c.tabs {
		if present[name] {
			continue
		}
		c.forgetLocked(ts)
	}
	for _, tab := range tabs {
		if _, ok := c.tabs[tab]; !ok {
			fresh = append(fresh, tab)
		}
	}
	c.mu.Unlock()

	c.notify(Event{Type: EventTabsChanged})

	var errs []error
	for _, tab := range fresh {
		if _, err := c.LoadTab(ctx, tab); err != nil && !errors.Is(err, ErrSuperseded) {
			errs = append(errs, fmt.Errorf("%s: %w", tab, err))
		}
	}
	return errors.Join(errs...)
}

// LoadTab rescans tab and returns its merged rows.
//
// Every call supersedes the tab's previous load: the older load's context is
// cancelled and, if it still finishes, its result is discarded with
// ErrSuperseded. Bindings follow their sounds to new positions and playing
// sounds whose files vanished are stopped. A load that fails leaves the
// tab's catalog and bindings as they were.
func (c *Coordinator) LoadTab(ctx context.Context, tab string) ([]model.Row, error) {
	c.mu.Lock()
	ts := c.state(tab)
	ts.generation++
	gen := ts.generation
	if ts.cancel != nil {
		ts.cancel()
	}
	lctx, cancel := context.WithCancel(ctx)
	ts.cancel = cancel
	dir := c.lib.TabDir(tab)
	c.mu.Unlock()
	defer cancel()

	catalog, err := c.loader.Load(lctx, tab, dir, gen, func(completed, total int) {
		c.notify(Event{Type: EventLoadProgress, Tab: tab, Generation: gen, Completed: completed, Total: total})
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tabs[tab] != ts || ts.generation != gen {
		c.logger.Debug("discarding superseded load", "tab", tab, "generation", gen)
		return nil, ErrSuperseded
	}
	ts.cancel = nil

	// A failed load commits nothing: the previous catalog and bindings stay
	if err != nil {
		c.logger.Warn("tab load failed", "tab", tab, "generation", gen, "error", err)
		c.notify(Event{Type: EventError, Tab: tab, Generation: gen, Err: err})
		if !ts.loaded {
			return nil, err
		}
		return c.rowsLocked(ts), err
	}

	ts.catalog = catalog
	ts.loaded = true

	names := make([]string, catalog.Len())
	positions := make(map[string]int, catalog.Len())
	for i, e := range catalog.Entries {
		names[i] = filepath.Base(e.Path)
		positions[e.Path] = i
	}
	if _, rerr := ts.meta.Reconcile(names); rerr != nil {
		c.notify(Event{Type: EventWarning, Tab: tab, Err: rerr})
	}
	for _, slot := range c.sched.Reindex(tab, positions) {
		c.notifySlot(EventSoundStopped, slot)
	}

	c.logger.Debug("tab ready", "tab", tab, "generation", gen, "sounds", catalog.Len())
	c.notify(Event{Type: EventTabLoaded, Tab: tab, Generation: gen, Total: catalog.Len()})
	return c.rowsLocked(ts), nil
}

// Catalog returns the last loaded catalog for tab.
func (c *Coordinator) Catalog(tab string) (model.Catalog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts, err := c.loadedState(tab)
	if err != nil {
		return model.Catalog{}, err
	}
	return ts.catalog, nil
}

// Rows returns tab's catalog merged with favorites, hotkeys and play state.
func (c *Coordinator) Rows(tab string) ([]model.Row, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts, err := c.loadedState(tab)
	if err != nil {
		return nil, err
	}
	return c.rowsLocked(ts), nil
}

// rowsLocked builds display rows. Caller holds c.mu.
func (c *Coordinator) rowsLocked(ts *tabState) []model.Row {
	rows := make([]model.Row, ts.catalog.Len())
	for i, e := range ts.catalog.Entries {
		rows[i] = model.Row{
			Index:       i,
			Name:        e.Name,
			Path:        e.Path,
			Duration:    e.Duration,
			HasDuration: e.HasDuration(),
			Size:        e.Size,
			CreatedAt:   e.CreatedAt,
			IsFavorite:  ts.meta.IsFavorite(i),
			Playing:     c.sched.IsPlaying(ts.name, i),
		}
		if slot, ok := ts.meta.HotkeyFor(i); ok {
			rows[i].HotkeyLabel = slot.Label()
		}
	}
	return rows
}

// entryLocked returns the catalog entry at index. Caller holds c.mu.
func (c *Coordinator) entryLocked(tab string, index int) (*tabState, model.SoundEntry, error) {
	ts, err := c.loadedState(tab)
	if err != nil {
		return nil, model.SoundEntry{}, err
	}
	entry, ok := ts.catalog.At(index)
	if !ok {
		return nil, model.SoundEntry{}, fmt.Errorf("%w: %s/%d", ErrIndexOutOfRange, tab, index)
	}
	return ts, entry, nil
}

// RequestToggle starts or stops the sound at index. Playback failures are
// returned and also delivered as EventError.
func (c *Coordinator) RequestToggle(tab string, index int) (scheduler.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, entry, err := c.entryLocked(tab, index)
	if err != nil {
		return scheduler.Result{}, err
	}

	res, err := c.sched.TogglePlay(scheduler.Request{
		Tab:      tab,
		Index:    index,
		Path:     entry.Path,
		Duration: entry.DurationPtr(),
	})
	if res.Evicted != nil {
		c.notifySlot(EventSoundEvicted, *res.Evicted)
	}
	if err != nil {
		c.logger.Warn("playback failed", "tab", tab, "index", index, "path", entry.Path, "error", err)
		c.notify(Event{Type: EventError, Tab: tab, Index: index, Name: entry.Name, Err: err})
		return res, err
	}

	switch res.Action {
	case scheduler.Started:
		c.notifySlot(EventSoundStarted, res.Slot)
	case scheduler.Stopped:
		c.notifySlot(EventSoundStopped, res.Slot)
	}
	return res, nil
}

// ResolveShortcut maps a hotkey slot to a catalog position: the slot's
// binding if it points inside the catalog, else the slot's own number when
// that is in range.
func (c *Coordinator) ResolveShortcut(tab string, slot model.Slot) (int, error) {
	if !slot.Valid() {
		return 0, model.ErrInvalidSlot
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ts, err := c.loadedState(tab)
	if err != nil {
		return 0, err
	}
	if idx, ok := ts.meta.IndexForSlot(slot); ok && idx < ts.catalog.Len() {
		return idx, nil
	}
	if int(slot) < ts.catalog.Len() {
		return int(slot), nil
	}
	return 0, fmt.Errorf("%w: %s", ErrNotBound, slot.Label())
}

// PressShortcut resolves slot and toggles the sound it points at.
func (c *Coordinator) PressShortcut(tab string, slot model.Slot) (scheduler.Result, error) {
	index, err := c.ResolveShortcut(tab, slot)
	if err != nil {
		return scheduler.Result{}, err
	}
	return c.RequestToggle(tab, index)
}

// StopAll stops every sound, or only tab's sounds when tab is set.
// Returns the number stopped.
func (c *Coordinator) StopAll(tab string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.stopLocked(tab))
}

// stopLocked stops and announces sounds. Caller holds c.mu.
func (c *Coordinator) stopLocked(tab string) []scheduler.Slot {
	var stopped []scheduler.Slot
	if tab == "" {
		stopped = c.sched.StopAll()
	} else {
		stopped = c.sched.StopTab(tab)
	}
	for _, slot := range stopped {
		c.notifySlot(EventSoundStopped, slot)
	}
	return stopped
}

// Playing returns the active slots.
func (c *Coordinator) Playing() []scheduler.Slot {
	return c.sched.Playing()
}

// Tick removes finished sounds and announces them.
func (c *Coordinator) Tick() []scheduler.Slot {
	c.mu.Lock()
	defer c.mu.Unlock()

	ended := c.sched.Tick()
	for _, slot := range ended {
		c.notifySlot(EventSoundEnded, slot)
	}
	return ended
}

// Run ticks until ctx is done.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Volume returns the global volume.
func (c *Coordinator) Volume() int {
	return c.sched.Volume()
}

// SetVolume applies volume to every channel and saves it. The clamped
// volume is returned; a *store.PersistError means only the save failed.
func (c *Coordinator) SetVolume(volume int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	applied := c.sched.SetVolume(volume)
	c.settings.Volume = applied
	c.notify(Event{Type: EventVolumeChanged, Volume: applied})
	return applied, c.saveSettingsLocked()
}

// CurrentTab returns the saved tab position.
func (c *Coordinator) CurrentTab() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings.CurrentTab
}

// SetCurrentTab saves the selected tab position.
func (c *Coordinator) SetCurrentTab(position int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.settings.CurrentTab = max(position, 0)
	return c.saveSettingsLocked()
}

func (c *Coordinator) saveSettingsLocked() error {
	if c.opts.SettingsPath == "" {
		return nil
	}
	if err := store.SaveSettings(c.opts.SettingsPath, c.settings); err != nil {
		c.logger.Warn("failed to save settings", "error", err)
		c.notify(Event{Type: EventWarning, Err: err})
		return err
	}
	return nil
}

// ToggleFavorite flips the favorite mark at index and returns the new state.
func (c *Coordinator) ToggleFavorite(tab string, index int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts, _, err := c.entryLocked(tab, index)
	if err != nil {
		return false, err
	}
	on, err := ts.meta.ToggleFavorite(index)
	c.warnLocked(tab, err)
	return on, err
}

// AssignHotkey binds slot to the sound at index.
func (c *Coordinator) AssignHotkey(tab string, index int, slot model.Slot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts, _, err := c.entryLocked(tab, index)
	if err != nil {
		return err
	}
	err = ts.meta.AssignHotkey(index, slot)
	c.warnLocked(tab, err)
	return err
}

// ClearHotkey unbinds any slot pointing at index.
func (c *Coordinator) ClearHotkey(tab string, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts, err := c.loadedState(tab)
	if err != nil {
		return err
	}
	err = ts.meta.ClearHotkey(index)
	c.warnLocked(tab, err)
	return err
}

// Hotkeys returns tab's slot bindings.
func (c *Coordinator) Hotkeys(tab string) (map[model.Slot]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts, err := c.loadedState(tab)
	if err != nil {
		return nil, err
	}
	return ts.meta.Hotkeys(), nil
}

// ReloadMetadata rereads tab's favorites and hotkeys from disk, picking up
// edits made by another process, and remaps them onto the loaded catalog.
func (c *Coordinator) ReloadMetadata(tab string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts, err := c.loadedState(tab)
	if err != nil {
		return err
	}
	if err := ts.meta.Load(); err != nil {
		c.notify(Event{Type: EventWarning, Tab: tab, Err: err})
		return err
	}

	names := make([]string, ts.catalog.Len())
	for i, e := range ts.catalog.Entries {
		names[i] = filepath.Base(e.Path)
	}
	if _, err := ts.meta.Reconcile(names); err != nil {
		c.warnLocked(tab, err)
	}

	c.notify(Event{Type: EventTabLoaded, Tab: tab, Generation: ts.generation, Total: ts.catalog.Len()})
	return nil
}

// warnLocked announces persistence failures. Caller holds c.mu.
func (c *Coordinator) warnLocked(tab string, err error) {
	var perr *store.PersistError
	if errors.As(err, &perr) {
		c.notify(Event{Type: EventWarning, Tab: tab, Err: err})
	}
}

// DeleteSound stops the sound at index if it is playing, deletes its file,
// drops its favorite and hotkey, and reloads the tab.
func (c *Coordinator) DeleteSound(ctx context.Context, tab string, index int) ([]model.Row, error) {
	c.mu.Lock()
	ts, entry, err := c.entryLocked(tab, index)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	if slot, ok := c.sched.Stop(tab, index); ok {
		c.notifySlot(EventSoundStopped, slot)
	}
	// A file that is already gone still has its bindings dropped
	if err := c.lib.DeleteSound(entry.Path); err != nil && !errors.Is(err, library.ErrSoundMissing) {
		c.mu.Unlock()
		return nil, err
	}
	c.fileChanged(entry.Path)

	metaErr := errors.Join(ts.meta.RemoveFavorite(index), ts.meta.ClearHotkey(index))
	c.warnLocked(tab, metaErr)
	c.mu.Unlock()

	c.logger.Info("sound deleted", "tab", tab, "index", index, "path", entry.Path)
	rows, err := c.LoadTab(ctx, tab)
	if err != nil {
		return rows, err
	}
	return rows, metaErr
}

// RenameSound renames the file at index, keeping its bindings, and reloads
// the tab.
func (c *Coordinator) RenameSound(ctx context.Context, tab string, index int, newName string) ([]model.Row, error) {
	c.mu.Lock()
	ts, entry, err := c.entryLocked(tab, index)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	if slot, ok := c.sched.Stop(tab, index); ok {
		c.notifySlot(EventSoundStopped, slot)
	}
	newPath, err := c.lib.RenameSound(entry.Path, newName)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.fileChanged(entry.Path)

	metaErr := ts.meta.RenameSound(filepath.Base(entry.Path), filepath.Base(newPath))
	c.warnLocked(tab, metaErr)
	c.mu.Unlock()

	rows, err := c.LoadTab(ctx, tab)
	if err != nil {
		return rows, err
	}
	return rows, metaErr
}

// AddSounds copies files into tab and reloads it.
func (c *Coordinator) AddSounds(ctx context.Context, tab string, paths []string, overwrite bool) ([]library.AddResult, error) {
	results, err := c.lib.AddSounds(tab, paths, overwrite)
	if err != nil {
		return nil, err
	}
	return results, c.afterAdd(ctx, tab, results)
}

// ImportFolder copies every supported file below dir into tab and reloads it.
func (c *Coordinator) ImportFolder(ctx context.Context, tab, dir string, overwrite bool) ([]library.AddResult, error) {
	results, err := c.lib.ImportFolder(tab, dir, overwrite)
	if err != nil {
		return nil, err
	}
	return results, c.afterAdd(ctx, tab, results)
}

func (c *Coordinator) afterAdd(ctx context.Context, tab string, results []library.AddResult) error {
	for _, r := range results {
		if r.Status == library.AddStatusReplaced {
			c.fileChanged(r.Dest)
		}
	}
	_, err := c.LoadTab(ctx, tab)
	if errors.Is(err, ErrSuperseded) {
		return nil
	}
	return err
}

// AddTab creates and loads a tab. Returns the sanitized name.
func (c *Coordinator) AddTab(ctx context.Context, name string) (string, error) {
	tab, err := c.lib.AddTab(name)
	if err != nil {
		return "", err
	}
	c.notify(Event{Type: EventTabsChanged, Tab: tab})
	if _, err := c.LoadTab(ctx, tab); err != nil && !errors.Is(err, ErrSuperseded) {
		return tab, err
	}
	return tab, nil
}

// RenameTab stops the tab's sounds, renames its directory and metadata, and
// reloads it under the new name.
func (c *Coordinator) RenameTab(ctx context.Context, oldName, newName string) (string, error) {
	c.mu.Lock()
	ts := c.state(oldName)
	c.stopLocked(oldName)

	tab, err := c.lib.RenameTab(oldName, newName)
	if err != nil {
		c.mu.Unlock()
		return "", err
	}

	if ts.cancel != nil {
		ts.cancel()
		ts.cancel = nil
	}
	ts.generation++
	delete(c.tabs, oldName)

	if tab != oldName {
		if err := ts.meta.Rename(c.opts.DataDir, tab); err != nil {
			c.logger.Warn("failed to move metadata", "from", oldName, "to", tab, "error", err)
			c.notify(Event{Type: EventWarning, Tab: tab, Err: err})
		}
	}
	ts.name = tab
	ts.loaded = false
	c.tabs[tab] = ts
	c.mu.Unlock()

	c.notify(Event{Type: EventTabsChanged, Tab: tab})
	if _, err := c.LoadTab(ctx, tab); err != nil && !errors.Is(err, ErrSuperseded) {
		return tab, err
	}
	return tab, nil
}

// DeleteTab stops the tab's sounds and removes it with its metadata. If no
// tabs remain the default tab is recreated.
func (c *Coordinator) DeleteTab(ctx context.Context, tab string, removeFiles bool) error {
	c.mu.Lock()
	ts := c.state(tab)
	c.stopLocked(tab)

	if err := c.lib.DeleteTab(tab, removeFiles); err != nil {
		c.mu.Unlock()
		return err
	}
	c.forgetLocked(ts)
	if err := ts.meta.Remove(); err != nil {
		c.logger.Warn("failed to remove metadata", "tab", tab, "error", err)
	}
	c.mu.Unlock()

	c.notify(Event{Type: EventTabsChanged, Tab: tab})

	created, err := c.lib.EnsureDefaultTab()
	if err != nil {
		return err
	}
	if created {
		if _, err := c.LoadTab(ctx, model.DefaultTab); err != nil && !errors.Is(err, ErrSuperseded) {
			return err
		}
	}
	return nil
}

// forgetLocked drops a tab's state, stopping its sounds and its load.
// Caller holds c.mu.
func (c *Coordinator) forgetLocked(ts *tabState) {
	c.stopLocked(ts.name)
	if ts.cancel != nil {
		ts.cancel()
		ts.cancel = nil
	}
	ts.generation++
	delete(c.tabs, ts.name)
}

// Close stops all sounds and pending loads and closes subscriber channels.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.stopLocked("")
	for _, ts := range c.tabs {
		if ts.cancel != nil {
			ts.cancel()
		}
	}
	c.mu.Unlock()

	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for _, ch := range c.subscribers {
		close(ch)
	}
	c.subscribers = nil
}

func (c *Coordinator) fileChanged(path string) {
	if c.opts.FileChanged != nil {
		c.opts.FileChanged(path)
	}
}

func (c *Coordinator) notifySlot(t EventType, slot scheduler.Slot) {
	c.notify(Event{
		Type:    t,
		Tab:     slot.Tab,
		Index:   slot.Index,
		Name:    model.DisplayName(slot.Path),
		Channel: slot.Channel,
	})
}
