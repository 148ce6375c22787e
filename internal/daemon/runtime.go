package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmylchreest/padui/internal/audio"
	"github.com/jmylchreest/padui/internal/config"
	"github.com/jmylchreest/padui/internal/library"
	"github.com/jmylchreest/padui/internal/pad"
	"github.com/jmylchreest/padui/internal/scheduler"
)

// cacheInvalidator is implemented by engines that keep decoded sounds.
type cacheInvalidator interface {
	InvalidateCache(path string)
}

// Runtime owns the engine, the board and the watchers built from a config.
type Runtime struct {
	logger *slog.Logger

	Engine audio.Engine
	Board  *pad.Coordinator

	mu      sync.Mutex
	cfg     *config.Config
	watcher *library.Watcher
	meta    *MetadataWatcher
}

// New builds the engine and board described by cfg. Nothing is loaded or
// watched until Start.
func New(cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("failed to create data directories: %w", err)
	}

	engine := audio.NewEngine(cfg.Audio, logger)
	lib := library.New(cfg.SoundsDir(), logger)
	loader := library.NewLoader(cfg.Library.Workers, logger)
	sched := scheduler.New(engine, cfg.Playback.Channels, cfg.Playback.DefaultVolume, logger)

	opts := pad.Options{
		DataDir:       cfg.DataDir(),
		SettingsPath:  cfg.SettingsPath(),
		TickInterval:  cfg.Playback.TickInterval.Duration(),
		DefaultVolume: cfg.Playback.DefaultVolume,
	}
	if inv, ok := engine.(cacheInvalidator); ok {
		opts.FileChanged = inv.InvalidateCache
	}

	board, err := pad.New(lib, loader, sched, opts, logger)
	if err != nil {
		engine.Close()
		return nil, err
	}

	return &Runtime{
		logger: logger,
		Engine: engine,
		Board:  board,
		cfg:    cfg,
	}, nil
}

// Config returns the configuration currently applied.
func (r *Runtime) Config() *config.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// Load loads every tab. Per-tab failures are logged and returned joined;
// the board stays usable.
func (r *Runtime) Load(ctx context.Context) error {
	err := r.Board.LoadAll(ctx)
	if err != nil {
		r.logger.Warn("some tabs failed to load", "error", err)
	}
	return err
}

// StartWatching begins following the sound directories (when enabled in the
// config) and the metadata documents.
func (r *Runtime) StartWatching(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.startLibraryWatcherLocked(); err != nil {
		return err
	}

	if r.meta == nil {
		r.meta = NewMetadataWatcher(r.cfg.DataDir(), r.loadedTabs, r.logger)
		r.meta.SetChangeCallback(func(tab string) {
			if err := r.Board.ReloadMetadata(tab); err != nil && !errors.Is(err, pad.ErrTabNotLoaded) {
				r.logger.Warn("failed to reload metadata", "tab", tab, "error", err)
			}
		})
	}
	return r.meta.Start(ctx)
}

func (r *Runtime) loadedTabs() []string {
	tabs, err := r.Board.Tabs()
	if err != nil {
		r.logger.Debug("failed to list tabs", "error", err)
		return nil
	}
	return tabs
}

// startLibraryWatcherLocked starts the directory watcher if enabled.
// Caller holds r.mu.
func (r *Runtime) startLibraryWatcherLocked() error {
	if !r.cfg.Daemon.Watch || r.watcher != nil {
		return nil
	}

	w, err := library.NewWatcher(r.Board.Library(), r.cfg.Daemon.Debounce.Duration(), r.onLibraryChange, r.logger)
	if err != nil {
		return fmt.Errorf("failed to create library watcher: %w", err)
	}
	if err := w.Start(); err != nil {
		_ = w.Stop()
		return fmt.Errorf("failed to start library watcher: %w", err)
	}
	r.watcher = w
	return nil
}

// stopLibraryWatcherLocked stops the directory watcher. Caller holds r.mu.
func (r *Runtime) stopLibraryWatcherLocked() {
	if r.watcher == nil {
		return
	}
	if err := r.watcher.Stop(); err != nil {
		r.logger.Warn("failed to stop library watcher", "error", err)
	}
	r.watcher = nil
}

// onLibraryChange reloads what changed on disk. Changed files are dropped
// from the decode cache first so the reload plays the new content.
func (r *Runtime) onLibraryChange(tab string, paths []string) {
	ctx := context.Background()

	if inv, ok := r.Engine.(cacheInvalidator); ok {
		for _, p := range paths {
			inv.InvalidateCache(p)
		}
	}

	var err error
	if tab == "" {
		err = r.Board.SyncTabs(ctx)
	} else {
		_, err = r.Board.LoadTab(ctx, tab)
	}
	if err != nil && !errors.Is(err, pad.ErrSuperseded) {
		r.logger.Warn("reload after change failed", "tab", tab, "error", err)
	}
}

// ApplyConfig switches to cfg for the settings that can change at runtime:
// directory watching and its debounce. Everything else needs a restart.
func (r *Runtime) ApplyConfig(cfg *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.cfg
	r.cfg = cfg

	if old.Daemon == cfg.Daemon {
		return
	}
	r.stopLibraryWatcherLocked()
	if err := r.startLibraryWatcherLocked(); err != nil {
		r.logger.Warn("failed to restart library watcher", "error", err)
		return
	}
	r.logger.Info("applied daemon settings", "watch", cfg.Daemon.Watch, "debounce", cfg.Daemon.Debounce.Duration())
}

// Watching reports whether the directory watcher is running.
func (r *Runtime) Watching() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.watcher != nil
}

// Run ticks the board until ctx is done.
func (r *Runtime) Run(ctx context.Context) {
	r.Board.Run(ctx)
}

// Close stops the watchers, the board and the engine.
func (r *Runtime) Close() {
	r.mu.Lock()
	r.stopLibraryWatcherLocked()
	meta := r.meta
	r.meta = nil
	r.mu.Unlock()

	if meta != nil {
		meta.Stop()
	}
	r.Board.Close()
	r.Engine.Close()
}
