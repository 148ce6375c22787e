package library

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jmylchreest/padui/internal/model"
)

// DefaultDebounce is the quiet period before a change is reported.
const DefaultDebounce = 250 * time.Millisecond

// ChangeFunc is invoked once per burst of changes in a tab.
// An empty tab means the set of tabs changed. paths lists the sound files
// touched during the burst.
type ChangeFunc func(tab string, paths []string)

// Watcher reports changes under the sounds root.
type Watcher struct {
	watcher  *fsnotify.Watcher
	lib      *Library
	debounce time.Duration
	onChange ChangeFunc
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}
	pending map[string][]string
	timers  map[string]*time.Timer
}

// NewWatcher creates a watcher for lib's root and tab directories.
func NewWatcher(lib *Library, debounce time.Duration, onChange ChangeFunc, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:  watcher,
		lib:      lib,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		done:     make(chan struct{}),
		pending:  make(map[string][]string),
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Start begins watching. The root is created if missing.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.lib.Root(), 0755); err != nil {
		return err
	}
	if err := w.watcher.Add(w.lib.Root()); err != nil {
		return err
	}

	tabs, err := w.lib.Tabs()
	if err != nil {
		return err
	}
	for _, tab := range tabs {
		if err := w.watcher.Add(w.lib.TabDir(tab)); err != nil {
			w.logger.Warn("failed to watch tab", "tab", tab, "error", err)
		}
	}

	go w.watch()
	return nil
}

func (w *Watcher) watch() {
	root := filepath.Clean(w.lib.Root())

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}

			parent := filepath.Dir(event.Name)
			switch {
			case parent == root:
				// A tab directory appeared, went away or was renamed
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						if err := w.watcher.Add(event.Name); err != nil {
							w.logger.Warn("failed to watch new tab", "dir", event.Name, "error", err)
						}
					}
				}
				w.schedule("", "")
			case filepath.Dir(parent) == root:
				if !model.IsSupported(event.Name) {
					continue
				}
				w.logger.Debug("sound changed", "path", event.Name, "op", event.Op.String())
				w.schedule(filepath.Base(parent), event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("sounds watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

// schedule records a change and (re)arms the tab's debounce timer.
func (w *Watcher) schedule(tab, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if path != "" && !slices.Contains(w.pending[tab], path) {
		w.pending[tab] = append(w.pending[tab], path)
	} else if _, ok := w.pending[tab]; !ok {
		w.pending[tab] = nil
	}

	if t, ok := w.timers[tab]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[tab] = time.AfterFunc(w.debounce, func() { w.fire(tab) })
}

func (w *Watcher) fire(tab string) {
	w.mu.Lock()
	paths := w.pending[tab]
	delete(w.pending, tab)
	delete(w.timers, tab)
	running := w.running
	w.mu.Unlock()

	if running && w.onChange != nil {
		w.onChange(tab, paths)
	}
}

// Stop stops watching and cancels pending notifications.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = make(map[string]*time.Timer)
	w.pending = make(map[string][]string)
	close(w.done)
	return w.watcher.Close()
}
