package daemon

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/jmylchreest/padui/internal/config"
	"github.com/jmylchreest/padui/internal/store"
)

// poller runs check on a fixed interval between Start and Stop.
type poller struct {
	mu       sync.Mutex
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

func (p *poller) setInterval(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interval = d
}

// start launches the loop. It returns false if already running.
func (p *poller) start(ctx context.Context, check func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return false
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})

	go func(interval time.Duration, stop, done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				check()
			}
		}
	}(p.interval, p.stopCh, p.doneCh)
	return true
}

// stop ends the loop and waits for it. It returns false if not running.
func (p *poller) stop() bool {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return false
	}
	p.running = false
	close(p.stopCh)
	done := p.doneCh
	p.mu.Unlock()

	<-done
	return true
}

func (p *poller) currentInterval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// modTime returns path's modification time, or zero if it cannot be read.
func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// MetadataWatcher polls the per-tab metadata documents for changes made by
// other processes, such as `padui fav` while the daemon is running.
type MetadataWatcher struct {
	poller
	logger *slog.Logger

	dataDir string
	tabs    func() []string

	mu sync.Mutex
	// zero when the document is missing
	modTimes map[string]time.Time
	onChange func(tab string)
}

// NewMetadataWatcher creates a watcher for the documents of the tabs
// returned by tabs.
func NewMetadataWatcher(dataDir string, tabs func() []string, logger *slog.Logger) *MetadataWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetadataWatcher{
		poller:   poller{interval: 500 * time.Millisecond},
		logger:   logger,
		dataDir:  dataDir,
		tabs:     tabs,
		modTimes: make(map[string]time.Time),
	}
}

// SetPollInterval sets the polling interval. It applies from the next Start.
func (w *MetadataWatcher) SetPollInterval(interval time.Duration) {
	w.setInterval(interval)
}

// SetChangeCallback sets the callback invoked with the tab whose document changed.
func (w *MetadataWatcher) SetChangeCallback(callback func(tab string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = callback
}

// Start records the current documents and begins polling.
func (w *MetadataWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	for _, tab := range w.tabs() {
		w.modTimes[tab] = modTime(store.MetadataPath(w.dataDir, tab))
	}
	w.mu.Unlock()

	if w.start(ctx, w.checkForChanges) {
		w.logger.Debug("metadata watcher started", "dir", w.dataDir, "interval", w.currentInterval())
	}
	return nil
}

// Stop stops polling.
func (w *MetadataWatcher) Stop() {
	if w.stop() {
		w.logger.Debug("metadata watcher stopped")
	}
}

// checkForChanges reports tabs whose document was written since the last
// poll. Tabs seen for the first time are only recorded.
func (w *MetadataWatcher) checkForChanges() {
	var changed []string

	w.mu.Lock()
	callback := w.onChange
	current := make(map[string]time.Time)
	for _, tab := range w.tabs() {
		mod := modTime(store.MetadataPath(w.dataDir, tab))
		current[tab] = mod
		if last, known := w.modTimes[tab]; known && mod.After(last) {
			changed = append(changed, tab)
		}
	}
	w.modTimes = current
	w.mu.Unlock()

	for _, tab := range changed {
		w.logger.Debug("metadata document changed", "tab", tab)
		if callback != nil {
			callback(tab)
		}
	}
}

// ConfigWatcher polls the config file and hands each valid new config to a
// callback. An invalid file keeps the previous config.
type ConfigWatcher struct {
	poller
	logger *slog.Logger
	path   string

	mu       sync.RWMutex
	lastMod  time.Time
	current  *config.Config
	onReload func(*config.Config)
	onError  func(error)
}

// NewConfigWatcher creates a ConfigWatcher for path; empty means the
// default config path.
func NewConfigWatcher(path string, logger *slog.Logger) *ConfigWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		path = config.ConfigPath()
	}
	return &ConfigWatcher{
		poller: poller{interval: time.Second},
		logger: logger,
		path:   path,
	}
}

// SetPollInterval sets the polling interval. It applies from the next Start.
func (w *ConfigWatcher) SetPollInterval(interval time.Duration) {
	w.setInterval(interval)
}

// SetReloadCallback sets the callback for a successfully reloaded config.
func (w *ConfigWatcher) SetReloadCallback(callback func(newConfig *config.Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = callback
}

// SetErrorCallback sets the callback for a changed file that fails to load.
func (w *ConfigWatcher) SetErrorCallback(callback func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = callback
}

// Start begins polling, treating initial as the config currently applied.
func (w *ConfigWatcher) Start(ctx context.Context, initial *config.Config) error {
	w.mu.Lock()
	w.current = initial
	w.lastMod = modTime(w.path)
	w.mu.Unlock()

	if w.start(ctx, w.checkForChanges) {
		w.logger.Debug("config watcher started", "path", w.path, "interval", w.currentInterval())
	}
	return nil
}

// Stop stops polling.
func (w *ConfigWatcher) Stop() {
	if w.stop() {
		w.logger.Debug("config watcher stopped")
	}
}

// GetCurrentConfig returns the last valid configuration.
func (w *ConfigWatcher) GetCurrentConfig() *config.Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *ConfigWatcher) checkForChanges() {
	mod := modTime(w.path)

	w.mu.Lock()
	if mod.IsZero() || !mod.After(w.lastMod) {
		w.mu.Unlock()
		return
	}
	w.lastMod = mod
	onReload, onError := w.onReload, w.onError
	w.mu.Unlock()

	w.logger.Debug("config file changed", "path", w.path, "mod_time", mod)

	cfg, err := config.LoadConfig(w.path)
	if err != nil {
		w.logger.Warn("config file changed but failed to load", "error", err)
		if onError != nil {
			onError(err)
		}
		return
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	w.logger.Info("config reloaded")
	if onReload != nil {
		onReload(cfg)
	}
}
