// Package library scans tab directories into catalogs and manages the
// tab and sound files on disk.
package library

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/padui/internal/model"
)

// DefaultWorkers is the number of concurrent duration probes.
const DefaultWorkers = 4

// ProgressFunc receives (completed, total) as probes finish.
// Calls are serialized and completed only increases.
type ProgressFunc func(completed, total int)

// Loader builds catalogs from tab directories.
type Loader struct {
	logger  *slog.Logger
	workers int
	probe   func(path string) (time.Duration, error)
}

// NewLoader creates a loader running at most workers probes at once.
func NewLoader(workers int, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Loader{
		logger:  logger,
		workers: workers,
		probe:   ProbeDuration,
	}
}

// Workers returns the probe concurrency limit.
func (l *Loader) Workers() int {
	return l.workers
}

// fileInfo is a candidate sound found in the directory listing.
type fileInfo struct {
	path    string
	size    int64
	modTime time.Time
}

// Load scans dir and returns the tab's catalog tagged with generation.
//
// A missing directory is created and yields an empty catalog. A directory
// that cannot be listed yields an empty catalog and the error. A failed
// probe leaves that entry without a duration. If ctx is cancelled, no new
// probes are started and ctx.Err() is returned.
func (l *Loader) Load(ctx context.Context, tab, dir string, generation uint64, progress ProgressFunc) (model.Catalog, error) {
	catalog := model.Catalog{Tab: tab, Generation: generation, Entries: []model.SoundEntry{}}

	files, err := l.listSounds(dir)
	if err != nil {
		l.logger.Warn("failed to list tab directory", "tab", tab, "dir", dir, "error", err)
		return catalog, err
	}
	if len(files) == 0 {
		if progress != nil {
			progress(0, 0)
		}
		return catalog, nil
	}

	durations := make([]*time.Duration, len(files))
	total := len(files)

	var progressMu sync.Mutex
	completed := 0
	report := func() {
		progressMu.Lock()
		defer progressMu.Unlock()
		completed++
		if progress != nil {
			progress(completed, total)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)

	for i, f := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, err := l.probe(f.path)
			if err != nil {
				l.logger.Warn("failed to probe duration", "tab", tab, "path", f.path, "error", err)
			} else {
				durations[i] = &d
			}
			report()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return catalog, err
	}
	if err := ctx.Err(); err != nil {
		return catalog, err
	}

	entries := make([]model.SoundEntry, len(files))
	for i, f := range files {
		entries[i] = model.NewSoundEntry(f.path, f.modTime, f.size, durations[i])
	}
	SortEntries(entries)
	catalog.Entries = entries

	l.logger.Debug("loaded tab", "tab", tab, "generation", generation, "sounds", len(entries))
	return catalog, nil
}

// listSounds returns the supported regular files directly inside dir.
func (l *Loader) listSounds(dir string) ([]fileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(dir, 0755); mkErr != nil {
				return nil, fmt.Errorf("failed to create tab directory: %w", mkErr)
			}
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read tab directory: %w", err)
	}

	var files []fileInfo
	for _, e := range entries {
		if !e.Type().IsRegular() || !model.IsSupported(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between listing and stat
			continue
		}
		files = append(files, fileInfo{
			path:    filepath.Join(dir, e.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
	}
	return files, nil
}

// SortEntries orders entries by display name case-insensitively, breaking
// ties by exact name and then path.
func SortEntries(entries []model.SoundEntry) {
	slices.SortFunc(entries, func(a, b model.SoundEntry) int {
		return cmp.Or(
			cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.Path, b.Path),
		)
	})
}
