package pad

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"

	padaudio "github.com/jmylchreest/padui/internal/audio"
	"github.com/jmylchreest/padui/internal/library"
	"github.com/jmylchreest/padui/internal/model"
	"github.com/jmylchreest/padui/internal/scheduler"
)

// writeWAV writes a silent 16-bit mono WAV of the given number of samples at 8kHz.
func writeWAV(t *testing.T, path string, samples int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	enc := wav.NewEncoder(f, 8000, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 8000},
		Data:           make([]int, samples),
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
}

// stubEngine fails to load missing files and keeps channels busy until
// finish is called.
type stubEngine struct {
	mu   sync.Mutex
	busy map[int]bool
}

func newStubEngine() *stubEngine {
	return &stubEngine{busy: make(map[int]bool)}
}

func (e *stubEngine) Load(path string) (padaudio.Sound, error) {
	if _, err := os.Stat(path); err != nil {
		return padaudio.Sound{}, err
	}
	return padaudio.Sound{Path: path}, nil
}

func (e *stubEngine) Play(_ padaudio.Sound, channel, _ int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.busy[channel] = true
	return nil
}

func (e *stubEngine) Stop(channel int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.busy, channel)
}

func (e *stubEngine) IsBusy(channel int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy[channel]
}

func (e *stubEngine) SetVolume(int, int) {}
func (e *stubEngine) Close()             {}

func (e *stubEngine) finish(channel int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.busy[channel] = false
}

type testBoard struct {
	c       *Coordinator
	lib     *library.Library
	engine  *stubEngine
	dataDir string
	changed []string
}

func newTestBoard(t *testing.T, loader Loader, capacity int) *testBoard {
	t.Helper()
	root := t.TempDir()
	lib := library.New(filepath.Join(root, "sounds"), nil)
	if loader == nil {
		loader = library.NewLoader(4, nil)
	}
	engine := newStubEngine()
	sched := scheduler.New(engine, capacity, 80, nil)

	b := &testBoard{lib: lib, engine: engine, dataDir: filepath.Join(root, "data")}
	c, err := New(lib, loader, sched, Options{
		DataDir:       b.dataDir,
		SettingsPath:  filepath.Join(b.dataDir, "settings.json"),
		DefaultVolume: 80,
		FileChanged:   func(p string) { b.changed = append(b.changed, p) },
	}, nil)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	b.c = c
	return b
}

// seedDefault creates the Default tab with A.wav (1s) and b.wav (2s).
func (b *testBoard) seedDefault(t *testing.T) {
	t.Helper()
	writeWAV(t, filepath.Join(b.lib.TabDir("Default"), "b.wav"), 16000)
	writeWAV(t, filepath.Join(b.lib.TabDir("Default"), "A.wav"), 8000)
}

func names(rows []model.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Name
	}
	return out
}

// gatedLoader blocks the first Load until release is closed.
type gatedLoader struct {
	inner    Loader
	mu       sync.Mutex
	calls    int
	entered  chan struct{}
	release  chan struct{}
	firstCtx context.Context
}

func newGatedLoader() *gatedLoader {
	return &gatedLoader{
		inner:   library.NewLoader(4, nil),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedLoader) Load(ctx context.Context, tab, dir string, generation uint64, progress library.ProgressFunc) (model.Catalog, error) {
	g.mu.Lock()
	g.calls++
	first := g.calls == 1
	if first {
		g.firstCtx = ctx
	}
	g.mu.Unlock()

	if first {
		close(g.entered)
		select {
		case <-g.release:
		case <-time.After(5 * time.Second):
		}
	}
	return g.inner.Load(context.WithoutCancel(ctx), tab, dir, generation, progress)
}

// drain collects events already delivered to ch.
func drain(ch <-chan Event) []Event {
	var events []Event
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, e)
		default:
			return events
		}
	}
}

func eventTypes(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

// flakyLoader passes through to the real loader until err is set.
type flakyLoader struct {
	inner Loader
	mu    sync.Mutex
	err   error
}

func (f *flakyLoader) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *flakyLoader) Load(ctx context.Context, tab, dir string, generation uint64, progress library.ProgressFunc) (model.Catalog, error) {
	f.mu.Lock()
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return model.Catalog{Tab: tab, Generation: generation, Entries: []model.SoundEntry{}}, err
	}
	return f.inner.Load(ctx, tab, dir, generation, progress)
}
