package scheduler

import (
	"errors"
	"sync"
	"time"

	"github.com/jmylchreest/padui/internal/audio"
)

var errMissing = errors.New("missing file")

// fakeEngine records calls and lets tests decide when channels go idle.
type fakeEngine struct {
	mu        sync.Mutex
	durations map[string]time.Duration
	missing   map[string]bool
	busy      map[int]bool
	volumes   map[int]int
	playing   map[int]string
	stops     []int
	loads     []string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		durations: make(map[string]time.Duration),
		missing:   make(map[string]bool),
		busy:      make(map[int]bool),
		volumes:   make(map[int]int),
		playing:   make(map[int]string),
	}
}

func (f *fakeEngine) Load(path string) (audio.Sound, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, path)
	if f.missing[path] {
		return audio.Sound{}, errMissing
	}
	return audio.Sound{Path: path, Duration: f.durations[path]}, nil
}

func (f *fakeEngine) Play(s audio.Sound, channel, volume int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy[channel] = true
	f.volumes[channel] = volume
	f.playing[channel] = s.Path
	return nil
}

func (f *fakeEngine) Stop(channel int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops = append(f.stops, channel)
	delete(f.busy, channel)
	delete(f.playing, channel)
}

func (f *fakeEngine) IsBusy(channel int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy[channel]
}

func (f *fakeEngine) SetVolume(channel, volume int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volumes[channel] = volume
}

func (f *fakeEngine) Close() {}

// finish marks channel idle as if its sound ended.
func (f *fakeEngine) finish(channel int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy[channel] = false
}

func (f *fakeEngine) volume(channel int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volumes[channel]
}

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
