package audio

import (
	"log/slog"
	"sync"
	"time"
)

// SilentEngine decodes sounds and tracks channel timing without opening an
// output device. Channels stay busy for the decoded length of their sound.
type SilentEngine struct {
	mu     sync.Mutex
	logger *slog.Logger
	now    func() time.Time

	deadlines map[int]time.Time
	volumes   map[int]int
}

// NewSilentEngine creates an engine that plays nothing.
func NewSilentEngine(logger *slog.Logger) *SilentEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &SilentEngine{
		logger:    logger,
		now:       time.Now,
		deadlines: make(map[int]time.Time),
		volumes:   make(map[int]int),
	}
}

// Load decodes path to validate it and learn its length.
func (e *SilentEngine) Load(path string) (Sound, error) {
	buffer, err := decodeFile(path)
	if err != nil {
		e.logger.Warn("failed to load sound", "path", path, "error", err)
		return Sound{}, err
	}
	return newSound(path, buffer), nil
}

// Play marks channel busy for the sound's duration.
func (e *SilentEngine) Play(s Sound, channel, volume int) error {
	if s.buffer == nil {
		return ErrNotLoaded
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deadlines[channel] = e.now().Add(s.Duration)
	e.volumes[channel] = volume
	return nil
}

// Stop frees channel.
func (e *SilentEngine) Stop(channel int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.deadlines, channel)
	delete(e.volumes, channel)
}

// IsBusy reports whether channel's sound would still be playing.
func (e *SilentEngine) IsBusy(channel int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	deadline, ok := e.deadlines[channel]
	return ok && e.now().Before(deadline)
}

// SetVolume records channel's volume.
func (e *SilentEngine) SetVolume(channel, volume int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.deadlines[channel]; ok {
		e.volumes[channel] = volume
	}
}

// Volume returns the last volume set on channel.
func (e *SilentEngine) Volume(channel int) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.volumes[channel]
	return v, ok
}

// Close frees every channel.
func (e *SilentEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deadlines = make(map[int]time.Time)
	e.volumes = make(map[int]int)
}
