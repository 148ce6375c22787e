package audio

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jmylchreest/padui/internal/config"
)

// BeepEngine plays sounds through the system speaker.
type BeepEngine struct {
	mu     sync.Mutex
	logger *slog.Logger

	// Whether speaker has been initialized
	initialized bool
	sampleRate  beep.SampleRate
	bufferLen   time.Duration

	// Decoded buffers by path
	cache *gocache.Cache

	voices map[int]*voice
}

// voice is one channel's active stream.
type voice struct {
	ctrl   *beep.Ctrl
	volume *effects.Volume
	busy   atomic.Bool
}

// NewBeepEngine creates a speaker-backed engine. The speaker is opened on
// the first Load.
func NewBeepEngine(cfg config.AudioConfig, logger *slog.Logger) *BeepEngine {
	if logger == nil {
		logger = slog.Default()
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = config.DefaultSampleRate
	}
	bufferLen := cfg.Buffer.Duration()
	if bufferLen <= 0 {
		bufferLen = config.DefaultSpeakerBuffer
	}
	ttl := cfg.CacheTTL.Duration()
	if ttl <= 0 {
		ttl = config.DefaultCacheTTL
	}

	return &BeepEngine{
		logger:     logger,
		sampleRate: beep.SampleRate(sampleRate),
		bufferLen:  bufferLen,
		cache:      gocache.New(ttl, 2*ttl),
		voices:     make(map[int]*voice),
	}
}

// Load decodes path, using the cache when possible.
func (e *BeepEngine) Load(path string) (Sound, error) {
	if cached, ok := e.cache.Get(path); ok {
		return newSound(path, cached.(*beep.Buffer)), nil
	}

	buffer, err := decodeFile(path)
	if err != nil {
		e.logger.Warn("failed to load sound", "path", path, "error", err)
		return Sound{}, err
	}

	if err := e.ensureInitialized(); err != nil {
		return Sound{}, err
	}

	e.cache.SetDefault(path, buffer)
	return newSound(path, buffer), nil
}

// ensureInitialized initializes the speaker if not already done.
func (e *BeepEngine) ensureInitialized() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return nil
	}

	if err := speaker.Init(e.sampleRate, e.sampleRate.N(e.bufferLen)); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}

	e.initialized = true
	e.logger.Debug("speaker initialized", "sample_rate", e.sampleRate, "buffer", e.bufferLen)
	return nil
}

// Play starts s on channel at volume, replacing whatever the channel was playing.
func (e *BeepEngine) Play(s Sound, channel, volume int) error {
	if s.buffer == nil {
		return ErrNotLoaded
	}
	e.Stop(channel)

	var streamer beep.Streamer = s.buffer.Streamer(0, s.buffer.Len())

	// Resample if necessary
	if s.buffer.Format().SampleRate != e.sampleRate {
		streamer = beep.Resample(4, s.buffer.Format().SampleRate, e.sampleRate, streamer)
	}

	gain, silent := volumeToGain(volume)
	v := &voice{}
	v.busy.Store(true)
	v.volume = &effects.Volume{
		Streamer: beep.Seq(streamer, beep.Callback(func() { v.busy.Store(false) })),
		Base:     2,
		Volume:   gain,
		Silent:   silent,
	}
	v.ctrl = &beep.Ctrl{Streamer: v.volume}

	e.mu.Lock()
	e.voices[channel] = v
	e.mu.Unlock()

	speaker.Play(v.ctrl)
	return nil
}

// Stop halts channel. Stopping an idle channel is a no-op.
func (e *BeepEngine) Stop(channel int) {
	e.mu.Lock()
	v, ok := e.voices[channel]
	delete(e.voices, channel)
	e.mu.Unlock()

	if !ok {
		return
	}

	speaker.Lock()
	v.ctrl.Streamer = nil
	speaker.Unlock()
	v.busy.Store(false)
}

// IsBusy reports whether channel is still producing sound.
func (e *BeepEngine) IsBusy(channel int) bool {
	e.mu.Lock()
	v, ok := e.voices[channel]
	e.mu.Unlock()
	return ok && v.busy.Load()
}

// SetVolume changes the volume of the sound playing on channel.
func (e *BeepEngine) SetVolume(channel, volume int) {
	e.mu.Lock()
	v, ok := e.voices[channel]
	e.mu.Unlock()

	if !ok {
		return
	}

	gain, silent := volumeToGain(volume)
	speaker.Lock()
	v.volume.Volume = gain
	v.volume.Silent = silent
	speaker.Unlock()
}

// InvalidateCache drops the decoded buffer for path.
func (e *BeepEngine) InvalidateCache(path string) {
	e.cache.Delete(path)
}

// ClearCache drops every decoded buffer.
func (e *BeepEngine) ClearCache() {
	e.cache.Flush()
	e.logger.Debug("sound cache cleared")
}

// Close stops all playback and releases resources.
func (e *BeepEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		speaker.Clear()
		speaker.Close()
		e.initialized = false
	}

	e.voices = make(map[int]*voice)
	e.cache.Flush()
	e.logger.Debug("audio engine closed")
}

// volumeToGain converts a 0-100 volume into a base-2 exponent for
// effects.Volume: 50 is half amplitude, 25 a quarter.
func volumeToGain(volume int) (float64, bool) {
	if volume <= 0 {
		return 0, true
	}
	if volume >= 100 {
		return 0, false
	}
	return math.Log2(float64(volume) / 100), false
}
