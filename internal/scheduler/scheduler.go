// Package scheduler allocates a fixed pool of playback channels to sounds.
package scheduler

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/jmylchreest/padui/internal/audio"
	"github.com/jmylchreest/padui/internal/model"
)

// Request identifies the sound to toggle.
type Request struct {
	Tab   string
	Index int
	Path  string
	// Duration is nil when the catalog could not probe it.
	Duration *time.Duration
}

// Slot is one active playback occupying a channel.
type Slot struct {
	Channel     int           `json:"channel"`
	PlayID      string        `json:"play_id"`
	Tab         string        `json:"tab"`
	Index       int           `json:"index"`
	Path        string        `json:"path"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration,omitempty"`
	HasDuration bool          `json:"has_duration"`
}

// Remaining returns the time left at now. ok is false if the duration is
// unknown.
func (s Slot) Remaining(now time.Time) (time.Duration, bool) {
	if !s.HasDuration {
		return 0, false
	}
	return max(s.Duration-now.Sub(s.StartedAt), 0), true
}

// Action is what a toggle did.
type Action int

const (
	Started Action = iota
	Stopped
)

func (a Action) String() string {
	switch a {
	case Started:
		return "started"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Result describes the outcome of TogglePlay.
type Result struct {
	Action Action
	Slot   Slot
	// Evicted is set when a channel was reclaimed for a new start.
	Evicted *Slot
}

// Scheduler owns the channel pool and every active slot. All methods are
// safe for concurrent use.
type Scheduler struct {
	mu     sync.Mutex
	logger *slog.Logger
	engine audio.Engine
	now    func() time.Time

	capacity int
	volume   int
	active   map[int]*Slot
}

// New creates a scheduler with capacity channels at volume (0-100).
func New(engine audio.Engine, capacity, volume int, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		logger:   logger,
		engine:   engine,
		now:      time.Now,
		capacity: max(capacity, 0),
		volume:   clampVolume(volume),
		active:   make(map[int]*Slot),
	}
}

// TogglePlay stops (tab, index) if it is active, otherwise starts it.
//
// Starting loads the sound before touching the pool, so a missing or
// undecodable file returns a *PlaybackError with nothing allocated or
// evicted. When every channel is busy the slot with the least remaining
// time is evicted; if no active slot has a known duration the oldest is.
func (s *Scheduler) TogglePlay(req Request) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.find(req.Tab, req.Index); ok {
		slot := s.release(ch)
		s.logger.Debug("sound stopped", "tab", slot.Tab, "index", slot.Index, "channel", ch)
		return Result{Action: Stopped, Slot: slot}, nil
	}

	if s.capacity == 0 {
		return Result{}, ErrNoChannel
	}

	sound, err := s.engine.Load(req.Path)
	if err != nil {
		return Result{}, &PlaybackError{Path: req.Path, Err: err}
	}

	var evicted *Slot
	ch, ok := s.freeChannel()
	if !ok {
		ch = s.victim()
		slot := s.release(ch)
		evicted = &slot
		s.logger.Debug("sound evicted", "tab", slot.Tab, "index", slot.Index, "channel", ch)
	}

	if err := s.engine.Play(sound, ch, s.volume); err != nil {
		return Result{Evicted: evicted}, &PlaybackError{Path: req.Path, Err: err}
	}

	playID, err := model.NewPlayID()
	if err != nil {
		s.logger.Warn("failed to generate play id", "error", err)
	}

	slot := &Slot{
		Channel:   ch,
		PlayID:    playID,
		Tab:       req.Tab,
		Index:     req.Index,
		Path:      req.Path,
		StartedAt: s.now(),
	}
	switch {
	case req.Duration != nil:
		slot.Duration, slot.HasDuration = *req.Duration, true
	case sound.Duration > 0:
		slot.Duration, slot.HasDuration = sound.Duration, true
	}
	s.active[ch] = slot

	s.logger.Debug("sound started", "tab", req.Tab, "index", req.Index, "channel", ch, "play_id", playID)
	return Result{Action: Started, Slot: *slot, Evicted: evicted}, nil
}

// Stop stops (tab, index) if it is active.
func (s *Scheduler) Stop(tab string, index int) (Slot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.find(tab, index)
	if !ok {
		return Slot{}, false
	}
	return s.release(ch), true
}

// StopAll stops every active slot and returns them in channel order.
func (s *Scheduler) StopAll() []Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releaseWhere(func(*Slot) bool { return true })
}

// StopTab stops every active slot belonging to tab.
func (s *Scheduler) StopTab(tab string) []Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releaseWhere(func(slot *Slot) bool { return slot.Tab == tab })
}

// Reindex moves tab's active slots to the catalog positions of their paths.
// Slots whose path is no longer in positions are stopped and returned.
func (s *Scheduler) Reindex(tab string, positions map[string]int) []Slot {
	s.mu.Lock()
	defer s.mu.Unlock()

	stopped := s.releaseWhere(func(slot *Slot) bool {
		if slot.Tab != tab {
			return false
		}
		_, ok := positions[slot.Path]
		return !ok
	})
	for _, slot := range s.active {
		if slot.Tab == tab {
			slot.Index = positions[slot.Path]
		}
	}
	return stopped
}

// SetVolume clamps v to [0,100], applies it to every active channel and
// uses it for later starts. Returns the applied volume.
func (s *Scheduler) SetVolume(v int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.volume = clampVolume(v)
	for ch := range s.active {
		s.engine.SetVolume(ch, s.volume)
	}
	return s.volume
}

// Volume returns the global volume.
func (s *Scheduler) Volume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Capacity returns the pool size.
func (s *Scheduler) Capacity() int {
	return s.capacity
}

// Tick removes and returns every slot whose channel has gone idle.
func (s *Scheduler) Tick() []Slot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ended []Slot
	for _, ch := range slices.Sorted(maps.Keys(s.active)) {
		if s.engine.IsBusy(ch) {
			continue
		}
		ended = append(ended, *s.active[ch])
		delete(s.active, ch)
	}
	return ended
}

// Playing returns the active slots in channel order.
func (s *Scheduler) Playing() []Slot {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots := make([]Slot, 0, len(s.active))
	for _, ch := range slices.Sorted(maps.Keys(s.active)) {
		slots = append(slots, *s.active[ch])
	}
	return slots
}

// IsPlaying reports whether (tab, index) holds a channel.
func (s *Scheduler) IsPlaying(tab string, index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.find(tab, index)
	return ok
}

// find returns the channel holding (tab, index). Caller holds s.mu.
func (s *Scheduler) find(tab string, index int) (int, bool) {
	for ch, slot := range s.active {
		if slot.Tab == tab && slot.Index == index {
			return ch, true
		}
	}
	return 0, false
}

// freeChannel returns the lowest unused channel. Caller holds s.mu.
func (s *Scheduler) freeChannel() (int, bool) {
	for ch := range s.capacity {
		if _, busy := s.active[ch]; !busy {
			return ch, true
		}
	}
	return 0, false
}

// victim picks the channel to evict from a full pool. Caller holds s.mu.
func (s *Scheduler) victim() int {
	now := s.now()
	channels := slices.Sorted(maps.Keys(s.active))

	victim := -1
	var least time.Duration
	for _, ch := range channels {
		rem, ok := s.active[ch].Remaining(now)
		if ok && (victim < 0 || rem < least) {
			victim, least = ch, rem
		}
	}
	if victim >= 0 {
		return victim
	}

	oldest := channels[0]
	for _, ch := range channels[1:] {
		if s.active[ch].StartedAt.Before(s.active[oldest].StartedAt) {
			oldest = ch
		}
	}
	return oldest
}

// release stops channel and removes its slot. Caller holds s.mu.
func (s *Scheduler) release(ch int) Slot {
	s.engine.Stop(ch)
	slot := *s.active[ch]
	delete(s.active, ch)
	return slot
}

// releaseWhere releases every slot accepted by match, in channel order.
// Caller holds s.mu.
func (s *Scheduler) releaseWhere(match func(*Slot) bool) []Slot {
	var stopped []Slot
	for _, ch := range slices.Sorted(maps.Keys(s.active)) {
		if match(s.active[ch]) {
			stopped = append(stopped, s.release(ch))
		}
	}
	return stopped
}

func clampVolume(v int) int {
	return min(max(v, 0), 100)
}
