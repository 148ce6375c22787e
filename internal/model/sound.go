// Package model defines the core data structures for padui.
package model

import (
	"crypto/rand"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Supported sound file extensions (lowercase, with dot).
const (
	ExtWAV = ".wav"
	ExtMP3 = ".mp3"
	ExtOGG = ".ogg"
)

// SupportedExtensions lists every extension the loader and engine accept.
var SupportedExtensions = []string{ExtWAV, ExtMP3, ExtOGG}

// IsSupported reports whether path has a supported audio extension.
// The comparison is case-insensitive.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// DisplayName returns the file name of path without its extension.
func DisplayName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SoundEntry is one sound in a tab's catalog. It is immutable once built.
type SoundEntry struct {
	Path      string    `json:"path" yaml:"path"`
	Name      string    `json:"name" yaml:"name"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Size      int64     `json:"size" yaml:"size"`

	// Duration is zero when the probe failed; check HasDuration.
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
	duration bool
}

// NewSoundEntry builds an entry. A nil duration marks it as unknown.
func NewSoundEntry(path string, createdAt time.Time, size int64, duration *time.Duration) SoundEntry {
	e := SoundEntry{
		Path:      path,
		Name:      DisplayName(path),
		CreatedAt: createdAt,
		Size:      size,
	}
	if duration != nil {
		e.Duration = *duration
		e.duration = true
	}
	return e
}

// HasDuration reports whether the duration probe succeeded.
func (e SoundEntry) HasDuration() bool {
	return e.duration
}

// DurationPtr returns the duration or nil when unknown.
func (e SoundEntry) DurationPtr() *time.Duration {
	if !e.duration {
		return nil
	}
	d := e.Duration
	return &d
}

// Catalog is the ordered list of sounds for one tab.
// Positions in Entries are the keys used by favorites and hotkeys.
type Catalog struct {
	Tab        string       `json:"tab"`
	Generation uint64       `json:"generation"`
	Entries    []SoundEntry `json:"entries"`
}

// Len returns the number of entries.
func (c Catalog) Len() int {
	return len(c.Entries)
}

// At returns the entry at index and whether it is in bounds.
func (c Catalog) At(index int) (SoundEntry, bool) {
	if index < 0 || index >= len(c.Entries) {
		return SoundEntry{}, false
	}
	return c.Entries[index], true
}

// IndexOfName returns the position of the first entry whose display name
// matches name case-insensitively, or -1.
func (c Catalog) IndexOfName(name string) int {
	for i, e := range c.Entries {
		if strings.EqualFold(e.Name, name) {
			return i
		}
	}
	return -1
}

// Row is one catalog entry merged with its metadata, ready for display.
type Row struct {
	Index       int           `json:"index" yaml:"index"`
	Name        string        `json:"name" yaml:"name"`
	Path        string        `json:"path" yaml:"path"`
	Duration    time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
	HasDuration bool          `json:"has_duration" yaml:"has_duration"`
	Size        int64         `json:"size" yaml:"size"`
	CreatedAt   time.Time     `json:"created_at" yaml:"created_at"`
	IsFavorite  bool          `json:"is_favorite" yaml:"is_favorite"`
	HotkeyLabel string        `json:"hotkey,omitempty" yaml:"hotkey,omitempty"`
	Playing     bool          `json:"playing" yaml:"playing"`
}

// DurationLabel formats the duration as m:ss, or "--:--" when unknown.
func (r Row) DurationLabel() string {
	if !r.HasDuration {
		return "--:--"
	}
	secs := int(r.Duration.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// NewPlayID generates an identifier for a single playback instance.
func NewPlayID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate ULID: %w", err)
	}
	return id.String(), nil
}
