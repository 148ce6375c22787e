// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultWorkers       = 4
	DefaultChannels      = 64
	DefaultVolume        = 80
	DefaultSampleRate    = 44100
	DefaultTickInterval  = 100 * time.Millisecond
	DefaultSpeakerBuffer = 100 * time.Millisecond
	DefaultCacheTTL      = 10 * time.Minute
	DefaultDebounce      = 250 * time.Millisecond
)

// Config represents the padui configuration.
// Loaded from ~/.config/padui/config.toml
type Config struct {
	Library  LibraryConfig  `toml:"library"`
	Playback PlaybackConfig `toml:"playback"`
	Audio    AudioConfig    `toml:"audio"`
	Daemon   DaemonConfig   `toml:"daemon"`
}

// LibraryConfig controls where sounds live and how they are scanned.
type LibraryConfig struct {
	SoundsDir string `toml:"sounds_dir"` // Root directory, one subdirectory per tab
	DataDir   string `toml:"data_dir"`   // Favorites/hotkeys and settings documents
	Workers   int    `toml:"workers"`    // Parallel duration probes
}

// PlaybackConfig controls the channel scheduler.
type PlaybackConfig struct {
	Channels      int      `toml:"channels"`       // Simultaneous sounds
	TickInterval  Duration `toml:"tick_interval"`  // Completion check cadence
	DefaultVolume int      `toml:"default_volume"` // 0-100, used when no settings exist
}

// AudioConfig controls the output device.
type AudioConfig struct {
	Enabled    bool     `toml:"enabled"`
	SampleRate int      `toml:"sample_rate"`
	Buffer     Duration `toml:"buffer"`    // Speaker buffer length
	CacheTTL   Duration `toml:"cache_ttl"` // Decoded sound cache lifetime
}

// DaemonConfig contains paduid settings.
type DaemonConfig struct {
	Watch    bool     `toml:"watch"`    // Reload tabs when their directories change
	Debounce Duration `toml:"debounce"` // Quiet period before a reload
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Library: LibraryConfig{
			SoundsDir: "", // Resolved by SoundsDir()
			DataDir:   "",
			Workers:   DefaultWorkers,
		},
		Playback: PlaybackConfig{
			Channels:      DefaultChannels,
			TickInterval:  Duration(DefaultTickInterval),
			DefaultVolume: DefaultVolume,
		},
		Audio: AudioConfig{
			Enabled:    true,
			SampleRate: DefaultSampleRate,
			Buffer:     Duration(DefaultSpeakerBuffer),
			CacheTTL:   Duration(DefaultCacheTTL),
		},
		Daemon: DaemonConfig{
			Watch:    true,
			Debounce: Duration(DefaultDebounce),
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "padui", "config.toml")
}

// DataPath returns the path to the application data directory.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DataPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "padui")
}

// SoundsDir returns the configured sounds root or the default under DataPath.
func (c *Config) SoundsDir() string {
	if c.Library.SoundsDir != "" {
		return expandPath(c.Library.SoundsDir)
	}
	return filepath.Join(DataPath(), "sounds")
}

// DataDir returns the configured metadata directory or the default under DataPath.
func (c *Config) DataDir() string {
	if c.Library.DataDir != "" {
		return expandPath(c.Library.DataDir)
	}
	return filepath.Join(DataPath(), "data")
}

// SettingsPath returns the path to the global settings document.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.DataDir(), "settings.json")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	return cfg, nil
}

// normalize replaces out-of-range values with defaults.
func (c *Config) normalize() {
	if c.Library.Workers <= 0 {
		c.Library.Workers = DefaultWorkers
	}
	if c.Playback.Channels < 0 {
		c.Playback.Channels = DefaultChannels
	}
	if c.Playback.TickInterval <= 0 {
		c.Playback.TickInterval = Duration(DefaultTickInterval)
	}
	c.Playback.DefaultVolume = min(max(c.Playback.DefaultVolume, 0), 100)
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = DefaultSampleRate
	}
	if c.Audio.Buffer <= 0 {
		c.Audio.Buffer = Duration(DefaultSpeakerBuffer)
	}
	if c.Audio.CacheTTL <= 0 {
		c.Audio.CacheTTL = Duration(DefaultCacheTTL)
	}
	if c.Daemon.Debounce <= 0 {
		c.Daemon.Debounce = Duration(DefaultDebounce)
	}
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// EnsureDirs creates the sounds and data directories if they don't exist.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.SoundsDir(), c.DataDir()} {
		if dir == "" {
			return errors.New("unable to determine data directory")
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
