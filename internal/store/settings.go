package store

import (
	"encoding/json"
	"os"
	"sync"
)

// Settings is the global application state persisted between runs.
// Stored at <data_dir>/settings.json
type Settings struct {
	Volume     int `json:"volume"`      // 0-100
	CurrentTab int `json:"current_tab"` // Position in the sorted tab list
}

// settingsFileMutex protects concurrent access to the settings file.
var settingsFileMutex sync.RWMutex

// DefaultSettings returns settings with the given volume and the first tab selected.
func DefaultSettings(volume int) *Settings {
	return &Settings{
		Volume:     clampVolume(volume),
		CurrentTab: 0,
	}
}

// LoadSettings loads the settings document from path.
// If the file doesn't exist or is unreadable JSON, returns defaults.
func LoadSettings(path string, defaultVolume int) (*Settings, error) {
	settingsFileMutex.RLock()
	defer settingsFileMutex.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(defaultVolume), nil
		}
		return nil, err
	}

	s := DefaultSettings(defaultVolume)
	if err := json.Unmarshal(data, s); err != nil {
		// If the file is corrupted, return default settings
		return DefaultSettings(defaultVolume), nil
	}

	s.Volume = clampVolume(s.Volume)
	if s.CurrentTab < 0 {
		s.CurrentTab = 0
	}
	return s, nil
}

// SaveSettings writes the settings document atomically.
func SaveSettings(path string, s *Settings) error {
	settingsFileMutex.Lock()
	defer settingsFileMutex.Unlock()

	s.Volume = clampVolume(s.Volume)
	if err := writeJSONAtomic(path, s); err != nil {
		return &PersistError{Path: path, Err: err}
	}
	return nil
}

func clampVolume(v int) int {
	return min(max(v, 0), 100)
}
