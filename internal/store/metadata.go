// Package store persists per-tab favorites and hotkeys and the global settings.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/jmylchreest/padui/internal/model"
)

// ErrInvalidIndex is returned for negative catalog positions.
var ErrInvalidIndex = errors.New("catalog index must not be negative")

// MetadataPath returns the backing document for a tab's favorites and hotkeys.
func MetadataPath(dataDir, tab string) string {
	return filepath.Join(dataDir, tab+"_favorites.json")
}

// metadataVersion is written to every saved document. Version 1 documents
// have no sounds map and are bound purely by position.
const metadataVersion = 2

// metadataDocument is the JSON structure of a tab's metadata file.
// Keys are decimal strings: catalog positions for favorites and sounds,
// slots for hotkeys. Sounds records the file name at each bound position so
// bindings can follow their sound when the catalog order changes.
type metadataDocument struct {
	Version   int                   `json:"version,omitempty"`
	Favorites map[string]bool       `json:"favorites"`
	Hotkeys   map[string]indexValue `json:"hotkeys"`
	Sounds    map[string]string     `json:"sounds,omitempty"`
}

// indexValue is a catalog position written as a JSON string.
// Plain numbers are accepted on read.
type indexValue int

func (v indexValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.Itoa(int(v)))
}

func (v *indexValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid index %q: %w", s, err)
		}
		*v = indexValue(n)
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid index %s", data)
	}
	*v = indexValue(n)
	return nil
}

// Metadata holds one tab's favorites and hotkey bindings.
// Bindings are addressed by catalog position and remembered by file name;
// every mutation rewrites the whole document.
type Metadata struct {
	mu     sync.RWMutex
	logger *slog.Logger

	tab  string
	path string

	favorites map[int]bool
	hotkeys   map[model.Slot]int

	// names holds the file name last seen at each bound position
	names map[int]string
	// catalog is the file name order from the last Reconcile
	catalog []string
	legacy  bool
}

// NewMetadata creates an empty metadata store for tab backed by a file in dataDir.
func NewMetadata(dataDir, tab string, logger *slog.Logger) *Metadata {
	if logger == nil {
		logger = slog.Default()
	}
	return &Metadata{
		logger:    logger,
		tab:       tab,
		path:      MetadataPath(dataDir, tab),
		favorites: make(map[int]bool),
		hotkeys:   make(map[model.Slot]int),
		names:     make(map[int]string),
	}
}

// Path returns the backing document path.
func (m *Metadata) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.path
}

// Load reads the backing document. A missing or corrupt document leaves the
// sets empty; only read errors other than "not found" are returned.
func (m *Metadata) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.favorites = make(map[int]bool)
	m.hotkeys = make(map[model.Slot]int)
	m.names = make(map[int]string)
	m.catalog = nil
	m.legacy = false

	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var doc metadataDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		m.logger.Warn("ignoring corrupt metadata document", "tab", m.tab, "path", m.path, "error", err)
		return nil
	}

	for key, on := range doc.Favorites {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 {
			m.logger.Debug("skipping invalid favorite key", "tab", m.tab, "key", key)
			continue
		}
		if on {
			m.favorites[idx] = true
		}
	}

	for key, idx := range doc.Hotkeys {
		n, err := strconv.Atoi(key)
		slot := model.Slot(n)
		if err != nil || !slot.Valid() || idx < 0 {
			m.logger.Debug("skipping invalid hotkey binding", "tab", m.tab, "slot", key)
			continue
		}
		m.hotkeys[slot] = int(idx)
	}

	for key, name := range doc.Sounds {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || name == "" {
			continue
		}
		m.names[idx] = name
	}
	m.legacy = doc.Version < metadataVersion
	m.pruneNames()

	return nil
}

// Reconcile moves bindings to follow their sounds through a new catalog
// order. names is the file name at each catalog position. A binding whose
// sound is no longer present is dropped; a binding with no recorded name
// stays at its position. The document is rewritten if anything moved or
// the document predates recorded names.
func (m *Metadata) Reconcile(names []string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.catalog = slices.Clone(names)

	position := make(map[string]int, len(names))
	for i, name := range names {
		if _, ok := position[name]; !ok {
			position[name] = i
		}
	}

	changed := false
	remap := func(idx int) (int, bool) {
		name, ok := m.names[idx]
		if !ok {
			return idx, true
		}
		to, ok := position[name]
		if !ok {
			m.logger.Info("dropping binding for missing sound", "tab", m.tab, "index", idx, "name", name)
			changed = true
			return 0, false
		}
		if to != idx {
			changed = true
		}
		return to, true
	}

	favorites := make(map[int]bool, len(m.favorites))
	for idx := range m.favorites {
		if to, ok := remap(idx); ok {
			favorites[to] = true
		}
	}
	hotkeys := make(map[model.Slot]int, len(m.hotkeys))
	for slot, idx := range m.hotkeys {
		if to, ok := remap(idx); ok {
			hotkeys[slot] = to
		}
	}

	m.favorites = favorites
	m.hotkeys = hotkeys
	m.names = make(map[int]string)
	m.pruneNames()

	if !changed && !m.legacy {
		return false, nil
	}
	if len(m.favorites) == 0 && len(m.hotkeys) == 0 && m.legacy {
		// Nothing worth upgrading
		return changed, nil
	}
	return changed, m.save()
}

// RenameSound carries bindings from a sound's old file name to its new one.
func (m *Metadata) RenameSound(oldName, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, name := range m.catalog {
		if name == oldName {
			m.catalog[i] = newName
		}
	}

	changed := false
	for idx, name := range m.names {
		if name == oldName {
			m.names[idx] = newName
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return m.save()
}

// ToggleFavorite flips the favorite mark at index and persists.
// Returns the new membership. A *PersistError means memory was updated but
// the document was not.
func (m *Metadata) ToggleFavorite(index int) (bool, error) {
	if index < 0 {
		return false, ErrInvalidIndex
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	on := !m.favorites[index]
	if on {
		m.favorites[index] = true
	} else {
		delete(m.favorites, index)
	}
	m.pruneNames()
	return on, m.save()
}

// RemoveFavorite clears the favorite mark at index, if any.
func (m *Metadata) RemoveFavorite(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.favorites[index] {
		return nil
	}
	delete(m.favorites, index)
	m.pruneNames()
	return m.save()
}

// AssignHotkey binds slot to index. The slot's previous binding is replaced
// and any other slot bound to index is released.
func (m *Metadata) AssignHotkey(index int, slot model.Slot) error {
	if index < 0 {
		return ErrInvalidIndex
	}
	if !slot.Valid() {
		return model.ErrInvalidSlot
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for s, idx := range m.hotkeys {
		if idx == index && s != slot {
			delete(m.hotkeys, s)
		}
	}
	m.hotkeys[slot] = index
	m.pruneNames()
	return m.save()
}

// ClearHotkey removes every slot bound to index.
func (m *Metadata) ClearHotkey(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed := false
	for s, idx := range m.hotkeys {
		if idx == index {
			delete(m.hotkeys, s)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	m.pruneNames()
	return m.save()
}

// IsFavorite reports whether index is marked.
func (m *Metadata) IsFavorite(index int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.favorites[index]
}

// HotkeyFor returns the slot bound to index.
// If several slots point at it, the lowest wins.
func (m *Metadata) HotkeyFor(index int) (model.Slot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	found := false
	var best model.Slot
	for s, idx := range m.hotkeys {
		if idx == index && (!found || s < best) {
			best = s
			found = true
		}
	}
	return best, found
}

// IndexForSlot returns the catalog position bound to slot.
func (m *Metadata) IndexForSlot(slot model.Slot) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.hotkeys[slot]
	return idx, ok
}

// Favorites returns the marked positions in ascending order.
func (m *Metadata) Favorites() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.favorites))
}

// Hotkeys returns a copy of the slot bindings.
func (m *Metadata) Hotkeys() map[model.Slot]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.hotkeys)
}

// Rename moves the backing document to the name of newTab.
func (m *Metadata) Rename(dataDir, newTab string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	newPath := MetadataPath(dataDir, newTab)
	if err := os.Rename(m.path, newPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to move metadata for %s: %w", m.tab, err)
	}
	m.tab = newTab
	m.path = newPath
	return nil
}

// Remove deletes the backing document and clears memory.
func (m *Metadata) Remove() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.favorites = make(map[int]bool)
	m.hotkeys = make(map[model.Slot]int)
	m.names = make(map[int]string)
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// pruneNames keeps a name for exactly the bound positions, taking it from
// the current catalog when known. Caller holds m.mu.
func (m *Metadata) pruneNames() {
	bound := make(map[int]bool, len(m.favorites)+len(m.hotkeys))
	for idx := range m.favorites {
		bound[idx] = true
	}
	for _, idx := range m.hotkeys {
		bound[idx] = true
	}

	for idx := range m.names {
		if !bound[idx] {
			delete(m.names, idx)
		}
	}
	for idx := range bound {
		if idx < len(m.catalog) {
			m.names[idx] = m.catalog[idx]
		}
	}
}

// save writes the whole document. Caller holds m.mu.
func (m *Metadata) save() error {
	doc := metadataDocument{
		Version:   metadataVersion,
		Favorites: make(map[string]bool, len(m.favorites)),
		Hotkeys:   make(map[string]indexValue, len(m.hotkeys)),
		Sounds:    make(map[string]string, len(m.names)),
	}
	for idx := range m.favorites {
		doc.Favorites[strconv.Itoa(idx)] = true
	}
	for slot, idx := range m.hotkeys {
		doc.Hotkeys[strconv.Itoa(int(slot))] = indexValue(idx)
	}
	for idx, name := range m.names {
		doc.Sounds[strconv.Itoa(idx)] = name
	}

	if err := writeJSONAtomic(m.path, doc); err != nil {
		m.logger.Warn("failed to save metadata", "tab", m.tab, "path", m.path, "error", err)
		return &PersistError{Path: m.path, Err: err}
	}
	m.legacy = false
	return nil
}
