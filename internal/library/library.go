package library

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jmylchreest/padui/internal/model"
)

// Library errors.
var (
	ErrInvalidName  = errors.New("name is empty after sanitizing")
	ErrTabExists    = errors.New("tab already exists")
	ErrTabNotFound  = errors.New("tab not found")
	ErrTabNotEmpty  = errors.New("tab still contains files")
	ErrSoundExists  = errors.New("a sound with that name already exists")
	ErrSoundMissing = errors.New("sound file not found")
)

// AddStatus is the outcome of copying one file into a tab.
type AddStatus string

const (
	AddStatusAdded       AddStatus = "added"
	AddStatusReplaced    AddStatus = "replaced"
	AddStatusSkipped     AddStatus = "skipped"
	AddStatusUnsupported AddStatus = "unsupported"
	AddStatusFailed      AddStatus = "failed"
)

// AddResult reports what happened to one source file.
type AddResult struct {
	Source string    `json:"source"`
	Dest   string    `json:"dest,omitempty"`
	Status AddStatus `json:"status"`
	Err    error     `json:"-"`
}

// Library manages the sounds root: one subdirectory per tab, sound files
// directly inside each tab directory.
type Library struct {
	root   string
	logger *slog.Logger
}

// New creates a library rooted at root.
func New(root string, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{root: root, logger: logger}
}

// Root returns the sounds root directory.
func (l *Library) Root() string {
	return l.root
}

// TabDir returns the directory backing tab.
func (l *Library) TabDir(tab string) string {
	return filepath.Join(l.root, tab)
}

// Tabs returns the tab directory names sorted case-insensitively.
// A missing root yields no tabs.
func (l *Library) Tabs() ([]string, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read sounds directory: %w", err)
	}

	tabs := []string{}
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			tabs = append(tabs, e.Name())
		}
	}
	slices.SortFunc(tabs, func(a, b string) int {
		if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return tabs, nil
}

// HasTab reports whether tab has a directory.
func (l *Library) HasTab(tab string) bool {
	info, err := os.Stat(l.TabDir(tab))
	return err == nil && info.IsDir()
}

// EnsureDefaultTab creates the Default tab when no tabs exist.
// Returns true if it was created.
func (l *Library) EnsureDefaultTab() (bool, error) {
	tabs, err := l.Tabs()
	if err != nil {
		return false, err
	}
	if len(tabs) > 0 {
		return false, nil
	}
	if err := os.MkdirAll(l.TabDir(model.DefaultTab), 0755); err != nil {
		return false, fmt.Errorf("failed to create default tab: %w", err)
	}
	l.logger.Info("created default tab", "dir", l.TabDir(model.DefaultTab))
	return true, nil
}

// AddTab creates a tab. The name is sanitized first; the sanitized name is
// returned.
func (l *Library) AddTab(name string) (string, error) {
	tab := model.SafeTabName(name)
	if tab == "" {
		return "", ErrInvalidName
	}
	if l.HasTab(tab) {
		return "", fmt.Errorf("%w: %s", ErrTabExists, tab)
	}
	if err := os.MkdirAll(l.TabDir(tab), 0755); err != nil {
		return "", fmt.Errorf("failed to create tab: %w", err)
	}
	l.logger.Debug("tab added", "tab", tab)
	return tab, nil
}

// RenameTab renames a tab directory and returns the sanitized new name.
func (l *Library) RenameTab(oldName, newName string) (string, error) {
	if !l.HasTab(oldName) {
		return "", fmt.Errorf("%w: %s", ErrTabNotFound, oldName)
	}
	tab := model.SafeTabName(newName)
	if tab == "" {
		return "", ErrInvalidName
	}
	if tab == oldName {
		return tab, nil
	}
	// Case-only renames land on the same directory on some filesystems
	if l.HasTab(tab) && !strings.EqualFold(tab, oldName) {
		return "", fmt.Errorf("%w: %s", ErrTabExists, tab)
	}
	if err := os.Rename(l.TabDir(oldName), l.TabDir(tab)); err != nil {
		return "", fmt.Errorf("failed to rename tab: %w", err)
	}
	l.logger.Debug("tab renamed", "from", oldName, "to", tab)
	return tab, nil
}

// DeleteTab removes a tab directory. Without removeFiles the directory must
// be empty.
func (l *Library) DeleteTab(tab string, removeFiles bool) error {
	if !l.HasTab(tab) {
		return fmt.Errorf("%w: %s", ErrTabNotFound, tab)
	}

	dir := l.TabDir(tab)
	if removeFiles {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to delete tab: %w", err)
		}
	} else if err := os.Remove(dir); err != nil {
		entries, readErr := os.ReadDir(dir)
		if readErr == nil && len(entries) > 0 {
			return fmt.Errorf("%w: %s", ErrTabNotEmpty, tab)
		}
		return fmt.Errorf("failed to delete tab: %w", err)
	}
	l.logger.Debug("tab deleted", "tab", tab, "remove_files", removeFiles)
	return nil
}

// AddSounds copies supported files into tab. Existing names are skipped
// unless overwrite is set. One result is returned per source path.
func (l *Library) AddSounds(tab string, paths []string, overwrite bool) ([]AddResult, error) {
	if !l.HasTab(tab) {
		return nil, fmt.Errorf("%w: %s", ErrTabNotFound, tab)
	}

	results := make([]AddResult, 0, len(paths))
	for _, src := range paths {
		results = append(results, l.addOne(tab, src, overwrite))
	}
	return results, nil
}

// ImportFolder copies every supported file below dir, recursively, into tab.
func (l *Library) ImportFolder(tab, dir string, overwrite bool) ([]AddResult, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && model.IsSupported(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan import folder: %w", err)
	}
	slices.Sort(paths)
	return l.AddSounds(tab, paths, overwrite)
}

func (l *Library) addOne(tab, src string, overwrite bool) AddResult {
	res := AddResult{Source: src}
	if !model.IsSupported(src) {
		res.Status = AddStatusUnsupported
		return res
	}

	dest := filepath.Join(l.TabDir(tab), filepath.Base(src))
	res.Dest = dest

	replaced := false
	if _, err := os.Stat(dest); err == nil {
		if !overwrite {
			res.Status = AddStatusSkipped
			return res
		}
		replaced = true
	}

	if err := copyFile(src, dest); err != nil {
		l.logger.Warn("failed to add sound", "tab", tab, "source", src, "error", err)
		res.Status = AddStatusFailed
		res.Err = err
		return res
	}

	if replaced {
		res.Status = AddStatusReplaced
	} else {
		res.Status = AddStatusAdded
	}
	return res
}

// RenameSound renames a sound file, keeping its directory and extension.
// Returns the new path.
func (l *Library) RenameSound(path, newName string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", ErrSoundMissing, path)
	}
	name := model.SafeFileName(newName)
	if name == "" {
		return "", ErrInvalidName
	}

	newPath := filepath.Join(filepath.Dir(path), name+filepath.Ext(path))
	if newPath == path {
		return path, nil
	}
	if _, err := os.Stat(newPath); err == nil && !strings.EqualFold(newPath, path) {
		return "", fmt.Errorf("%w: %s", ErrSoundExists, filepath.Base(newPath))
	}
	if err := os.Rename(path, newPath); err != nil {
		return "", fmt.Errorf("failed to rename sound: %w", err)
	}
	return newPath, nil
}

// DeleteSound removes a sound file.
func (l *Library) DeleteSound(path string) error {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrSoundMissing, path)
		}
		return fmt.Errorf("failed to delete sound: %w", err)
	}
	return nil
}

// copyFile copies src to dest through a temp file in dest's directory.
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".padui-copy-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
