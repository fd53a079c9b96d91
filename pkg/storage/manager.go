package storage

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Manager handles asset storage and duplicate detection. Assets are laid out
// as {base}/{collection}/{item}/{key}{ext}, with the collection level
// optional.
type Manager struct {
	baseDir           string
	collectionFolders bool
	overwrite         bool
	stored            map[string]bool
	mu                sync.RWMutex
}

// NewManager creates a storage manager rooted at baseDir
func NewManager(baseDir string, collectionFolders, overwrite bool) (*Manager, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manager := &Manager{
		baseDir:           baseDir,
		collectionFolders: collectionFolders,
		overwrite:         overwrite,
		stored:            make(map[string]bool),
	}

	if err := manager.scanExisting(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}

	return manager, nil
}

// scanExisting walks the output tree so already-present assets are skipped
func (m *Manager) scanExisting() error {
	return filepath.WalkDir(m.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(m.baseDir, path)
		if err != nil {
			return err
		}
		m.stored[rel] = true
		return nil
	})
}

// AssetPath returns the path an asset will be stored at, relative to the base
// directory
func (m *Manager) AssetPath(collectionID, itemID, assetKey, ext string) string {
	name := assetKey + ext
	if m.collectionFolders && collectionID != "" {
		return filepath.Join(collectionID, itemID, name)
	}
	return filepath.Join(itemID, name)
}

// IsStored reports whether the asset already exists on disk
func (m *Manager) IsStored(relPath string) bool {
	m.mu.RLock()
	cached := m.stored[relPath]
	m.mu.RUnlock()

	if cached {
		return true
	}

	if _, err := os.Stat(filepath.Join(m.baseDir, relPath)); err == nil {
		m.mu.Lock()
		m.stored[relPath] = true
		m.mu.Unlock()
		return true
	}

	return false
}

// ShouldSkip reports whether a write to relPath should be skipped under the
// configured overwrite policy
func (m *Manager) ShouldSkip(relPath string) bool {
	return !m.overwrite && m.IsStored(relPath)
}

// Save writes asset data to relPath via a temp file and atomic rename
func (m *Manager) Save(r io.Reader, relPath string) error {
	filename := filepath.Join(m.baseDir, relPath)

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create asset directory: %w", err)
	}

	tempFile := filename + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to save asset data: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.stored[relPath] = true
	m.mu.Unlock()

	return nil
}

// BaseDir returns the root output directory
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// StoredCount returns the number of assets known to be on disk
func (m *Manager) StoredCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.stored)
}
