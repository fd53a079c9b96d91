package checkpoint

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"stacsearch/pkg/logger"
)

// Checkpoint represents the state of an asset download session. It is safe
// for concurrent use: download workers record progress while the submission
// side inspects it.
type Checkpoint struct {
	Session          string            `json:"session"`
	ItemCount        int               `json:"item_count"`
	LastItemIndex    int               `json:"last_item_index"`
	DownloadedAssets map[string]string `json:"downloaded_assets"` // item/key -> filename
	TotalQueued      int               `json:"total_queued"`
	TotalDownloaded  int               `json:"total_downloaded"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	Version          int               `json:"version"`

	mu sync.RWMutex
}

// Manager handles checkpoint operations for one named session
type Manager struct {
	checkpointPath string
	logger         logger.Logger
}

// NewManager creates a checkpoint manager for the given session name
func NewManager(session string) (*Manager, error) {
	dataDir, err := getDataDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}

	checkpointsDir := filepath.Join(dataDir, "checkpoints")
	if err := os.MkdirAll(checkpointsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	checkpointPath := filepath.Join(checkpointsDir, fmt.Sprintf("%s.checkpoint.json", session))

	return &Manager{
		checkpointPath: checkpointPath,
		logger:         logger.GetLogger(),
	}, nil
}

// Create creates a new checkpoint for a session over itemCount items
func (m *Manager) Create(session string, itemCount int) (*Checkpoint, error) {
	checkpoint := &Checkpoint{
		Session:          session,
		ItemCount:        itemCount,
		LastItemIndex:    -1,
		DownloadedAssets: make(map[string]string),
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
		Version:          1,
	}

	if err := m.Save(checkpoint); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	m.logger.InfoWithFields("Checkpoint created", map[string]interface{}{
		"session": session,
		"path":    m.checkpointPath,
	})

	return checkpoint, nil
}

// Load loads an existing checkpoint, returning nil when none exists
func (m *Manager) Load() (*Checkpoint, error) {
	file, err := os.Open(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var checkpoint Checkpoint
	if err := json.NewDecoder(file).Decode(&checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if checkpoint.DownloadedAssets == nil {
		checkpoint.DownloadedAssets = make(map[string]string)
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"session":          checkpoint.Session,
		"total_downloaded": checkpoint.TotalDownloaded,
		"last_item_index":  checkpoint.LastItemIndex,
		"updated_at":       checkpoint.UpdatedAt,
	})

	return &checkpoint, nil
}

// Save saves the checkpoint to disk atomically
func (m *Manager) Save(checkpoint *Checkpoint) error {
	// Marshal under the lock so concurrent RecordDownload calls cannot
	// mutate the map mid-encode
	checkpoint.mu.Lock()
	checkpoint.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(checkpoint, "", "  ")
	session := checkpoint.Session
	totalDownloaded := checkpoint.TotalDownloaded
	lastItemIndex := checkpoint.LastItemIndex
	checkpoint.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	if _, err := file.Write(append(data, '\n')); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"session":          session,
		"total_downloaded": totalDownloaded,
		"last_item_index":  lastItemIndex,
	})

	return nil
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.logger.Info("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// UpdateProgress records the index of the last fully processed item
func (m *Manager) UpdateProgress(checkpoint *Checkpoint, itemIndex int) error {
	checkpoint.mu.Lock()
	checkpoint.LastItemIndex = itemIndex
	checkpoint.mu.Unlock()
	return m.Save(checkpoint)
}

// RecordDownload records a successfully downloaded asset
func (m *Manager) RecordDownload(checkpoint *Checkpoint, assetID, filename string) error {
	checkpoint.mu.Lock()
	checkpoint.DownloadedAssets[assetID] = filename
	checkpoint.TotalDownloaded++
	checkpoint.mu.Unlock()
	return m.Save(checkpoint)
}

// IsAssetDownloaded checks if an asset has already been downloaded
func (checkpoint *Checkpoint) IsAssetDownloaded(assetID string) bool {
	checkpoint.mu.RLock()
	defer checkpoint.mu.RUnlock()

	_, exists := checkpoint.DownloadedAssets[assetID]
	return exists
}

// DownloadedSet returns a snapshot of the downloaded asset IDs. Callers can
// iterate it freely while workers keep recording new downloads.
func (checkpoint *Checkpoint) DownloadedSet() map[string]bool {
	checkpoint.mu.RLock()
	defer checkpoint.mu.RUnlock()

	set := make(map[string]bool, len(checkpoint.DownloadedAssets))
	for assetID := range checkpoint.DownloadedAssets {
		set[assetID] = true
	}
	return set
}

// AddQueued adds to the count of assets queued in this run
func (checkpoint *Checkpoint) AddQueued(n int) {
	checkpoint.mu.Lock()
	checkpoint.TotalQueued += n
	checkpoint.mu.Unlock()
}

// GetCheckpointInfo returns a summary of the checkpoint
func (m *Manager) GetCheckpointInfo() (map[string]interface{}, error) {
	checkpoint, err := m.Load()
	if err != nil {
		return nil, err
	}
	if checkpoint == nil {
		return nil, nil
	}

	return map[string]interface{}{
		"session":          checkpoint.Session,
		"total_downloaded": checkpoint.TotalDownloaded,
		"last_item_index":  checkpoint.LastItemIndex,
		"created_at":       checkpoint.CreatedAt,
		"updated_at":       checkpoint.UpdatedAt,
		"age":              time.Since(checkpoint.UpdatedAt),
	}, nil
}

// BackupCheckpoint creates a backup of the current checkpoint
func (m *Manager) BackupCheckpoint() error {
	if !m.Exists() {
		return nil
	}

	backupPath := m.checkpointPath + ".backup"

	src, err := os.Open(m.checkpointPath)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint for backup: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(backupPath)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy checkpoint to backup: %w", err)
	}

	m.logger.Debug("Checkpoint backed up")
	return nil
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "stacsearch")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "stacsearch")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "stacsearch")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "stacsearch")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}
