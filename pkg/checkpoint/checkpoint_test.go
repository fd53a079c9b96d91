package checkpoint

import (
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	m, err := NewManager("test-session")
	require.NoError(t, err)
	return m
}

func TestCreateAndLoad(t *testing.T) {
	m := newTestManager(t)

	created, err := m.Create("test-session", 42)
	require.NoError(t, err)
	assert.Equal(t, -1, created.LastItemIndex)
	assert.Equal(t, 42, created.ItemCount)
	assert.Equal(t, 1, created.Version)

	loaded, err := m.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "test-session", loaded.Session)
	assert.Equal(t, 42, loaded.ItemCount)
	assert.Equal(t, -1, loaded.LastItemIndex)
	assert.NotNil(t, loaded.DownloadedAssets)
}

func TestLoadMissingReturnsNil(t *testing.T) {
	m := newTestManager(t)

	cp, err := m.Load()
	require.NoError(t, err)
	assert.Nil(t, cp)
	assert.False(t, m.Exists())
}

func TestRecordDownload(t *testing.T) {
	m := newTestManager(t)

	cp, err := m.Create("test-session", 2)
	require.NoError(t, err)

	require.NoError(t, m.RecordDownload(cp, "item-1/thumbnail", "thumbnail.jpg"))
	require.NoError(t, m.RecordDownload(cp, "item-2/thumbnail", "thumbnail.jpg"))

	assert.True(t, cp.IsAssetDownloaded("item-1/thumbnail"))
	assert.False(t, cp.IsAssetDownloaded("item-3/thumbnail"))
	assert.Equal(t, 2, cp.TotalDownloaded)

	// Progress survives a reload
	loaded, err := m.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, loaded.IsAssetDownloaded("item-2/thumbnail"))
	assert.Equal(t, 2, loaded.TotalDownloaded)
}

func TestUpdateProgress(t *testing.T) {
	m := newTestManager(t)

	cp, err := m.Create("test-session", 10)
	require.NoError(t, err)

	before := cp.UpdatedAt
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, m.UpdateProgress(cp, 4))

	loaded, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.LastItemIndex)
	assert.True(t, loaded.UpdatedAt.After(before))
}

func TestDelete(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Create("test-session", 1)
	require.NoError(t, err)
	assert.True(t, m.Exists())

	require.NoError(t, m.Delete())
	assert.False(t, m.Exists())

	// Deleting again is not an error
	require.NoError(t, m.Delete())
}

func TestBackupCheckpoint(t *testing.T) {
	m := newTestManager(t)

	// No checkpoint yet: backup is a no-op
	require.NoError(t, m.BackupCheckpoint())

	_, err := m.Create("test-session", 3)
	require.NoError(t, err)

	require.NoError(t, m.BackupCheckpoint())

	_, err = os.Stat(m.checkpointPath + ".backup")
	require.NoError(t, err)
}

func TestGetCheckpointInfo(t *testing.T) {
	m := newTestManager(t)

	info, err := m.GetCheckpointInfo()
	require.NoError(t, err)
	assert.Nil(t, info)

	cp, err := m.Create("test-session", 5)
	require.NoError(t, err)
	require.NoError(t, m.RecordDownload(cp, "item-1/thumbnail", "thumbnail.jpg"))

	info, err = m.GetCheckpointInfo()
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "test-session", info["session"])
	assert.Equal(t, 1, info["total_downloaded"])
}

func TestConcurrentRecordAndInspect(t *testing.T) {
	m := newTestManager(t)

	cp, err := m.Create("test-session", 100)
	require.NoError(t, err)

	// Mirrors the download flow: workers record progress while the
	// submission side keeps checking what is already done
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			assetID := fmt.Sprintf("item-%d/thumbnail", i)
			assert.NoError(t, m.RecordDownload(cp, assetID, "thumbnail.jpg"))
		}
	}()

	for i := 0; i < 100; i++ {
		cp.IsAssetDownloaded(fmt.Sprintf("item-%d/thumbnail", i))
		cp.DownloadedSet()
		cp.AddQueued(1)
	}
	wg.Wait()

	assert.Equal(t, 100, cp.TotalDownloaded)
	assert.Equal(t, 100, cp.TotalQueued)
	assert.Len(t, cp.DownloadedSet(), 100)
}

func TestDownloadedSetIsACopy(t *testing.T) {
	m := newTestManager(t)

	cp, err := m.Create("test-session", 2)
	require.NoError(t, err)
	require.NoError(t, m.RecordDownload(cp, "item-1/thumbnail", "thumbnail.jpg"))

	set := cp.DownloadedSet()
	set["item-2/thumbnail"] = true

	assert.False(t, cp.IsAssetDownloaded("item-2/thumbnail"))
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	m := newTestManager(t)

	cp, err := m.Create("test-session", 1)
	require.NoError(t, err)
	require.NoError(t, m.Save(cp))

	_, err = os.Stat(m.checkpointPath + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
