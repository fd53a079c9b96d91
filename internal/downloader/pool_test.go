package downloader

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stacsearch/pkg/logger"
	"stacsearch/pkg/ratelimit"
)

type fakeDownloader struct {
	mu       sync.Mutex
	payloads map[string][]byte
	failures map[string]error
	calls    []string
}

func (f *fakeDownloader) DownloadAsset(href string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, href)

	if err, ok := f.failures[href]; ok {
		return nil, err
	}
	if data, ok := f.payloads[href]; ok {
		return data, nil
	}
	return []byte("default"), nil
}

type fakeStorage struct {
	mu       sync.Mutex
	existing map[string]bool
	saved    map[string][]byte
	saveErr  error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		existing: make(map[string]bool),
		saved:    make(map[string][]byte),
	}
}

func (f *fakeStorage) ShouldSkip(relPath string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.existing[relPath]
}

func (f *fakeStorage) Save(r io.Reader, relPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.saved[relPath] = data
	return nil
}

func runPool(t *testing.T, client AssetDownloader, storage AssetStorage, jobs []AssetJob) []AssetResult {
	t.Helper()

	pool := NewWorkerPool(2, client, storage, ratelimit.NewTokenBucket(10000, 0), logger.NewTestLogger())
	pool.Start()

	var results []AssetResult
	done := make(chan struct{})
	go func() {
		defer close(done)
		for result := range pool.Results() {
			results = append(results, result)
		}
	}()

	for _, job := range jobs {
		require.NoError(t, pool.Submit(job))
	}

	pool.Stop()
	<-done

	return results
}

func TestPoolDownloadsAndSaves(t *testing.T) {
	client := &fakeDownloader{payloads: map[string][]byte{
		"https://example.com/a.jpg": []byte("asset a"),
		"https://example.com/b.jpg": []byte("asset b"),
	}}
	storage := newFakeStorage()

	jobs := []AssetJob{
		{Href: "https://example.com/a.jpg", RelPath: "item-1/thumbnail.jpg", ItemID: "item-1", AssetKey: "thumbnail"},
		{Href: "https://example.com/b.jpg", RelPath: "item-2/thumbnail.jpg", ItemID: "item-2", AssetKey: "thumbnail"},
	}

	results := runPool(t, client, storage, jobs)

	require.Len(t, results, 2)
	for _, result := range results {
		assert.True(t, result.Success)
		assert.False(t, result.Skipped)
		assert.NoError(t, result.Error)
		assert.Greater(t, result.Size, 0)
	}

	assert.Equal(t, []byte("asset a"), storage.saved["item-1/thumbnail.jpg"])
	assert.Equal(t, []byte("asset b"), storage.saved["item-2/thumbnail.jpg"])
}

func TestPoolSkipsExistingAssets(t *testing.T) {
	client := &fakeDownloader{}
	storage := newFakeStorage()
	storage.existing["item-1/thumbnail.jpg"] = true

	jobs := []AssetJob{
		{Href: "https://example.com/a.jpg", RelPath: "item-1/thumbnail.jpg", ItemID: "item-1", AssetKey: "thumbnail"},
	}

	results := runPool(t, client, storage, jobs)

	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.True(t, results[0].Skipped)

	// The download client is never touched for a skipped asset
	assert.Empty(t, client.calls)
}

func TestPoolReportsDownloadFailure(t *testing.T) {
	client := &fakeDownloader{failures: map[string]error{
		"https://example.com/broken.jpg": errors.New("connection reset"),
	}}
	storage := newFakeStorage()

	jobs := []AssetJob{
		{Href: "https://example.com/broken.jpg", RelPath: "item-1/thumbnail.jpg", ItemID: "item-1", AssetKey: "thumbnail"},
		{Href: "https://example.com/ok.jpg", RelPath: "item-2/thumbnail.jpg", ItemID: "item-2", AssetKey: "thumbnail"},
	}

	results := runPool(t, client, storage, jobs)

	require.Len(t, results, 2)

	var failed, succeeded int
	for _, result := range results {
		if result.Success {
			succeeded++
		} else {
			failed++
			assert.ErrorContains(t, result.Error, "download failed")
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, succeeded)
}

func TestPoolReportsSaveFailure(t *testing.T) {
	client := &fakeDownloader{}
	storage := newFakeStorage()
	storage.saveErr = errors.New("disk full")

	jobs := []AssetJob{
		{Href: "https://example.com/a.jpg", RelPath: "item-1/thumbnail.jpg", ItemID: "item-1", AssetKey: "thumbnail"},
	}

	results := runPool(t, client, storage, jobs)

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.ErrorContains(t, results[0].Error, "save failed")
}

func TestPoolDrainsAllJobsOnStop(t *testing.T) {
	client := &fakeDownloader{}
	storage := newFakeStorage()

	var jobs []AssetJob
	for i := 0; i < 25; i++ {
		jobs = append(jobs, AssetJob{
			Href:     fmt.Sprintf("https://example.com/%d.jpg", i),
			RelPath:  fmt.Sprintf("item-%d/thumbnail.jpg", i),
			ItemID:   fmt.Sprintf("item-%d", i),
			AssetKey: "thumbnail",
		})
	}

	results := runPool(t, client, storage, jobs)

	assert.Len(t, results, 25)
	assert.Len(t, storage.saved, 25)
}
