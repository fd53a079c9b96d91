package main

import (
	"fmt"

	"stacsearch/internal/downloader"
	"stacsearch/pkg/checkpoint"
	"stacsearch/pkg/config"
	"stacsearch/pkg/logger"
	"stacsearch/pkg/ratelimit"
	"stacsearch/pkg/stac"
	"stacsearch/pkg/stacapi"
	"stacsearch/pkg/storage"
	"stacsearch/pkg/ui"
)

// runDownload fetches the configured assets of every item in the collection
// through a worker pool, with checkpoint-based resume support.
func runDownload(cfg *config.Config, token string, ic *stac.ItemCollection, session string) error {
	log := logger.GetLogger()

	store, err := storage.NewManager(cfg.Output.BaseDirectory, cfg.Output.CreateCollectionFolders, cfg.Output.OverwriteExisting)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	cpManager, err := checkpoint.NewManager(session)
	if err != nil {
		return fmt.Errorf("failed to initialize checkpoint manager: %w", err)
	}

	if forceRestart && cpManager.Exists() {
		if err := cpManager.BackupCheckpoint(); err != nil {
			log.WithError(err).Warn("Failed to back up checkpoint")
		}
		if err := cpManager.Delete(); err != nil {
			return fmt.Errorf("failed to clear checkpoint: %w", err)
		}
		ui.PrintWarning("Existing checkpoint cleared")
	}

	var cp *checkpoint.Checkpoint
	if resumeFlag {
		cp, err = cpManager.Load()
		if err != nil {
			return fmt.Errorf("failed to load checkpoint: %w", err)
		}
		if cp != nil {
			ui.PrintInfo("Resuming session", fmt.Sprintf("%d assets already downloaded", cp.TotalDownloaded))
		}
	}
	if cp == nil {
		cp, err = cpManager.Create(session, ic.Len())
		if err != nil {
			return fmt.Errorf("failed to create checkpoint: %w", err)
		}
	}

	keys := assetKeys
	if len(keys) == 0 {
		keys = cfg.Download.AssetKeys
	}

	client := stacapi.NewClientWithConfig(cfg.API.URL, cfg.Download.DownloadTimeout, &cfg.Retry, log)
	if token != "" {
		client.SetHeader(cfg.API.TokenHeader, token)
	}

	limiter := ratelimit.New(cfg.RateLimit.Strategy, cfg.RateLimit.RequestsPerMinute)
	pool := downloader.NewWorkerPool(cfg.Download.ConcurrentDownloads, client, store, limiter, log)
	pool.Start()

	// Snapshot prior progress before any worker runs; from here on the
	// result consumer is the only goroutine touching the live checkpoint
	alreadyDone := cp.DownloadedSet()

	var downloaded, skipped, failed int
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		for result := range pool.Results() {
			assetID := result.Job.ItemID + "/" + result.Job.AssetKey
			switch {
			case result.Error != nil:
				failed++
				ui.PrintError("Failed", assetID)
			case result.Skipped:
				skipped++
			default:
				downloaded++
				if err := cpManager.RecordDownload(cp, assetID, result.Job.RelPath); err != nil {
					log.WithError(err).Warn("Failed to record download in checkpoint")
				}
			}
		}
	}()

	queued, resumed := 0, 0
	for _, item := range ic.Features {
		for _, key := range keys {
			asset, ok := item.Asset(key)
			if !ok {
				log.DebugWithFields("Item has no such asset", map[string]interface{}{
					"item":  item.ID,
					"asset": key,
				})
				continue
			}

			if alreadyDone[item.ID+"/"+key] {
				resumed++
				continue
			}

			job := downloader.AssetJob{
				Href:     asset.Href,
				RelPath:  store.AssetPath(item.Collection, item.ID, key, stac.AssetExt(asset.Href)),
				ItemID:   item.ID,
				AssetKey: key,
			}
			if err := pool.Submit(job); err != nil {
				log.WithError(err).Error("Failed to submit download job")
				break
			}
			queued++
		}
	}

	cp.AddQueued(queued)

	pool.Stop()
	<-consumerDone

	skipped += resumed
	ui.PrintSuccess(fmt.Sprintf("Downloaded %d assets (%d skipped, %d failed)", downloaded, skipped, failed))

	if failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", failed, queued)
	}

	// Everything made it to disk, the checkpoint has served its purpose
	if err := cpManager.Delete(); err != nil {
		log.WithError(err).Warn("Failed to remove completed checkpoint")
	}

	return nil
}
