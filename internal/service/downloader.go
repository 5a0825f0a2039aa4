package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/timmy/surrogates/internal/domain"
	"github.com/timmy/surrogates/internal/logger"
	"github.com/timmy/surrogates/internal/source"
	"github.com/timmy/surrogates/internal/storage"
)

// DownloaderConfig holds limits and pacing for image downloads.
type DownloaderConfig struct {
	Pacing      time.Duration // delay between consecutive downloads
	ItemTimeout time.Duration // deadline of a single download
	MaxImages   int
}

// Downloader fetches candidate images from a provider into job storage.
type Downloader struct {
	sources *source.Registry
	storage storage.ObjectStorage
	cfg     DownloaderConfig
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewDownloader creates a new Downloader.
// Parameters:
//   - sources: provider registry.
//   - store: destination of the downloaded images.
//   - cfg: pacing and limits.
//
// Returns:
//   - *Downloader: initialized downloader.
func NewDownloader(sources *source.Registry, store storage.ObjectStorage, cfg DownloaderConfig) *Downloader {
	if cfg.MaxImages <= 0 {
		cfg.MaxImages = 50
	}
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = 30 * time.Second
	}
	return &Downloader{
		sources: sources,
		storage: store,
		cfg:     cfg,
		sleep:   sleepContext,
	}
}

// Run searches providerName for query and stores up to limit images under jobID.
// A partial failure still succeeds; the result reports the failed count.
// Parameters:
//   - ctx: job context.
//   - query: search query.
//   - providerName: registered provider name.
//   - limit: requested image count, clamped to [1, MaxImages].
//   - jobID: storage namespace of the images.
//   - sink: progress receiver; nil discards progress.
//
// Returns:
//   - *domain.DownloadResult: outcome, also set alongside most errors.
//   - error: ErrUnknownProvider, ErrProviderUnavailable, ErrNoResultsFound,
//     ErrAllDownloadsFailed or a context error.
func (d *Downloader) Run(ctx context.Context, query, providerName string, limit int, jobID string, sink ProgressSink) (*domain.DownloadResult, error) {
	sink = sinkOrDiscard(sink)
	ctx = logger.SetProvider(ctx, providerName)
	start := time.Now()

	result := &domain.DownloadResult{
		Images:   []domain.DownloadedImage{},
		Query:    query,
		Provider: providerName,
		JobID:    jobID,
	}

	sink.Report(ctx, domain.ProgressEvent{
		Status:   domain.JobStatusDownloading,
		Progress: 5,
		Message:  fmt.Sprintf("Connecting to %s...", providerName),
	})

	src, err := d.sources.Get(providerName)
	if err != nil {
		result.Message = domain.UserMessage(err)
		return result, err
	}

	limit = source.ClampLimit(limit, d.cfg.MaxImages)
	records, err := src.FetchCandidates(ctx, query, limit)
	if err != nil {
		result.Message = domain.UserMessage(err)
		return result, fmt.Errorf("fetch candidates: %w", err)
	}
	if len(records) == 0 {
		result.Message = "No images found"
		return result, domain.ErrNoResultsFound
	}
	if len(records) > limit {
		records = records[:limit]
	}

	total := len(records)
	result.Total = total
	logger.CtxInfo(ctx, "Fetched %d candidates for query %q", total, query)

	sink.Report(ctx, domain.ProgressEvent{
		Status:      domain.JobStatusDownloading,
		Progress:    10,
		Message:     fmt.Sprintf("Found %d images, downloading...", total),
		TotalImages: total,
	})

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			result.Failed = total - len(result.Images)
			result.Downloaded = len(result.Images)
			result.Message = domain.UserMessage(err)
			return result, err
		}

		image, err := d.fetchOne(ctx, src, record, i+1, jobID)
		if err != nil {
			result.Failed++
			logger.CtxWarn(ctx, "Skipping image %d/%d: %v", i+1, total, err)
		} else {
			result.Images = append(result.Images, *image)
		}

		sink.Report(ctx, domain.ProgressEvent{
			Status:       domain.JobStatusDownloading,
			Progress:     20 + (i+1)*80/total,
			Message:      fmt.Sprintf("Downloaded %d/%d images...", len(result.Images), total),
			CurrentImage: i + 1,
			TotalImages:  total,
		})

		if i < total-1 && d.cfg.Pacing > 0 {
			if err := d.sleep(ctx, d.cfg.Pacing); err != nil {
				continue
			}
		}
	}

	result.Downloaded = len(result.Images)
	logger.With(logger.Fields{"failed": result.Failed}).
		WithCount(result.Downloaded).
		WithDuration(start).
		Info(ctx, "Download finished: %d/%d images", result.Downloaded, total)

	if result.Downloaded == 0 {
		result.Message = "Failed to download any images"
		return result, domain.ErrAllDownloadsFailed
	}

	result.Success = true
	if result.Failed == 0 {
		result.Message = fmt.Sprintf("Successfully downloaded %d images", result.Downloaded)
	} else {
		result.Message = fmt.Sprintf("Downloaded %d of %d images", result.Downloaded, total)
	}
	return result, nil
}

func (d *Downloader) fetchOne(ctx context.Context, src source.Source, record domain.ImageRecord, index int, jobID string) (*domain.DownloadedImage, error) {
	filename := ImageFilename(index, record.Description)
	key, err := storage.JoinKey(jobID, filename)
	if err != nil {
		return nil, err
	}

	itemCtx, cancel := context.WithTimeout(ctx, d.cfg.ItemTimeout)
	defer cancel()

	data, err := src.DownloadBytes(itemCtx, record)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", filename, err)
	}
	if err := d.storage.Upload(itemCtx, key, bytes.NewReader(data), int64(len(data)), "image/jpeg"); err != nil {
		return nil, fmt.Errorf("store %s: %w", filename, err)
	}

	return &domain.DownloadedImage{
		ImageRecord: record,
		Filename:    filename,
		Path:        d.storage.GetURL(key),
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
