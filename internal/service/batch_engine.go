package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/timmy/surrogates/internal/domain"
	"github.com/timmy/surrogates/internal/logger"
	"github.com/timmy/surrogates/internal/prompts"
	"github.com/timmy/surrogates/internal/vlm"
)

// BatchConfig controls how images are grouped and retried.
type BatchConfig struct {
	BatchSize         int
	MaxAttempts       int
	BackoffUnit       time.Duration // attempt n waits n*BackoffUnit before the next one
	BatchTimeout      time.Duration
	Pacing            time.Duration // delay between batches
	MaxGuidelineChars int
}

// BatchEngine rates encoded images in sequential batches.
type BatchEngine struct {
	analyzer vlm.Analyzer
	cfg      BatchConfig
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewBatchEngine creates a new BatchEngine.
// Parameters:
//   - analyzer: vision model adapter.
//   - cfg: batching and retry settings; zero values fall back to defaults.
//
// Returns:
//   - *BatchEngine: initialized engine.
func NewBatchEngine(analyzer vlm.Analyzer, cfg BatchConfig) *BatchEngine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 2
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 60 * time.Second
	}
	return &BatchEngine{
		analyzer: analyzer,
		cfg:      cfg,
		sleep:    sleepContext,
	}
}

// Span is a half-open index range [Start, End) of one batch.
type Span struct {
	Start int
	End   int
}

// SplitBatches partitions n items into ceil(n/size) consecutive spans of at
// most size items.
func SplitBatches(n, size int) []Span {
	if n <= 0 {
		return nil
	}
	if size <= 0 {
		size = n
	}
	spans := make([]Span, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		spans = append(spans, Span{Start: start, End: end})
	}
	return spans
}

// Analyze rates images against guidelines.
//
// Batches run strictly in order. A batch that fails after every attempt is
// logged and skipped; the encoded data of each batch is released once it has
// been sent.
// Parameters:
//   - ctx: job context; cancellation aborts the run.
//   - images: encoded images, in display order.
//   - guidelines: guideline text placed in every prompt.
//   - info: filename and path of every image, used to resolve ratings.
//   - jobID: owning job.
//   - sink: progress receiver; nil discards progress.
//
// Returns:
//   - *domain.AnalysisResult: ratings with usage and batch counters.
//   - error: ErrNoImagesToAnalyze, ErrAllBatchesFailed (result still set) or a
//     context error.
func (e *BatchEngine) Analyze(ctx context.Context, images []domain.EncodedImage, guidelines string, info []domain.ImageInfo, jobID string, sink ProgressSink) (*domain.AnalysisResult, error) {
	sink = sinkOrDiscard(sink)
	if len(images) == 0 {
		return nil, domain.ErrNoImagesToAnalyze
	}

	spans := SplitBatches(len(images), e.cfg.BatchSize)
	count := len(spans)
	result := &domain.AnalysisResult{
		Ratings:      []domain.Rating{},
		TotalBatches: count,
		JobID:        jobID,
	}
	start := time.Now()
	logger.CtxInfo(ctx, "Analyzing %d images in %d batches", len(images), count)

	responses := make([]string, 0, count)
	for i, span := range spans {
		batchCtx := logger.WithField(ctx, logger.FieldBatch, i+1)
		sink.Report(batchCtx, domain.ProgressEvent{
			Status:       domain.JobStatusAnalyzing,
			Progress:     30 + i*50/count,
			Message:      fmt.Sprintf("Analyzing batch %d of %d...", i+1, count),
			CurrentBatch: i + 1,
			TotalBatches: count,
		})

		batch := images[span.Start:span.End]
		resp, err := e.runBatch(batchCtx, batch, guidelines, i, count)
		for j := range batch {
			batch[j].Data = ""
		}

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			result.FailedBatches++
			logger.CtxError(batchCtx, "Batch %d/%d skipped: %v", i+1, count, err)
		} else {
			result.SuccessfulBatches++
			result.Usage = result.Usage.Add(resp.Usage)
			responses = append(responses, resp.Text)
		}

		sink.Report(batchCtx, domain.ProgressEvent{
			Status:       domain.JobStatusAnalyzing,
			Progress:     30 + (i+1)*50/count,
			Message:      fmt.Sprintf("Completed batch %d of %d", i+1, count),
			CurrentBatch: i + 1,
			TotalBatches: count,
		})

		if i < count-1 && e.cfg.Pacing > 0 {
			if err := e.sleep(ctx, e.cfg.Pacing); err != nil {
				return result, err
			}
		}
	}

	logger.With(logger.Fields{"failed_batches": result.FailedBatches}).
		WithCount(result.SuccessfulBatches).
		WithTokens(result.Usage.TotalTokens).
		WithDuration(start).
		Info(ctx, "Batch analysis finished")

	if result.SuccessfulBatches == 0 {
		result.Message = fmt.Sprintf("All %d batches failed", count)
		return result, fmt.Errorf("%w: %d of %d", domain.ErrAllBatchesFailed, count, count)
	}

	sink.Report(ctx, domain.ProgressEvent{
		Status:   domain.JobStatusAnalyzing,
		Progress: 80,
		Message:  "Processing AI response...",
	})

	result.AIResponse = strings.Join(responses, "\n\n")
	result.Ratings, result.Unrated = ParseRatings(result.AIResponse, info)
	result.Success = true
	result.Message = fmt.Sprintf("Analyzed %d images", len(images))
	if result.FailedBatches > 0 {
		result.Message = fmt.Sprintf("Analyzed %d images, %d of %d batches failed", len(images), result.FailedBatches, count)
	}
	result.AnalyzedAt = time.Now()
	return result, nil
}

// runBatch sends one batch, retrying failed attempts with linear backoff.
func (e *BatchEngine) runBatch(ctx context.Context, batch []domain.EncodedImage, guidelines string, index, count int) (*vlm.BatchResponse, error) {
	filenames := make([]string, len(batch))
	data := make([]string, len(batch))
	for i, img := range batch {
		filenames[i] = img.Filename
		data[i] = img.Data
	}
	prompt := prompts.BatchRatingPrompt(guidelines, filenames, index, count, e.cfg.MaxGuidelineChars)

	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.BatchTimeout)
		resp, err := e.analyzer.AnalyzeBatch(attemptCtx, data, prompt)
		cancel()
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, domain.ErrMalformedAIResponse) {
			break
		}
		logger.With(logger.Fields{logger.FieldAttempt: attempt}).
			Warn(ctx, "Batch %d/%d attempt failed: %v", index+1, count, err)

		if attempt < e.cfg.MaxAttempts && e.cfg.BackoffUnit > 0 {
			if err := e.sleep(ctx, time.Duration(attempt)*e.cfg.BackoffUnit); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrBatchExhausted, lastErr)
}
