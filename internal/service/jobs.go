package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/timmy/surrogates/internal/domain"
	"github.com/timmy/surrogates/internal/logger"
	"github.com/timmy/surrogates/internal/repository"
)

// DefaultProvider is used when a download request names no provider.
const DefaultProvider = "unsplash"

// ResultSaver persists finished analysis results.
type ResultSaver interface {
	Save(result *domain.AnalysisResult) (string, error)
}

// AnalysisHistory records a summary of every finished analysis.
type AnalysisHistory interface {
	Upsert(ctx context.Context, record *domain.AnalysisRecord) error
}

// DownloadRequest describes an image download job.
type DownloadRequest struct {
	Query    string
	Provider string
	Limit    int
}

// JobServiceConfig holds job-level limits.
type JobServiceConfig struct {
	JobTimeout   time.Duration
	DefaultLimit int
}

// JobService starts jobs in the background and owns their lifecycle.
type JobService struct {
	registry     repository.JobRegistry
	publisher    Publisher
	downloader   *Downloader
	preprocessor *Preprocessor
	engine       *BatchEngine
	results      ResultSaver
	history      AnalysisHistory
	cfg          JobServiceConfig

	baseCtx context.Context
	wg      sync.WaitGroup
	newID   func() string
}

// NewJobService creates a new JobService.
// Parameters:
//   - baseCtx: parent of every job context; cancelling it fails running jobs.
//   - registry: job snapshot store.
//   - publisher: progress fan-out.
//   - downloader, preprocessor, engine: pipeline stages.
//   - results: analysis result persistence.
//   - cfg: job limits.
//
// Returns:
//   - *JobService: initialized service.
func NewJobService(
	baseCtx context.Context,
	registry repository.JobRegistry,
	publisher Publisher,
	downloader *Downloader,
	preprocessor *Preprocessor,
	engine *BatchEngine,
	results ResultSaver,
	cfg JobServiceConfig,
) *JobService {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Minute
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	return &JobService{
		registry:     registry,
		publisher:    publisher,
		downloader:   downloader,
		preprocessor: preprocessor,
		engine:       engine,
		results:      results,
		cfg:          cfg,
		baseCtx:      baseCtx,
		newID:        uuid.NewString,
	}
}

// WithHistory enables analysis history records.
func (s *JobService) WithHistory(history AnalysisHistory) *JobService {
	s.history = history
	return s
}

// StartDownload registers a download job and runs it in the background.
// Returns domain.ErrInvalidRequest for an empty query.
func (s *JobService) StartDownload(ctx context.Context, req DownloadRequest) (string, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return "", fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if provider == "" {
		provider = DefaultProvider
	}
	if _, err := s.downloader.sources.Get(provider); err != nil {
		return "", err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}

	jobID := s.newID()
	s.registry.Set(domain.NewJob(jobID, domain.JobKindDownload))
	logger.CtxInfo(logger.SetJobID(ctx, jobID), "Download job started: query=%q provider=%s limit=%d", query, provider, limit)

	s.launch(ctx, jobID, domain.JobKindDownload, "Download started", func(ctx context.Context, sink *jobSink) (interface{}, string, error) {
		result, err := s.downloader.Run(ctx, query, provider, limit, jobID, sink)
		if result == nil {
			return nil, "", err
		}
		return result, result.Message, err
	})
	return jobID, nil
}

// StartAnalysis rates the images of jobID against the guideline at
// guidelinePath. A finished job id starts a new lifecycle; a running one
// returns domain.ErrJobRunning.
func (s *JobService) StartAnalysis(ctx context.Context, jobID, guidelinePath string) error {
	if strings.TrimSpace(jobID) == "" || strings.TrimSpace(guidelinePath) == "" {
		return fmt.Errorf("%w: job_id and guideline_path are required", domain.ErrInvalidRequest)
	}

	next := domain.NewJob(jobID, domain.JobKindAnalysis)
	current, exists := s.registry.Get(jobID)
	switch {
	case !exists:
		s.registry.Set(next)
	case !current.Status.IsTerminal():
		return domain.ErrJobRunning
	case !s.registry.CompareAndSwap(jobID, current.Status, next):
		return domain.ErrJobRunning
	}
	logger.CtxInfo(logger.SetJobID(ctx, jobID), "Analysis job started: guideline=%s", guidelinePath)

	s.launch(ctx, jobID, domain.JobKindAnalysis, "Analysis started", func(ctx context.Context, sink *jobSink) (interface{}, string, error) {
		result, err := s.runAnalysis(ctx, jobID, guidelinePath, sink)
		return result, result.Message, err
	})
	return nil
}

// Status returns the current snapshot of jobID.
func (s *JobService) Status(jobID string) (domain.Job, error) {
	job, ok := s.registry.Get(jobID)
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	return job, nil
}

// Wait blocks until every started job has finished.
func (s *JobService) Wait() {
	s.wg.Wait()
}

type jobFunc func(ctx context.Context, sink *jobSink) (result interface{}, message string, err error)

// launch runs fn in its own goroutine and records its terminal state.
// Panics end the job in error.
func (s *JobService) launch(reqCtx context.Context, jobID string, kind domain.JobKind, startMessage string, fn jobFunc) {
	ctx := logger.SetJobID(s.baseCtx, jobID)
	ctx = logger.WithField(ctx, logger.FieldJobKind, string(kind))
	if requestID := logger.GetRequestID(reqCtx); requestID != "" {
		ctx = logger.SetRequestID(ctx, requestID)
	}

	s.publisher.Publish(ctx, jobID, domain.ProgressEvent{
		JobID:   jobID,
		Status:  domain.JobStatusStarted,
		Message: startMessage,
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
		defer cancel()
		sink := newJobSink(jobID, s.registry, s.publisher)
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				logger.CtxError(ctx, "Job panicked: %v\n%s", r, debug.Stack())
				sink.finish(ctx, domain.JobStatusError, "Job failed", domain.UserMessage(fmt.Errorf("panic: %v", r)), nil)
			}
		}()

		result, message, err := fn(ctx, sink)
		if err != nil {
			userMsg := domain.UserMessage(err)
			if message == "" {
				message = userMsg
			}
			logger.With(nil).WithDuration(start).WithStatus(string(domain.JobStatusError)).
				Error(ctx, "Job failed: %v", err)
			sink.finish(ctx, domain.JobStatusError, message, userMsg, result)
			return
		}

		logger.With(nil).WithDuration(start).WithStatus(string(domain.JobStatusCompleted)).
			Info(ctx, "Job completed: %s", message)
		sink.finish(ctx, domain.JobStatusCompleted, message, "", result)
	}()
}

// runAnalysis always returns a non-nil result.
func (s *JobService) runAnalysis(ctx context.Context, jobID, guidelinePath string, sink *jobSink) (*domain.AnalysisResult, error) {
	sink.Report(ctx, domain.ProgressEvent{
		Status:   domain.JobStatusAnalyzing,
		Progress: 5,
		Message:  "Starting analysis...",
	})

	guidelines, images, info, err := s.preprocessor.Prepare(ctx, guidelinePath, jobID, sink)
	if err != nil {
		result := failedAnalysis(jobID, err)
		s.recordHistory(ctx, guidelinePath, 0, result)
		return result, err
	}
	imageCount := len(images)

	result, err := s.engine.Analyze(ctx, images, guidelines, info, jobID, sink)
	if err != nil {
		if result == nil {
			result = failedAnalysis(jobID, err)
		} else if result.Message == "" {
			result.Message = domain.UserMessage(err)
		}
		s.recordHistory(ctx, guidelinePath, imageCount, result)
		return result, err
	}

	sink.Report(ctx, domain.ProgressEvent{
		Status:   domain.JobStatusAnalyzing,
		Progress: 90,
		Message:  "Saving results...",
	})
	if s.results != nil {
		if path, err := s.results.Save(result); err != nil {
			logger.CtxError(ctx, "Failed to save analysis result: %v", err)
		} else {
			logger.CtxInfo(ctx, "Analysis result saved to %s", path)
		}
	}
	s.recordHistory(ctx, guidelinePath, imageCount, result)
	return result, nil
}

func (s *JobService) recordHistory(ctx context.Context, guidelinePath string, imageCount int, result *domain.AnalysisResult) {
	if s.history == nil {
		return
	}
	record := &domain.AnalysisRecord{
		JobID:             result.JobID,
		GuidelinePath:     guidelinePath,
		Success:           result.Success,
		ImageCount:        imageCount,
		RatedCount:        len(result.Ratings),
		AverageScore:      result.AverageScore(),
		TotalTokens:       result.Usage.TotalTokens,
		TotalBatches:      result.TotalBatches,
		SuccessfulBatches: result.SuccessfulBatches,
		FailedBatches:     result.FailedBatches,
	}
	// The job context may already be past its deadline.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.history.Upsert(saveCtx, record); err != nil {
		logger.CtxWarn(ctx, "Failed to record analysis history: %v", err)
	}
}

func failedAnalysis(jobID string, err error) *domain.AnalysisResult {
	return &domain.AnalysisResult{
		Success:    false,
		Message:    domain.UserMessage(err),
		Ratings:    []domain.Rating{},
		JobID:      jobID,
		AnalyzedAt: time.Now(),
	}
}
