package service

import (
	"context"
	"errors"
	"sync"

	"github.com/timmy/surrogates/internal/domain"
	"github.com/timmy/surrogates/internal/logger"
	"github.com/timmy/surrogates/internal/repository"
)

// ProgressSink receives intermediate progress of one job. Implementations
// must be safe for concurrent use.
type ProgressSink interface {
	Report(ctx context.Context, event domain.ProgressEvent)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(ctx context.Context, event domain.ProgressEvent)

func (f ProgressFunc) Report(ctx context.Context, event domain.ProgressEvent) {
	f(ctx, event)
}

// Publisher fans events out to job subscribers.
type Publisher interface {
	Publish(ctx context.Context, jobID string, event domain.ProgressEvent)
}

var discardSink = ProgressFunc(func(context.Context, domain.ProgressEvent) {})

func sinkOrDiscard(s ProgressSink) ProgressSink {
	if s == nil {
		return discardSink
	}
	return s
}

// jobSink records events in the registry and publishes them.
// Progress is clamped so it never decreases, and intermediate events never
// reach 100.
type jobSink struct {
	mu        sync.Mutex
	jobID     string
	registry  repository.JobRegistry
	publisher Publisher
	last      int
	done      bool
}

func newJobSink(jobID string, registry repository.JobRegistry, publisher Publisher) *jobSink {
	return &jobSink{jobID: jobID, registry: registry, publisher: publisher}
}

func (s *jobSink) Report(ctx context.Context, event domain.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return
	}
	if event.Progress < s.last {
		event.Progress = s.last
	}
	if event.Progress > 99 {
		event.Progress = 99
	}
	s.last = event.Progress
	event.JobID = s.jobID

	err := s.registry.Update(s.jobID, func(job *domain.Job) {
		job.Status = event.Status
		job.Progress = event.Progress
		job.Message = event.Message
	})
	if err != nil {
		if !errors.Is(err, domain.ErrJobTerminal) {
			logger.CtxWarn(ctx, "Failed to record progress: %v", err)
		}
		return
	}
	s.publisher.Publish(ctx, s.jobID, event)
}

// finish writes the terminal state and publishes it. Later reports are ignored.
func (s *jobSink) finish(ctx context.Context, status domain.JobStatus, message, userErr string, result interface{}) domain.ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.done = true
	progress := s.last
	if status == domain.JobStatusCompleted {
		progress = 100
	}

	event := domain.ProgressEvent{
		JobID:    s.jobID,
		Status:   status,
		Progress: progress,
		Message:  message,
		Result:   result,
		Error:    userErr,
	}

	err := s.registry.Update(s.jobID, func(job *domain.Job) {
		job.Status = status
		job.Progress = progress
		job.Message = message
		job.Result = result
		job.Error = userErr
	})
	if err != nil {
		logger.CtxWarn(ctx, "Failed to record terminal state: %v", err)
	}
	s.publisher.Publish(ctx, s.jobID, event)
	return event
}

// LastProgress returns the highest progress reported so far.
func (s *jobSink) LastProgress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
