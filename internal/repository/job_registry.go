package repository

import (
	"context"
	"sync"
	"time"

	"github.com/timmy/surrogates/internal/domain"
	"github.com/timmy/surrogates/internal/logger"
)

// JobRegistry stores job snapshots by id.
type JobRegistry interface {
	Get(id string) (domain.Job, bool)
	Set(job domain.Job)
	// CompareAndSwap replaces the job only if its current status equals expected.
	CompareAndSwap(id string, expected domain.JobStatus, next domain.Job) bool
	// Update applies fn to a non-terminal job. Progress never decreases.
	Update(id string, fn func(job *domain.Job)) error
	Delete(id string)
	// Prune removes terminal jobs not updated within olderThan.
	Prune(olderThan time.Duration) int
}

// MemoryJobRegistry is a JobRegistry held in process memory.
type MemoryJobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]domain.Job
	now  func() time.Time
}

// NewMemoryJobRegistry creates an empty registry.
func NewMemoryJobRegistry() *MemoryJobRegistry {
	return &MemoryJobRegistry{
		jobs: make(map[string]domain.Job),
		now:  time.Now,
	}
}

// Get returns a copy of the job snapshot.
func (r *MemoryJobRegistry) Get(id string) (domain.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	return job, ok
}

// Set stores job unconditionally, starting a new lifecycle for its id.
func (r *MemoryJobRegistry) Set(job domain.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = r.now()
	}
	job.UpdatedAt = r.now()
	r.jobs[job.ID] = job
}

// CompareAndSwap stores next when the current status of id equals expected.
func (r *MemoryJobRegistry) CompareAndSwap(id string, expected domain.JobStatus, next domain.Job) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.jobs[id]
	if !ok || current.Status != expected {
		return false
	}
	next.ID = id
	next.UpdatedAt = r.now()
	r.jobs[id] = next
	return true
}

// Update mutates a running job in place.
// Returns domain.ErrJobNotFound for unknown ids and domain.ErrJobTerminal
// when the job already completed or failed.
func (r *MemoryJobRegistry) Update(id string, fn func(job *domain.Job)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		return domain.ErrJobTerminal
	}

	prev := job.Progress
	fn(&job)
	if job.Progress < prev {
		job.Progress = prev
	}
	if job.Progress > 100 {
		job.Progress = 100
	}
	job.ID = id
	job.UpdatedAt = r.now()
	r.jobs[id] = job
	return nil
}

// Delete removes a job.
func (r *MemoryJobRegistry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

// Prune removes terminal jobs whose last update is older than olderThan.
func (r *MemoryJobRegistry) Prune(olderThan time.Duration) int {
	cutoff := r.now().Add(-olderThan)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, job := range r.jobs {
		if job.Status.IsTerminal() && job.UpdatedAt.Before(cutoff) {
			delete(r.jobs, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored jobs.
func (r *MemoryJobRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// RunSweeper prunes expired jobs every interval until ctx is done.
// A non-positive retention or interval disables sweeping.
func RunSweeper(ctx context.Context, registry JobRegistry, interval, retention time.Duration) {
	if interval <= 0 || retention <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := registry.Prune(retention); n > 0 {
				logger.CtxInfo(ctx, "Pruned %d expired jobs", n)
			}
		}
	}
}
