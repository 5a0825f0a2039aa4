package domain

import "time"

// JobKind identifies which pipeline owns a job.
type JobKind string

const (
	JobKindDownload JobKind = "download"
	JobKindAnalysis JobKind = "analysis"
)

// JobStatus represents the lifecycle state of a job.
// Values include JobStatusStarted, JobStatusDownloading, JobStatusAnalyzing,
// JobStatusCompleted, and JobStatusError.
type JobStatus string

const (
	JobStatusStarted     JobStatus = "started"
	JobStatusDownloading JobStatus = "downloading"
	JobStatusAnalyzing   JobStatus = "analyzing"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusError       JobStatus = "error"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// Job is the registry snapshot of one long-running operation.
type Job struct {
	ID        string      `json:"job_id"`
	Kind      JobKind     `json:"type"`
	Status    JobStatus   `json:"status"`
	Progress  int         `json:"progress"`
	Message   string      `json:"message,omitempty"`
	Result    interface{} `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewJob creates a job in the started state.
// Parameters:
//   - id: job identifier.
//   - kind: pipeline that will own the job.
//
// Returns:
//   - Job: job snapshot with status started and zero progress.
func NewJob(id string, kind JobKind) Job {
	now := time.Now()
	return Job{
		ID:        id,
		Kind:      kind,
		Status:    JobStatusStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ProgressEvent is an incremental status update pushed to job subscribers.
type ProgressEvent struct {
	JobID        string      `json:"job_id"`
	Status       JobStatus   `json:"status"`
	Progress     int         `json:"progress"`
	Message      string      `json:"message,omitempty"`
	CurrentImage int         `json:"current_image,omitempty"`
	TotalImages  int         `json:"total_images,omitempty"`
	CurrentBatch int         `json:"current_batch,omitempty"`
	TotalBatches int         `json:"total_batches,omitempty"`
	Result       interface{} `json:"result,omitempty"`
	Error        string      `json:"error,omitempty"`
}
