package domain

import (
	"context"
	"errors"
)

var (
	// ErrProviderUnavailable is returned when a provider rejects or cannot serve a request.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrUnknownProvider is returned when no adapter is registered under a name.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrNoResultsFound is returned when a search yields no candidate images.
	ErrNoResultsFound = errors.New("no images found")

	// ErrAllDownloadsFailed is returned when no candidate image could be stored.
	ErrAllDownloadsFailed = errors.New("all image downloads failed")

	// ErrInvalidRequest is returned for requests missing required input.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnreadableGuideline is returned when no page of a guideline yields text.
	ErrUnreadableGuideline = errors.New("guideline has no readable text")

	// ErrNoImagesToAnalyze is returned when a job directory holds no usable image.
	ErrNoImagesToAnalyze = errors.New("no images to analyze")

	// ErrBatchExhausted is returned when one batch failed after every attempt.
	ErrBatchExhausted = errors.New("batch failed after all attempts")

	// ErrAllBatchesFailed is returned when no batch of an analysis succeeded.
	ErrAllBatchesFailed = errors.New("all batches failed")

	// ErrMalformedAIResponse is returned when the model answer has no usable content.
	ErrMalformedAIResponse = errors.New("malformed AI response")

	// ErrTimeout is returned when a provider call exceeds its deadline.
	ErrTimeout = errors.New("provider call timed out")

	// ErrJobNotFound is returned for unknown job ids.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobTerminal is returned when mutating a completed or failed job.
	ErrJobTerminal = errors.New("job already finished")

	// ErrJobRunning is returned when restarting a job that has not finished.
	ErrJobRunning = errors.New("job is still running")
)

// UserMessage converts an error into a message that is safe to show to clients.
// Internal error text never leaks; unknown errors map to a generic sentence.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownProvider):
		return "Unknown image provider"
	case errors.Is(err, ErrProviderUnavailable):
		return "Image provider is unavailable, check the provider credentials"
	case errors.Is(err, ErrNoResultsFound):
		return "No images found"
	case errors.Is(err, ErrAllDownloadsFailed):
		return "Failed to download any images"
	case errors.Is(err, ErrInvalidRequest):
		return "Invalid request"
	case errors.Is(err, ErrUnreadableGuideline):
		return "Could not read the guideline content"
	case errors.Is(err, ErrNoImagesToAnalyze):
		return "No images found to analyze"
	case errors.Is(err, ErrAllBatchesFailed):
		return "AI analysis failed for every batch"
	case errors.Is(err, ErrMalformedAIResponse):
		return "AI returned an unexpected response"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "The operation timed out"
	case errors.Is(err, context.Canceled):
		return "The job was interrupted"
	case errors.Is(err, ErrJobNotFound):
		return "Job not found"
	case errors.Is(err, ErrJobRunning):
		return "Job is still running"
	default:
		return "Internal error while processing the job"
	}
}
