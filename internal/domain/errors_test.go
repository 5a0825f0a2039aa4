package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"wrapped unreadable", fmt.Errorf("read: %w", ErrUnreadableGuideline), "Could not read the guideline content"},
		{"all batches", fmt.Errorf("%w: 3 of 3", ErrAllBatchesFailed), "AI analysis failed for every batch"},
		{"deadline", context.DeadlineExceeded, "The operation timed out"},
		{"canceled", context.Canceled, "The job was interrupted"},
		{"unknown provider", ErrUnknownProvider, "Unknown image provider"},
		{"internal detail hidden", errors.New("open /secret/path: permission denied"), "Internal error while processing the job"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestBucketForScore(t *testing.T) {
	tests := []struct {
		score int
		want  RatingStatus
	}{
		{10, RatingExcellent},
		{8, RatingExcellent},
		{7, RatingGood},
		{6, RatingGood},
		{5, RatingFair},
		{4, RatingFair},
		{3, RatingPoor},
		{0, RatingPoor},
	}
	for _, tt := range tests {
		if got := BucketForScore(tt.score); got != tt.want {
			t.Errorf("BucketForScore(%d): expected %s, got %s", tt.score, tt.want, got)
		}
	}
}

func TestUsageAdd(t *testing.T) {
	u := Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3}.Add(Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30})
	if u != (Usage{PromptTokens: 11, CompletionTokens: 22, TotalTokens: 33}) {
		t.Errorf("unexpected sum %+v", u)
	}
}

func TestJobStatusIsTerminal(t *testing.T) {
	for status, want := range map[JobStatus]bool{
		JobStatusStarted:     false,
		JobStatusDownloading: false,
		JobStatusAnalyzing:   false,
		JobStatusCompleted:   true,
		JobStatusError:       true,
	} {
		if got := status.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal(): expected %v, got %v", status, want, got)
		}
	}
}
