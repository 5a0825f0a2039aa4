package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/timmy/surrogates/internal/domain"
)

func TestPrintEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   domain.ProgressEvent
		want string
	}{
		{
			name: "batch",
			ev:   domain.ProgressEvent{JobID: "0123456789ab", Status: domain.JobStatusAnalyzing, Progress: 55, Message: "Analyzing batch 2", CurrentBatch: 2, TotalBatches: 3},
			want: "[01234567]  55% analyzing   Analyzing batch 2 (batch 2/3)",
		},
		{
			name: "image",
			ev:   domain.ProgressEvent{JobID: "job", Status: domain.JobStatusDownloading, Progress: 36, Message: "Downloaded image 1", CurrentImage: 1, TotalImages: 5},
			want: "[job]  36% downloading Downloaded image 1 (image 1/5)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printEvent(&buf, tt.ev)
			if got := strings.TrimRight(buf.String(), "\n"); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
