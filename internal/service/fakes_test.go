package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/timmy/surrogates/internal/domain"
	"github.com/timmy/surrogates/internal/vlm"
)

type fakeSource struct {
	name    string
	records []domain.ImageRecord
	err     error
	failing map[string]bool // DownloadURLs that fail
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) FetchCandidates(ctx context.Context, query string, limit int) ([]domain.ImageRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeSource) DownloadBytes(ctx context.Context, record domain.ImageRecord) ([]byte, error) {
	if f.failing[record.DownloadURL] {
		return nil, errors.New("connection reset")
	}
	return []byte("jpeg:" + record.DownloadURL), nil
}

func makeRecords(n int) []domain.ImageRecord {
	records := make([]domain.ImageRecord, n)
	for i := range records {
		records[i] = domain.ImageRecord{
			SourceID:    fmt.Sprintf("id%d", i+1),
			Description: fmt.Sprintf("photo %d", i+1),
			DownloadURL: fmt.Sprintf("https://img.test/%d", i+1),
			Source:      "fake",
		}
	}
	return records
}

// recordingSink keeps every reported event.
type recordingSink struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
}

func (s *recordingSink) Report(ctx context.Context, event domain.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) Events() []domain.ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ProgressEvent(nil), s.events...)
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	recordingSink
}

func (p *recordingPublisher) Publish(ctx context.Context, jobID string, event domain.ProgressEvent) {
	p.Report(ctx, event)
}

// scriptedAnalyzer answers each call from a queue of results.
type scriptedAnalyzer struct {
	mu      sync.Mutex
	calls   [][]string
	prompts []string
	script  []func(images []string) (*vlm.BatchResponse, error)
}

func (a *scriptedAnalyzer) AnalyzeBatch(ctx context.Context, images []string, prompt string) (*vlm.BatchResponse, error) {
	a.mu.Lock()
	call := len(a.calls)
	a.calls = append(a.calls, append([]string(nil), images...))
	a.prompts = append(a.prompts, prompt)
	a.mu.Unlock()

	if call < len(a.script) {
		return a.script[call](images)
	}
	return echoRatings(images)
}

func (a *scriptedAnalyzer) Calls() [][]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([][]string(nil), a.calls...)
}

// echoRatings rates every image of the batch; Data holds "name" in tests.
func echoRatings(images []string) (*vlm.BatchResponse, error) {
	var b strings.Builder
	b.WriteString("RATINGS:\n")
	for _, name := range images {
		fmt.Fprintf(&b, "%s: 7 - consistent palette\n", name)
	}
	return &vlm.BatchResponse{
		Text:  b.String(),
		Usage: domain.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func failWith(err error) func([]string) (*vlm.BatchResponse, error) {
	return func([]string) (*vlm.BatchResponse, error) { return nil, err }
}

func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}
