package repository

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/timmy/surrogates/internal/domain"
)

func TestFileResultStoreSaveLoad(t *testing.T) {
	store, err := NewFileResultStore(filepath.Join(t.TempDir(), "results"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	result := &domain.AnalysisResult{
		JobID:      "job-1",
		AnalyzedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Ratings: []domain.Rating{
			{Filename: "001_a.jpg", Score: 9, Status: domain.RatingExcellent},
		},
		Unrated:           []string{"002_b.jpg"},
		Usage:             domain.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		TotalBatches:      1,
		SuccessfulBatches: 1,
	}

	path, err := store.Save(result)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Base(path) != "job-1.json" {
		t.Errorf("expected job-1.json, got %s", path)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("expected temporary file removed")
	}

	got, err := store.Load("job-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Ratings) != 1 || got.Ratings[0].Score != 9 {
		t.Errorf("expected one rating with score 9, got %+v", got.Ratings)
	}
	if len(got.Unrated) != 1 || got.Unrated[0] != "002_b.jpg" {
		t.Errorf("expected unrated [002_b.jpg], got %v", got.Unrated)
	}
	if got.Usage.TotalTokens != 15 {
		t.Errorf("expected 15 tokens, got %d", got.Usage.TotalTokens)
	}
	if !got.Timestamp.Equal(result.AnalyzedAt) {
		t.Errorf("expected timestamp %v, got %v", result.AnalyzedAt, got.Timestamp)
	}
}

func TestFileResultStoreLoadMissing(t *testing.T) {
	store, err := NewFileResultStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	for _, id := range []string{"nope", "../etc/passwd", ""} {
		if _, err := store.Load(id); !errors.Is(err, domain.ErrJobNotFound) {
			t.Errorf("Load(%q): expected ErrJobNotFound, got %v", id, err)
		}
	}
}

func TestFileResultStoreRejectsTraversal(t *testing.T) {
	store, err := NewFileResultStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.Save(&domain.AnalysisResult{JobID: "../escape"}); err == nil {
		t.Error("expected error for traversal job id")
	}
}
