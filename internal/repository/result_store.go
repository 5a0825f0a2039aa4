package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/timmy/surrogates/internal/domain"
)

// StoredResult is the on-disk form of a finished analysis.
type StoredResult struct {
	JobID             string          `json:"job_id"`
	Timestamp         time.Time       `json:"timestamp"`
	Ratings           []domain.Rating `json:"ratings"`
	Unrated           []string        `json:"unrated"`
	Usage             domain.Usage    `json:"usage"`
	TotalBatches      int             `json:"total_batches"`
	SuccessfulBatches int             `json:"successful_batches"`
	FailedBatches     int             `json:"failed_batches"`
}

// FileResultStore writes one JSON document per analysis job.
type FileResultStore struct {
	dir string
}

// NewFileResultStore creates the results directory if needed.
func NewFileResultStore(dir string) (*FileResultStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}
	return &FileResultStore{dir: dir}, nil
}

func (s *FileResultStore) pathFor(jobID string) (string, error) {
	if jobID == "" || strings.ContainsAny(jobID, `/\`) || strings.Contains(jobID, "..") {
		return "", fmt.Errorf("invalid job id %q", jobID)
	}
	return filepath.Join(s.dir, jobID+".json"), nil
}

// Save persists result under its job id.
// Returns the written file path.
func (s *FileResultStore) Save(result *domain.AnalysisResult) (string, error) {
	path, err := s.pathFor(result.JobID)
	if err != nil {
		return "", err
	}

	doc := StoredResult{
		JobID:             result.JobID,
		Timestamp:         result.AnalyzedAt,
		Ratings:           result.Ratings,
		Unrated:           result.Unrated,
		Usage:             result.Usage,
		TotalBatches:      result.TotalBatches,
		SuccessfulBatches: result.SuccessfulBatches,
		FailedBatches:     result.FailedBatches,
	}
	if doc.Ratings == nil {
		doc.Ratings = []domain.Rating{}
	}
	if doc.Unrated == nil {
		doc.Unrated = []string{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write result: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to finalize result: %w", err)
	}
	return path, nil
}

// Load reads the stored result of jobID.
// Returns domain.ErrJobNotFound when no result was saved.
func (s *FileResultStore) Load(jobID string) (*StoredResult, error) {
	path, err := s.pathFor(jobID)
	if err != nil {
		return nil, domain.ErrJobNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to read result: %w", err)
	}

	var doc StoredResult
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &doc, nil
}
