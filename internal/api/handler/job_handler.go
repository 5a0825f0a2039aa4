package handler

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/timmy/surrogates/internal/domain"
	"github.com/timmy/surrogates/internal/logger"
	"github.com/timmy/surrogates/internal/service"
)

// JobRunner starts jobs and reports their state.
type JobRunner interface {
	StartDownload(ctx context.Context, req service.DownloadRequest) (string, error)
	StartAnalysis(ctx context.Context, jobID, guidelinePath string) error
	Status(jobID string) (domain.Job, error)
}

// JobHandler handles job endpoints.
type JobHandler struct {
	jobs       JobRunner
	uploadsDir string
}

// NewJobHandler creates a new job handler.
// Parameters:
//   - jobs: job service.
//   - uploadsDir: directory guideline paths must stay inside; empty allows any path.
//
// Returns:
//   - *JobHandler: initialized handler.
func NewJobHandler(jobs JobRunner, uploadsDir string) *JobHandler {
	return &JobHandler{jobs: jobs, uploadsDir: uploadsDir}
}

// DownloadImagesRequest is the body of POST /api/download-images.
type DownloadImagesRequest struct {
	Query    string `json:"query" binding:"required"`
	Provider string `json:"provider"`
	Limit    int    `json:"limit" binding:"omitempty,min=1,max=100"`
}

// AnalyzeImagesRequest is the body of POST /api/analyze-images.
type AnalyzeImagesRequest struct {
	JobID         string `json:"job_id" binding:"required"`
	GuidelinePath string `json:"guideline_path" binding:"required"`
}

// JobStartedResponse acknowledges a job started in the background.
type JobStartedResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// DownloadImages handles POST /api/download-images.
func (h *JobHandler) DownloadImages(c *gin.Context) {
	ctx := c.Request.Context()

	var req DownloadImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.CtxWarn(ctx, "Invalid download request: client_ip=%s, error=%v", c.ClientIP(), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	jobID, err := h.jobs.StartDownload(ctx, service.DownloadRequest{
		Query:    req.Query,
		Provider: req.Provider,
		Limit:    req.Limit,
	})
	if err != nil {
		logger.CtxWarn(ctx, "Download request rejected: %v", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, JobStartedResponse{
		JobID:   jobID,
		Status:  string(domain.JobStatusStarted),
		Message: "Download started",
	})
}

// AnalyzeImages handles POST /api/analyze-images.
func (h *JobHandler) AnalyzeImages(c *gin.Context) {
	ctx := c.Request.Context()

	var req AnalyzeImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if !h.guidelineAllowed(req.GuidelinePath) {
		logger.CtxWarn(ctx, "Guideline path outside uploads dir: %s", req.GuidelinePath)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Guideline must be an uploaded file"})
		return
	}

	if err := h.jobs.StartAnalysis(ctx, req.JobID, req.GuidelinePath); err != nil {
		logger.CtxWarn(ctx, "Analysis request rejected: job_id=%s, error=%v", req.JobID, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, JobStartedResponse{
		JobID:   req.JobID,
		Status:  string(domain.JobStatusStarted),
		Message: "Analysis started",
	})
}

// JobStatus handles GET /api/job-status/:job_id.
func (h *JobHandler) JobStatus(c *gin.Context) {
	job, err := h.jobs.Status(c.Param("job_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) guidelineAllowed(path string) bool {
	if h.uploadsDir == "" {
		return true
	}
	root, err := filepath.Abs(h.uploadsDir)
	if err != nil {
		return false
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(root, target)
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}
