package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/timmy/surrogates/internal/domain"
	"github.com/timmy/surrogates/internal/logger"
	"github.com/timmy/surrogates/internal/repository"
)

// ResultLoader reads persisted analysis results.
type ResultLoader interface {
	Load(jobID string) (*repository.StoredResult, error)
}

// HistoryLister lists recent analysis summaries.
type HistoryLister interface {
	ListRecent(ctx context.Context, limit int) ([]domain.AnalysisRecord, error)
}

// ResultHandler serves analysis results and history.
type ResultHandler struct {
	results ResultLoader
	history HistoryLister
}

// NewResultHandler creates a new result handler. history may be nil when the
// database is disabled.
func NewResultHandler(results ResultLoader, history HistoryLister) *ResultHandler {
	return &ResultHandler{results: results, history: history}
}

// GetResult handles GET /api/results/:job_id.
func (h *ResultHandler) GetResult(c *gin.Context) {
	result, err := h.results.Load(c.Param("job_id"))
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			logger.CtxError(c.Request.Context(), "Failed to load result: %v", err)
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListAnalyses handles GET /api/analyses?limit=N.
func (h *ResultHandler) ListAnalyses(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Analysis history is disabled"})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}
		limit = n
	}

	records, err := h.history.ListRecent(c.Request.Context(), limit)
	if err != nil {
		logger.CtxError(c.Request.Context(), "Failed to list analyses: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list analyses"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"analyses": records, "total": len(records)})
}
