package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/surrogates/internal/domain"
	"github.com/timmy/surrogates/internal/logger"
)

// InspirationFinder suggests design reference websites.
type InspirationFinder interface {
	Find(ctx context.Context, keywords []string, count int) ([]domain.Inspiration, error)
}

// InspirationHandler handles inspiration requests.
type InspirationHandler struct {
	finder InspirationFinder
}

// NewInspirationHandler creates a new inspiration handler.
func NewInspirationHandler(finder InspirationFinder) *InspirationHandler {
	return &InspirationHandler{finder: finder}
}

// InspirationRequest is the body of POST /api/inspiration.
type InspirationRequest struct {
	Keywords []string `json:"keywords" binding:"required,min=1"`
	Count    int      `json:"count" binding:"omitempty,min=1,max=20"`
}

// FindInspiration handles POST /api/inspiration.
func (h *InspirationHandler) FindInspiration(c *gin.Context) {
	ctx := c.Request.Context()

	var req InspirationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	sites, err := h.finder.Find(ctx, req.Keywords, req.Count)
	if err != nil {
		logger.CtxWarn(ctx, "Inspiration lookup failed: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inspirations": sites, "total": len(sites)})
}
