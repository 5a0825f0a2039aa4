package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health and discovery endpoints.
type HealthHandler struct {
	providers func() []string
}

// NewHealthHandler creates a new health handler. providers lists the
// registered image providers.
func NewHealthHandler(providers func() []string) *HealthHandler {
	return &HealthHandler{providers: providers}
}

// Health returns the health status of the service
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Providers handles GET /api/providers.
func (h *HealthHandler) Providers(c *gin.Context) {
	names := []string{}
	if h.providers != nil {
		names = append(names, h.providers()...)
	}
	c.JSON(http.StatusOK, gin.H{"providers": names})
}
