package handler

import (
	"errors"
	"mime"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/timmy/surrogates/internal/logger"
	"github.com/timmy/surrogates/internal/storage"
)

// ImageHandler serves downloaded job images.
type ImageHandler struct {
	storage storage.ObjectStorage
}

// NewImageHandler creates a new image handler.
func NewImageHandler(store storage.ObjectStorage) *ImageHandler {
	return &ImageHandler{storage: store}
}

// ServeImage handles GET /api/image/:job_id/:filename.
func (h *ImageHandler) ServeImage(c *gin.Context) {
	ctx := c.Request.Context()

	key, err := storage.JoinKey(c.Param("job_id"), c.Param("filename"))
	if err != nil {
		logger.CtxWarn(ctx, "Rejected image key: job_id=%s, filename=%s", c.Param("job_id"), c.Param("filename"))
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}

	rc, err := h.storage.Download(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
			return
		}
		logger.CtxError(ctx, "Failed to open image %s: %v", key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read image"})
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}

// ListImages handles GET /api/images/:job_id.
func (h *ImageHandler) ListImages(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := storage.JoinKey(jobID, "probe"); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	keys, err := h.storage.List(c.Request.Context(), jobID+"/")
	if err != nil {
		logger.CtxError(c.Request.Context(), "Failed to list images of %s: %v", jobID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list images"})
		return
	}

	images := make([]gin.H, 0, len(keys))
	for _, key := range keys {
		name := path.Base(key)
		images = append(images, gin.H{
			"filename": name,
			"url":      "/api/image/" + jobID + "/" + name,
		})
	}
	c.JSON(http.StatusOK, gin.H{"job_id": jobID, "images": images, "total": len(images)})
}
