package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/timmy/surrogates/internal/logger"
	"github.com/timmy/surrogates/internal/service"
)

// UploadHandler stores guideline documents.
type UploadHandler struct {
	dir      string
	maxBytes int64
}

// NewUploadHandler creates a new upload handler.
// Parameters:
//   - dir: destination directory, created on first upload.
//   - maxBytes: request body limit; 0 disables it.
//
// Returns:
//   - *UploadHandler: initialized handler.
func NewUploadHandler(dir string, maxBytes int64) *UploadHandler {
	return &UploadHandler{dir: dir, maxBytes: maxBytes}
}

// UploadGuideline handles POST /api/upload-guideline.
func (h *UploadHandler) UploadGuideline(c *gin.Context) {
	ctx := c.Request.Context()
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A PDF file is required in field 'file'"})
		return
	}

	name := filepath.Base(file.Filename)
	ext := filepath.Ext(name)
	if !strings.EqualFold(ext, ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF files are allowed"})
		return
	}

	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		logger.CtxError(ctx, "Failed to create uploads dir: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	fileID := uuid.NewString()
	dst := filepath.Join(h.dir, fileID+"_"+service.CleanFilename(strings.TrimSuffix(name, ext))+".pdf")
	if err := c.SaveUploadedFile(file, dst); err != nil {
		logger.CtxError(ctx, "Failed to save upload %s: %v", name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	logger.With(logger.Fields{logger.FieldSize: file.Size}).Info(ctx, "Guideline uploaded: %s", dst)
	c.JSON(http.StatusOK, gin.H{
		"file_id":   fileID,
		"filename":  name,
		"file_path": dst,
		"message":   "File uploaded successfully",
	})
}
