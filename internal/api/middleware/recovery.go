package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/surrogates/internal/logger"
)

// Recovery turns handler panics into a JSON 500 response.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.CtxError(c.Request.Context(), "Panic recovered: method=%s, path=%s, panic=%v",
			c.Request.Method, c.Request.URL.Path, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	})
}
