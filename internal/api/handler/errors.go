package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/surrogates/internal/domain"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrUnknownProvider):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrJobRunning):
		return http.StatusConflict
	case errors.Is(err, domain.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrMalformedAIResponse):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": ...} with a user-safe message.
func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": domain.UserMessage(err)})
}
