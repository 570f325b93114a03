package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fjacquet/fintrack/internal/ai"
	"fjacquet/fintrack/internal/categorizer"
	"fjacquet/fintrack/internal/parsererror"
	"fjacquet/fintrack/internal/pipeline"
)

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	var (
		unsupported *parsererror.UnsupportedFormatError
		backup      *parsererror.InvalidBackupFormatError
		validation  *parsererror.ValidationError
		remote      *parsererror.RemoteCallError
	)
	switch {
	case errors.Is(err, ai.ErrRateLimited), errors.Is(err, categorizer.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, pipeline.ErrSessionClosed):
		return http.StatusConflict
	case errors.As(err, &unsupported):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, parsererror.ErrNoTransactionsFound):
		return http.StatusUnprocessableEntity
	case errors.As(err, &backup), errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &remote):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the user-facing message for err.
func (s *Server) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).Error("Request error")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": parsererror.UserMessage(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

func notFound(c *gin.Context, what string) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": what + " not found"})
}
