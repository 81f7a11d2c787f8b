package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	queuedomain "github.com/tunedeck/tunedeck/internal/queue/domain"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not_found")
	ErrRateLimited  = errors.New("rate_limited")
)

// ValidationError carries field-level detail for 400 responses.
type ValidationError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string { return e.Message }

func newValidationError(field, rule, message string) *ValidationError {
	return &ValidationError{Field: field, Rule: rule, Message: message}
}

func invalidRequestError() error {
	return newValidationError("body", "invalid", "request body is malformed")
}

// AbortWithError maps domain errors onto HTTP responses. Only auth and
// validation failures are user-visible; everything else is a 500 with no
// detail leaked.
func AbortWithError(c *gin.Context, err error) {
	var validation *ValidationError
	switch {
	case errors.Is(err, ErrUnauthorized):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, ErrNotFound), errors.Is(err, queuedomain.ErrSnapshotNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, ErrRateLimited):
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
	case errors.As(err, &validation):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"field":   validation.Field,
			"rule":    validation.Rule,
			"message": validation.Message,
		})
	case errors.Is(err, queuedomain.ErrInvalidTenant):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_tenant"})
	case errors.Is(err, queuedomain.ErrInvalidPayload):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	}
}
