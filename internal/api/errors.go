package api

import (
	"errors"
	"net/http"

	"github.com/JaeTrim/Traffic-AI/internal/apperrors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// respondError renders err as {"error": message, "details": ...}. Errors
// without a classification are logged and reported as internal.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	status := appErr.HTTPStatus()
	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).
		Str("kind", appErr.Kind.String()).
		Int("status", status).
		Str("path", c.Request.URL.Path).
		Msg("Request failed")

	body := gin.H{"error": appErr.Message}
	if status >= http.StatusInternalServerError && appErr.Kind == apperrors.KindInternal {
		body["error"] = "Internal server error"
	}
	if appErr.Details != nil {
		body["details"] = appErr.Details
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}
