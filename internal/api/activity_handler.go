package api

import (
	"net/http"

	"github.com/JaeTrim/Traffic-AI/internal/models"
	"github.com/JaeTrim/Traffic-AI/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ActivityHandler handles the activity log
type ActivityHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewActivityHandler creates a new ActivityHandler
func NewActivityHandler(services *service.Services, log zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		services: services,
		log:      log.With().Str("handler", "activity").Logger(),
	}
}

// Recent handles GET /v1/log
func (h *ActivityHandler) Recent(c *gin.Context) {
	entries, err := h.services.Activity.Recent(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"log": entries})
}

// Create handles POST /v1/log
func (h *ActivityHandler) Create(c *gin.Context) {
	var req models.LogActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid JSON body")
		return
	}
	// Entries are attributed to the authenticated caller, never to a body-supplied id
	req.UserID = callerID(c)

	entry, err := h.services.Activity.Log(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"logEntry": entry,
	})
}

// Clear handles DELETE /v1/log
func (h *ActivityHandler) Clear(c *gin.Context) {
	if err := h.services.Activity.Clear(c.Request.Context()); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
