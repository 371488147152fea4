package api

import (
	"net/http"

	"github.com/JaeTrim/Traffic-AI/internal/models"
	"github.com/JaeTrim/Traffic-AI/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// CollectionHandler handles prediction collection endpoints
type CollectionHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewCollectionHandler creates a new CollectionHandler
func NewCollectionHandler(services *service.Services, log zerolog.Logger) *CollectionHandler {
	return &CollectionHandler{
		services: services,
		log:      log.With().Str("handler", "collection").Logger(),
	}
}

// List handles GET /v1/collections
func (h *CollectionHandler) List(c *gin.Context) {
	list, err := h.services.Collection.List(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if list == nil {
		list = []*models.PredictionCollection{}
	}
	c.JSON(http.StatusOK, list)
}

// Create handles POST /v1/collections
func (h *CollectionHandler) Create(c *gin.Context) {
	var req models.CreateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid JSON body")
		return
	}

	collection, err := h.services.Collection.Create(c.Request.Context(), callerID(c), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":      "Prediction collection created successfully",
		"collectionId": collection.ID,
	})
}

// Get handles GET /v1/collections/:id
func (h *CollectionHandler) Get(c *gin.Context) {
	collection, err := h.services.Collection.Get(c.Request.Context(), c.Param("id"), callerID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, collection)
}

// Delete handles DELETE /v1/collections/:id
func (h *CollectionHandler) Delete(c *gin.Context) {
	if err := h.services.Collection.Delete(c.Request.Context(), c.Param("id"), callerID(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Prediction collection deleted successfully"})
}

// AddPredictions handles POST /v1/collections/:id/predictions
func (h *CollectionHandler) AddPredictions(c *gin.Context) {
	var req models.AddPredictionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid JSON body")
		return
	}

	added, err := h.services.Collection.AddPredictions(c.Request.Context(), c.Param("id"), callerID(c), req.NewPredictions)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Predictions added successfully",
		"added":   added,
	})
}

// Export handles GET /v1/collections/:id/export
// Streams predictions without materializing the response body
func (h *CollectionHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "json")

	err := h.services.Collection.Export(c.Request.Context(), c.Writer, c.Param("id"), callerID(c), format)
	if err == nil {
		return
	}
	if c.Writer.Written() {
		// Headers are already out; the truncated body is all the client gets
		h.log.Error().Err(err).Str("collection_id", c.Param("id")).Msg("Export stream failed")
		return
	}
	respondError(c, h.log, err)
}
