package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JaeTrim/Traffic-AI/internal/config"
	"github.com/JaeTrim/Traffic-AI/internal/models"
	"github.com/JaeTrim/Traffic-AI/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ModelHandler handles model registry endpoints
type ModelHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewModelHandler creates a new ModelHandler
func NewModelHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *ModelHandler {
	return &ModelHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "model").Logger(),
	}
}

// Create handles POST /v1/models
// Multipart fields: name, inputFields (JSON array), modelFile
func (h *ModelHandler) Create(c *gin.Context) {
	if !isMultipart(c) {
		badRequest(c, "Invalid Content-Type. Expected multipart/form-data.")
		return
	}
	limitBody(c, h.cfg.Storage.MaxUploadSize)

	file, header, err := formFile(c, "modelFile", h.cfg.Storage.MaxUploadSize)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer file.Close()

	fields, ok := parseInputFields(c.PostForm("inputFields"))
	if !ok {
		badRequest(c, "inputFields must be a non-empty array.")
		return
	}

	model, err := h.services.Model.Create(c.Request.Context(), &models.CreateModelRequest{
		Name:        c.PostForm("name"),
		InputFields: fields,
		FileName:    header.Filename,
		File:        file,
		CreatedBy:   callerID(c),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Model uploaded and saved successfully",
		"model":   model,
	})
}

// List handles GET /v1/models
func (h *ModelHandler) List(c *gin.Context) {
	list, err := h.services.Model.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if list == nil {
		list = []*models.Model{}
	}
	c.JSON(http.StatusOK, list)
}

// Get handles GET /v1/models/:id
func (h *ModelHandler) Get(c *gin.Context) {
	model, err := h.services.Model.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, model)
}

// Update handles PATCH /v1/models/:id
// Accepts a JSON body {name?, inputFields?} or a multipart form that may replace the artifact
func (h *ModelHandler) Update(c *gin.Context) {
	req := &models.UpdateModelRequest{}

	if isMultipart(c) {
		limitBody(c, h.cfg.Storage.MaxUploadSize)

		// Parsing the file part first surfaces an oversized body instead of
		// silently dropping the replacement artifact
		file, header, err := formFile(c, "modelFile", h.cfg.Storage.MaxUploadSize)
		switch {
		case err == nil:
			defer file.Close()
			req.FileName = header.Filename
			req.File = file
		case !errors.Is(err, errNoUpload):
			respondError(c, h.log, err)
			return
		}

		if name, ok := c.GetPostForm("name"); ok {
			req.Name = &name
		}
		if raw, ok := c.GetPostForm("inputFields"); ok {
			var fields []string
			if err := json.Unmarshal([]byte(raw), &fields); err != nil {
				badRequest(c, "Invalid inputFields format")
				return
			}
			if fields == nil {
				fields = []string{}
			}
			req.InputFields = fields
		}
	} else {
		var body struct {
			Name        *string   `json:"name"`
			InputFields *[]string `json:"inputFields"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, "Invalid JSON body")
			return
		}
		req.Name = body.Name
		if body.InputFields != nil {
			req.InputFields = *body.InputFields
			if req.InputFields == nil {
				req.InputFields = []string{}
			}
		}
	}

	model, err := h.services.Model.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, model)
}

// Delete handles DELETE /v1/models/:id
func (h *ModelHandler) Delete(c *gin.Context) {
	if err := h.services.Model.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Model deleted successfully"})
}

// parseInputFields decodes the JSON array sent as a form value
func parseInputFields(raw string) ([]string, bool) {
	var fields []string
	if raw == "" || json.Unmarshal([]byte(raw), &fields) != nil || len(fields) == 0 {
		return nil, false
	}
	return fields, true
}
