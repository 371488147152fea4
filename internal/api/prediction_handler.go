package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/JaeTrim/Traffic-AI/internal/apperrors"
	"github.com/JaeTrim/Traffic-AI/internal/config"
	"github.com/JaeTrim/Traffic-AI/internal/metrics"
	"github.com/JaeTrim/Traffic-AI/internal/models"
	"github.com/JaeTrim/Traffic-AI/internal/service"
	"github.com/JaeTrim/Traffic-AI/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const invalidMultipart = "Invalid Content-Type. Expected multipart/form-data."

// PredictionHandler handles prediction and training endpoints
type PredictionHandler struct {
	services *service.Services
	cfg      *config.Config
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// NewPredictionHandler creates a new PredictionHandler
func NewPredictionHandler(services *service.Services, cfg *config.Config, m *metrics.Metrics, log zerolog.Logger) *PredictionHandler {
	return &PredictionHandler{
		services: services,
		cfg:      cfg,
		metrics:  m,
		log:      log.With().Str("handler", "prediction").Logger(),
	}
}

// PredictCSV handles POST /v1/predict/csv
// Multipart fields: collectionId, modelId, csv, logTransform
func (h *PredictionHandler) PredictCSV(c *gin.Context) {
	const required = "collectionId, modelId, and csv file are required."

	if !isMultipart(c) {
		h.reject(c, models.SourceCSV, apperrors.ClientInput(invalidMultipart))
		return
	}
	limitBody(c, h.cfg.Storage.MaxUploadSize)

	file, header, err := formFile(c, "csv", h.cfg.Storage.MaxUploadSize)
	if err != nil {
		if errors.Is(err, errNoUpload) {
			err = apperrors.ClientInput(required)
		}
		h.reject(c, models.SourceCSV, err)
		return
	}
	defer file.Close()

	collectionID := c.PostForm("collectionId")
	modelID := c.PostForm("modelId")
	if collectionID == "" || modelID == "" {
		h.reject(c, models.SourceCSV, apperrors.ClientInput(required))
		return
	}

	raw, ok := c.GetPostForm("logTransform")
	if !ok {
		h.reject(c, models.SourceCSV, apperrors.ClientInput("logTransform is required and must be a boolean (true or false)."))
		return
	}
	applyLog, err := validation.ParseBoolFlag(raw)
	if err != nil {
		h.reject(c, models.SourceCSV, err)
		return
	}

	result, err := h.services.Prediction.PredictCSV(c.Request.Context(), &models.CSVPredictionRequest{
		CollectionID:      collectionID,
		ModelID:           modelID,
		UserID:            callerID(c),
		FileName:          header.Filename,
		CSV:               file,
		ApplyLogTransform: applyLog,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// PredictSingle handles POST /v1/predict/single
func (h *PredictionHandler) PredictSingle(c *gin.Context) {
	var req models.SinglePredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.reject(c, models.SourceManual, apperrors.ClientInput("Invalid JSON body"))
		return
	}
	req.UserID = callerID(c)

	prediction, err := h.services.Prediction.PredictSingle(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Prediction added successfully",
		"prediction": prediction,
	})
}

// Train handles POST /v1/train
// Multipart fields: csv, epoch, kfold
func (h *PredictionHandler) Train(c *gin.Context) {
	if !isMultipart(c) {
		badRequest(c, invalidMultipart)
		return
	}
	limitBody(c, h.cfg.Storage.MaxUploadSize)

	file, header, err := formFile(c, "csv", h.cfg.Storage.MaxUploadSize)
	if errors.Is(err, errNoUpload) {
		badRequest(c, "kfold, epoch, and csv file are required.")
		return
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer file.Close()

	epochs, okEpochs := positiveInt(c.PostForm("epoch"))
	kfolds, okFolds := positiveInt(c.PostForm("kfold"))
	if !okEpochs || !okFolds {
		badRequest(c, "epoch and kfold must be positive integers")
		return
	}

	results, err := h.services.Training.Train(c.Request.Context(), &models.TrainRequest{
		FileName: header.Filename,
		CSV:      file,
		Epochs:   epochs,
		KFolds:   kfolds,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": results})
}

// reject answers a request refused before it reached the prediction service,
// counting it with the service's own failures
func (h *PredictionHandler) reject(c *gin.Context, source models.SourceType, err error) {
	h.metrics.RecordError(string(source), apperrors.KindOf(err).String())
	respondError(c, h.log, err)
}

func positiveInt(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return n, err == nil && n > 0
}
