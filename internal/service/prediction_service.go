package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JaeTrim/Traffic-AI/internal/apperrors"
	"github.com/JaeTrim/Traffic-AI/internal/metrics"
	"github.com/JaeTrim/Traffic-AI/internal/models"
	"github.com/JaeTrim/Traffic-AI/internal/repository"
	"github.com/JaeTrim/Traffic-AI/internal/validation"
	"github.com/rs/zerolog"
)

const (
	csvSuccessMessage = "CSV predictions saved successfully"
	csvInputSource    = "CSV upload"
)

// predictionService is the concrete implementation of PredictionService
type predictionService struct {
	collections repository.CollectionRepository
	models      repository.ModelRepository
	inference   InferenceClient
	activity    ActivityService
	metrics     *metrics.Metrics
	uploadDir   string
	now         func() time.Time
	log         zerolog.Logger
}

func newPredictionService(repos *repository.Repositories, inference InferenceClient, activity ActivityService, m *metrics.Metrics, uploadDir string, log zerolog.Logger) *predictionService {
	return &predictionService{
		collections: repos.Collection,
		models:      repos.Model,
		inference:   inference,
		activity:    activity,
		metrics:     m,
		uploadDir:   uploadDir,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log.With().Str("service", "prediction").Logger(),
	}
}

// PredictCSV validates an uploaded CSV against the model's input fields, runs
// the whole batch through the inference service in one call and appends every
// result to the collection in one write. Nothing is stored unless every row
// has a result.
func (s *predictionService) PredictCSV(ctx context.Context, req *models.CSVPredictionRequest) (result *models.CSVPredictionResult, err error) {
	defer s.recordFailure(string(models.SourceCSV), &err)

	if req.CSV == nil || strings.TrimSpace(req.CollectionID) == "" || strings.TrimSpace(req.ModelID) == "" {
		return nil, apperrors.ClientInput("collectionId, modelId, and csv file are required")
	}

	collection, model, err := s.loadTargets(ctx, req.CollectionID, req.ModelID, req.UserID)
	if err != nil {
		return nil, err
	}

	upload, err := io.ReadAll(req.CSV)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindClientInput, "Failed to read CSV file", err)
	}

	table, err := validation.ParseCSV(bytes.NewReader(upload))
	if err != nil {
		return nil, err
	}
	if len(table.Records) == 0 {
		return nil, apperrors.New(apperrors.KindEmptyInput, "CSV file is empty")
	}

	diff := validation.DiffSchema(model.InputFields, table.Headers)
	if !diff.OK() {
		return nil, apperrors.WithDetails(apperrors.KindSchemaMismatch,
			"CSV validation failed. Please make sure the CSV file has the correct fields for the chosen model. "+diff.Message(),
			diff)
	}

	rows, err := validation.Reproject(table.Records, model.InputFields)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "Reprojected record is incomplete", err)
	}

	artifact := model.ArtifactName()
	start := time.Now()
	results, err := s.inference.PredictBatch(ctx, artifact, rows, req.ApplyLogTransform)
	if err != nil {
		return nil, err
	}
	if len(results) != len(rows) {
		return nil, apperrors.WithDetails(apperrors.KindUpstreamContractViolation,
			"Mismatch in prediction results",
			map[string]int{"expected": len(rows), "received": len(results)})
	}

	now := s.now()
	predictions := make([]models.Prediction, len(rows))
	for i, raw := range table.Raw {
		predictions[i] = models.Prediction{
			ModelID:    model.ID,
			Inputs:     inputPairs(raw),
			Result:     results[i],
			SourceType: models.SourceCSV,
			CreatedAt:  now,
		}
	}

	// The archived copy is a convenience; the predictions are stored without it
	csvPath, err := s.archiveUpload(collection.ID, req.FileName, upload)
	if err != nil {
		s.log.Warn().Err(err).Str("collection_id", collection.ID).Msg("Failed to archive CSV upload")
		csvPath = ""
	}

	found, err := s.collections.AppendPredictions(ctx, collection.ID, predictions, csvPath)
	if err != nil || !found {
		s.discardUpload(csvPath)
	}
	if err != nil {
		return nil, apperrors.Persistence("Failed to save predictions", err)
	}
	if !found {
		// Deleted while the batch was running
		return nil, apperrors.NotFound("Prediction Collection not found")
	}

	s.metrics.RecordPredictions(string(models.SourceCSV), len(predictions))
	s.log.Info().
		Str("collection_id", collection.ID).
		Str("model", artifact).
		Int("rows", len(predictions)).
		Bool("log_transform", req.ApplyLogTransform).
		Dur("inference_duration", time.Since(start)).
		Msg("CSV predictions saved")

	s.logActivity(ctx, model.Name, csvInputSource, len(predictions), req.UserID)

	return &models.CSVPredictionResult{
		Message:     csvSuccessMessage,
		Predictions: predictions,
	}, nil
}

// PredictSingle runs one manually entered row and appends the result
func (s *predictionService) PredictSingle(ctx context.Context, req *models.SinglePredictionRequest) (prediction *models.Prediction, err error) {
	defer s.recordFailure(string(models.SourceManual), &err)

	if strings.TrimSpace(req.CollectionID) == "" || strings.TrimSpace(req.ModelID) == "" || req.Inputs == nil {
		return nil, apperrors.ClientInput("collectionId, modelId, and inputs are required")
	}
	if req.LogTransform == nil {
		return nil, apperrors.ClientInput("logTransform is required and must be a boolean (true or false)")
	}

	collection, model, err := s.loadTargets(ctx, req.CollectionID, req.ModelID, req.UserID)
	if err != nil {
		return nil, err
	}

	row, err := validation.CoerceNumeric(model.InputFields, req.Inputs)
	if err != nil {
		return nil, err
	}

	result, err := s.inference.PredictSingle(ctx, model.ArtifactName(), row, *req.LogTransform)
	if err != nil {
		return nil, err
	}

	p := models.Prediction{
		ModelID:    model.ID,
		Inputs:     inputPairs(row),
		Result:     result,
		SourceType: models.SourceManual,
		CreatedAt:  s.now(),
	}

	found, err := s.collections.AppendPredictions(ctx, collection.ID, []models.Prediction{p}, "")
	if err != nil {
		return nil, apperrors.Persistence("Failed to save prediction", err)
	}
	if !found {
		return nil, apperrors.NotFound("Prediction Collection not found")
	}

	s.metrics.RecordPredictions(string(models.SourceManual), 1)
	s.logActivity(ctx, model.Name, models.DefaultInputSource, 1, req.UserID)

	return &p, nil
}

// loadTargets resolves the caller's collection and the model to run
func (s *predictionService) loadTargets(ctx context.Context, collectionID, modelID, userID string) (*models.PredictionCollection, *models.Model, error) {
	collection, err := loadOwnedCollection(ctx, s.collections, collectionID, userID)
	if err != nil {
		return nil, nil, err
	}

	if !validation.IsValidUUID(modelID) {
		return nil, nil, apperrors.ClientInput("Invalid model ID")
	}
	model, err := s.models.GetByID(ctx, modelID)
	if err != nil {
		return nil, nil, apperrors.Persistence("Error fetching model", err)
	}
	if model == nil {
		return nil, nil, apperrors.NotFound("Specified model not found")
	}
	if len(model.InputFields) == 0 {
		return nil, nil, apperrors.New(apperrors.KindInternal,
			fmt.Sprintf("Model %s declares no input fields", model.ID))
	}
	return collection, model, nil
}

// logActivity records the run; a failure here never fails the prediction
func (s *predictionService) logActivity(ctx context.Context, modelName, source string, count int, userID string) {
	if s.activity == nil {
		return
	}
	_, err := s.activity.Log(ctx, &models.LogActivityRequest{
		ModelName:        modelName,
		InputSource:      source,
		PredictionsCount: count,
		UserID:           userID,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("model", modelName).Msg("Failed to record activity")
	}
}

func (s *predictionService) recordFailure(source string, errp *error) {
	if *errp != nil {
		s.metrics.RecordError(source, apperrors.KindOf(*errp).String())
	}
}

func inputPairs(row models.OrderedRow) []models.InputPair {
	pairs := make([]models.InputPair, len(row.Keys))
	for i, k := range row.Keys {
		var v interface{}
		if i < len(row.Values) {
			v = row.Values[i]
		}
		pairs[i] = models.InputPair{Key: k, Value: v}
	}
	return pairs
}
