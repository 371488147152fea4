package service

import (
	"context"
	"encoding/json"

	"github.com/JaeTrim/Traffic-AI/internal/apperrors"
	"github.com/JaeTrim/Traffic-AI/internal/models"
	"github.com/rs/zerolog"
)

// trainingService forwards training datasets to the inference service
type trainingService struct {
	inference InferenceClient
	log       zerolog.Logger
}

func newTrainingService(inference InferenceClient, log zerolog.Logger) *trainingService {
	return &trainingService{
		inference: inference,
		log:       log.With().Str("service", "training").Logger(),
	}
}

// Train uploads the dataset and returns the service's results as-is
func (s *trainingService) Train(ctx context.Context, req *models.TrainRequest) (json.RawMessage, error) {
	if req.CSV == nil {
		return nil, apperrors.ClientInput("kfold, epoch, and csv file are required")
	}
	if req.Epochs <= 0 || req.KFolds <= 0 {
		return nil, apperrors.ClientInput("epoch and kfold must be positive integers")
	}

	s.log.Info().
		Str("file", req.FileName).
		Int("epochs", req.Epochs).
		Int("kfolds", req.KFolds).
		Msg("Starting training run")

	results, err := s.inference.Train(ctx, req)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("file", req.FileName).Msg("Training run completed")
	return results, nil
}
