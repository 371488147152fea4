package service

import (
	"context"
	"strings"
	"time"

	"github.com/JaeTrim/Traffic-AI/internal/apperrors"
	"github.com/JaeTrim/Traffic-AI/internal/models"
	"github.com/JaeTrim/Traffic-AI/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// activityService is the concrete implementation of ActivityService
type activityService struct {
	entries repository.ActivityRepository
	log     zerolog.Logger
}

func newActivityService(repo repository.ActivityRepository, log zerolog.Logger) *activityService {
	return &activityService{
		entries: repo,
		log:     log.With().Str("service", "activity").Logger(),
	}
}

// Log appends an entry, filling in the default source and count
func (s *activityService) Log(ctx context.Context, req *models.LogActivityRequest) (*models.ActivityLogEntry, error) {
	modelName := strings.TrimSpace(req.ModelName)
	if modelName == "" {
		return nil, apperrors.ClientInput("Missing required field: modelName")
	}
	if req.PredictionsCount < 0 {
		return nil, apperrors.ClientInput("predictionsCount must not be negative")
	}

	entry := &models.ActivityLogEntry{
		ID:               uuid.New().String(),
		Timestamp:        time.Now().UTC(),
		ModelName:        modelName,
		InputSource:      strings.TrimSpace(req.InputSource),
		PredictionsCount: req.PredictionsCount,
		UserID:           req.UserID,
	}
	if entry.InputSource == "" {
		entry.InputSource = models.DefaultInputSource
	}
	if entry.PredictionsCount == 0 {
		entry.PredictionsCount = models.DefaultPredictionsCount
	}

	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, apperrors.Persistence("Failed to log prediction", err)
	}
	return entry, nil
}

// Recent returns the newest entries first
func (s *activityService) Recent(ctx context.Context) ([]*models.ActivityLogEntry, error) {
	entries, err := s.entries.ListRecent(ctx, models.ActivityLogLimit)
	if err != nil {
		return nil, apperrors.Persistence("Failed to fetch logs", err)
	}
	if entries == nil {
		entries = []*models.ActivityLogEntry{}
	}
	return entries, nil
}

// Clear deletes every entry
func (s *activityService) Clear(ctx context.Context) error {
	if err := s.entries.DeleteAll(ctx); err != nil {
		return apperrors.Persistence("Failed to clear logs", err)
	}
	s.log.Info().Msg("Activity log cleared")
	return nil
}
