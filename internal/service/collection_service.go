package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/JaeTrim/Traffic-AI/internal/apperrors"
	"github.com/JaeTrim/Traffic-AI/internal/metrics"
	"github.com/JaeTrim/Traffic-AI/internal/models"
	"github.com/JaeTrim/Traffic-AI/internal/repository"
	"github.com/JaeTrim/Traffic-AI/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// collectionService is the concrete implementation of CollectionService
type collectionService struct {
	collections repository.CollectionRepository
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

func newCollectionService(repo repository.CollectionRepository, m *metrics.Metrics, log zerolog.Logger) *collectionService {
	return &collectionService{
		collections: repo,
		metrics:     m,
		log:         log.With().Str("service", "collections").Logger(),
	}
}

// List returns the user's collections, newest first
func (s *collectionService) List(ctx context.Context, userID string) ([]*models.PredictionCollection, error) {
	list, err := s.collections.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Persistence("Error fetching prediction collections", err)
	}
	if list == nil {
		list = []*models.PredictionCollection{}
	}
	return list, nil
}

// Create makes an empty collection; names are unique per user
func (s *collectionService) Create(ctx context.Context, userID string, req *models.CreateCollectionRequest) (*models.PredictionCollection, error) {
	name := strings.TrimSpace(req.CollectionName)
	if name == "" {
		return nil, apperrors.ClientInput("collectionName is required")
	}

	collection := &models.PredictionCollection{
		ID:             uuid.New().String(),
		CollectionName: name,
		UserID:         userID,
		Predictions:    []models.Prediction{},
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.collections.Create(ctx, collection); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("Collection name already exists. Please choose a different name.")
		}
		return nil, apperrors.Persistence("Error creating prediction collection", err)
	}

	s.log.Info().Str("collection_id", collection.ID).Str("user_id", userID).Msg("Collection created")
	return collection, nil
}

// Get returns a collection owned by userID
func (s *collectionService) Get(ctx context.Context, id, userID string) (*models.PredictionCollection, error) {
	return loadOwnedCollection(ctx, s.collections, id, userID)
}

// Delete removes a collection owned by userID
func (s *collectionService) Delete(ctx context.Context, id, userID string) error {
	if !validation.IsValidUUID(id) {
		return apperrors.ClientInput("Invalid collection ID")
	}
	deleted, err := s.collections.Delete(ctx, id, userID)
	if err != nil {
		return apperrors.Persistence("Error deleting prediction collection", err)
	}
	if !deleted {
		return apperrors.NotFound("Collection not found or not owned by user")
	}
	s.log.Info().Str("collection_id", id).Msg("Collection deleted")
	return nil
}

// AddPredictions appends already computed predictions to a collection
func (s *collectionService) AddPredictions(ctx context.Context, id, userID string, predictions []models.Prediction) (int, error) {
	if _, err := loadOwnedCollection(ctx, s.collections, id, userID); err != nil {
		return 0, err
	}
	if len(predictions) == 0 {
		return 0, apperrors.ClientInput("newPredictions must be a non-empty array")
	}

	now := time.Now().UTC()
	for i := range predictions {
		p := &predictions[i]
		if p.SourceType == "" {
			p.SourceType = models.SourceManual
		}
		if !models.ValidSourceTypes[p.SourceType] {
			return 0, apperrors.ClientInput("sourceType must be one of: manual, csv")
		}
		if p.Inputs == nil {
			p.Inputs = []models.InputPair{}
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
	}

	found, err := s.collections.AppendPredictions(ctx, id, predictions, "")
	if err != nil {
		return 0, apperrors.Persistence("Error adding predictions", err)
	}
	if !found {
		return 0, apperrors.NotFound("PredictionCollection not found")
	}

	bySource := make(map[models.SourceType]int)
	for _, p := range predictions {
		bySource[p.SourceType]++
	}
	for source, n := range bySource {
		s.metrics.RecordPredictions(string(source), n)
	}
	return len(predictions), nil
}

// loadOwnedCollection reports collections owned by someone else as not found
func loadOwnedCollection(ctx context.Context, repo repository.CollectionRepository, id, userID string) (*models.PredictionCollection, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.ClientInput("collectionId is required")
	}
	if !validation.IsValidUUID(id) {
		return nil, apperrors.ClientInput("Invalid collection ID")
	}
	collection, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Persistence("Error fetching prediction collection", err)
	}
	if collection == nil || collection.UserID != userID {
		return nil, apperrors.NotFound("Collection not found")
	}
	return collection, nil
}
