package service_test

import (
	"context"
	"errors"
	"time"

	"github.com/JaeTrim/Traffic-AI/internal/auth"
	"github.com/JaeTrim/Traffic-AI/internal/config"
	"github.com/JaeTrim/Traffic-AI/internal/mocks"
	"github.com/JaeTrim/Traffic-AI/internal/models"
	"github.com/JaeTrim/Traffic-AI/internal/service"
	"github.com/rs/zerolog"
)

const (
	ownerID      = "11111111-1111-1111-1111-111111111111"
	otherUserID  = "22222222-2222-2222-2222-222222222222"
	collectionID = "33333333-3333-3333-3333-333333333333"
	modelID      = "44444444-4444-4444-4444-444444444444"
)

var errDB = errors.New("connection reset by peer")

// fixture bundles services over mock repositories and a mock inference client
type fixture struct {
	svc         *service.Services
	users       *mocks.MockUserRepository
	models      *mocks.MockModelRepository
	collections *mocks.MockCollectionRepository
	activity    *mocks.MockActivityRepository
	inference   *mocks.MockInferenceClient
	tokens      *auth.TokenManager
	modelsDir   string
}

func newFixture(modelsDir string) *fixture {
	return newFixtureWithStorage(config.StorageConfig{ModelsDir: modelsDir})
}

func newFixtureWithStorage(storage config.StorageConfig) *fixture {
	repos, users, modelRepo, collections, activity := mocks.NewMockRepositories()
	inference := mocks.NewMockInferenceClient()
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	cfg := &config.Config{
		Auth:    config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour, BcryptCost: 4},
		Storage: storage,
	}

	svc := service.NewServices(service.Deps{
		Repos:     repos,
		Inference: inference,
		Tokens:    tokens,
		Config:    cfg,
	}, zerolog.Nop())

	return &fixture{
		svc:         svc,
		users:       users,
		models:      modelRepo,
		collections: collections,
		activity:    activity,
		inference:   inference,
		tokens:      tokens,
		modelsDir:   storage.ModelsDir,
	}
}

// seed adds a speed/lanes model and an empty collection owned by ownerID
func (f *fixture) seed() {
	f.models.Create(context.Background(), &models.Model{
		ID:          modelID,
		Name:        "Speed model",
		FilePath:    "/models/speed_v1.keras",
		InputFields: []string{"speed", "lanes"},
		CreatedBy:   ownerID,
		CreatedAt:   time.Now(),
	})
	f.collections.Create(context.Background(), &models.PredictionCollection{
		ID:             collectionID,
		CollectionName: "I-81 corridor",
		UserID:         ownerID,
		Predictions:    []models.Prediction{},
		CreatedAt:      time.Now(),
	})
}

func (f *fixture) storedPredictions() []models.Prediction {
	c, _ := f.collections.GetByID(context.Background(), collectionID)
	if c == nil {
		return nil
	}
	return c.Predictions
}
