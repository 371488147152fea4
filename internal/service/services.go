package service

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/JaeTrim/Traffic-AI/internal/auth"
	"github.com/JaeTrim/Traffic-AI/internal/config"
	"github.com/JaeTrim/Traffic-AI/internal/metrics"
	"github.com/JaeTrim/Traffic-AI/internal/models"
	"github.com/JaeTrim/Traffic-AI/internal/repository"
	"github.com/rs/zerolog"
)

// AuthService defines the interface for account and token operations
type AuthService interface {
	Register(ctx context.Context, creds *models.Credentials) (string, error)
	Login(ctx context.Context, creds *models.Credentials) (string, error)
	VerifyToken(ctx context.Context, token string) (*models.Claims, error)
	CurrentUser(ctx context.Context, userID string) (*models.User, error)
}

// UserService defines the interface for user administration
type UserService interface {
	List(ctx context.Context) ([]*models.User, error)
	Promote(ctx context.Context, username string) (*models.User, error)
	Revoke(ctx context.Context, callerID, userID string) (*models.User, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// ModelService defines the interface for the model registry
type ModelService interface {
	Create(ctx context.Context, req *models.CreateModelRequest) (*models.Model, error)
	List(ctx context.Context) ([]*models.Model, error)
	Get(ctx context.Context, id string) (*models.Model, error)
	Update(ctx context.Context, id string, req *models.UpdateModelRequest) (*models.Model, error)
	Delete(ctx context.Context, id string) error
}

// CollectionService defines the interface for prediction collections
type CollectionService interface {
	List(ctx context.Context, userID string) ([]*models.PredictionCollection, error)
	Create(ctx context.Context, userID string, req *models.CreateCollectionRequest) (*models.PredictionCollection, error)
	Get(ctx context.Context, id, userID string) (*models.PredictionCollection, error)
	Delete(ctx context.Context, id, userID string) error
	AddPredictions(ctx context.Context, id, userID string, predictions []models.Prediction) (int, error)
	Export(ctx context.Context, w http.ResponseWriter, id, userID, format string) error
}

// PredictionService defines the interface for running predictions
type PredictionService interface {
	PredictCSV(ctx context.Context, req *models.CSVPredictionRequest) (*models.CSVPredictionResult, error)
	PredictSingle(ctx context.Context, req *models.SinglePredictionRequest) (*models.Prediction, error)
}

// TrainingService defines the interface for model training
type TrainingService interface {
	Train(ctx context.Context, req *models.TrainRequest) (json.RawMessage, error)
}

// ActivityService defines the interface for the activity log
type ActivityService interface {
	Log(ctx context.Context, req *models.LogActivityRequest) (*models.ActivityLogEntry, error)
	Recent(ctx context.Context) ([]*models.ActivityLogEntry, error)
	Clear(ctx context.Context) error
}

// StatsService reports record counts
type StatsService interface {
	Counts(ctx context.Context) (map[string]int, error)
}

// InferenceClient is the external inference service as the services see it
type InferenceClient interface {
	PredictBatch(ctx context.Context, artifact string, rows []models.OrderedRow, applyLog bool) ([]float64, error)
	PredictSingle(ctx context.Context, artifact string, row models.OrderedRow, logTransform bool) (float64, error)
	Train(ctx context.Context, req *models.TrainRequest) (json.RawMessage, error)
}

// Services holds all service interfaces
type Services struct {
	Auth       AuthService
	User       UserService
	Model      ModelService
	Collection CollectionService
	Prediction PredictionService
	Training   TrainingService
	Activity   ActivityService
	Stats      StatsService
}

// Deps are the collaborators shared by the services
type Deps struct {
	Repos     *repository.Repositories
	Inference InferenceClient
	Tokens    *auth.TokenManager
	Metrics   *metrics.Metrics
	Config    *config.Config
}

// NewServices creates all services
func NewServices(deps Deps, log zerolog.Logger) *Services {
	activitySvc := newActivityService(deps.Repos.Activity, log)

	return &Services{
		Auth:       newAuthService(deps.Repos.User, deps.Tokens, deps.Config.Auth, log),
		User:       newUserService(deps.Repos.User, log),
		Model:      newModelService(deps.Repos.Model, deps.Config.Storage, log),
		Collection: newCollectionService(deps.Repos.Collection, deps.Metrics, log),
		Prediction: newPredictionService(deps.Repos, deps.Inference, activitySvc, deps.Metrics, deps.Config.Storage.UploadDir, log),
		Training:   newTrainingService(deps.Inference, log),
		Activity:   activitySvc,
		Stats:      newStatsService(deps.Repos),
	}
}
