package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/JaeTrim/Traffic-AI/internal/database"
	"github.com/JaeTrim/Traffic-AI/internal/models"
	"github.com/lib/pq"
)

// ErrDuplicate is returned when a unique constraint rejects a write
var ErrDuplicate = errors.New("duplicate record")

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	List(ctx context.Context) ([]*models.User, error)
	UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error)
	Count(ctx context.Context) (int, error)
}

// ModelRepository defines the interface for model registry operations
type ModelRepository interface {
	Create(ctx context.Context, model *models.Model) error
	GetByID(ctx context.Context, id string) (*models.Model, error)
	List(ctx context.Context) ([]*models.Model, error)
	Update(ctx context.Context, id string, update *models.ModelUpdate) (*models.Model, error)
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// CollectionRepository defines the interface for prediction collection operations
type CollectionRepository interface {
	Create(ctx context.Context, collection *models.PredictionCollection) error
	GetByID(ctx context.Context, id string) (*models.PredictionCollection, error)
	ListByUser(ctx context.Context, userID string) ([]*models.PredictionCollection, error)
	Delete(ctx context.Context, id, userID string) (bool, error)
	AppendPredictions(ctx context.Context, id string, predictions []models.Prediction, csvFilePath string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// ActivityRepository defines the interface for activity log operations
type ActivityRepository interface {
	Create(ctx context.Context, entry *models.ActivityLogEntry) error
	ListRecent(ctx context.Context, limit int) ([]*models.ActivityLogEntry, error)
	DeleteAll(ctx context.Context) error
}

// Repositories holds all repository interfaces
type Repositories struct {
	User       UserRepository
	Model      ModelRepository
	Collection CollectionRepository
	Activity   ActivityRepository
}

// connSource yields the shared database handle
type connSource interface {
	Conn(ctx context.Context) (*database.DB, error)
}

// New creates all repositories on top of the shared connection provider
func New(db *database.Provider) *Repositories {
	return &Repositories{
		User:       NewUserRepo(db),
		Model:      NewModelRepo(db),
		Collection: NewCollectionRepo(db),
		Activity:   NewActivityRepo(db),
	}
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// helper to convert empty string to NULL
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
