package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/JaeTrim/Traffic-AI/internal/models"
	"github.com/JaeTrim/Traffic-AI/internal/repository"
)

var (
	_ repository.UserRepository       = (*MockUserRepository)(nil)
	_ repository.ModelRepository      = (*MockModelRepository)(nil)
	_ repository.CollectionRepository = (*MockCollectionRepository)(nil)
	_ repository.ActivityRepository   = (*MockActivityRepository)(nil)
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	Users       map[string]*models.User
	InsertError error
	GetError    error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{Users: make(map[string]*models.User)}
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	if taken, _ := m.UsernameTaken(ctx, user.Username); taken {
		return repository.ErrDuplicate
	}
	m.Users[user.ID] = user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	return m.Users[id], nil
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	for _, u := range m.Users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (m *MockUserRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	if m.GetError != nil {
		return false, m.GetError
	}
	for _, u := range m.Users {
		if strings.EqualFold(u.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockUserRepository) List(ctx context.Context) ([]*models.User, error) {
	users := make([]*models.User, 0, len(m.Users))
	for _, u := range m.Users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (m *MockUserRepository) UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	u, ok := m.Users[id]
	if !ok {
		return nil, nil
	}
	u.Role = role
	return u, nil
}

func (m *MockUserRepository) Count(ctx context.Context) (int, error) {
	return len(m.Users), nil
}

// MockModelRepository is a mock implementation of ModelRepository
type MockModelRepository struct {
	Models      map[string]*models.Model
	InsertError error
	UpdateError error
	GetError    error
}

func NewMockModelRepository() *MockModelRepository {
	return &MockModelRepository{Models: make(map[string]*models.Model)}
}

func (m *MockModelRepository) Create(ctx context.Context, model *models.Model) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	m.Models[model.ID] = model
	return nil
}

func (m *MockModelRepository) GetByID(ctx context.Context, id string) (*models.Model, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	return m.Models[id], nil
}

func (m *MockModelRepository) List(ctx context.Context) ([]*models.Model, error) {
	list := make([]*models.Model, 0, len(m.Models))
	for _, model := range m.Models {
		list = append(list, model)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (m *MockModelRepository) Update(ctx context.Context, id string, update *models.ModelUpdate) (*models.Model, error) {
	if m.UpdateError != nil {
		return nil, m.UpdateError
	}
	model, ok := m.Models[id]
	if !ok {
		return nil, nil
	}
	updated := *model
	if update.Name != nil {
		updated.Name = *update.Name
	}
	if update.InputFields != nil {
		updated.InputFields = update.InputFields
	}
	if update.FilePath != nil {
		updated.FilePath = *update.FilePath
	}
	m.Models[id] = &updated
	return &updated, nil
}

func (m *MockModelRepository) Delete(ctx context.Context, id string) (bool, error) {
	if _, ok := m.Models[id]; !ok {
		return false, nil
	}
	delete(m.Models, id)
	return true, nil
}

func (m *MockModelRepository) Count(ctx context.Context) (int, error) {
	return len(m.Models), nil
}

// MockCollectionRepository is a mock implementation of CollectionRepository.
// AppendPredictions is atomic under mu, like the single UPDATE it stands in for.
type MockCollectionRepository struct {
	mu          sync.Mutex
	Collections map[string]*models.PredictionCollection
	InsertError error
	AppendError error
	AppendCalls int
}

func NewMockCollectionRepository() *MockCollectionRepository {
	return &MockCollectionRepository{Collections: make(map[string]*models.PredictionCollection)}
}

func (m *MockCollectionRepository) Create(ctx context.Context, collection *models.PredictionCollection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertError != nil {
		return m.InsertError
	}
	for _, c := range m.Collections {
		if c.UserID == collection.UserID && c.CollectionName == collection.CollectionName {
			return repository.ErrDuplicate
		}
	}
	m.Collections[collection.ID] = collection
	return nil
}

func (m *MockCollectionRepository) GetByID(ctx context.Context, id string) (*models.PredictionCollection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Collections[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.Predictions = append([]models.Prediction{}, c.Predictions...)
	return &cp, nil
}

func (m *MockCollectionRepository) ListByUser(ctx context.Context, userID string) ([]*models.PredictionCollection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*models.PredictionCollection
	for _, c := range m.Collections {
		if c.UserID == userID {
			list = append(list, c)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (m *MockCollectionRepository) Delete(ctx context.Context, id, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Collections[id]
	if !ok || c.UserID != userID {
		return false, nil
	}
	delete(m.Collections, id)
	return true, nil
}

func (m *MockCollectionRepository) AppendPredictions(ctx context.Context, id string, predictions []models.Prediction, csvFilePath string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppendCalls++
	if m.AppendError != nil {
		return false, m.AppendError
	}
	c, ok := m.Collections[id]
	if !ok {
		return false, nil
	}
	c.Predictions = append(c.Predictions, predictions...)
	if csvFilePath != "" {
		c.CSVFilePath = csvFilePath
	}
	return true, nil
}

func (m *MockCollectionRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Collections), nil
}

// MockActivityRepository is a mock implementation of ActivityRepository
type MockActivityRepository struct {
	mu          sync.Mutex
	Entries     []*models.ActivityLogEntry
	InsertError error
}

func NewMockActivityRepository() *MockActivityRepository {
	return &MockActivityRepository{}
}

func (m *MockActivityRepository) Create(ctx context.Context, entry *models.ActivityLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertError != nil {
		return m.InsertError
	}
	m.Entries = append(m.Entries, entry)
	return nil
}

func (m *MockActivityRepository) ListRecent(ctx context.Context, limit int) ([]*models.ActivityLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ActivityLogEntry
	for i := len(m.Entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.Entries[i])
	}
	return out, nil
}

func (m *MockActivityRepository) DeleteAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = nil
	return nil
}

// NewMockRepositories wires a fresh set of mock repositories
func NewMockRepositories() (*repository.Repositories, *MockUserRepository, *MockModelRepository, *MockCollectionRepository, *MockActivityRepository) {
	users := NewMockUserRepository()
	modelRepo := NewMockModelRepository()
	collections := NewMockCollectionRepository()
	activity := NewMockActivityRepository()
	return &repository.Repositories{
		User:       users,
		Model:      modelRepo,
		Collection: collections,
		Activity:   activity,
	}, users, modelRepo, collections, activity
}
