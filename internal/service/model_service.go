package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/JaeTrim/Traffic-AI/internal/apperrors"
	"github.com/JaeTrim/Traffic-AI/internal/config"
	"github.com/JaeTrim/Traffic-AI/internal/models"
	"github.com/JaeTrim/Traffic-AI/internal/repository"
	"github.com/JaeTrim/Traffic-AI/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Artifacts are referenced by the inference service as /models/<file name>
const artifactPrefix = "/models/"

// modelService is the concrete implementation of ModelService
type modelService struct {
	models    repository.ModelRepository
	modelsDir string
	log       zerolog.Logger
}

func newModelService(repo repository.ModelRepository, cfg config.StorageConfig, log zerolog.Logger) *modelService {
	return &modelService{
		models:    repo,
		modelsDir: cfg.ModelsDir,
		log:       log.With().Str("service", "models").Logger(),
	}
}

// Create stores the uploaded artifact under its original file name and registers it
func (s *modelService) Create(ctx context.Context, req *models.CreateModelRequest) (*models.Model, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.File == nil || req.FileName == "" {
		return nil, apperrors.ClientInput("Name, inputFields, and model file are required")
	}
	fields, err := validation.NormalizeFields(req.InputFields)
	if err != nil {
		return nil, err
	}

	artifact, err := s.saveArtifact(req.FileName, req.File, "")
	if err != nil {
		return nil, err
	}
	fileName := artifact.name

	model := &models.Model{
		ID:          uuid.New().String(),
		Name:        name,
		FilePath:    artifactPrefix + fileName,
		InputFields: fields,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.models.Create(ctx, model); err != nil {
		s.rollbackArtifact(artifact)
		return nil, apperrors.Persistence("Error uploading model", err)
	}
	s.commitArtifact(artifact)

	s.log.Info().
		Str("model_id", model.ID).
		Str("file", fileName).
		Strs("input_fields", fields).
		Msg("Model registered")

	return model, nil
}

// List returns every registered model
func (s *modelService) List(ctx context.Context) ([]*models.Model, error) {
	list, err := s.models.List(ctx)
	if err != nil {
		return nil, apperrors.Persistence("Error fetching models", err)
	}
	if list == nil {
		list = []*models.Model{}
	}
	return list, nil
}

// Get returns one model
func (s *modelService) Get(ctx context.Context, id string) (*models.Model, error) {
	if !validation.IsValidUUID(id) {
		return nil, apperrors.ClientInput("Invalid model ID")
	}
	model, err := s.models.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Persistence("Error fetching model", err)
	}
	if model == nil {
		return nil, apperrors.NotFound("Model not found")
	}
	return model, nil
}

// Update edits a model's name, input fields or artifact. Predictions already
// stored under the previous input fields are left as they are.
func (s *modelService) Update(ctx context.Context, id string, req *models.UpdateModelRequest) (*models.Model, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	update := &models.ModelUpdate{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperrors.ClientInput("Model name cannot be empty")
		}
		update.Name = &name
	}
	if req.InputFields != nil {
		fields, err := validation.NormalizeFields(req.InputFields)
		if err != nil {
			return nil, err
		}
		update.InputFields = fields
	}

	if update.Empty() && req.File == nil {
		return nil, apperrors.ClientInput("No valid fields provided for update")
	}

	var artifact *placedArtifact
	var newFile string
	if req.File != nil {
		// Only this model's own artifact may be overwritten in place
		artifact, err = s.saveArtifact(req.FileName, req.File, existing.ArtifactName())
		if err != nil {
			return nil, err
		}
		newFile = artifact.name
		filePath := artifactPrefix + newFile
		update.FilePath = &filePath
	}

	updated, err := s.models.Update(ctx, id, update)
	if err != nil {
		s.rollbackArtifact(artifact)
		return nil, apperrors.Persistence("Error updating model", err)
	}
	if updated == nil {
		s.rollbackArtifact(artifact)
		return nil, apperrors.NotFound("Model not found")
	}
	s.commitArtifact(artifact)

	// The replaced artifact is only removed once nothing points at it
	if newFile != "" && existing.ArtifactName() != newFile {
		s.removeArtifact(existing.ArtifactName())
	}

	s.log.Info().Str("model_id", id).Msg("Model updated")
	return updated, nil
}

// Delete unregisters a model and removes its artifact
func (s *modelService) Delete(ctx context.Context, id string) error {
	model, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	deleted, err := s.models.Delete(ctx, id)
	if err != nil {
		return apperrors.Persistence("Error deleting model", err)
	}
	if !deleted {
		return apperrors.NotFound("Model not found")
	}

	s.removeArtifact(model.ArtifactName())
	s.log.Info().Str("model_id", id).Msg("Model deleted")
	return nil
}

// placedArtifact is an upload already moved to its final name. Until it is
// committed, rolling back removes it and restores the file it replaced.
type placedArtifact struct {
	name   string
	path   string
	backup string
}

// saveArtifact writes the upload into the models directory, keeping its base
// name. An existing file of that name is a conflict unless it is replaceable.
func (s *modelService) saveArtifact(fileName string, r io.Reader, replaceable string) (*placedArtifact, error) {
	base := path.Base(filepath.ToSlash(strings.TrimSpace(fileName)))
	if base == "." || base == "/" || base == ".." || base == "" || strings.HasPrefix(base, ".") {
		return nil, apperrors.ClientInput("Invalid model file name")
	}

	if err := os.MkdirAll(s.modelsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create models directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.modelsDir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, apperrors.Wrap(apperrors.KindClientInput, "Failed to read model file", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	placed := &placedArtifact{name: base, path: filepath.Join(s.modelsDir, base)}
	if base == replaceable {
		backup := filepath.Join(s.modelsDir, ".replaced-"+uuid.New().String())
		err := os.Rename(placed.path, backup)
		switch {
		case err == nil:
			placed.backup = backup
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("set aside model file: %w", err)
		}
	}

	// Link never clobbers, so two models cannot end up sharing one file
	if err := os.Link(tmp.Name(), placed.path); err != nil {
		if placed.backup != "" {
			if rerr := os.Rename(placed.backup, placed.path); rerr != nil {
				s.log.Error().Err(rerr).Str("file", base).Msg("Failed to restore model file")
			}
		}
		if errors.Is(err, fs.ErrExist) {
			return nil, apperrors.Conflict(fmt.Sprintf("A model file named %s already exists", base))
		}
		return nil, fmt.Errorf("store model file: %w", err)
	}
	return placed, nil
}

// rollbackArtifact undoes saveArtifact after the registry write failed
func (s *modelService) rollbackArtifact(a *placedArtifact) {
	if a == nil {
		return
	}
	if err := os.Remove(a.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Error().Err(err).Str("file", a.name).Msg("Failed to remove unregistered model file")
	}
	if a.backup != "" {
		if err := os.Rename(a.backup, a.path); err != nil {
			s.log.Error().Err(err).Str("file", a.name).Msg("Failed to restore model file")
		}
	}
}

func (s *modelService) commitArtifact(a *placedArtifact) {
	if a == nil || a.backup == "" {
		return
	}
	if err := os.Remove(a.backup); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Warn().Err(err).Str("file", a.backup).Msg("Failed to remove replaced model file")
	}
}

func (s *modelService) removeArtifact(name string) {
	err := os.Remove(filepath.Join(s.modelsDir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Error().Err(err).Str("file", name).Msg("Failed to delete model file")
	} else if err != nil {
		s.log.Warn().Str("file", name).Msg("Model file already missing")
	}
}
