package models

import (
	"path"
	"time"
)

// Model is the registry entry for an uploaded predictive model artifact.
// InputFields order defines the positional mapping sent to the inference service.
type Model struct {
	ID          string    `json:"_id" db:"id"`
	Name        string    `json:"name" db:"name"`
	FilePath    string    `json:"filePath" db:"file_path"`
	InputFields []string  `json:"inputFields" db:"input_fields"`
	CreatedBy   string    `json:"createdBy" db:"created_by"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// ArtifactName is the on-disk file name the inference service knows the model by
func (m *Model) ArtifactName() string {
	return path.Base(m.FilePath)
}

// ModelUpdate carries the optional fields of a model edit
type ModelUpdate struct {
	Name        *string
	InputFields []string
	FilePath    *string
}

// Empty reports whether the update changes nothing
func (u *ModelUpdate) Empty() bool {
	return u.Name == nil && u.InputFields == nil && u.FilePath == nil
}
