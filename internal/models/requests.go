package models

import (
	"io"
)

// CSVPredictionRequest is a batch prediction submission from an uploaded CSV
type CSVPredictionRequest struct {
	CollectionID      string
	ModelID           string
	UserID            string
	FileName          string
	CSV               io.Reader
	ApplyLogTransform bool
}

// SinglePredictionRequest is a manual prediction with one value per model field.
// LogTransform is a pointer so an absent flag can be told apart from false.
type SinglePredictionRequest struct {
	CollectionID string                 `json:"collectionId"`
	ModelID      string                 `json:"modelId"`
	UserID       string                 `json:"userId,omitempty"`
	Inputs       map[string]interface{} `json:"inputs"`
	LogTransform *bool                  `json:"logTransform"`
}

// AddPredictionsRequest appends already computed predictions to a collection
type AddPredictionsRequest struct {
	NewPredictions []Prediction `json:"newPredictions"`
}

// CreateCollectionRequest is the body of a collection creation
type CreateCollectionRequest struct {
	CollectionName string `json:"collectionName"`
}

// CreateModelRequest describes an uploaded model artifact
type CreateModelRequest struct {
	Name        string
	InputFields []string
	FileName    string
	File        io.Reader
	CreatedBy   string
}

// UpdateModelRequest describes a model edit; File is optional
type UpdateModelRequest struct {
	Name        *string
	InputFields []string
	FileName    string
	File        io.Reader
}

// TrainRequest forwards a training dataset to the inference service
type TrainRequest struct {
	FileName string
	CSV      io.Reader
	Epochs   int
	KFolds   int
}

// LogActivityRequest is the body of an activity log submission
type LogActivityRequest struct {
	ModelName        string `json:"modelName"`
	InputSource      string `json:"inputSource,omitempty"`
	PredictionsCount int    `json:"predictionsCount,omitempty"`
	UserID           string `json:"userId,omitempty"`
}

// RoleChangeRequest names the target of a promotion or revocation
type RoleChangeRequest struct {
	Username string `json:"username,omitempty"`
	UserID   string `json:"userId,omitempty"`
}

// CSVPredictionResult is returned after a successful batch submission
type CSVPredictionResult struct {
	Message     string       `json:"message"`
	Predictions []Prediction `json:"predictions"`
}

// Claims is the verified identity carried by a signed token
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}
