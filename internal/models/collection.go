package models

import (
	"time"
)

// SourceType tells manually entered predictions apart from CSV batch ones
type SourceType string

const (
	SourceManual SourceType = "manual"
	SourceCSV    SourceType = "csv"
)

// InputPair is one labelled feature value of a prediction
type InputPair struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// Prediction is a single stored inference result, embedded in a collection
type Prediction struct {
	ModelID    string      `json:"modelId,omitempty"`
	Inputs     []InputPair `json:"inputs"`
	Result     float64     `json:"result"`
	SourceType SourceType  `json:"sourceType"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// ValidSourceTypes defines allowed prediction source types
var ValidSourceTypes = map[SourceType]bool{
	SourceManual: true,
	SourceCSV:    true,
}

// PredictionCollection is a named, user-owned list of predictions
type PredictionCollection struct {
	ID             string       `json:"_id" db:"id"`
	CollectionName string       `json:"collectionName" db:"collection_name"`
	UserID         string       `json:"userId" db:"user_id"`
	Predictions    []Prediction `json:"predictions" db:"predictions"`
	CSVFilePath    string       `json:"csvFilePath,omitempty" db:"csv_file_path"`
	CreatedAt      time.Time    `json:"createdAt" db:"created_at"`
}
