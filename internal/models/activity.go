package models

import (
	"time"
)

// Default values for activity log entries
const (
	DefaultInputSource      = "Manual input"
	DefaultPredictionsCount = 1
	ActivityLogLimit        = 100
)

// ActivityLogEntry records that predictions were made with a model
type ActivityLogEntry struct {
	ID               string    `json:"_id" db:"id"`
	Timestamp        time.Time `json:"timestamp" db:"timestamp"`
	ModelName        string    `json:"modelName" db:"model_name"`
	InputSource      string    `json:"inputSource" db:"input_source"`
	PredictionsCount int       `json:"predictionsCount" db:"predictions_count"`
	UserID           string    `json:"userId,omitempty" db:"user_id"`
}
