package repository

import (
	"context"
	"database/sql"

	"github.com/JaeTrim/Traffic-AI/internal/models"
)

// activityRepo is the concrete implementation of ActivityRepository
type activityRepo struct {
	db connSource
}

// NewActivityRepo creates a new activity log repository
func NewActivityRepo(db connSource) ActivityRepository {
	return &activityRepo{db: db}
}

// Create inserts a log entry
func (r *activityRepo) Create(ctx context.Context, entry *models.ActivityLogEntry) error {
	db, err := r.db.Conn(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO activity_log (id, timestamp, model_name, input_source, predictions_count, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = db.ExecContext(ctx, query,
		entry.ID, entry.Timestamp, entry.ModelName, entry.InputSource,
		entry.PredictionsCount, nullString(entry.UserID),
	)
	return err
}

// ListRecent returns the newest entries first
func (r *activityRepo) ListRecent(ctx context.Context, limit int) ([]*models.ActivityLogEntry, error) {
	db, err := r.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, timestamp, model_name, input_source, predictions_count, user_id
		FROM activity_log ORDER BY timestamp DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.ActivityLogEntry
	for rows.Next() {
		var e models.ActivityLogEntry
		var userID sql.NullString
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.ModelName, &e.InputSource, &e.PredictionsCount, &userID); err != nil {
			return nil, err
		}
		e.UserID = userID.String
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// DeleteAll clears the log
func (r *activityRepo) DeleteAll(ctx context.Context) error {
	db, err := r.db.Conn(ctx)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `DELETE FROM activity_log`)
	return err
}
