package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/JaeTrim/Traffic-AI/internal/models"
)

// collectionRepo is the concrete implementation of CollectionRepository.
// Predictions live in a JSONB array column on the collection row.
type collectionRepo struct {
	db connSource
}

// NewCollectionRepo creates a new collection repository
func NewCollectionRepo(db connSource) CollectionRepository {
	return &collectionRepo{db: db}
}

const collectionColumns = `id, collection_name, user_id, predictions, csv_file_path, created_at`

func scanCollection(row rowScanner) (*models.PredictionCollection, error) {
	var c models.PredictionCollection
	var raw []byte
	var csvPath sql.NullString
	if err := row.Scan(&c.ID, &c.CollectionName, &c.UserID, &raw, &csvPath, &c.CreatedAt); err != nil {
		return nil, err
	}
	predictions, err := decodePredictions(raw)
	if err != nil {
		return nil, err
	}
	c.Predictions = predictions
	c.CSVFilePath = csvPath.String
	return &c, nil
}

// Create inserts a new collection; a name already used by the owner yields ErrDuplicate
func (r *collectionRepo) Create(ctx context.Context, collection *models.PredictionCollection) error {
	db, err := r.db.Conn(ctx)
	if err != nil {
		return err
	}

	raw, err := encodePredictions(collection.Predictions)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO prediction_collections (id, collection_name, user_id, predictions, csv_file_path, created_at)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6)
	`
	_, err = db.ExecContext(ctx, query,
		collection.ID, collection.CollectionName, collection.UserID, string(raw),
		nullString(collection.CSVFilePath), collection.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetByID retrieves a collection by ID
func (r *collectionRepo) GetByID(ctx context.Context, id string) (*models.PredictionCollection, error) {
	db, err := r.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	c, err := scanCollection(db.QueryRowContext(ctx,
		`SELECT `+collectionColumns+` FROM prediction_collections WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// ListByUser returns a user's collections, newest first
func (r *collectionRepo) ListByUser(ctx context.Context, userID string) ([]*models.PredictionCollection, error) {
	db, err := r.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+collectionColumns+` FROM prediction_collections WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*models.PredictionCollection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// Delete removes a collection owned by userID, reporting whether it existed
func (r *collectionRepo) Delete(ctx context.Context, id, userID string) (bool, error) {
	db, err := r.db.Conn(ctx)
	if err != nil {
		return false, err
	}

	result, err := db.ExecContext(ctx,
		`DELETE FROM prediction_collections WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// AppendPredictions pushes predictions onto the end of the collection's list in
// one statement, so concurrent appends never overwrite each other. A non-empty
// csvFilePath replaces the collection's recorded source file in the same write.
func (r *collectionRepo) AppendPredictions(ctx context.Context, id string, predictions []models.Prediction, csvFilePath string) (bool, error) {
	if len(predictions) == 0 {
		return true, nil
	}

	db, err := r.db.Conn(ctx)
	if err != nil {
		return false, err
	}

	raw, err := encodePredictions(predictions)
	if err != nil {
		return false, err
	}

	result, err := db.ExecContext(ctx, `
		UPDATE prediction_collections
		SET predictions = predictions || $1::jsonb,
		    csv_file_path = COALESCE($3, csv_file_path)
		WHERE id = $2
	`, string(raw), id, nullString(csvFilePath))
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// Count returns the total number of collections
func (r *collectionRepo) Count(ctx context.Context) (int, error) {
	db, err := r.db.Conn(ctx)
	if err != nil {
		return 0, err
	}

	var count int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM prediction_collections").Scan(&count)
	return count, err
}

// encodePredictions renders predictions as a JSON array, never null
func encodePredictions(predictions []models.Prediction) ([]byte, error) {
	if predictions == nil {
		predictions = []models.Prediction{}
	}
	raw, err := json.Marshal(predictions)
	if err != nil {
		return nil, fmt.Errorf("encode predictions: %w", err)
	}
	return raw, nil
}

func decodePredictions(raw []byte) ([]models.Prediction, error) {
	predictions := []models.Prediction{}
	if len(raw) == 0 {
		return predictions, nil
	}
	if err := json.Unmarshal(raw, &predictions); err != nil {
		return nil, fmt.Errorf("decode predictions: %w", err)
	}
	return predictions, nil
}
