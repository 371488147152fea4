package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/JaeTrim/Traffic-AI/internal/models"
	"github.com/lib/pq"
)

// modelRepo is the concrete implementation of ModelRepository
type modelRepo struct {
	db connSource
}

// NewModelRepo creates a new model repository
func NewModelRepo(db connSource) ModelRepository {
	return &modelRepo{db: db}
}

const modelColumns = `id, name, file_path, input_fields, created_by, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanModel(row rowScanner) (*models.Model, error) {
	var m models.Model
	err := row.Scan(&m.ID, &m.Name, &m.FilePath, pq.Array(&m.InputFields), &m.CreatedBy, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a new model
func (r *modelRepo) Create(ctx context.Context, model *models.Model) error {
	db, err := r.db.Conn(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO models (id, name, file_path, input_fields, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = db.ExecContext(ctx, query,
		model.ID, model.Name, model.FilePath, pq.Array(model.InputFields),
		model.CreatedBy, model.CreatedAt,
	)
	return err
}

// GetByID retrieves a model by ID
func (r *modelRepo) GetByID(ctx context.Context, id string) (*models.Model, error) {
	db, err := r.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	m, err := scanModel(db.QueryRowContext(ctx, `SELECT `+modelColumns+` FROM models WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// List returns every registered model, oldest first
func (r *modelRepo) List(ctx context.Context) ([]*models.Model, error) {
	db, err := r.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT `+modelColumns+` FROM models ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*models.Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Update applies the non-nil fields of update and returns the new record, or nil if absent
func (r *modelRepo) Update(ctx context.Context, id string, update *models.ModelUpdate) (*models.Model, error) {
	sets, args := buildModelUpdate(update)
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	db, err := r.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE models SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), modelColumns)

	m, err := scanModel(db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// buildModelUpdate renders the SET clauses and positional args of an update
func buildModelUpdate(update *models.ModelUpdate) ([]string, []interface{}) {
	var sets []string
	var args []interface{}
	if update.Name != nil {
		args = append(args, *update.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if update.InputFields != nil {
		args = append(args, pq.Array(update.InputFields))
		sets = append(sets, fmt.Sprintf("input_fields = $%d", len(args)))
	}
	if update.FilePath != nil {
		args = append(args, *update.FilePath)
		sets = append(sets, fmt.Sprintf("file_path = $%d", len(args)))
	}
	return sets, args
}

// Delete removes a model, reporting whether it existed
func (r *modelRepo) Delete(ctx context.Context, id string) (bool, error) {
	db, err := r.db.Conn(ctx)
	if err != nil {
		return false, err
	}

	result, err := db.ExecContext(ctx, `DELETE FROM models WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// Count returns the total number of models
func (r *modelRepo) Count(ctx context.Context) (int, error) {
	db, err := r.db.Conn(ctx)
	if err != nil {
		return 0, err
	}

	var count int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM models").Scan(&count)
	return count, err
}
