package repository

import (
	"context"
	"database/sql"

	"github.com/JaeTrim/Traffic-AI/internal/models"
)

// userRepo is the concrete implementation of UserRepository
type userRepo struct {
	db connSource
}

// NewUserRepo creates a new user repository
func NewUserRepo(db connSource) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, username, password_hash, role, created_at`

// Create inserts a new user
func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	db, err := r.db.Conn(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO users (id, username, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = db.ExecContext(ctx, query,
		user.ID, user.Username, user.PasswordHash, user.Role, user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetByID retrieves a user by ID
func (r *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByUsername retrieves a user by exact username
func (r *userRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *userRepo) getOne(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	db, err := r.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// UsernameTaken checks case-insensitively whether a username is in use
func (r *userRepo) UsernameTaken(ctx context.Context, username string) (bool, error) {
	db, err := r.db.Conn(ctx)
	if err != nil {
		return false, err
	}

	var exists bool
	err = db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(username) = LOWER($1))", username,
	).Scan(&exists)
	return exists, err
}

// List returns all users ordered by username
func (r *userRepo) List(ctx context.Context) ([]*models.User, error) {
	db, err := r.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, &user)
	}
	return users, rows.Err()
}

// UpdateRole sets a user's role and returns the updated record, or nil if absent
func (r *userRepo) UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	query := `UPDATE users SET role = $1 WHERE id = $2 RETURNING ` + userColumns
	return r.getOne(ctx, query, role, id)
}

// Count returns the total number of users
func (r *userRepo) Count(ctx context.Context) (int, error) {
	db, err := r.db.Conn(ctx)
	if err != nil {
		return 0, err
	}

	var count int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}
