package service

import (
	"context"
	"strings"

	"github.com/JaeTrim/Traffic-AI/internal/apperrors"
	"github.com/JaeTrim/Traffic-AI/internal/models"
	"github.com/JaeTrim/Traffic-AI/internal/repository"
	"github.com/JaeTrim/Traffic-AI/internal/validation"
	"github.com/rs/zerolog"
)

// userService is the concrete implementation of UserService
type userService struct {
	users repository.UserRepository
	log   zerolog.Logger
}

func newUserService(users repository.UserRepository, log zerolog.Logger) *userService {
	return &userService{
		users: users,
		log:   log.With().Str("service", "users").Logger(),
	}
}

// List returns every user, sorted by username
func (s *userService) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.Persistence("Error fetching users", err)
	}
	if users == nil {
		users = []*models.User{}
	}
	return users, nil
}

// Promote grants the admin role to the named user
func (s *userService) Promote(ctx context.Context, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperrors.ClientInput("Username is required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, apperrors.Persistence("Error loading user", err)
	}
	if user == nil {
		return nil, apperrors.NotFound("User not found")
	}

	updated, err := s.users.UpdateRole(ctx, user.ID, models.RoleAdmin)
	if err != nil {
		return nil, apperrors.Persistence("Error promoting user", err)
	}
	if updated == nil {
		return nil, apperrors.NotFound("User not found")
	}

	s.log.Info().Str("user_id", updated.ID).Str("username", updated.Username).Msg("User promoted to admin")
	return updated, nil
}

// Revoke drops a user back to the user role. Admins cannot revoke themselves.
func (s *userService) Revoke(ctx context.Context, callerID, userID string) (*models.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.ClientInput("User ID is required")
	}
	if userID == callerID {
		return nil, apperrors.ClientInput("Cannot revoke your own admin privileges")
	}
	if !validation.IsValidUUID(userID) {
		return nil, apperrors.ClientInput("Invalid user ID")
	}

	updated, err := s.users.UpdateRole(ctx, userID, models.RoleUser)
	if err != nil {
		return nil, apperrors.Persistence("Error revoking admin privileges", err)
	}
	if updated == nil {
		return nil, apperrors.NotFound("User not found")
	}

	s.log.Info().Str("user_id", updated.ID).Str("username", updated.Username).Msg("Admin privileges revoked")
	return updated, nil
}

// IsAdmin checks the stored role rather than trusting token claims
func (s *userService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if !validation.IsValidUUID(userID) {
		return false, nil
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, apperrors.Persistence("Error loading user", err)
	}
	return user != nil && user.IsAdmin(), nil
}
