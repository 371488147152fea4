package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JaeTrim/Traffic-AI/internal/apperrors"
	"github.com/JaeTrim/Traffic-AI/internal/auth"
	"github.com/JaeTrim/Traffic-AI/internal/config"
	"github.com/JaeTrim/Traffic-AI/internal/models"
	"github.com/JaeTrim/Traffic-AI/internal/repository"
	"github.com/JaeTrim/Traffic-AI/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// authService is the concrete implementation of AuthService
type authService struct {
	users  repository.UserRepository
	tokens *auth.TokenManager
	cfg    config.AuthConfig
	log    zerolog.Logger
}

func newAuthService(users repository.UserRepository, tokens *auth.TokenManager, cfg config.AuthConfig, log zerolog.Logger) *authService {
	return &authService{
		users:  users,
		tokens: tokens,
		cfg:    cfg,
		log:    log.With().Str("service", "auth").Logger(),
	}
}

// Register creates a user account and returns a signed token for it
func (s *authService) Register(ctx context.Context, creds *models.Credentials) (string, error) {
	username := strings.TrimSpace(creds.Username)
	if username == "" || creds.Password == "" {
		return "", apperrors.ClientInput("Username and password are required")
	}

	taken, err := s.users.UsernameTaken(ctx, username)
	if err != nil {
		return "", apperrors.Persistence("Error checking existing user", err)
	}
	if taken {
		return "", apperrors.Conflict("User already exists")
	}

	hash, err := auth.HashPassword(creds.Password, s.cfg.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
		Role:         models.RoleUser,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Lost a race against another signup with the same name
		if errors.Is(err, repository.ErrDuplicate) {
			return "", apperrors.Conflict("User already exists")
		}
		return "", apperrors.Persistence("Error creating user", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("User registered")

	return s.tokens.Issue(user)
}

// Login checks credentials and returns a signed token
func (s *authService) Login(ctx context.Context, creds *models.Credentials) (string, error) {
	username := strings.TrimSpace(creds.Username)
	if username == "" || creds.Password == "" {
		return "", apperrors.ClientInput("Username and password are required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", apperrors.Persistence("Error logging in", err)
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, creds.Password) {
		return "", apperrors.ClientInput("Invalid credentials")
	}

	return s.tokens.Issue(user)
}

// VerifyToken returns the claims of a valid token
func (s *authService) VerifyToken(ctx context.Context, token string) (*models.Claims, error) {
	if token == "" {
		return nil, apperrors.Unauthorized("Token not found")
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, apperrors.Wrap(apperrors.KindUnauthorized, "Token expired", err)
		}
		return nil, apperrors.Wrap(apperrors.KindUnauthorized, "Invalid token", err)
	}
	return claims, nil
}

// CurrentUser loads the account behind a verified token
func (s *authService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	if !validation.IsValidUUID(userID) {
		return nil, apperrors.NotFound("User not found")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Persistence("Error loading user", err)
	}
	if user == nil {
		return nil, apperrors.NotFound("User not found")
	}
	return user, nil
}
