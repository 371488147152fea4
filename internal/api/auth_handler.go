package api

import (
	"net/http"

	"github.com/JaeTrim/Traffic-AI/internal/models"
	"github.com/JaeTrim/Traffic-AI/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AuthHandler handles account, token and user administration requests
type AuthHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(services *service.Services, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		services: services,
		log:      log.With().Str("handler", "auth").Logger(),
	}
}

// Register handles POST /v1/auth/register and /v1/auth/signup
func (h *AuthHandler) Register(c *gin.Context) {
	var creds models.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		badRequest(c, "Invalid JSON body")
		return
	}

	token, err := h.services.Auth.Register(c.Request.Context(), &creds)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"token":   token,
	})
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var creds models.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		badRequest(c, "Invalid JSON body")
		return
	}

	token, err := h.services.Auth.Login(c.Request.Context(), &creds)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// VerifyToken handles POST /v1/auth/verify-token
func (h *AuthHandler) VerifyToken(c *gin.Context) {
	var body struct {
		Token string `json:"token"`
	}
	// An empty or missing body falls through to "Token not found"
	_ = c.ShouldBindJSON(&body)

	claims, err := h.services.Auth.VerifyToken(c.Request.Context(), body.Token)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true, "decoded": claims})
}

// CurrentUser handles GET /v1/auth/user
func (h *AuthHandler) CurrentUser(c *gin.Context) {
	user, err := h.services.Auth.CurrentUser(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":   user.ID,
		"username": user.Username,
		"role":     user.Role,
	})
}

// ListUsers handles GET /v1/admin/users
func (h *AuthHandler) ListUsers(c *gin.Context) {
	users, err := h.services.User.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}

	c.JSON(http.StatusOK, users)
}

// Promote handles POST /v1/admin/promote
func (h *AuthHandler) Promote(c *gin.Context) {
	var req models.RoleChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid JSON body")
		return
	}

	user, err := h.services.User.Promote(c.Request.Context(), req.Username)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User promoted to admin successfully",
		"user":    user,
	})
}

// Revoke handles POST /v1/admin/revoke
func (h *AuthHandler) Revoke(c *gin.Context) {
	var req models.RoleChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid JSON body")
		return
	}

	user, err := h.services.User.Revoke(c.Request.Context(), callerID(c), req.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Admin privileges revoked successfully",
		"user":    user,
	})
}
