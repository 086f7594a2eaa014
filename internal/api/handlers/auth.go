package handlers

import (
	"errors"
	"net/http"

	"github.com/amarjeet4296/hcn-email-management/internal/api/middleware"
	"github.com/amarjeet4296/hcn-email-management/internal/api/validation"
	"github.com/amarjeet4296/hcn-email-management/internal/database/models"
	"github.com/amarjeet4296/hcn-email-management/internal/services"
	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
)

// LoginResponse represents the login response
type LoginResponse struct {
	Token     string `json:"access_token"`
	TokenType string `json:"token_type"`
	ExpiresAt int64  `json:"expires_at"`
}

// UserResponse is the public view of an operator
type UserResponse struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	CreatedAt int64  `json:"created_at"`
}

// ToUserResponse converts a User model to UserResponse
func ToUserResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FullName:  user.FullName,
		CreatedAt: user.CreatedAt.Unix(),
	}
}

// AuthHandler handles authentication related requests
type AuthHandler struct {
	userService *services.UserService
	jwtManager  *middleware.JWTManager
	logService  *services.LogService
	validate    *validatorv10.Validate
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(userService *services.UserService, jwtManager *middleware.JWTManager, logService *services.LogService, validate *validatorv10.Validate) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		jwtManager:  jwtManager,
		logService:  logService,
		validate:    validate,
	}
}

func (h *AuthHandler) issueToken(c *gin.Context, user *models.User, tokenType string) {
	token, expiresAt, err := h.jwtManager.GenerateToken(user.ID, user.Username)
	if err != nil {
		respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to generate token")
		return
	}
	h.logService.LogTokenGenerated(user.ID, tokenType)

	respondOK(c, gin.H{
		"token": LoginResponse{
			Token:     token,
			TokenType: "bearer",
			ExpiresAt: expiresAt,
		},
		"user": ToUserResponse(user),
	})
}

// Login handles user login requests
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req validation.LoginRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	user, err := h.userService.VerifyPassword(req.Username, req.Password)
	if err != nil {
		h.logService.LogLogin(0, req.Username, c.ClientIP(), false, err)
		message := "Invalid username or password"
		if errors.Is(err, services.ErrUserDisabled) {
			message = "User account is disabled"
		}
		respondError(c, http.StatusUnauthorized, CodeAuthFailed, message)
		return
	}

	h.logService.LogLogin(user.ID, user.Username, c.ClientIP(), true, nil)
	h.issueToken(c, user, "login")
}

// RefreshToken issues a fresh token for the current user
// POST /api/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil || user.Disabled {
		respondError(c, http.StatusUnauthorized, CodeAuthFailed, "User no longer active")
		return
	}

	h.issueToken(c, user, "refresh")
}

// Logout handles user logout requests. Tokens are stateless, the client
// discards its copy.
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if userID, ok := middleware.GetUserIDFromContext(c); ok {
		h.logService.LogLogout(userID)
	}

	respondOK(c, gin.H{"message": "Logged out successfully"})
}

// GetCurrentUser returns the current authenticated user info
// GET /api/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		respondError(c, http.StatusNotFound, CodeNotFound, "User not found")
		return
	}

	respondOK(c, ToUserResponse(user))
}
