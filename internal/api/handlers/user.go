package handlers

import (
	"errors"
	"net/http"

	"github.com/amarjeet4296/hcn-email-management/internal/api/validation"
	"github.com/amarjeet4296/hcn-email-management/internal/database/models"
	"github.com/amarjeet4296/hcn-email-management/internal/services"
	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
)

// UserHandler handles user related requests
type UserHandler struct {
	userService *services.UserService
	logService  *services.LogService
	validate    *validatorv10.Validate
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(userService *services.UserService, logService *services.LogService, validate *validatorv10.Validate) *UserHandler {
	return &UserHandler{
		userService: userService,
		logService:  logService,
		validate:    validate,
	}
}

// GetProfile returns the current user's profile
// GET /api/user/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
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

// UpdateProfile updates the current user's profile
// PUT /api/user/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req validation.UpdateProfileRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	user, err := h.userService.UpdateProfile(userID, req.Email, req.FullName)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, CodeNotFound, "User not found")
			return
		}
		respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to update profile")
		return
	}

	h.logService.LogInfo(userID, models.LogModuleUser, "profile_update", "User profile updated", map[string]interface{}{
		"email":     req.Email,
		"full_name": req.FullName,
	})

	respondOK(c, ToUserResponse(user))
}

// ChangePassword changes the current user's password
// PUT /api/user/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req validation.ChangePasswordRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	if err := h.userService.ChangePassword(userID, req.OldPassword, req.NewPassword); err != nil {
		h.logService.LogPasswordChange(userID, false, err)

		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			respondError(c, http.StatusUnauthorized, CodeAuthFailed, "Current password is incorrect")
		case errors.Is(err, services.ErrPasswordTooShort):
			respondError(c, http.StatusBadRequest, CodeValidation, "New password must be at least 6 characters")
		default:
			respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to change password")
		}
		return
	}

	h.logService.LogPasswordChange(userID, true, nil)

	respondOK(c, gin.H{"message": "Password changed successfully"})
}
