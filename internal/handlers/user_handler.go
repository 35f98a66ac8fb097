package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
	"fintrack/internal/services"
)

// UserHandler handles user administration and self-service profile requests.
type UserHandler struct {
	userService  services.UserServicer
	auditService services.AuditServicer
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService services.UserServicer, auditService services.AuditServicer) *UserHandler {
	return &UserHandler{userService: userService, auditService: auditService}
}

// UpdateRoleRequest is the body of a role change.
type UpdateRoleRequest struct {
	Role models.Role `json:"role" binding:"required,user_role"`
}

// UpdateProfileRequest holds optional profile fields.
type UpdateProfileRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=1,max=255"`
	Email *string `json:"email" binding:"omitempty,email,max=255"`
}

// ChangePasswordRequest is the body of a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6,max=128"`
}

// ListUsers returns all users
// @Summary     List users
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Param       role      query string false "admin, user or read-only"
// @Param       search    query string false "Case-insensitive match on name or email"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.User]
// @Failure     403 {object} ErrorResponse "Admins only"
// @Router      /api/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	filter := services.UserFilter{Search: strings.TrimSpace(c.Query("search"))}
	if v := c.Query("role"); v != "" {
		role, err := models.ParseRole(v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid role. Must be admin, user, or read-only"))
			return
		}
		filter.Role = &role
	}

	result, err := h.userService.ListUsers(c.Request.Context(), filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetUser returns one user
// @Summary     Get a user
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "User ID"
// @Success     200 {object} UserEnvelope
// @Failure     403 {object} ErrorResponse "Admins only"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /api/users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	userID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, UserEnvelope{User: *user})
}

// UpdateRole changes a user's role
// @Summary     Change a user's role
// @Tags        users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int               true "User ID"
// @Param       request body UpdateRoleRequest true "New role"
// @Success     200 {object} UserEnvelope
// @Failure     400 {object} ErrorResponse "Invalid role"
// @Failure     403 {object} ErrorResponse "Admins only"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /api/users/{id}/role [put]
func (h *UserHandler) UpdateRole(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	userID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	user, err := h.userService.UpdateRole(c.Request.Context(), userID, req.Role)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), auditEntry(c, actor, models.AuditChangeRole, "user", user.ID, map[string]any{"role": user.Role}))

	c.JSON(http.StatusOK, UserEnvelope{User: *user})
}

// DeleteUser removes a user and everything they own
// @Summary     Delete a user
// @Description Admins may delete anyone; other users only themselves
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "User ID"
// @Success     200 {object} MessageResponse
// @Failure     403 {object} ErrorResponse "Not allowed"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /api/users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	userID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), actor, userID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), auditEntry(c, actor, models.AuditDeleteUser, "user", userID, nil))

	c.JSON(http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}

// UpdateProfile edits the caller's own name and email
// @Summary     Update profile
// @Tags        users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body UpdateProfileRequest true "Fields to change"
// @Success     200 {object} UserEnvelope
// @Failure     400 {object} ErrorResponse "Invalid input or email in use"
// @Failure     403 {object} ErrorResponse "Read-only user"
// @Router      /api/users/profile [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), actor.UserID, services.ProfileUpdate{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, UserEnvelope{User: *user})
}

// ChangePassword replaces the caller's password
// @Summary     Change password
// @Tags        users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ChangePasswordRequest true "Current and new password"
// @Success     200 {object} MessageResponse
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Current password is incorrect"
// @Failure     403 {object} ErrorResponse "Read-only user"
// @Router      /api/users/change-password [put]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	if err := h.userService.ChangePassword(c.Request.Context(), actor.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), auditEntry(c, actor, models.AuditChangePassword, "user", actor.UserID, nil))

	c.JSON(http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}
