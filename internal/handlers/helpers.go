package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	govalidator "github.com/go-playground/validator/v10"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
	"fintrack/internal/middleware"
	"fintrack/internal/models"
	"fintrack/internal/services"
	"fintrack/internal/validator"
)

// getActor returns the authenticated caller as a service Actor.
// Returns ErrUnauthorized if Authenticate did not run.
func getActor(c *gin.Context) (services.Actor, error) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return services.Actor{}, apperrors.ErrUnauthorized
	}
	return services.Actor{UserID: id.UserID, Role: id.Role}, nil
}

// auditEntry builds an audit entry for the current request.
func auditEntry(c *gin.Context, actor services.Actor, action models.AuditAction, resourceType string, resourceID uint, changes map[string]any) services.AuditEntry {
	return services.AuditEntry{
		ActorID:      actor.UserID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    c.ClientIP(),
		RequestID:    middleware.GetRequestID(c),
		Changes:      changes,
	}
}

// parsePathID parses a uint path parameter.
// Returns ErrInvalidInput if the parameter is not a valid positive integer.
//
//nolint:unparam // param is intentionally generic for reuse across handlers with different path params
func parsePathID(c *gin.Context, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+param)
	}
	return uint(id), nil
}

// queryID parses an optional uint query parameter. Empty yields nil.
func queryID(c *gin.Context, name string) (*uint, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+name)
	}
	u := uint(id)
	return &u, nil
}

// queryDate parses an optional YYYY-MM-DD (or RFC3339) query parameter.
func queryDate(c *gin.Context, name string) (*time.Time, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	t, err := validator.ParseDate(v)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+name+", use YYYY-MM-DD")
	}
	return &t, nil
}

// bindingError converts a ShouldBind error into a 400 AppError, listing
// each failed field when the validator produced the error.
func bindingError(err error) error {
	var verrs govalidator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]apperrors.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, apperrors.FieldError{
				Field:   fe.Field(),
				Message: validator.Message(fe),
			})
		}
		return apperrors.WithDetails(apperrors.ErrValidation, details)
	}
	return apperrors.Wrap(apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid request body"), err)
}

// respondWithError writes a consistent JSON error response. If the error is an
// *AppError it uses the error's status code, code, message and details.
// Otherwise it logs the unexpected error and returns a generic internal
// server error.
func respondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil && appErr.StatusCode >= 500 {
			logger.Get().Errorw("app error",
				"code", appErr.Code,
				"internal", appErr.Internal.Error(),
				"path", c.Request.URL.Path,
			)
		}
		c.JSON(appErr.StatusCode, gin.H{"error": appErr})
		return
	}

	logger.Get().Errorw("unexpected error",
		"error", err.Error(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)
	c.JSON(apperrors.ErrInternalServer.StatusCode, gin.H{"error": apperrors.ErrInternalServer})
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error apperrors.AppError `json:"error"`
}

// MessageResponse is a bare confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}
