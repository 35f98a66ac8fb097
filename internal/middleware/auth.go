package middleware

import (
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
)

const identityKey = "identity"

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	UserID uint
	Email  string
	Role   models.Role
}

// GetIdentity returns the caller stored by Authenticate.
func GetIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// SetIdentity stores id on the context. Tests use it to bypass Authenticate.
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(identityKey, id)
}

// Authenticate verifies the bearer token and sets the caller's Identity.
// A missing token is 401; a token that fails verification is 403.
func Authenticate(tm *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, apperrors.ErrUnauthorized)
			return
		}

		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenString) == "" {
			abortWithError(c, apperrors.ErrUnauthorized)
			return
		}

		claims, err := tm.Verify(strings.TrimSpace(tokenString))
		if err != nil {
			abortWithError(c, apperrors.ErrInvalidToken)
			return
		}

		SetIdentity(c, Identity{UserID: claims.UserID, Email: claims.Email, Role: claims.Role})
		c.Next()
	}
}

// RequireRole rejects callers whose role is not in roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			abortWithError(c, apperrors.ErrUnauthorized)
			return
		}
		if !slices.Contains(roles, id.Role) {
			abortWithError(c, apperrors.ErrForbidden)
			return
		}
		c.Next()
	}
}

// PreventReadOnly rejects callers whose role cannot write.
func PreventReadOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			abortWithError(c, apperrors.ErrUnauthorized)
			return
		}
		if !id.Role.CanWrite() {
			abortWithError(c, apperrors.ErrReadOnly)
			return
		}
		c.Next()
	}
}

// RequireSelfOrAdmin lets admins through, and everyone else only when the
// path parameter param equals their own user id.
func RequireSelfOrAdmin(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			abortWithError(c, apperrors.ErrUnauthorized)
			return
		}
		if id.Role.IsAdmin() {
			c.Next()
			return
		}
		target, err := strconv.ParseUint(c.Param(param), 10, 32)
		if err != nil || uint(target) != id.UserID {
			abortWithError(c, apperrors.ErrForbidden)
			return
		}
		c.Next()
	}
}

// abortWithError stops the chain with the standard error body.
func abortWithError(c *gin.Context, appErr *apperrors.AppError) {
	c.AbortWithStatusJSON(appErr.StatusCode, gin.H{"error": appErr})
}
