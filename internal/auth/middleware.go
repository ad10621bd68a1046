package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ctxUserIDKey = "auth_user_id"
	ctxRolesKey  = "auth_roles"

	// RoleStaff gates the librarian-only surface (loans, user directory,
	// catalog mutation, statistics).
	RoleStaff = "Bibliotecario"
)

// RequireAuth validates the Authorization: Bearer token and stores the
// principal in the request context. Identity is always request-scoped; there
// is no process-wide "current user".
func RequireAuth(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false, "message": "missing Authorization header",
			})
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false, "message": "invalid Authorization header",
			})
			return
		}

		userID, roles, err := m.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false, "message": "invalid token",
			})
			return
		}

		c.Set(ctxUserIDKey, userID)
		c.Set(ctxRolesKey, roles)
		c.Next()
	}
}

// RequireRole aborts with 403 unless the principal holds the given role.
// Must run after RequireAuth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !HasRole(c, role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false, "message": "insufficient permissions",
			})
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated principal set by RequireAuth.
func UserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ctxUserIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// HasRole reports whether the principal holds the named role.
func HasRole(c *gin.Context, role string) bool {
	v, ok := c.Get(ctxRolesKey)
	if !ok {
		return false
	}
	roles, ok := v.([]string)
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
