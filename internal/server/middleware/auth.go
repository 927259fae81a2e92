// Package middleware holds the gin middleware shared by authenticated routes.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rollcall/backend/internal/security"
)

// organizerIDKey is the gin context key the organizer id is stored under.
const organizerIDKey = "organizerID"

// RequireOrganizer validates the Bearer token and stores the organizer id on
// the context. Requests without a valid token are rejected with 401.
func RequireOrganizer(tokens *security.TokenProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		organizerID, err := tokens.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(organizerIDKey, organizerID)
		c.Next()
	}
}

// OrganizerID returns the authenticated organizer id set by RequireOrganizer.
func OrganizerID(c *gin.Context) string {
	return c.GetString(organizerIDKey)
}
