package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/enxergar/outreach/pkg/helpers"
	"github.com/enxergar/outreach/pkg/response"
)

const (
	CtxOrganizerIDKey = "organizerID"
	CtxRoleKey        = "role"
	CtxSessionIDKey   = "sessionID"
)

// SessionChecker confirms a token's session is still the organizer's current one.
type SessionChecker interface {
	SessionValid(ctx context.Context, organizerID, sid string) bool
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header.
func BearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// Auth validates the bearer access token and, when sessions is set, that the
// session has not been rotated or logged out. It stores the organizer id,
// role and session id in the Gin context.
func Auth(jwt *helpers.JWTManager, sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			response.Abort(c, http.StatusUnauthorized, "missing authorization header", nil)
			return
		}
		if jwt == nil {
			response.Abort(c, http.StatusUnauthorized, "authentication unavailable", nil)
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "invalid access token", err.Error())
			return
		}
		if sessions != nil && !sessions.SessionValid(c.Request.Context(), claims.UserID, claims.SessionID) {
			response.Abort(c, http.StatusUnauthorized, "session not found", nil)
			return
		}
		c.Set(CtxOrganizerIDKey, claims.UserID)
		c.Set(CtxRoleKey, claims.Role)
		c.Set(CtxSessionIDKey, claims.SessionID)
		c.Next()
	}
}
