package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/enxergar/outreach/internal/domain/entity"
	"github.com/enxergar/outreach/pkg/response"
)

// OrganizerLookup loads the organizer behind a token.
type OrganizerLookup interface {
	GetByID(ctx context.Context, id string) (*entity.Organizer, error)
}

// RequireAdmin must run after Auth. The token role is checked first; when
// orgs is set the organizer row must also still be an active admin.
func RequireAdmin(orgs OrganizerLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxRoleKey) != entity.RoleAdmin {
			response.Abort(c, http.StatusForbidden, "insufficient permissions - admin access required", nil)
			return
		}
		if orgs != nil {
			o, err := orgs.GetByID(c.Request.Context(), c.GetString(CtxOrganizerIDKey))
			if err != nil || !o.IsActiveAdmin() {
				response.Abort(c, http.StatusForbidden, "insufficient permissions - admin access required", nil)
				return
			}
		}
		c.Next()
	}
}
