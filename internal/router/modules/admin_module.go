package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/enxergar/outreach/internal/container"
	handlers "github.com/enxergar/outreach/internal/interface/http"
	"github.com/enxergar/outreach/internal/interface/middleware"
)

// AdminModule is the back-office surface: templates, reminder jobs, delivery
// history and patient replies.
type AdminModule struct {
	Templates  *handlers.TemplateHandler
	Admin      *handlers.AdminHandler
	Inbound    *handlers.InboundHandler
	Sessions   middleware.SessionChecker
	Organizers middleware.OrganizerLookup
}

func NewAdminModule(t *handlers.TemplateHandler, a *handlers.AdminHandler, in *handlers.InboundHandler, sessions middleware.SessionChecker, orgs middleware.OrganizerLookup) *AdminModule {
	return &AdminModule{Templates: t, Admin: a, Inbound: in, Sessions: sessions, Organizers: orgs}
}

func (m *AdminModule) Register(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.Use(middleware.Auth(container.GetJWT(), m.Sessions), middleware.RequireAdmin(m.Organizers))

	tpl := admin.Group("/templates")
	{
		tpl.GET("", m.Templates.List)
		tpl.POST("", m.Templates.Create)
		tpl.GET("/stats", m.Templates.Stats)
		tpl.GET("/variables", m.Templates.Variables)
		tpl.POST("/preview", m.Templates.Preview)
		tpl.GET("/:id", m.Templates.Get)
		tpl.PUT("/:id", m.Templates.Update)
		tpl.DELETE("/:id", m.Templates.Delete)
		tpl.POST("/:id/duplicate", m.Templates.Duplicate)
		tpl.POST("/:id/toggle", m.Templates.Toggle)
	}

	admin.GET("/reminder-jobs", m.Admin.ListJobs)
	admin.POST("/reminder-jobs/requeue", m.Admin.RequeueJobs)
	admin.GET("/deliveries/search", m.Admin.SearchDeliveries)
	admin.GET("/inbound-messages", m.Inbound.List)
	admin.POST("/inbound-messages/:id/processed", m.Inbound.MarkProcessed)
}
