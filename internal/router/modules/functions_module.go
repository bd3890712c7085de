package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/enxergar/outreach/internal/container"
	handlers "github.com/enxergar/outreach/internal/interface/http"
	"github.com/enxergar/outreach/internal/interface/middleware"
)

// FunctionsModule exposes the notification functions to signed-in admins:
// POST /api/functions/{trigger-reminders,process-reminder-jobs,send-*}
type FunctionsModule struct {
	Functions  *handlers.FunctionsHandler
	Email      *handlers.EmailHandler
	Sessions   middleware.SessionChecker
	Organizers middleware.OrganizerLookup
}

func NewFunctionsModule(f *handlers.FunctionsHandler, e *handlers.EmailHandler, sessions middleware.SessionChecker, orgs middleware.OrganizerLookup) *FunctionsModule {
	return &FunctionsModule{Functions: f, Email: e, Sessions: sessions, Organizers: orgs}
}

func (m *FunctionsModule) Register(rg *gin.RouterGroup) {
	fn := rg.Group("/functions")
	fn.Use(
		middleware.Auth(container.GetJWT(), m.Sessions),
		middleware.RequireAdmin(m.Organizers),
		middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByOrganizer(), nil),
	)
	{
		fn.POST("/trigger-reminders", m.Functions.TriggerReminders)
		fn.POST("/process-reminder-jobs", m.Functions.ProcessReminderJobs)
		fn.POST("/send-whatsapp", m.Functions.SendWhatsApp)
		fn.POST("/send-sms", m.Functions.SendSMS)
		fn.POST("/send-email", m.Functions.SendEmail)
		fn.POST("/send-bulk-messages", m.Functions.SendBulkMessages)
		fn.POST("/send-notification-email", m.Email.SendNotification)
	}
}
