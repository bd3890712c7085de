package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/enxergar/outreach/internal/container"
	handlers "github.com/enxergar/outreach/internal/interface/http"
	"github.com/enxergar/outreach/internal/interface/middleware"
)

// WebhookModule receives provider callbacks at /api/webhooks.
type WebhookModule struct {
	Webhooks *handlers.WebhookHandler
}

func NewWebhookModule(h *handlers.WebhookHandler) *WebhookModule {
	return &WebhookModule{Webhooks: h}
}

func (m *WebhookModule) Register(rg *gin.RouterGroup) {
	wh := rg.Group("/webhooks")
	wh.Use(middleware.RateLimit(container.GetRedis(), 600, time.Minute, middleware.KeyByIP(), nil))
	{
		wh.POST("/twilio/status", m.Webhooks.TwilioStatus)
		wh.POST("/twilio/inbound", m.Webhooks.TwilioInbound)
	}
}
