package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/enxergar/outreach/config"
	"github.com/enxergar/outreach/pkg/helpers"
	"github.com/enxergar/outreach/pkg/mailer"
	tpl "github.com/enxergar/outreach/pkg/mailer/templates"
	"github.com/enxergar/outreach/pkg/response"
	"github.com/enxergar/outreach/pkg/validation"
)

// JobPublisher puts a JSON message on the email queue.
type JobPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

type EmailHandler struct {
	Pub    JobPublisher
	Logger *logrus.Logger
	Cfg    *config.Config
}

func NewEmailHandler(pub JobPublisher, logger *logrus.Logger, cfg *config.Config) *EmailHandler {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return &EmailHandler{Pub: pub, Logger: logger, Cfg: cfg}
}

type notificationEmailRequest struct {
	To       string `json:"to" binding:"required,email"`
	Subject  string `json:"subject"`
	Template string `json:"template" binding:"required,oneof=registration_confirmation event_reminder registration_cancelled"`
	Data     struct {
		Name          string `json:"name" binding:"required"`
		EventTitle    string `json:"eventTitle"`
		EventDate     string `json:"eventDate"`
		EventTime     string `json:"eventTime"`
		EventLocation string `json:"eventLocation"`
		EventAddress  string `json:"eventAddress"`
	} `json:"data"`
}

// SendNotification POST /api/functions/send-notification-email
// Validates and enqueues a transactional email for cmd/email_worker.
func (h *EmailHandler) SendNotification(c *gin.Context) {
	var req notificationEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	if h.Cfg != nil && !h.Cfg.MailSendEnabled {
		response.Success[any](c, http.StatusAccepted, map[string]any{"enqueued": false, "disabled": true}, "email sending disabled", nil)
		return
	}
	if h.Pub == nil {
		response.Error[any](c, http.StatusInternalServerError, "email queue not configured", nil)
		return
	}

	d := req.Data
	job := mailer.EmailJob{
		To:       req.To,
		Subject:  strings.TrimSpace(req.Subject),
		Template: req.Template,
		Data: tpl.NewNotificationData(h.Cfg, d.Name,
			tpl.WithEvent(d.EventTitle, d.EventDate, d.EventTime),
			tpl.WithVenue(d.EventLocation, d.EventAddress),
		),
	}
	helpers.NormalizeEmailJob(&job)

	if err := h.Pub.PublishJSON(c.Request.Context(), job); err != nil {
		h.Logger.WithError(err).WithField("template", job.Template).Warn("failed to publish email job")
		response.Error[any](c, http.StatusInternalServerError, "failed to enqueue", nil)
		return
	}
	h.Logger.WithFields(logrus.Fields{"template": job.Template}).Info("notification email enqueued")
	response.Success[any](c, http.StatusAccepted, map[string]any{"enqueued": true}, "email enqueued", nil)
}
