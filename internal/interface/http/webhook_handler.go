package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/enxergar/outreach/internal/application"
	"github.com/enxergar/outreach/internal/domain/entity"
	"github.com/enxergar/outreach/pkg/helpers"
)

const HeaderTwilioSignature = "X-Twilio-Signature"

type StatusRecorder interface {
	Record(ctx context.Context, u application.StatusUpdate) error
}

type InboundReceiver interface {
	Receive(ctx context.Context, in application.InboundInput) (*entity.InboundMessage, bool, error)
}

type CallbackVerifier interface {
	VerifyCallback(url string, params map[string]string, signature string) error
}

// WebhookURLs are the public URLs Twilio signs its requests with.
type WebhookURLs struct {
	Status  string
	Inbound string
}

// WebhookHandler receives provider callbacks. Requests are authenticated by
// the provider signature, not by a session.
type WebhookHandler struct {
	Statuses StatusRecorder
	Inbound  InboundReceiver
	Verifier CallbackVerifier
	URLs     WebhookURLs
	Logger   *logrus.Logger
}

func NewWebhookHandler(statuses StatusRecorder, inbound InboundReceiver, verifier CallbackVerifier, urls WebhookURLs, logger *logrus.Logger) *WebhookHandler {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return &WebhookHandler{Statuses: statuses, Inbound: inbound, Verifier: verifier, URLs: urls, Logger: logger}
}

// verifiedForm parses the form body and checks its signature against url.
// It writes the error response and returns false when the request is rejected.
func (h *WebhookHandler) verifiedForm(c *gin.Context, url string) (map[string]string, bool) {
	if err := c.Request.ParseForm(); err != nil {
		fail(c, http.StatusBadRequest, "invalid form body")
		return nil, false
	}
	params := make(map[string]string, len(c.Request.PostForm))
	for k, v := range c.Request.PostForm {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}

	if h.Verifier == nil {
		fail(c, http.StatusServiceUnavailable, "webhooks not configured")
		return nil, false
	}
	if err := h.Verifier.VerifyCallback(url, params, c.GetHeader(HeaderTwilioSignature)); err != nil {
		if errors.Is(err, helpers.ErrTwilioNotConfigured) {
			h.Logger.WithField("path", c.FullPath()).Warn("twilio webhook received but signing is not configured")
			fail(c, http.StatusServiceUnavailable, "webhooks not configured")
			return nil, false
		}
		h.Logger.WithFields(logrus.Fields{"path": c.FullPath(), "message_sid": params["MessageSid"]}).Warn("twilio webhook with invalid signature")
		fail(c, http.StatusUnauthorized, "Invalid signature")
		return nil, false
	}
	return params, true
}

// TwilioStatus handles the StatusCallback Twilio posts for each message status change.
func (h *WebhookHandler) TwilioStatus(c *gin.Context) {
	params, ok := h.verifiedForm(c, h.URLs.Status)
	if !ok {
		return
	}
	u := application.StatusUpdate{
		MessageSid:   params["MessageSid"],
		Status:       params["MessageStatus"],
		To:           params["To"],
		From:         params["From"],
		ErrorCode:    params["ErrorCode"],
		ErrorMessage: params["ErrorMessage"],
	}
	if err := h.Statuses.Record(c.Request.Context(), u); err != nil {
		if errors.Is(err, application.ErrMissingMessageStatus) {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		h.Logger.WithError(err).Error("save message status failed")
		fail(c, http.StatusInternalServerError, "Failed to save status")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Status update received and processed",
		"messageSid": u.MessageSid,
		"status":     u.Status,
	})
}

// TwilioInbound handles replies sent to our SMS and WhatsApp numbers.
func (h *WebhookHandler) TwilioInbound(c *gin.Context) {
	params, ok := h.verifiedForm(c, h.URLs.Inbound)
	if !ok {
		return
	}
	numMedia, _ := strconv.Atoi(params["NumMedia"])
	msg, created, err := h.Inbound.Receive(c.Request.Context(), application.InboundInput{
		MessageSid: params["MessageSid"],
		From:       params["From"],
		To:         params["To"],
		Body:       params["Body"],
		NumMedia:   numMedia,
	})
	if err != nil {
		if errors.Is(err, application.ErrMissingInbound) {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		h.Logger.WithError(err).Error("save inbound message failed")
		fail(c, http.StatusInternalServerError, "Failed to save message")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Inbound message received and processed",
		"messageSid": msg.MessageSid,
		"duplicate":  !created,
	})
}
