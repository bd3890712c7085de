package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/enxergar/outreach/internal/application"
	"github.com/enxergar/outreach/internal/domain/entity"
	"github.com/enxergar/outreach/internal/notify"
	"github.com/enxergar/outreach/pkg/helpers"
	"github.com/enxergar/outreach/pkg/validation"
)

const processedContentPreview = 200

type ReminderTriggerer interface {
	Trigger(ctx context.Context, req application.TriggerRequest) (application.TriggerResult, error)
}

type ReminderRunner interface {
	Process(ctx context.Context, req application.ProcessRequest) (application.ProcessResult, error)
}

type BulkMessenger interface {
	Send(ctx context.Context, req application.BulkRequest) (application.BulkResult, error)
}

// FunctionsHandler serves /api/functions. Responses keep the
// {success, error} wire shape the back-office client expects.
type FunctionsHandler struct {
	Trigger   ReminderTriggerer
	Processor ReminderRunner
	Bulk      BulkMessenger
	Notifiers map[entity.TemplateType]notify.Notifier
	Logger    *logrus.Logger
}

func NewFunctionsHandler(trigger ReminderTriggerer, processor ReminderRunner, bulk BulkMessenger, logger *logrus.Logger, notifiers ...notify.Notifier) *FunctionsHandler {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	m := make(map[entity.TemplateType]notify.Notifier, len(notifiers))
	for _, n := range notifiers {
		m[n.Channel()] = n
	}
	return &FunctionsHandler{Trigger: trigger, Processor: processor, Bulk: bulk, Notifiers: m, Logger: logger}
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg, "timestamp": time.Now().UTC().Format(time.RFC3339)})
}

// bindOptional accepts an empty body.
func bindOptional(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type triggerRequest struct {
	Type         string `json:"type" binding:"required,trigger_type"`
	Timestamp    string `json:"timestamp" binding:"required"`
	EventID      string `json:"eventId"`
	ReminderType string `json:"reminderType" binding:"omitempty,reminder_type"`
}

// TriggerReminders POST /api/functions/trigger-reminders
func (h *FunctionsHandler) TriggerReminders(c *gin.Context) {
	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, validation.First(err))
		return
	}
	if _, ok := helpers.ParseTimestamp(req.Timestamp); !ok {
		fail(c, http.StatusBadRequest, "timestamp must be an ISO-8601 date")
		return
	}
	res, err := h.Trigger.Trigger(c.Request.Context(), application.TriggerRequest{
		Type:         req.Type,
		Timestamp:    req.Timestamp,
		EventID:      req.EventID,
		ReminderType: entity.ReminderType(req.ReminderType),
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, application.ErrEventIDRequired) || errors.Is(err, application.ErrInvalidTriggerType) || errors.Is(err, application.ErrInvalidReminderType) {
			status = http.StatusBadRequest
		}
		h.Logger.WithError(err).WithField("type", req.Type).Error("trigger reminders failed")
		fail(c, status, err.Error())
		return
	}
	h.Logger.WithFields(logrus.Fields{"type": res.Type, "jobs_created": res.JobsCreated, "errors": len(res.Errors)}).Info("reminders triggered")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Reminder process initiated successfully",
		"data":    res,
	})
}

type processRequest struct {
	BatchSize int  `json:"batchSize" binding:"omitempty,min=1,max=500"`
	TestMode  bool `json:"testMode"`
}

// ProcessReminderJobs POST /api/functions/process-reminder-jobs
func (h *FunctionsHandler) ProcessReminderJobs(c *gin.Context) {
	var req processRequest
	if err := bindOptional(c, &req); err != nil {
		fail(c, http.StatusBadRequest, validation.First(err))
		return
	}
	res, err := h.Processor.Process(c.Request.Context(), application.ProcessRequest{BatchSize: req.BatchSize, TestMode: req.TestMode})
	if err != nil {
		h.Logger.WithError(err).Error("process reminder jobs failed")
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	msg := fmt.Sprintf("Processed %d reminder jobs", res.Processed)
	if res.Processed == 0 {
		msg = "No pending reminder jobs found"
	}
	body := gin.H{
		"success":   true,
		"message":   msg,
		"processed": res.Processed,
		"sent":      res.Sent,
		"failed":    res.Failed,
		"testMode":  res.TestMode,
	}
	if len(res.Errors) > 0 {
		body["errors"] = res.Errors
	}
	if len(res.Previews) > 0 {
		body["previews"] = res.Previews
	}
	c.JSON(http.StatusOK, body)
}

type sendRequest struct {
	TemplateID     string         `json:"templateId"`
	TemplateName   string         `json:"templateName"`
	TemplateData   map[string]any `json:"templateData"`
	RecipientPhone string         `json:"recipientPhone"`
	RecipientEmail string         `json:"recipientEmail"`
	RecipientName  string         `json:"recipientName"`
	CustomSubject  string         `json:"customSubject"`
	CustomContent  string         `json:"customContent"`
	TestMode       bool           `json:"testMode"`
}

func (r sendRequest) message() notify.Message {
	vars := make(entity.TemplateVariables, len(r.TemplateData))
	for k, v := range r.TemplateData {
		if v == nil {
			vars[k] = ""
			continue
		}
		vars[k] = fmt.Sprint(v)
	}
	return notify.Message{
		TemplateID:   r.TemplateID,
		TemplateName: r.TemplateName,
		Variables:    vars,
		Recipient:    notify.Recipient{Name: r.RecipientName, Email: r.RecipientEmail, Phone: r.RecipientPhone},
		TestMode:     r.TestMode,
		Body:         r.CustomContent,
		Subject:      r.CustomSubject,
	}
}

var channelTitle = map[entity.TemplateType]string{
	entity.TemplateEmail:    "Email",
	entity.TemplateSMS:      "SMS",
	entity.TemplateWhatsApp: "WhatsApp",
}

// sendStatus maps notifier errors to HTTP codes: caller mistakes are 4xx,
// missing credentials and provider failures are 500.
func sendStatus(err error) int {
	switch {
	case errors.Is(err, notify.ErrTemplateNotFound):
		return http.StatusNotFound
	case errors.Is(err, notify.ErrTemplateRequired),
		errors.Is(err, notify.ErrMissingRecipient),
		errors.Is(err, notify.ErrInvalidPhone),
		errors.Is(err, notify.ErrMessageTooLong),
		errors.Is(err, notify.ErrMissingContent):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *FunctionsHandler) send(ch entity.TemplateType) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, validation.First(err))
			return
		}
		n, ok := h.Notifiers[ch]
		if !ok {
			fail(c, http.StatusInternalServerError, fmt.Sprintf("%s: %v", ch, notify.ErrProviderNotConfigured))
			return
		}
		res, err := n.Send(c.Request.Context(), req.message())
		if err != nil {
			fail(c, sendStatus(err), err.Error())
			return
		}
		title := channelTitle[ch]
		if res.TestMode {
			body := gin.H{
				"success":          true,
				"message":          "Test mode: " + title + " processed but not sent",
				"template":         res.TemplateName,
				"recipient":        res.Recipient,
				"processedContent": notify.Preview(res.Content, processedContentPreview),
				"messageLength":    res.Length,
				"testMode":         true,
			}
			if res.Subject != "" {
				body["subject"] = res.Subject
			}
			c.JSON(http.StatusOK, body)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"message":   title + " sent successfully",
			"messageId": res.MessageID,
			"template":  res.TemplateName,
			"recipient": res.Recipient,
		})
	}
}

// SendWhatsApp POST /api/functions/send-whatsapp
func (h *FunctionsHandler) SendWhatsApp(c *gin.Context) { h.send(entity.TemplateWhatsApp)(c) }

// SendSMS POST /api/functions/send-sms
func (h *FunctionsHandler) SendSMS(c *gin.Context) { h.send(entity.TemplateSMS)(c) }

// SendEmail POST /api/functions/send-email
func (h *FunctionsHandler) SendEmail(c *gin.Context) { h.send(entity.TemplateEmail)(c) }

type bulkRequest struct {
	EventIDs      []string `json:"eventIds"`
	EventDateIDs  []string `json:"eventDateIds"`
	MessageTypes  []string `json:"messageTypes" binding:"required,min=1,dive,template_type"`
	TemplateName  string   `json:"templateName"`
	CustomMessage string   `json:"customMessage"`
	TestMode      bool     `json:"testMode"`
	Filters       struct {
		RegistrationStatus []string `json:"registrationStatus"`
		City               []string `json:"city"`
		DateRange          *struct {
			Start string `json:"start"`
			End   string `json:"end"`
		} `json:"dateRange"`
	} `json:"filters"`
}

func emptyBulk() application.BulkResult {
	return application.BulkResult{Errors: []string{}, Recipients: []application.BulkRecipientResult{}}
}

func bulkFail(c *gin.Context, status int, msg string) {
	data := emptyBulk()
	data.Errors = append(data.Errors, msg)
	c.JSON(status, gin.H{"success": false, "message": msg, "data": data})
}

// SendBulkMessages POST /api/functions/send-bulk-messages
func (h *FunctionsHandler) SendBulkMessages(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bulkFail(c, http.StatusBadRequest, validation.First(err))
		return
	}
	in := application.BulkRequest{
		EventIDs:      req.EventIDs,
		EventDateIDs:  req.EventDateIDs,
		TemplateName:  strings.TrimSpace(req.TemplateName),
		CustomMessage: req.CustomMessage,
		TestMode:      req.TestMode,
		Filters: application.BulkFilters{
			RegistrationStatuses: req.Filters.RegistrationStatus,
			Cities:               req.Filters.City,
		},
	}
	for _, t := range req.MessageTypes {
		in.Channels = append(in.Channels, entity.TemplateType(t))
	}
	if dr := req.Filters.DateRange; dr != nil {
		from, okFrom := helpers.ParseTimestamp(dr.Start)
		to, okTo := helpers.ParseTimestamp(dr.End)
		if !okFrom || !okTo {
			bulkFail(c, http.StatusBadRequest, "dateRange must contain ISO-8601 start and end")
			return
		}
		in.Filters.DateFrom, in.Filters.DateTo = &from, &to
	}

	res, err := h.Bulk.Send(c.Request.Context(), in)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, application.ErrBulkNoChannels) || errors.Is(err, application.ErrBulkNoMessage) || errors.Is(err, application.ErrBulkChannel) {
			status = http.StatusBadRequest
		}
		h.Logger.WithError(err).Error("bulk send failed")
		bulkFail(c, status, err.Error())
		return
	}
	msg := fmt.Sprintf("Bulk messages sent successfully. Emails: %d, SMS: %d, WhatsApp: %d", res.EmailsSent, res.SMSSent, res.WhatsAppSent)
	if res.TotalRecipients == 0 {
		msg = "No recipients found matching the criteria"
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg, "data": res})
}
