package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/enxergar/outreach/internal/domain/entity"
	repo "github.com/enxergar/outreach/internal/domain/repository"
	"github.com/enxergar/outreach/internal/infrastructure/search"
	"github.com/enxergar/outreach/pkg/helpers"
	"github.com/enxergar/outreach/pkg/response"
	"github.com/enxergar/outreach/pkg/validation"
)

// JobQueue is the admin view over reminder jobs.
type JobQueue interface {
	List(ctx context.Context, f repo.JobFilter) ([]entity.ReminderJob, error)
	Requeue(ctx context.Context, ids []string) (int, error)
}

type DeliverySearcher interface {
	Search(ctx context.Context, q search.SearchQuery) ([]entity.Delivery, error)
}

type AdminHandler struct {
	Jobs       JobQueue
	Deliveries DeliverySearcher
	Logger     *logrus.Logger
}

func NewAdminHandler(jobs JobQueue, deliveries DeliverySearcher, logger *logrus.Logger) *AdminHandler {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return &AdminHandler{Jobs: jobs, Deliveries: deliveries, Logger: logger}
}

type jobDTO struct {
	ID           string  `json:"id"`
	PatientID    string  `json:"patient_id"`
	EventDateID  string  `json:"event_date_id"`
	ReminderType string  `json:"reminder_type"`
	Status       string  `json:"status"`
	ScheduledFor string  `json:"scheduled_for"`
	CompletedAt  *string `json:"completed_at,omitempty"`
	EmailSent    bool    `json:"email_sent"`
	WhatsAppSent bool    `json:"whatsapp_sent"`
	SMSSent      bool    `json:"sms_sent"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

func toJobDTO(j entity.ReminderJob) jobDTO {
	d := jobDTO{
		ID:           j.ID,
		PatientID:    j.PatientID,
		EventDateID:  j.EventDateID,
		ReminderType: string(j.ReminderType),
		Status:       string(j.Status),
		ScheduledFor: j.ScheduledFor.UTC().Format(time.RFC3339),
		EmailSent:    j.EmailSent,
		WhatsAppSent: j.WhatsAppSent,
		SMSSent:      j.SMSSent,
		ErrorMessage: j.ErrorMessage,
	}
	if j.CompletedAt != nil {
		s := j.CompletedAt.UTC().Format(time.RFC3339)
		d.CompletedAt = &s
	}
	return d
}

type jobQuery struct {
	Status      string `form:"status" binding:"omitempty,job_status"`
	EventDateID string `form:"event_date_id"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset      int    `form:"offset" binding:"omitempty,min=0"`
}

// ListJobs GET /api/admin/reminder-jobs
func (h *AdminHandler) ListJobs(c *gin.Context) {
	var q jobQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	if q.Limit == 0 {
		q.Limit = 100
	}
	jobs, err := h.Jobs.List(c.Request.Context(), repo.JobFilter{
		Status:      entity.JobStatus(q.Status),
		EventDateID: q.EventDateID,
		Limit:       q.Limit,
		Offset:      q.Offset,
	})
	if err != nil {
		h.Logger.WithError(err).Error("list reminder jobs failed")
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
		return
	}
	out := make([]jobDTO, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toJobDTO(j))
	}
	response.Success(c, http.StatusOK, out, "ok", gin.H{"count": len(out), "limit": q.Limit, "offset": q.Offset})
}

type requeueRequest struct {
	IDs []string `json:"ids" binding:"required,min=1,max=500"`
}

// RequeueJobs POST /api/admin/reminder-jobs/requeue
func (h *AdminHandler) RequeueJobs(c *gin.Context) {
	var req requeueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	n, err := h.Jobs.Requeue(c.Request.Context(), req.IDs)
	if err != nil {
		h.Logger.WithError(err).Error("requeue reminder jobs failed")
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
		return
	}
	h.Logger.WithFields(logrus.Fields{"requested": len(req.IDs), "requeued": n}).Info("reminder jobs requeued")
	response.Success(c, http.StatusOK, gin.H{"requeued": n}, "jobs requeued", nil)
}

type deliveryQuery struct {
	Q       string `form:"q"`
	Channel string `form:"channel" binding:"omitempty,template_type"`
	Status  string `form:"status" binding:"omitempty,oneof=sent failed preview"`
	Size    int    `form:"size" binding:"omitempty,min=1,max=100"`
}

// SearchDeliveries GET /api/admin/deliveries/search
func (h *AdminHandler) SearchDeliveries(c *gin.Context) {
	var q deliveryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	if h.Deliveries == nil {
		response.Error[any](c, http.StatusServiceUnavailable, "delivery search is disabled", nil)
		return
	}
	res, err := h.Deliveries.Search(c.Request.Context(), search.SearchQuery{
		Text:    q.Q,
		Channel: entity.TemplateType(q.Channel),
		Status:  q.Status,
		Size:    q.Size,
	})
	if err != nil {
		h.Logger.WithError(err).Error("delivery search failed")
		response.Error[any](c, http.StatusBadGateway, "search failed", nil)
		return
	}
	response.Success(c, http.StatusOK, res, "ok", gin.H{"count": len(res)})
}
