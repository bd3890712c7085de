package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/enxergar/outreach/internal/domain/entity"
	repo "github.com/enxergar/outreach/internal/domain/repository"
	"github.com/enxergar/outreach/pkg/helpers"
	"github.com/enxergar/outreach/pkg/response"
	"github.com/enxergar/outreach/pkg/validation"
)

// Inbox is the admin view over patient replies.
type Inbox interface {
	List(ctx context.Context, f repo.InboundFilter) ([]entity.InboundMessage, error)
	MarkProcessed(ctx context.Context, id string) error
}

type InboundHandler struct {
	Inbox  Inbox
	Logger *logrus.Logger
}

func NewInboundHandler(inbox Inbox, logger *logrus.Logger) *InboundHandler {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return &InboundHandler{Inbox: inbox, Logger: logger}
}

type inboundDTO struct {
	ID          string  `json:"id"`
	MessageSid  string  `json:"message_sid"`
	Channel     string  `json:"channel"`
	From        string  `json:"from"`
	To          string  `json:"to"`
	Text        string  `json:"text"`
	NumMedia    int     `json:"num_media"`
	ReceivedAt  string  `json:"received_at"`
	Processed   bool    `json:"processed"`
	ProcessedAt *string `json:"processed_at,omitempty"`
}

func toInboundDTO(m entity.InboundMessage) inboundDTO {
	d := inboundDTO{
		ID:         m.ID,
		MessageSid: m.MessageSid,
		Channel:    string(m.Channel),
		From:       m.From,
		To:         m.To,
		Text:       m.Text,
		NumMedia:   m.NumMedia,
		ReceivedAt: m.ReceivedAt.UTC().Format(time.RFC3339),
		Processed:  m.Processed,
	}
	if m.ProcessedAt != nil {
		s := m.ProcessedAt.UTC().Format(time.RFC3339)
		d.ProcessedAt = &s
	}
	return d
}

type inboundQuery struct {
	Processed string `form:"processed" binding:"omitempty,oneof=true false"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset    int    `form:"offset" binding:"omitempty,min=0"`
}

// List GET /api/admin/inbound-messages
func (h *InboundHandler) List(c *gin.Context) {
	var q inboundQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	if q.Limit == 0 {
		q.Limit = 100
	}
	f := repo.InboundFilter{Limit: q.Limit, Offset: q.Offset}
	if q.Processed != "" {
		processed := q.Processed == "true"
		f.Processed = &processed
	}
	msgs, err := h.Inbox.List(c.Request.Context(), f)
	if err != nil {
		h.Logger.WithError(err).Error("list inbound messages failed")
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
		return
	}
	out := make([]inboundDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toInboundDTO(m))
	}
	response.Success(c, http.StatusOK, out, "ok", gin.H{"count": len(out), "limit": q.Limit, "offset": q.Offset})
}

// MarkProcessed POST /api/admin/inbound-messages/:id/processed
func (h *InboundHandler) MarkProcessed(c *gin.Context) {
	id := c.Param("id")
	if err := h.Inbox.MarkProcessed(c.Request.Context(), id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			response.Error[any](c, http.StatusNotFound, "inbound message not found", nil)
			return
		}
		h.Logger.WithError(err).WithField("id", id).Error("mark inbound message processed failed")
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id, "processed": true}, "message marked as processed", nil)
}
