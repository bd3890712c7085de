package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enxergar/outreach/internal/domain/entity"
	repo "github.com/enxergar/outreach/internal/domain/repository"
)

type stubInbox struct {
	filter repo.InboundFilter
	marked string
}

func (s *stubInbox) List(_ context.Context, f repo.InboundFilter) ([]entity.InboundMessage, error) {
	s.filter = f
	at := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)
	return []entity.InboundMessage{{ID: "in1", MessageSid: "SM1", Channel: entity.TemplateWhatsApp, From: "5511999887766", Text: "Confirmo", ReceivedAt: at}}, nil
}

func (s *stubInbox) MarkProcessed(_ context.Context, id string) error {
	if id != "in1" {
		return repo.ErrNotFound
	}
	s.marked = id
	return nil
}

func TestInboundHandler(t *testing.T) {
	inbox := &stubInbox{}
	h := NewInboundHandler(inbox, nil)
	r := gin.New()
	r.GET("/inbound", h.List)
	r.POST("/inbound/:id/processed", h.MarkProcessed)

	w := call(r, http.MethodGet, "/inbound?processed=false&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, inbox.filter.Processed)
	assert.False(t, *inbox.filter.Processed)
	assert.Equal(t, 10, inbox.filter.Limit)
	msg := decode(t, w)["data"].([]any)[0].(map[string]any)
	assert.Equal(t, "whatsapp", msg["channel"])
	assert.Equal(t, "2024-03-14T12:00:00Z", msg["received_at"])

	w = call(r, http.MethodGet, "/inbound", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, inbox.filter.Processed)
	assert.Equal(t, 100, inbox.filter.Limit)

	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodGet, "/inbound?processed=maybe", nil).Code)

	assert.Equal(t, http.StatusOK, call(r, http.MethodPost, "/inbound/in1/processed", nil).Code)
	assert.Equal(t, "in1", inbox.marked)
	assert.Equal(t, http.StatusNotFound, call(r, http.MethodPost, "/inbound/nope/processed", nil).Code)
}
