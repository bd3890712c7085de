package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/enxergar/outreach/internal/application"
	"github.com/enxergar/outreach/internal/domain/entity"
	repo "github.com/enxergar/outreach/internal/domain/repository"
	"github.com/enxergar/outreach/pkg/helpers"
	"github.com/enxergar/outreach/pkg/response"
	"github.com/enxergar/outreach/pkg/validation"
)

type TemplateUsecase interface {
	List(ctx context.Context, f repo.TemplateFilter) ([]entity.NotificationTemplate, error)
	Get(ctx context.Context, id string) (*entity.NotificationTemplate, error)
	Create(ctx context.Context, in application.TemplateInput) (*entity.NotificationTemplate, error)
	Update(ctx context.Context, id string, in application.TemplateInput) (*entity.NotificationTemplate, error)
	Duplicate(ctx context.Context, id string) (*entity.NotificationTemplate, error)
	Toggle(ctx context.Context, id string) (*entity.NotificationTemplate, error)
	Delete(ctx context.Context, id string) error
	Preview(ctx context.Context, req application.PreviewRequest) (application.PreviewResult, error)
	Stats(ctx context.Context) ([]repo.TemplateStats, error)
}

type TemplateHandler struct {
	Svc    TemplateUsecase
	Logger *logrus.Logger
}

func NewTemplateHandler(svc TemplateUsecase, logger *logrus.Logger) *TemplateHandler {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return &TemplateHandler{Svc: svc, Logger: logger}
}

type templateDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Subject   string `json:"subject,omitempty"`
	Content   string `json:"content"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toTemplateDTO(t *entity.NotificationTemplate) templateDTO {
	return templateDTO{
		ID:        t.ID,
		Name:      t.Name,
		Type:      string(t.Type),
		Subject:   t.Subject,
		Content:   t.Content,
		IsActive:  t.IsActive,
		CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type templateRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Subject  string `json:"subject"`
	Content  string `json:"content"`
	IsActive *bool  `json:"is_active"`
}

func (r templateRequest) input() application.TemplateInput {
	return application.TemplateInput{Name: r.Name, Type: entity.TemplateType(r.Type), Subject: r.Subject, Content: r.Content, IsActive: r.IsActive}
}

// templateError writes the envelope for a service error.
func (h *TemplateHandler) templateError(c *gin.Context, err error) {
	var ve *application.ValidationError
	switch {
	case errors.As(err, &ve):
		response.Error[any](c, http.StatusBadRequest, "invalid template", ve.Fields)
	case errors.Is(err, application.ErrTemplateNotFound):
		response.Error[any](c, http.StatusNotFound, "template not found", nil)
	case errors.Is(err, application.ErrTemplateNameTaken):
		response.Error[any](c, http.StatusConflict, "template name already exists", nil)
	default:
		h.Logger.WithError(err).Error("template operation failed")
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
	}
}

// List GET /api/admin/templates?type=&active=&q=
func (h *TemplateHandler) List(c *gin.Context) {
	f := repo.TemplateFilter{Type: entity.TemplateType(c.Query("type")), Search: c.Query("q")}
	if f.Type != "" && !f.Type.Valid() {
		response.Error[any](c, http.StatusBadRequest, "invalid type", nil)
		return
	}
	if a := c.Query("active"); a != "" {
		active, err := strconv.ParseBool(a)
		if err != nil {
			response.Error[any](c, http.StatusBadRequest, "active must be a boolean", nil)
			return
		}
		f.Active = &active
	}
	ts, err := h.Svc.List(c.Request.Context(), f)
	if err != nil {
		h.templateError(c, err)
		return
	}
	out := make([]templateDTO, 0, len(ts))
	for i := range ts {
		out = append(out, toTemplateDTO(&ts[i]))
	}
	response.Success(c, http.StatusOK, out, "ok", gin.H{"count": len(out)})
}

// Get GET /api/admin/templates/:id
func (h *TemplateHandler) Get(c *gin.Context) {
	t, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.templateError(c, err)
		return
	}
	response.Success(c, http.StatusOK, toTemplateDTO(t), "ok", nil)
}

// Create POST /api/admin/templates
func (h *TemplateHandler) Create(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	t, err := h.Svc.Create(c.Request.Context(), req.input())
	if err != nil {
		h.templateError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, toTemplateDTO(t), "template created", nil)
}

// Update PUT /api/admin/templates/:id
func (h *TemplateHandler) Update(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	t, err := h.Svc.Update(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		h.templateError(c, err)
		return
	}
	response.Success(c, http.StatusOK, toTemplateDTO(t), "template updated", nil)
}

// Duplicate POST /api/admin/templates/:id/duplicate
func (h *TemplateHandler) Duplicate(c *gin.Context) {
	t, err := h.Svc.Duplicate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.templateError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, toTemplateDTO(t), "template duplicated", nil)
}

// Toggle POST /api/admin/templates/:id/toggle
func (h *TemplateHandler) Toggle(c *gin.Context) {
	t, err := h.Svc.Toggle(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.templateError(c, err)
		return
	}
	response.Success(c, http.StatusOK, toTemplateDTO(t), "template toggled", nil)
}

// Delete DELETE /api/admin/templates/:id
func (h *TemplateHandler) Delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.templateError(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "template deleted", nil)
}

type previewRequest struct {
	TemplateID string            `json:"templateId"`
	Draft      *templateRequest  `json:"draft"`
	Data       map[string]string `json:"data"`
}

// Preview POST /api/admin/templates/preview
func (h *TemplateHandler) Preview(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	in := application.PreviewRequest{TemplateID: req.TemplateID, Variables: req.Data}
	if req.Draft != nil {
		d := req.Draft.input()
		in.Draft = &d
	}
	res, err := h.Svc.Preview(c.Request.Context(), in)
	if err != nil {
		h.templateError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res, "ok", nil)
}

// Stats GET /api/admin/templates/stats
func (h *TemplateHandler) Stats(c *gin.Context) {
	stats, err := h.Svc.Stats(c.Request.Context())
	if err != nil {
		h.templateError(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats, "ok", nil)
}

// Variables GET /api/admin/templates/variables
func (h *TemplateHandler) Variables(c *gin.Context) {
	response.Success(c, http.StatusOK, application.AvailableVariables, "ok", nil)
}
