package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/enxergar/outreach/internal/application"
	"github.com/enxergar/outreach/internal/domain/entity"
	"github.com/enxergar/outreach/internal/interface/middleware"
	"github.com/enxergar/outreach/pkg/helpers"
	"github.com/enxergar/outreach/pkg/response"
	"github.com/enxergar/outreach/pkg/validation"
)

type AuthUsecase interface {
	Login(ctx context.Context, email, password string) (*entity.Organizer, application.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (application.TokenPair, error)
	Logout(ctx context.Context, organizerID string) error
	Profile(ctx context.Context, organizerID string) (*entity.Organizer, error)
}

type AuthHandler struct {
	Svc    AuthUsecase
	Logger *logrus.Logger
}

func NewAuthHandler(svc AuthUsecase, logger *logrus.Logger) *AuthHandler {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return &AuthHandler{Svc: svc, Logger: logger}
}

type organizerDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

func toOrganizerDTO(o *entity.Organizer) organizerDTO {
	return organizerDTO{ID: o.ID, Name: o.Name, Email: o.Email, Role: o.Role, Status: o.Status}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	o, pair, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, application.ErrInvalidCredentials):
		response.Error[any](c, http.StatusUnauthorized, "invalid credentials", nil)
		return
	case errors.Is(err, application.ErrOrganizerInactive):
		response.Error[any](c, http.StatusForbidden, "organizer is not active", nil)
		return
	case err != nil:
		h.Logger.WithError(err).Error("login failed")
		response.Error[any](c, http.StatusInternalServerError, "login failed", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"organizer": toOrganizerDTO(o), "tokens": pair}, "login success", nil)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	pair, err := h.Svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Error[any](c, http.StatusUnauthorized, "invalid refresh token", nil)
		return
	}
	response.Success(c, http.StatusOK, pair, "token refreshed", nil)
}

// Logout POST /api/auth/logout (auth required)
func (h *AuthHandler) Logout(c *gin.Context) {
	id := c.GetString(middleware.CtxOrganizerIDKey)
	if err := h.Svc.Logout(c.Request.Context(), id); err != nil {
		h.Logger.WithError(err).WithField("organizer_id", id).Warn("logout failed")
		response.Error[any](c, http.StatusInternalServerError, "logout failed", nil)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "logged out", nil)
}

// Me GET /api/auth/me (auth required)
func (h *AuthHandler) Me(c *gin.Context) {
	o, err := h.Svc.Profile(c.Request.Context(), c.GetString(middleware.CtxOrganizerIDKey))
	if err != nil {
		response.Error[any](c, http.StatusNotFound, "organizer not found", nil)
		return
	}
	response.Success(c, http.StatusOK, toOrganizerDTO(o), "ok", nil)
}
