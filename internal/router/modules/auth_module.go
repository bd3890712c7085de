package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/enxergar/outreach/internal/container"
	handlers "github.com/enxergar/outreach/internal/interface/http"
	"github.com/enxergar/outreach/internal/interface/middleware"
)

// AuthModule serves organizer sign-in under /api/auth.
type AuthModule struct {
	Handler  *handlers.AuthHandler
	Sessions middleware.SessionChecker
}

func NewAuthModule(h *handlers.AuthHandler, sessions middleware.SessionChecker) *AuthModule {
	return &AuthModule{Handler: h, Sessions: sessions}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	loginLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	refreshLimiter := middleware.RateLimit(rdb, 60, time.Minute, middleware.KeyByIPAndPath(), nil)

	auth := rg.Group("/auth")
	auth.POST("/login", loginLimiter, m.Handler.Login)
	auth.POST("/refresh", refreshLimiter, m.Handler.Refresh)

	protected := auth.Group("")
	protected.Use(middleware.Auth(container.GetJWT(), m.Sessions))
	{
		protected.POST("/logout", m.Handler.Logout)
		protected.GET("/me", m.Handler.Me)
	}
}
