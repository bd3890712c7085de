package modules

import (
	"expvar"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/enxergar/outreach/internal/container"
	"github.com/enxergar/outreach/internal/interface/middleware"
)

// DebugModule exposes expvar at /api/debug/vars and Prometheus at /metrics,
// both reachable from private networks only.
type DebugModule struct {
	Engine     *gin.Engine
	Expvar     bool
	Prometheus bool
}

func NewDebugModule(engine *gin.Engine, expvarOn, prometheusOn bool) *DebugModule {
	return &DebugModule{Engine: engine, Expvar: expvarOn, Prometheus: prometheusOn}
}

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rl := middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	if m.Expvar {
		rg.GET("/debug/vars", middleware.OnlyPrivateIP(), rl, gin.WrapH(expvar.Handler()))
	}
	if m.Prometheus && m.Engine != nil {
		m.Engine.GET("/metrics", middleware.OnlyPrivateIP(), rl, gin.WrapH(promhttp.Handler()))
	}
}
