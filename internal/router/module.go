package router

import "github.com/gin-gonic/gin"

// Module registers a feature's routes under /api.
type Module interface {
	Register(rg *gin.RouterGroup)
}
