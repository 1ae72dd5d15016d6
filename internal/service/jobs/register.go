package jobs

import (
	"github.com/gin-gonic/gin"

	"github.com/careersim/bff/internal/app"
	"github.com/careersim/bff/internal/middleware"
)

// Registrar ties the job application tracker into the HTTP API
type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

func (r *Registrar) RegisterRoutes(api *gin.RouterGroup, guards middleware.Guards) {
	h := &handler{svc: NewService(r.appCtx), log: r.appCtx.Logger}

	g := api.Group("/jobs", guards.Required)

	track := g.Group("/track")
	track.POST("/create", h.create)
	track.POST("/screening", h.screening)
	track.POST("/technical", h.technical)
	track.POST("/behavioral", h.behavioral)
	track.POST("/finalize", h.finalize)

	g.GET("/history", h.history)
	g.GET("/history/:id", h.get)
	g.GET("/stats", h.stats)
}
