package friends

import (
	"github.com/gin-gonic/gin"

	"github.com/careersim/bff/internal/app"
	"github.com/careersim/bff/internal/middleware"
)

// Registrar ties the friend graph routes into the HTTP API
type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

func (r *Registrar) RegisterRoutes(api *gin.RouterGroup, guards middleware.Guards) {
	h := &handler{svc: NewService(r.appCtx), log: r.appCtx.Logger}

	g := api.Group("/friends", guards.Required)
	g.GET("/search", h.search)
	g.POST("/request", h.createRequest)
	g.GET("/requests", h.listPending)
	g.POST("/requests/:id/accept", h.respond(true))
	g.POST("/requests/:id/decline", h.respond(false))
	g.GET("/list", h.listFriends)
}
