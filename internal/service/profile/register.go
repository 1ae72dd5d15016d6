package profile

import (
	"github.com/gin-gonic/gin"

	"github.com/careersim/bff/internal/app"
	"github.com/careersim/bff/internal/middleware"
)

// Registrar ties the auth and user routes into the HTTP API
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the profile service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// RegisterRoutes attaches /auth and /users handlers to the API group
func (r *Registrar) RegisterRoutes(api *gin.RouterGroup, guards middleware.Guards) {
	h := newHandler(NewService(r.appCtx), r.appCtx.Logger)

	authGroup := api.Group("/auth")
	authGroup.GET("/me", guards.Required, h.me)
	authGroup.GET("/session", guards.Optional, h.session)

	users := api.Group("/users", guards.Required)
	users.GET("/profile", h.getStats)
	users.PUT("/profile", h.updateStats)
	users.GET("/me/full", h.full)
	users.PUT("/account", h.updateAccount)
}
