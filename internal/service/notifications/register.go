package notifications

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/careersim/bff/internal/app"
	"github.com/careersim/bff/internal/middleware"
	"github.com/careersim/bff/internal/response"
)

// Registrar ties the notification inbox routes into the HTTP API
type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

func (r *Registrar) RegisterRoutes(api *gin.RouterGroup, guards middleware.Guards) {
	h := &handler{svc: NewService(r.appCtx), log: r.appCtx.Logger}

	g := api.Group("/friends/notifications", guards.Required)
	g.GET("", h.list)
	g.POST("/read-all", h.markAllRead)
	g.POST("/:id/read", h.markRead)
}

type handler struct {
	svc *Service
	log *slog.Logger
}

func (h *handler) list(c *gin.Context) {
	me := middleware.MustCurrentUser(c)
	inbox, err := h.svc.List(c.Request.Context(), me.ID)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, inbox)
}

func (h *handler) markRead(c *gin.Context) {
	me := middleware.MustCurrentUser(c)
	if err := h.svc.MarkRead(c.Request.Context(), c.Param("id"), me.ID); err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"status": "ok"})
}

func (h *handler) markAllRead(c *gin.Context) {
	me := middleware.MustCurrentUser(c)
	n, err := h.svc.MarkAllRead(c.Request.Context(), me.ID)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"status": "ok", "updated": n})
}
