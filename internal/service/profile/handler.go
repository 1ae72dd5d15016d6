package profile

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/careersim/bff/internal/auth"
	svcErr "github.com/careersim/bff/internal/errors"
	"github.com/careersim/bff/internal/middleware"
	"github.com/careersim/bff/internal/response"
)

type handler struct {
	svc *Service
	log *slog.Logger
}

func newHandler(svc *Service, log *slog.Logger) *handler {
	return &handler{svc: svc, log: log}
}

type sessionResponse struct {
	Authenticated bool              `json:"authenticated"`
	User          *auth.CurrentUser `json:"user,omitempty"`
}

func (h *handler) me(c *gin.Context) {
	response.OK(c, middleware.MustCurrentUser(c))
}

func (h *handler) session(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	response.OK(c, sessionResponse{Authenticated: ok, User: u})
}

func (h *handler) getStats(c *gin.Context) {
	user := middleware.MustCurrentUser(c)
	st, err := h.svc.Stats(c.Request.Context(), user.ID)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, st)
}

func (h *handler) updateStats(c *gin.Context) {
	user := middleware.MustCurrentUser(c)
	var in UpdateStatsInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, h.log, svcErr.InvalidInput("invalid request body"))
		return
	}
	st, err := h.svc.UpdateStats(c.Request.Context(), user.ID, in)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, st)
}

func (h *handler) full(c *gin.Context) {
	user := middleware.MustCurrentUser(c)
	out, err := h.svc.Full(c.Request.Context(), user)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, out)
}

func (h *handler) updateAccount(c *gin.Context) {
	user := middleware.MustCurrentUser(c)
	var in UpdateAccountInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, h.log, svcErr.InvalidInput("invalid request body"))
		return
	}
	out, err := h.svc.UpdateAccount(c.Request.Context(), user, in)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, out)
}
