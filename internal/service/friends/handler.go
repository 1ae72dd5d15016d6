package friends

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	svcErr "github.com/careersim/bff/internal/errors"
	"github.com/careersim/bff/internal/middleware"
	"github.com/careersim/bff/internal/response"
)

type handler struct {
	svc *Service
	log *slog.Logger
}

type statusResponse struct {
	Status string `json:"status"`
}

func (h *handler) search(c *gin.Context) {
	me := middleware.MustCurrentUser(c)
	out, err := h.svc.Search(c.Request.Context(), me.ID, c.Query("q"))
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, out)
}

func (h *handler) createRequest(c *gin.Context) {
	me := middleware.MustCurrentUser(c)
	var in CreateRequestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, h.log, svcErr.InvalidInput("invalid request body"))
		return
	}
	fr, err := h.svc.CreateRequest(c.Request.Context(), me, in)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, fr)
}

func (h *handler) listPending(c *gin.Context) {
	me := middleware.MustCurrentUser(c)
	out, err := h.svc.ListPending(c.Request.Context(), me.ID)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, out)
}

func (h *handler) respond(accept bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		me := middleware.MustCurrentUser(c)
		if err := h.svc.Respond(c.Request.Context(), me, c.Param("id"), accept); err != nil {
			response.Error(c, h.log, err)
			return
		}
		response.OK(c, statusResponse{Status: "ok"})
	}
}

func (h *handler) listFriends(c *gin.Context) {
	me := middleware.MustCurrentUser(c)
	out, err := h.svc.ListFriends(c.Request.Context(), me.ID)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, out)
}
