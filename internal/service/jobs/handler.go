package jobs

import (
	"encoding/json"
	"log/slog"

	"github.com/gin-gonic/gin"

	svcErr "github.com/careersim/bff/internal/errors"
	"github.com/careersim/bff/internal/middleware"
	"github.com/careersim/bff/internal/response"
	"github.com/careersim/bff/internal/utils/pagination"
)

// IdempotencyHeader names the optional header that de-duplicates creates.
const IdempotencyHeader = "Idempotency-Key"

type handler struct {
	svc *Service
	log *slog.Logger
}

type screeningRequest struct {
	JobID    string `json:"job_id" binding:"required"`
	Passed   *bool  `json:"passed" binding:"required"`
	Feedback string `json:"feedback"`
}

type technicalRequest struct {
	JobID   string          `json:"job_id" binding:"required"`
	Passed  *bool           `json:"passed" binding:"required"`
	Score   *float64        `json:"score" binding:"required"`
	Details json.RawMessage `json:"details"`
}

type behavioralRequest struct {
	JobID    string   `json:"job_id" binding:"required"`
	Passed   *bool    `json:"passed" binding:"required"`
	Score    *float64 `json:"score" binding:"required"`
	Feedback *string  `json:"feedback"`
}

type finalizeRequest struct {
	JobID         string   `json:"job_id" binding:"required"`
	Hired         *bool    `json:"hired" binding:"required"`
	WeightedScore *float64 `json:"weighted_score" binding:"required"`
}

// bind decodes the JSON body into dst, answering 400 on failure.
func (h *handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, h.log, svcErr.InvalidInput("invalid request body"))
		return false
	}
	return true
}

func (h *handler) create(c *gin.Context) {
	me := middleware.MustCurrentUser(c)
	var in CreateInput
	if !h.bind(c, &in) {
		return
	}
	job, err := h.svc.Create(c.Request.Context(), me.ID, c.GetHeader(IdempotencyHeader), in)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, job)
}

func (h *handler) screening(c *gin.Context) {
	me := middleware.MustCurrentUser(c)
	var req screeningRequest
	if !h.bind(c, &req) {
		return
	}
	job, err := h.svc.RecordScreening(c.Request.Context(), me.ID, req.JobID, *req.Passed, req.Feedback)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, job)
}

func (h *handler) technical(c *gin.Context) {
	me := middleware.MustCurrentUser(c)
	var req technicalRequest
	if !h.bind(c, &req) {
		return
	}
	job, err := h.svc.RecordTechnical(c.Request.Context(), me.ID, req.JobID, *req.Passed, *req.Score, req.Details)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, job)
}

func (h *handler) behavioral(c *gin.Context) {
	me := middleware.MustCurrentUser(c)
	var req behavioralRequest
	if !h.bind(c, &req) {
		return
	}
	job, err := h.svc.RecordBehavioral(c.Request.Context(), me.ID, req.JobID, *req.Passed, *req.Score, req.Feedback)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, job)
}

func (h *handler) finalize(c *gin.Context) {
	me := middleware.MustCurrentUser(c)
	var req finalizeRequest
	if !h.bind(c, &req) {
		return
	}
	job, err := h.svc.Finalize(c.Request.Context(), me.ID, req.JobID, *req.Hired, *req.WeightedScore)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, job)
}

func (h *handler) history(c *gin.Context) {
	me := middleware.MustCurrentUser(c)
	page, err := pagination.Parse(c.Query("limit"), c.Query("offset"))
	if err != nil {
		response.Error(c, h.log, svcErr.InvalidInput(err.Error()))
		return
	}
	out, err := h.svc.History(c.Request.Context(), me.ID, c.Query("status_filter"), page)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, out)
}

func (h *handler) get(c *gin.Context) {
	me := middleware.MustCurrentUser(c)
	job, err := h.svc.Get(c.Request.Context(), c.Param("id"), me.ID)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, job)
}

func (h *handler) stats(c *gin.Context) {
	me := middleware.MustCurrentUser(c)
	out, err := h.svc.Stats(c.Request.Context(), me.ID)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, out)
}
