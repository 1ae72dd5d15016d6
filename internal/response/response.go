// Package response writes JSON bodies and classified errors for gin handlers.
package response

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	svcErr "github.com/careersim/bff/internal/errors"
)

// ErrorBody is the error envelope the frontend parses.
type ErrorBody struct {
	Detail string `json:"detail"`
}

func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// Error classifies err, answers with its status and public message, and
// aborts the handler chain. Internal errors are logged with their cause.
func Error(c *gin.Context, log *slog.Logger, err error) {
	err = svcErr.Map(err)
	kind := svcErr.KindOf(err)
	status := svcErr.HTTPStatus(kind)

	if kind == svcErr.KindInternal && log != nil {
		log.Error("request failed",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"err", err,
		)
	}
	if kind == svcErr.KindUnauthenticated {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(status, ErrorBody{Detail: svcErr.PublicMessage(err)})
}
