package server

import (
	"github.com/gin-gonic/gin"

	"github.com/careersim/bff/internal/middleware"
)

// RouteRegistrar is a common interface for all HTTP route registrars.
// Routes are mounted under the /api group.
type RouteRegistrar interface {
	RegisterRoutes(api *gin.RouterGroup, guards middleware.Guards)
}
