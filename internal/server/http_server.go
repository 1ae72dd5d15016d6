package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/careersim/bff/internal/app"
	"github.com/careersim/bff/internal/config"
	"github.com/careersim/bff/internal/metrics"
	"github.com/careersim/bff/internal/middleware"
)

const healthTimeout = 2 * time.Second

// NewRouter builds the gin engine with the shared middleware chain,
// /healthz, /metrics and every registrar mounted under /api.
func NewRouter(appCtx *app.AppContext, guards middleware.Guards, registrars ...RouteRegistrar) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestLogger(appCtx.Logger),
		middleware.Metrics(),
		middleware.CORS(appCtx.Config.App.FrontendURL),
	)

	r.GET("/healthz", healthz(appCtx))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	for _, reg := range registrars {
		reg.RegisterRoutes(api, guards)
	}
	return r
}

// NewHTTPServer wraps handler with the listener address and timeouts.
func NewHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

type healthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db"`
	Redis  string `json:"redis"`
}

func healthz(appCtx *app.AppContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		out := healthResponse{Status: "ok", DB: "ok", Redis: "ok"}
		if err := pingDB(ctx, appCtx); err != nil {
			appCtx.Logger.Warn("health: db unreachable", "err", err)
			out.Status, out.DB = "degraded", "unreachable"
		}
		if err := appCtx.RedisCache.Ping(ctx); err != nil {
			appCtx.Logger.Warn("health: redis unreachable", "err", err)
			out.Status, out.Redis = "degraded", "unreachable"
		}

		code := http.StatusOK
		if out.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, out)
	}
}

func pingDB(ctx context.Context, appCtx *app.AppContext) error {
	sqlDB, err := appCtx.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
