package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/careersim/bff/internal/app"
	"github.com/careersim/bff/internal/auth"
	"github.com/careersim/bff/internal/cache"
	"github.com/careersim/bff/internal/config"
	"github.com/careersim/bff/internal/db"
	"github.com/careersim/bff/internal/logger"
	"github.com/careersim/bff/internal/middleware"
	"github.com/careersim/bff/internal/server"
	"github.com/careersim/bff/internal/service/friends"
	"github.com/careersim/bff/internal/service/jobs"
	"github.com/careersim/bff/internal/service/media"
	"github.com/careersim/bff/internal/service/notifications"
	"github.com/careersim/bff/internal/service/profile"
	"github.com/careersim/bff/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L() // slog.Logger pointer

	for _, name := range cfg.MissingCredentials() {
		log.Warn("missing required setting; dependent calls will fail", "env", name)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB; without DATABASE_URL every query fails and /healthz says so
	database, err := db.NewDB(cfg)
	if errors.Is(err, db.ErrNotConfigured) {
		database, err = db.Unconfigured(cfg.DB.Driver)
	}
	if err != nil {
		return err
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		log.Warn("redis unreachable; caching and create de-duplication are degraded", "addr", cfg.Redis.Addr, "err", err)
	}

	store, err := storage.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	verifier := auth.NewVerifier(cfg.Supabase.JWTSecret, cfg.Supabase.JWTAudience)

	// Inject shared handles into app context
	appCtx := app.New(cfg, database, redisCache, store, verifier, log)

	if cfg.App.ENV != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	guards := middleware.NewGuards(verifier, profile.NewResolver(appCtx), log)
	router := server.NewRouter(appCtx, guards,
		profile.NewRegistrar(appCtx),
		friends.NewRegistrar(appCtx),
		notifications.NewRegistrar(appCtx),
		jobs.NewRegistrar(appCtx),
		media.NewRegistrar(appCtx),
	)
	httpServer := server.NewHTTPServer(cfg, router)
	grpcServer := server.NewGRPCServer(cfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting HTTP server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("starting gRPC server", "addr", grpcServer.Addr())
		return grpcServer.ListenAndServe()
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		grpcServer.Stop()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
