package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/careersim/bff/internal/auth"
	"github.com/careersim/bff/internal/cache"
	"github.com/careersim/bff/internal/config"
	"github.com/careersim/bff/internal/storage"
)

// AppContext holds the process-wide dependencies, constructed once at
// startup and shared by every service.
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Storage    storage.ObjectStore
	Verifier   *auth.Verifier
	Logger     *slog.Logger
}

// New creates a new AppContext
func New(
	cfg *config.Config,
	db *gorm.DB,
	rdb *cache.RedisCache,
	store storage.ObjectStore,
	verifier *auth.Verifier,
	logger *slog.Logger,
) *AppContext {
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Storage:    store,
		Verifier:   verifier,
		Logger:     logger,
	}
}
