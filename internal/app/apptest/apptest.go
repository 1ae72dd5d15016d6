// Package apptest wires an AppContext on in-memory backends for service tests.
package apptest

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"

	"github.com/careersim/bff/internal/app"
	"github.com/careersim/bff/internal/auth"
	"github.com/careersim/bff/internal/auth/authtest"
	"github.com/careersim/bff/internal/cache"
	"github.com/careersim/bff/internal/config"
	"github.com/careersim/bff/internal/db/dbtest"
	"github.com/careersim/bff/internal/logger"
	"github.com/careersim/bff/internal/storage"
)

// Env is an AppContext plus handles on its fakes.
type Env struct {
	App   *app.AppContext
	Redis *miniredis.Miniredis
	Store *storage.Memory
}

// New gives each test its own sqlite DB, miniredis and memory store.
func New(t *testing.T) *Env {
	t.Helper()

	mr := miniredis.RunT(t)

	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()
	cfg.Supabase.JWTSecret = authtest.Secret
	cfg.Storage.Mode = storage.ModeMemory
	cfg.Storage.MaxUploadSize = 5 << 20
	cfg.App.BackendURL = "http://localhost:8000"

	rdb := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = rdb.Close() })

	store := storage.NewMemory(cfg.App.BackendURL + storage.MemoryRoute)
	verifier := auth.NewVerifier(cfg.Supabase.JWTSecret, auth.DefaultAudience)

	return &Env{
		App:   app.New(cfg, dbtest.Open(t), rdb, store, verifier, logger.Discard()),
		Redis: mr,
		Store: store,
	}
}

// Token mints a valid access token for userID.
func Token(userID, email string) string {
	return authtest.Sign(authtest.Secret, authtest.Token{Subject: userID, Email: email, Confirmed: true})
}

// Engine returns a test-mode gin engine.
func Engine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}
