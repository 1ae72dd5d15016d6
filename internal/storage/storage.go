// Package storage abstracts the object store holding profile pictures.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/careersim/bff/internal/config"
)

// ErrNotConfigured is returned by a backend whose credentials are missing.
var ErrNotConfigured = errors.New("object storage is not configured")

// ObjectStore is a single bucket of objects addressed by key.
type ObjectStore interface {
	// List returns the full keys of every object under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	// Upload writes body under key, replacing any existing object.
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
	// Remove deletes the given keys.
	Remove(ctx context.Context, keys []string) error
	// PublicURL is the deterministic public address of key.
	PublicURL(key string) string
}

const (
	ModeSupabase = "supabase"
	ModeGCS      = "gcs"
	ModeMemory   = "memory"
)

// MemoryRoute is the HTTP path under which the memory backend's objects
// are served.
const MemoryRoute = "/api/media"

// New builds the backend selected by cfg.Storage.Mode.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (ObjectStore, error) {
	switch cfg.Storage.Mode {
	case ModeSupabase, "":
		log.Info("object storage initialized", "mode", ModeSupabase, "bucket", cfg.Storage.Bucket)
		return NewSupabase(SupabaseConfig{
			ProjectURL: cfg.Supabase.URL,
			ServiceKey: cfg.Supabase.ServiceRoleKey,
			Bucket:     cfg.Storage.Bucket,
		}), nil
	case ModeGCS:
		store, err := NewGCS(ctx, cfg.Storage.GCSBucket)
		if err != nil {
			return nil, err
		}
		log.Info("object storage initialized", "mode", ModeGCS, "bucket", cfg.Storage.GCSBucket)
		return store, nil
	case ModeMemory:
		log.Warn("object storage is in-memory; uploads are lost on restart")
		return NewMemory(cfg.App.BackendURL + MemoryRoute), nil
	default:
		return nil, fmt.Errorf("unsupported OBJECT_STORAGE_MODE %q", cfg.Storage.Mode)
	}
}
