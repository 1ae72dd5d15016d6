package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("PROFILE_PICTURES_BUCKET", "")
	t.Setenv("MEDIA_MAX_BYTES", "")
	t.Setenv("FRONTEND_URL", "")
	t.Setenv("APP_ENV", "")

	cfg := New()

	assert.Equal(t, "production", cfg.App.ENV)
	assert.NotEqual(t, "development", cfg.App.ENV)

	assert.Equal(t, "profile-pictures", cfg.Storage.Bucket)
	assert.Equal(t, int64(5<<20), cfg.Storage.MaxUploadSize)
	assert.Equal(t, "authenticated", cfg.Supabase.JWTAudience)
	assert.Equal(t, "http://localhost:5173", cfg.App.FrontendURL)
}

func TestNew_TrimsURLsAndParsesNumbers(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://abc.supabase.co/")
	t.Setenv("MEDIA_MAX_BYTES", "1024")
	t.Setenv("REDIS_DB", "3")

	cfg := New()

	assert.Equal(t, "https://abc.supabase.co", cfg.Supabase.URL)
	assert.Equal(t, int64(1024), cfg.Storage.MaxUploadSize)
	assert.Equal(t, 3, cfg.Redis.DB)
}

func TestMissingCredentials(t *testing.T) {
	cfg := &Config{}
	cfg.Supabase.URL = "https://abc.supabase.co"
	cfg.Supabase.JWTSecret = "secret"
	cfg.DB.Driver = "postgres"

	assert.Equal(t, []string{"SUPABASE_ANON_KEY", "SUPABASE_SERVICE_ROLE_KEY", "DATABASE_URL"}, cfg.MissingCredentials())

	cfg.DB.DSN = "postgres://localhost/careersim"
	assert.NotContains(t, cfg.MissingCredentials(), "DATABASE_URL")

	cfg.DB.DSN = ""
	cfg.DB.Driver = "sqlite"
	assert.NotContains(t, cfg.MissingCredentials(), "DATABASE_URL")
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", " on "} {
		assert.True(t, isTruthy(v), v)
	}
	for _, v := range []string{"", "0", "off", "nope"} {
		assert.False(t, isTruthy(v), v)
	}
}
