package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App struct {
		ENV         string
		FrontendURL string
		BackendURL  string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	Supabase struct {
		URL            string
		AnonKey        string
		ServiceRoleKey string
		JWTSecret      string
		JWTAudience    string
	}

	Storage struct {
		Mode          string
		Bucket        string
		GCSBucket     string
		MaxUploadSize int64
	}

	DB struct {
		Driver string
		DSN    string
		LogSQL bool
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	HTTP struct {
		Host string
		Port string
	}

	GRPC struct {
		Host string
		Port string
	}
}

// New loads .env (when present) and builds the config from the environment.
func New() *Config {
	// a missing .env is the normal case outside local development
	_ = godotenv.Load()

	cfg := &Config{}

	// App
	cfg.App.ENV = getEnvDefault("APP_ENV", "production")
	cfg.App.FrontendURL = strings.TrimRight(getEnvDefault("FRONTEND_URL", "http://localhost:5173"), "/")
	cfg.App.BackendURL = strings.TrimRight(getEnvDefault("BACKEND_URL", "http://localhost:8000"), "/")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "bff")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Supabase
	cfg.Supabase.URL = strings.TrimRight(strings.TrimSpace(os.Getenv("SUPABASE_URL")), "/")
	cfg.Supabase.AnonKey = strings.TrimSpace(os.Getenv("SUPABASE_ANON_KEY"))
	cfg.Supabase.ServiceRoleKey = strings.TrimSpace(os.Getenv("SUPABASE_SERVICE_ROLE_KEY"))
	cfg.Supabase.JWTSecret = strings.TrimSpace(os.Getenv("SUPABASE_JWT_SECRET"))
	cfg.Supabase.JWTAudience = getEnvDefault("JWT_AUDIENCE", "authenticated")

	// Object storage
	cfg.Storage.Mode = strings.ToLower(getEnvDefault("OBJECT_STORAGE_MODE", "supabase"))
	cfg.Storage.Bucket = getEnvDefault("PROFILE_PICTURES_BUCKET", "profile-pictures")
	cfg.Storage.GCSBucket = getEnvDefault("GCS_BUCKET", cfg.Storage.Bucket)
	cfg.Storage.MaxUploadSize = 5 << 20
	if v := getEnvDefault("MEDIA_MAX_BYTES", ""); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Storage.MaxUploadSize = n
		}
	}

	// Database
	cfg.DB.Driver = strings.ToLower(getEnvDefault("DB_DRIVER", "postgres"))
	cfg.DB.DSN = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.DB.LogSQL = isTruthy(os.Getenv("DB_LOG_SQL"))

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	if dbStr := getEnvDefault("REDIS_DB", "0"); dbStr != "" {
		if dbInt, err := strconv.Atoi(dbStr); err == nil {
			cfg.Redis.DB = dbInt
		}
	}

	// HTTP
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "0.0.0.0")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", getEnvDefault("PORT", "8000"))

	// gRPC (health only)
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")

	return cfg
}

// MissingCredentials names the required settings that are unset.
// Startup only warns about them; calls depending on them fail later.
func (c *Config) MissingCredentials() []string {
	var missing []string
	if c.Supabase.URL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if c.Supabase.AnonKey == "" {
		missing = append(missing, "SUPABASE_ANON_KEY")
	}
	if c.Supabase.ServiceRoleKey == "" {
		missing = append(missing, "SUPABASE_SERVICE_ROLE_KEY")
	}
	if c.Supabase.JWTSecret == "" {
		missing = append(missing, "SUPABASE_JWT_SECRET")
	}
	// sqlite falls back to a local file
	if c.DB.DSN == "" && c.DB.Driver != "sqlite" {
		missing = append(missing, "DATABASE_URL")
	}
	return missing
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
