package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/careersim/bff/internal/config"
)

// ErrNotConfigured is returned when DATABASE_URL is unset for a server
// backed driver, and by every statement run through Unconfigured.
var ErrNotConfigured = errors.New("database is not configured")

// NewDB opens the relational store selected by cfg.DB.Driver and migrates
// the schema.
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	logLevel := logger.Warn
	if cfg.DB.LogSQL {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Unconfigured returns a handle for the named driver whose every statement
// fails with ErrNotConfigured. It never dials anything, so the server can
// start and serve /healthz without a database.
func Unconfigured(name string) (*gorm.DB, error) {
	conn := sql.OpenDB(unconfiguredConnector{})

	var dialector gorm.Dialector
	switch name {
	case "mysql":
		dialector = mysql.New(mysql.Config{Conn: conn, SkipInitializeWithVersion: true})
	default:
		dialector = postgres.New(postgres.Config{Conn: conn, PreferSimpleProtocol: true})
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		TranslateError:       true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build unconfigured db: %w", err)
	}
	return db, nil
}

type unconfiguredConnector struct{}

func (unconfiguredConnector) Connect(context.Context) (driver.Conn, error) {
	return nil, ErrNotConfigured
}

func (c unconfiguredConnector) Driver() driver.Driver { return c }

func (unconfiguredConnector) Open(string) (driver.Conn, error) { return nil, ErrNotConfigured }

// Migrate brings the schema in sync with the models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func dialectorFor(name, dsn string) (gorm.Dialector, error) {
	switch name {
	case "postgres", "postgresql", "":
		if dsn == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for postgres: %w", ErrNotConfigured)
		}
		// Supabase's transaction pooler cannot keep prepared statements.
		return postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true}), nil
	case "mysql":
		if dsn == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for mysql: %w", ErrNotConfigured)
		}
		return mysql.Open(dsn), nil
	case "sqlite":
		if dsn == "" {
			dsn = "file:careersim.db?cache=shared"
		}
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", name)
	}
}
