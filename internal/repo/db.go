// Package repo is the GORM persistence layer for listings, carts and
// idempotency records. Functions take the *gorm.DB explicitly so services
// can run them inside a transaction.
package repo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/campus-market/internal/domain"
)

// Values accepted for DB_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// sqlitePragmas are set on every pooled connection through the DSN.
// busy_timeout and foreign_keys are per-connection in SQLite.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

type poolLimits struct {
	maxOpen, maxIdle int
	idleTime         time.Duration
	lifetime         time.Duration
}

var (
	sqlitePool   = poolLimits{maxOpen: 10, maxIdle: 10, idleTime: 5 * time.Minute, lifetime: 30 * time.Minute}
	postgresPool = poolLimits{maxOpen: 25, maxIdle: 10, idleTime: 5 * time.Minute, lifetime: 30 * time.Minute}
)

// Open connects to the store named by driver: a SQLite file at path or a
// Postgres server at dsn. Every query is traced.
func Open(driver, path, dsn string) (*gorm.DB, error) {
	switch d := strings.ToLower(strings.TrimSpace(driver)); d {
	case "", DriverSQLite:
		return OpenSQLite(path)
	case DriverPostgres:
		return OpenPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
}

// OpenSQLite opens or creates the database file at path. The parent
// directory must already exist.
func OpenSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("sqlite directory: %w", err)
		}
	}
	q := url.Values{"_pragma": sqlitePragmas}
	return open(sqlite.Open(path+"?"+q.Encode()), sqlitePool)
}

// OpenPostgres connects with a libpq keyword string or a postgres:// URL.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	return open(postgres.Open(dsn), postgresPool)
}

func open(dialector gorm.Dialector, limits poolLimits) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(limits.maxOpen)
	sqlDB.SetMaxIdleConns(limits.maxIdle)
	sqlDB.SetConnMaxIdleTime(limits.idleTime)
	sqlDB.SetConnMaxLifetime(limits.lifetime)

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("db tracing: %w", err)
	}
	return db, nil
}

// AutoMigrate creates or updates every table the service uses.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Listing{},
		&domain.Cart{},
		&domain.CartItem{},
		&domain.Idempotency{},
	)
}

// Ping checks that the pool can reach the store.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// ValidID reports whether id has the canonical 36-character UUID form that
// CreateListing mints.
func ValidID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
