package db

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/diewo77/bar-stock/internal/config"
	"github.com/diewo77/bar-stock/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrUnknownDriver is returned for a DB_DRIVER outside sqlite/postgres/mysql.
var ErrUnknownDriver = errors.New("unknown_db_driver")

// Dialector picks the gorm dialector for a driver name.
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch strings.ToLower(driver) {
	case "", "sqlite", "sqlite3":
		return sqlite.Open(dsn), nil
	case "postgres", "postgresql":
		return postgres.Open(NormalizeDSN(dsn)), nil
	case "mysql":
		return mysql.Open(dsn), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
}

// Open connects with a few retries so a database container has time to start.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("DATABASE_DSN est vide, vérifiez la configuration de l'environnement")
	}
	dial, err := Dialector(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}
	var conn *gorm.DB
	for i := 0; i < 5; i++ {
		conn, err = gorm.Open(dial, gcfg)
		if err == nil {
			break
		}
		log.Printf("[DB] connection attempt %d/5 failed: %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}
	if pingErr := conn.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	log.Printf("[DB] driver=%s dsn=%s", cfg.Driver, MaskDSN(cfg.DSN))
	return conn, nil
}

// Migrate creates the snapshot table. With sqlMigrations set (postgres only) the embedded
// SQL files run through golang-migrate; otherwise gorm's AutoMigrate is used.
func Migrate(conn *gorm.DB, cfg config.DatabaseConfig, sqlMigrations bool) error {
	if sqlMigrations && isPostgres(cfg.Driver) {
		if err := runSQLMigrations(ToURLDSN(NormalizeDSN(cfg.DSN))); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	} else if err := conn.AutoMigrate(&models.KVEntry{}); err != nil {
		return fmt.Errorf("automigrate %T: %w", &models.KVEntry{}, err)
	}
	if !conn.Migrator().HasTable(&models.KVEntry{}) {
		return errors.New("missing table after migration: kv_entries")
	}
	return nil
}

func isPostgres(driver string) bool {
	d := strings.ToLower(driver)
	return d == "postgres" || d == "postgresql"
}
