// Package database opens the job-record database and owns its schema
package database

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options selects the driver and connection
type Options struct {
	Type     string // sqlite or postgres
	Path     string // sqlite file, ":memory:" allowed
	URL      string // postgres DSN
	LogLevel string // silent, error, warn, info
}

// Open connects to the configured database and migrates the schema
func Open(opts Options) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel(opts.LogLevel)),
	}

	var db *gorm.DB
	var err error
	switch opts.Type {
	case "postgres":
		db, err = gorm.Open(postgres.Open(opts.URL), cfg)
	case "sqlite", "":
		if opts.Path != ":memory:" {
			if mkErr := os.MkdirAll(filepath.Dir(opts.Path), 0755); mkErr != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", mkErr)
			}
		}
		db, err = gorm.Open(sqlite.Open(opts.Path), cfg)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", opts.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if opts.Type != "postgres" && opts.Path == ":memory:" {
		// every new connection would see its own empty in-memory database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the job-record tables
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func logLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
