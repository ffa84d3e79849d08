package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/RigelNana/arkpaper/services/paperwork-service/config"
	"github.com/RigelNana/arkpaper/services/paperwork-service/models"
)

// Open connects to postgres. SQL logging goes through the service logger.
func Open(cfg config.DatabaseConfig, log *logrus.Logger) (*gorm.DB, error) {
	gormLogger := logger.New(log, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormLogLevel(cfg.LogLevel),
		IgnoreRecordNotFoundError: true,
	})
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

// AutoMigrate creates or updates the ledger tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Paperwork{}, &models.Version{}, &models.Artifact{}, &models.Review{}); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
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
