package config

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aIcoder504/apbmt-2025-conference-system/models"
)

// OpenDB connects to the relational store selected by DB_DRIVER.
func OpenDB(s *Settings) (*gorm.DB, error) {
	dialector, name, err := dialectorFor(s.Database)
	if err != nil {
		return nil, err
	}

	// In production, suppress SQL logs unless explicitly re-enabled via DEBUG_SQL=true.
	logLevel := logger.Info
	if s.IsProduction() && !s.Database.DebugSQL {
		logLevel = logger.Warn
	}

	cfg := &gorm.Config{
		Logger: logger.New(
			log.New(LogWriter, "\r\n", log.LstdFlags),
			logger.Config{LogLevel: logLevel, SlowThreshold: 500 * time.Millisecond},
		),
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", name, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("pool handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxIdleTime(30 * time.Second)

	Logger.Info().Str("driver", name).Msg("database connected")
	return db, nil
}

// DatabaseLabel is the human-readable store name echoed in API metadata.
func DatabaseLabel(driver string) string {
	if driver == "postgres" || driver == "postgresql" {
		return "PostgreSQL"
	}
	return "MySQL"
}

func dialectorFor(d DatabaseSettings) (gorm.Dialector, string, error) {
	switch d.Driver {
	case "", "mysql":
		port := d.Port
		if port == "" {
			port = "3306"
		}
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			d.Username,
			d.Password,
			d.Host,
			port,
			d.Name,
		)
		return mysql.Open(dsn), "mysql", nil
	case "postgres", "postgresql":
		dsn := d.URL
		if dsn == "" {
			port := d.Port
			if port == "" {
				port = "5432"
			}
			dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
				d.Host, port, d.Username, d.Password, d.Name)
		}
		return postgres.Open(dsn), "postgres", nil
	default:
		return nil, "", fmt.Errorf("unsupported DB_DRIVER %q", d.Driver)
	}
}

// Migrate creates or updates the tables owned by this service.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Abstract{}, &models.AbstractStatusHistory{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
