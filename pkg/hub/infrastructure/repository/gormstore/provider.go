package gormstore

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	logger "github.com/bduoto/omtx-hub/pkg/hub/support/util/logger"
)

// DatabaseConfig holds connection settings for the SQL job store.
type DatabaseConfig struct {
	Type     string `yaml:"type"`     // "sqlite", "postgres" or "mysql".
	Host     string `yaml:"host"`     // Server host (postgres/mysql).
	Port     int    `yaml:"port"`     // Server port (postgres/mysql).
	Database string `yaml:"database"` // Database name, or file path for sqlite.
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"` // postgres only.
}

// OpenDB opens a GORM handle for the configured backend.
func OpenDB(cfg DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Type, err)
	}
	logger.Infof("SQL job store connected (%s).", cfg.Type)
	return db, nil
}

func dialectorFor(cfg DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.Database == "" {
			return nil, fmt.Errorf("sqlite database path cannot be empty")
		}
		return sqlite.Open(cfg.Database), nil
	case "postgres":
		sslMode := cfg.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, sslMode)
		return postgres.Open(dsn), nil
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}
