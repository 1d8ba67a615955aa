package models

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"adeptly/internal/config"
	"adeptly/internal/logger"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the configured relational store.
func Open(cfg *config.Config, log *logger.Logger) (*gorm.DB, error) {
	log = logger.OrNop(log)

	dsn, err := cfg.GetDatabaseDSN()
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch cfg.Database.Type {
	case "mysql":
		dialector = mysql.Open(dsn)
		log.Info("using mysql", "host", cfg.Database.MySQL.Host, "dbname", cfg.Database.MySQL.DBName)
	case "postgres":
		dialector = postgres.Open(dsn)
		log.Info("using postgres", "host", cfg.Database.Postgres.Host, "dbname", cfg.Database.Postgres.DBName)
	case "sqlite":
		if err := ensureDir(filepath.Dir(dsn)); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
		dialector = sqlite.Open(dsn)
		log.Info("using sqlite", "path", dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormLogLevel(cfg.Log.Level)),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if cfg.Database.Type != "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("get database handle: %w", err)
		}
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}
	return db, nil
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "debug":
		return gormlogger.Info
	case "warn":
		return gormlogger.Warn
	case "error":
		return gormlogger.Error
	default:
		return gormlogger.Silent
	}
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// AutoMigrate creates or updates every table the service owns.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	err := db.AutoMigrate(
		&User{},
		&Rank{},
		&Topic{},
		&Problem{},
		&UserSolvedProblem{},
		&UserTopicStats{},
		&TrainingSession{},
		&TrainingSessionProblem{},
		&TopicExperienceEarned{},
	)
	if err != nil {
		return fmt.Errorf("migrate tables: %w", err)
	}
	return nil
}
