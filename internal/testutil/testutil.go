package testutil

import (
	"context"
	"fmt"
	"testing"

	"adeptly/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// DB opens a private in-memory SQLite database with every table migrated.
// A single connection keeps the memory database alive and serializes writers.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("failed to open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := models.AutoMigrate(db); err != nil {
		tb.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

// SeededDB is DB plus the default topics and ranks, returning the rank table.
func SeededDB(tb testing.TB) (*gorm.DB, models.RankTable) {
	tb.Helper()
	db := DB(tb)
	ctx := context.Background()
	if _, err := models.SeedDefaults(ctx, db); err != nil {
		tb.Fatalf("seed defaults: %v", err)
	}
	ranks, err := models.LoadRankTable(ctx, db)
	if err != nil {
		tb.Fatalf("load ranks: %v", err)
	}
	return db, ranks
}
