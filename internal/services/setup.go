package services

import (
	"context"
	"fmt"

	"adeptly/internal/importer"
	"adeptly/internal/logger"
	"adeptly/internal/models"

	"gorm.io/gorm"
)

// SetupReport describes what Setup did.
type SetupReport struct {
	Seed          *models.SeedReport     `json:"seed,omitempty"`
	Import        *importer.ImportResult `json:"import,omitempty"`
	SeedSkipped   bool                   `json:"seed_skipped"`
	ImportSkipped bool                   `json:"import_skipped"`
}

// Setup seeds defaults when no topic exists and imports path when no problem exists.
// An empty path skips the import.
func Setup(ctx context.Context, db *gorm.DB, path string, log *logger.Logger) (*SetupReport, error) {
	log = logger.OrNop(log).With("service", "setup")
	report := &SetupReport{}

	var topics int64
	if err := db.WithContext(ctx).Model(&models.Topic{}).Count(&topics).Error; err != nil {
		return nil, fmt.Errorf("count topics: %w", err)
	}
	if topics == 0 {
		log.Warn("no topics found, initializing")
		seed, err := models.SeedDefaults(ctx, db)
		if err != nil {
			return nil, fmt.Errorf("initialize: %w", err)
		}
		report.Seed = seed
	} else {
		log.Info("topics already exist, skipping initialization")
		report.SeedSkipped = true
	}

	var problems int64
	if err := db.WithContext(ctx).Model(&models.Problem{}).Count(&problems).Error; err != nil {
		return nil, fmt.Errorf("count problems: %w", err)
	}
	if problems > 0 || path == "" {
		log.Info("skipping problem import", "existing_problems", problems, "file", path)
		report.ImportSkipped = true
		return report, nil
	}

	log.Warn("no problems found, importing", "file", path)
	result, err := importer.New(db, log).ImportFile(ctx, importer.ImportConfig{FilePath: path})
	if err != nil {
		return nil, fmt.Errorf("import problems: %w", err)
	}
	report.Import = result
	return report, nil
}
