package models

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// DefaultTopicNames is the engineering catalog seeded on first start.
var DefaultTopicNames = []string{
	"HVAC Design",
	"HVAC Load Calculations",
	"Ductwork Design",
	"Refrigeration",
	"Energy Code Compliance",
	"Electrical Design",
	"Electrical Code Requirements",
	"Power Distribution",
	"Lighting Design",
	"Control Systems",
}

// SeedReport lists what a seeding run created.
type SeedReport struct {
	TopicsCreated []string `json:"topics_created"`
	RanksCreated  []string `json:"ranks_created"`
}

// SeedDefaults get-or-creates the default topics and ranks by name. Safe to run repeatedly.
func SeedDefaults(ctx context.Context, db *gorm.DB) (*SeedReport, error) {
	report := &SeedReport{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range DefaultTopicNames {
			_, created, err := FirstOrCreateTopic(tx, name)
			if err != nil {
				return err
			}
			if created {
				report.TopicsCreated = append(report.TopicsCreated, name)
			}
		}
		for _, name := range DefaultRankNames {
			var r Rank
			err := tx.Where("name = ?", name).Order("id ASC").First(&r).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("find rank %q: %w", name, err)
			}
			if err := tx.Create(&Rank{Name: name}).Error; err != nil {
				return fmt.Errorf("create rank %q: %w", name, err)
			}
			report.RanksCreated = append(report.RanksCreated, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// FirstOrCreateTopic returns the lowest-id topic named name, creating it when absent.
func FirstOrCreateTopic(tx *gorm.DB, name string) (Topic, bool, error) {
	var t Topic
	err := tx.Where("name = ?", name).Order("id ASC").First(&t).Error
	if err == nil {
		return t, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return Topic{}, false, fmt.Errorf("find topic %q: %w", name, err)
	}
	t = Topic{Name: name}
	if err := tx.Create(&t).Error; err != nil {
		return Topic{}, false, fmt.Errorf("create topic %q: %w", name, err)
	}
	return t, true, nil
}
