package models

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Tier names, lowest first.
const (
	TierBeginner     = "Beginner"
	TierIntermediate = "Intermediate"
	TierAdvanced     = "Advanced"
	TierExpert       = "Expert"
)

// DefaultRankNames is the seeded rank ladder.
var DefaultRankNames = []string{TierBeginner, TierIntermediate, TierAdvanced, TierExpert}

// Rank is an ordered tier label.
type Rank struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:varchar(100);not null;index" json:"name"`
}

func (Rank) TableName() string {
	return "ranks"
}

// RankTable maps tier names to rank row ids. Resolved once after seeding.
type RankTable map[string]uint

// ID returns the row id of tier.
func (rt RankTable) ID(tier string) (uint, bool) {
	id, ok := rt[tier]
	return id, ok
}

// Name returns the tier name of a rank id.
func (rt RankTable) Name(id uint) string {
	for name, rid := range rt {
		if rid == id {
			return name
		}
	}
	return ""
}

// LoadRankTable reads the rank ladder. Every default tier must exist.
func LoadRankTable(ctx context.Context, db *gorm.DB) (RankTable, error) {
	var ranks []Rank
	if err := db.WithContext(ctx).Order("id ASC").Find(&ranks).Error; err != nil {
		return nil, fmt.Errorf("load ranks: %w", err)
	}
	table := make(RankTable, len(DefaultRankNames))
	for _, r := range ranks {
		// first row wins when a name was seeded twice by hand
		if _, ok := table[r.Name]; !ok {
			table[r.Name] = r.ID
		}
	}
	for _, name := range DefaultRankNames {
		if _, ok := table[name]; !ok {
			return nil, fmt.Errorf("rank %q missing, run initialize first", name)
		}
	}
	return table, nil
}
