package services

import (
	"context"
	"fmt"

	"adeptly/internal/logger"

	"gorm.io/gorm"
)

// StatsDrift is a stats row whose experience disagrees with its ledger sum.
type StatsDrift struct {
	UserID     uint `json:"user_id"`
	TopicID    uint `json:"topic_id"`
	Experience int  `json:"experience"`
	LedgerSum  int  `json:"ledger_sum"`
}

// DuplicateTopic is a topic name carried by more than one row.
type DuplicateTopic struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// AuditReport lists ledger inconsistencies. The auditor never repairs anything.
type AuditReport struct {
	StatsChecked    int              `json:"stats_checked"`
	Drift           []StatsDrift     `json:"drift"`
	DuplicateTopics []DuplicateTopic `json:"duplicate_topics"`
}

// Clean reports whether nothing was found.
func (r *AuditReport) Clean() bool {
	return len(r.Drift) == 0 && len(r.DuplicateTopics) == 0
}

// LedgerAuditor compares UserTopicStats with TopicExperienceEarned.
type LedgerAuditor struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLedgerAuditor(db *gorm.DB, log *logger.Logger) *LedgerAuditor {
	return &LedgerAuditor{db: db, log: logger.OrNop(log).With("service", "audit")}
}

type statsWithLedger struct {
	UserID     uint
	TopicID    uint
	Experience int
	LedgerSum  int
}

// Run checks every stats row and every topic name.
func (a *LedgerAuditor) Run(ctx context.Context) (*AuditReport, error) {
	ledger := a.db.WithContext(ctx).Table("topic_experience_earned").
		Select("user_id, topic_id, SUM(experience_earned) AS total").
		Group("user_id, topic_id")

	var rows []statsWithLedger
	err := a.db.WithContext(ctx).Table("user_topic_stats AS s").
		Select("s.user_id AS user_id, s.topic_id AS topic_id, s.experience AS experience, COALESCE(l.total, 0) AS ledger_sum").
		Joins("LEFT JOIN (?) AS l ON l.user_id = s.user_id AND l.topic_id = s.topic_id", ledger).
		Order("s.user_id ASC, s.topic_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("compare stats with ledger: %w", err)
	}

	report := &AuditReport{
		StatsChecked:    len(rows),
		Drift:           []StatsDrift{},
		DuplicateTopics: []DuplicateTopic{},
	}
	for _, r := range rows {
		if r.Experience != r.LedgerSum {
			report.Drift = append(report.Drift, StatsDrift(r))
		}
	}

	// ledger rows with no stats row at all
	var orphans []statsWithLedger
	err = a.db.WithContext(ctx).Table("(?) AS l", ledger).
		Select("l.user_id AS user_id, l.topic_id AS topic_id, 0 AS experience, l.total AS ledger_sum").
		Joins("LEFT JOIN user_topic_stats s ON s.user_id = l.user_id AND s.topic_id = l.topic_id").
		Where("s.id IS NULL").
		Order("l.user_id ASC, l.topic_id ASC").
		Scan(&orphans).Error
	if err != nil {
		return nil, fmt.Errorf("find ledger without stats: %w", err)
	}
	for _, r := range orphans {
		report.Drift = append(report.Drift, StatsDrift(r))
	}

	err = a.db.WithContext(ctx).Table("topics").
		Select("name, COUNT(*) AS count").
		Group("name").
		Having("COUNT(*) > 1").
		Order("name ASC").
		Scan(&report.DuplicateTopics).Error
	if err != nil {
		return nil, fmt.Errorf("find duplicate topics: %w", err)
	}

	if report.Clean() {
		a.log.Info("ledger audit clean", "stats_checked", report.StatsChecked)
	} else {
		a.log.Warn("ledger audit found issues",
			"stats_checked", report.StatsChecked,
			"drift", len(report.Drift),
			"duplicate_topics", len(report.DuplicateTopics),
		)
	}
	return report, nil
}
