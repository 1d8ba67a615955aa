package services

import (
	"errors"
	"fmt"
	"time"

	"adeptly/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Experience thresholds, highest first.
var rankThresholds = []struct {
	min  int
	tier string
}{
	{1000, models.TierExpert},
	{500, models.TierAdvanced},
	{100, models.TierIntermediate},
}

// RankTierFor returns the tier earned at experience, or "" below the first threshold.
func RankTierFor(experience int) string {
	for _, t := range rankThresholds {
		if experience >= t.min {
			return t.tier
		}
	}
	return ""
}

// TopicAward is the experience granted for one topic of a correctly answered problem.
type TopicAward struct {
	TopicID    uint   `json:"topic_id"`
	TopicName  string `json:"topic_name"`
	Experience int    `json:"experience_earned"`
	Total      int    `json:"total_experience"`
	Rank       string `json:"rank"`
}

// ExperienceEngine grants per-topic experience and keeps ranks in step.
type ExperienceEngine struct {
	ranks models.RankTable
}

func NewExperienceEngine(ranks models.RankTable) *ExperienceEngine {
	return &ExperienceEngine{ranks: ranks}
}

// Award appends one ledger row per topic of problem and updates the matching stats rows.
// tx must be the caller's transaction; problem.Topics must be loaded.
func (e *ExperienceEngine) Award(tx *gorm.DB, userID, sessionID uint, problem models.Problem, now time.Time) ([]TopicAward, error) {
	beginner, ok := e.ranks.ID(models.TierBeginner)
	if !ok {
		return nil, fmt.Errorf("rank %q not loaded", models.TierBeginner)
	}

	value := problem.ExperienceValue()
	awards := make([]TopicAward, 0, len(problem.Topics))
	for _, topic := range problem.Topics {
		entry := models.TopicExperienceEarned{
			UserID:            userID,
			TopicID:           topic.ID,
			ExperienceEarned:  value,
			TrainingSessionID: sessionID,
			ProblemID:         problem.ID,
			EarnedAt:          now,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return nil, fmt.Errorf("append experience ledger: %w", err)
		}

		stats, err := e.getOrCreateStats(tx, userID, topic.ID, beginner)
		if err != nil {
			return nil, err
		}
		if err := tx.Model(&models.UserTopicStats{}).
			Where("id = ?", stats.ID).
			Update("experience", gorm.Expr("experience + ?", value)).Error; err != nil {
			return nil, fmt.Errorf("add experience: %w", err)
		}
		if err := tx.First(&stats, stats.ID).Error; err != nil {
			return nil, fmt.Errorf("reload topic stats: %w", err)
		}

		rankID := stats.RankID
		if tier := RankTierFor(stats.Experience); tier != "" {
			if id, ok := e.ranks.ID(tier); ok && id != stats.RankID {
				if err := tx.Model(&models.UserTopicStats{}).
					Where("id = ?", stats.ID).
					Update("rank_id", id).Error; err != nil {
					return nil, fmt.Errorf("update rank: %w", err)
				}
				rankID = id
			}
		}

		awards = append(awards, TopicAward{
			TopicID:    topic.ID,
			TopicName:  topic.Name,
			Experience: value,
			Total:      stats.Experience,
			Rank:       e.ranks.Name(rankID),
		})
	}
	return awards, nil
}

func (e *ExperienceEngine) getOrCreateStats(tx *gorm.DB, userID, topicID, beginner uint) (models.UserTopicStats, error) {
	var stats models.UserTopicStats
	err := tx.Where("user_id = ? AND topic_id = ?", userID, topicID).First(&stats).Error
	if err == nil {
		return stats, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return stats, fmt.Errorf("find topic stats: %w", err)
	}

	stats = models.UserTopicStats{UserID: userID, TopicID: topicID, Experience: 0, RankID: beginner}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&stats).Error; err != nil {
		return stats, fmt.Errorf("create topic stats: %w", err)
	}
	if stats.ID == 0 {
		if err := tx.Where("user_id = ? AND topic_id = ?", userID, topicID).First(&stats).Error; err != nil {
			return stats, fmt.Errorf("find topic stats: %w", err)
		}
	}
	return stats, nil
}
