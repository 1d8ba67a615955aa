package models

import "time"

// TopicExperienceEarned is an append-only ledger row. Never updated or deleted.
type TopicExperienceEarned struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            uint      `gorm:"not null;index:idx_ledger_user_topic" json:"user_id"`
	TopicID           uint      `gorm:"not null;index:idx_ledger_user_topic" json:"topic_id"`
	ExperienceEarned  int       `gorm:"not null" json:"experience_earned"`
	TrainingSessionID uint      `gorm:"not null;index" json:"training_session_id"`
	ProblemID         uint      `gorm:"not null;index" json:"problem_id"`
	EarnedAt          time.Time `gorm:"not null;index" json:"earned_at"`
}

func (TopicExperienceEarned) TableName() string {
	return "topic_experience_earned"
}
