package models

import "time"

// UserTopicStats holds accumulated experience and rank for one (user, topic) pair.
type UserTopicStats struct {
	ID         uint  `gorm:"primaryKey" json:"id"`
	UserID     uint  `gorm:"not null;index:idx_user_topic,unique" json:"user_id"`
	TopicID    uint  `gorm:"not null;index:idx_user_topic,unique;index" json:"topic_id"`
	Topic      Topic `gorm:"foreignKey:TopicID" json:"topic"`
	Experience int   `gorm:"not null;default:0" json:"experience"`
	RankID     uint  `gorm:"not null" json:"rank_id"`
	Rank       Rank  `gorm:"foreignKey:RankID" json:"rank"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserTopicStats) TableName() string {
	return "user_topic_stats"
}
