package models

import "time"

// TrainingSession is one user's attempt at a generated, time-bounded quiz.
type TrainingSession struct {
	ID     uint `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID uint `gorm:"not null;index" json:"user_id"`

	// requested time budget in minutes
	EstimatedTimeToComplete int `gorm:"not null" json:"estimated_time_to_complete"`

	Problems      []TrainingSessionProblem `gorm:"foreignKey:SessionID" json:"-"`
	TopicsCovered []Topic                  `gorm:"many2many:training_session_topics;" json:"topics_covered"`

	// index of the next problem that accepts an answer
	Position          int        `gorm:"not null;default:0" json:"position"`
	CorrectAttempts   int        `gorm:"not null;default:0" json:"correct_attempts"`
	IncorrectAttempts int        `gorm:"not null;default:0" json:"incorrect_attempts"`
	WasCompleted      bool       `gorm:"not null;default:false;index" json:"was_completed"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at"`
}

func (TrainingSession) TableName() string {
	return "training_sessions"
}

// TrainingSessionProblem freezes one selected problem at a fixed position.
// CompletedAt is set once the problem was answered correctly.
type TrainingSessionProblem struct {
	ID          uint       `gorm:"primaryKey"`
	SessionID   uint       `gorm:"not null;index:idx_session_position,unique"`
	Position    int        `gorm:"not null;index:idx_session_position,unique"`
	ProblemID   uint       `gorm:"not null;index"`
	Problem     Problem    `gorm:"foreignKey:ProblemID"`
	CompletedAt *time.Time `json:"completed_at"`
}

func (TrainingSessionProblem) TableName() string {
	return "training_session_problems"
}
