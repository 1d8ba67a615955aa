package services

import (
	"context"
	"fmt"
	"time"

	"adeptly/internal/models"

	"gorm.io/gorm"
)

// TopicStatsView is a user's standing in one topic.
type TopicStatsView struct {
	TopicID    uint   `json:"topic_id"`
	TopicName  string `json:"topic_name"`
	Experience int    `json:"experience"`
	Rank       string `json:"rank" gorm:"column:rank_name"`
}

// ListTopicStats returns userID's stats rows, highest experience first.
func ListTopicStats(ctx context.Context, db *gorm.DB, userID uint) ([]TopicStatsView, error) {
	var out []TopicStatsView
	err := db.WithContext(ctx).Table("user_topic_stats AS s").
		Select("s.topic_id AS topic_id, t.name AS topic_name, s.experience AS experience, r.name AS rank_name").
		Joins("JOIN topics t ON t.id = s.topic_id").
		Joins("LEFT JOIN ranks r ON r.id = s.rank_id").
		Where("s.user_id = ?", userID).
		Order("s.experience DESC, s.topic_id ASC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list topic stats: %w", err)
	}
	if out == nil {
		out = []TopicStatsView{}
	}
	return out, nil
}

// ExperienceEntry is one ledger row with names resolved.
type ExperienceEntry struct {
	ID                uint      `json:"id"`
	TopicID           uint      `json:"topic_id"`
	TopicName         string    `json:"topic_name"`
	ProblemID         uint      `json:"problem_id"`
	ProblemName       string    `json:"problem_name"`
	TrainingSessionID uint      `json:"training_session_id"`
	ExperienceEarned  int       `json:"experience_earned"`
	EarnedAt          time.Time `json:"earned_at"`
}

// ExperiencePage is a page of ledger history.
type ExperiencePage struct {
	Result   []ExperienceEntry `json:"result"`
	PageIdx  int               `json:"pageIdx"`
	PageSize int               `json:"pageSize"`
	TotalCnt int64             `json:"totalCnt"`
}

// RadarStatItem is one axis of the topic radar chart.
type RadarStatItem struct {
	Subject  string  `json:"subject"`
	Value    float64 `json:"A"`
	FullMark float64 `json:"fullMark"`
}

// SolvedProblem is an entry of a user's solved set.
type SolvedProblem struct {
	ProblemID uint      `json:"problem_id"`
	Name      string    `json:"name"`
	SolvedAt  time.Time `json:"solved_at"`
}

// ProfileService answers per-user history queries.
type ProfileService struct {
	db *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db}
}

// TopicStats lists userID's per-topic standing.
func (s *ProfileService) TopicStats(ctx context.Context, userID uint) ([]TopicStatsView, error) {
	return ListTopicStats(ctx, s.db, userID)
}

// ExperienceHistory pages through the ledger newest first, optionally for one topic.
func (s *ProfileService) ExperienceHistory(ctx context.Context, userID uint, topicID *uint, pageIdx, pageSize int) (*ExperiencePage, error) {
	if pageIdx < 1 {
		pageIdx = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	q := s.db.WithContext(ctx).Table("topic_experience_earned AS l").Where("l.user_id = ?", userID)
	if topicID != nil {
		q = q.Where("l.topic_id = ?", *topicID)
	}
	q = q.Session(&gorm.Session{})

	var totalCnt int64
	if err := q.Count(&totalCnt).Error; err != nil {
		return nil, fmt.Errorf("count experience history: %w", err)
	}

	items := []ExperienceEntry{}
	err := q.
		Select("l.id AS id, l.topic_id AS topic_id, t.name AS topic_name, l.problem_id AS problem_id, " +
			"p.name AS problem_name, l.training_session_id AS training_session_id, " +
			"l.experience_earned AS experience_earned, l.earned_at AS earned_at").
		Joins("JOIN topics t ON t.id = l.topic_id").
		Joins("LEFT JOIN problems p ON p.id = l.problem_id").
		Order("l.earned_at DESC, l.id DESC").
		Limit(pageSize).
		Offset(pageSize * (pageIdx - 1)).
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("experience history: %w", err)
	}
	return &ExperiencePage{Result: items, PageIdx: pageIdx, PageSize: pageSize, TotalCnt: totalCnt}, nil
}

// Radar scores every topic relative to the user's strongest topic, 0 to 100.
// Topics are listed in id order so the chart axes stay stable.
func (s *ProfileService) Radar(ctx context.Context, userID uint) ([]RadarStatItem, error) {
	var topics []models.Topic
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&topics).Error; err != nil {
		return nil, fmt.Errorf("load topics: %w", err)
	}
	stats, err := ListTopicStats(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	exp := make(map[uint]int, len(stats))
	best := 0
	for _, st := range stats {
		exp[st.TopicID] = st.Experience
		if st.Experience > best {
			best = st.Experience
		}
	}

	items := make([]RadarStatItem, 0, len(topics))
	for _, t := range topics {
		var value float64
		if best > 0 {
			value = float64(exp[t.ID]) / float64(best) * 100
		}
		items = append(items, RadarStatItem{Subject: t.Name, Value: value, FullMark: 100})
	}
	return items, nil
}

// Solved lists the user's solved problems, most recent first.
func (s *ProfileService) Solved(ctx context.Context, userID uint) ([]SolvedProblem, error) {
	out := []SolvedProblem{}
	err := s.db.WithContext(ctx).Table("user_solved_problems usp").
		Select("usp.problem_id AS problem_id, p.name AS name, usp.solved_at AS solved_at").
		Joins("JOIN problems p ON p.id = usp.problem_id").
		Where("usp.user_id = ?", userID).
		Order("usp.solved_at DESC, usp.id DESC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list solved problems: %w", err)
	}
	return out, nil
}
