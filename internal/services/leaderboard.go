package services

import (
	"context"
	"errors"
	"fmt"

	"adeptly/internal/logger"
	"adeptly/internal/models"

	"gorm.io/gorm"
)

const defaultLeaderboardSize = 10

// LeaderboardEntry is one row of the global board.
type LeaderboardEntry struct {
	Position        int    `json:"position"`
	UserID          uint   `json:"user_id"`
	UUID            string `json:"uuid"`
	Username        string `json:"username"`
	TotalExperience int    `json:"total_experience"`
}

// TopicLeaderboardEntry is one row of a per-topic board.
type TopicLeaderboardEntry struct {
	Position   int    `json:"position"`
	UserID     uint   `json:"user_id"`
	UUID       string `json:"uuid"`
	Username   string `json:"username"`
	Experience int    `json:"experience"`
	Rank       string `json:"rank" gorm:"column:rank_name"`
}

// TopicBoard is the optional per-topic part of a leaderboard.
type TopicBoard struct {
	TopicID   uint                    `json:"topic_id"`
	TopicName string                  `json:"topic_name"`
	Entries   []TopicLeaderboardEntry `json:"entries"`
	UserRank  *int                    `json:"user_rank"`
}

// PopularTopic is the topic trained by the most distinct users.
type PopularTopic struct {
	TopicID uint   `json:"topic_id"`
	Name    string `json:"name"`
	Users   int    `json:"users"`
}

// LeaderboardStats are the headline numbers shown above the board.
type LeaderboardStats struct {
	TotalUsersWithExperience int           `json:"total_users_with_experience"`
	MostPopularTopic         *PopularTopic `json:"most_popular_topic"`
	TopExperience            int           `json:"top_experience"`
}

// Leaderboard is the full response for one requester.
type Leaderboard struct {
	Global    []LeaderboardEntry `json:"global"`
	Topic     *TopicBoard        `json:"topic,omitempty"`
	UserRank  int                `json:"user_rank"`
	UserTotal int                `json:"user_total_experience"`
	Stats     LeaderboardStats   `json:"stats"`
}

// Dashboard is a user's personal overview.
type Dashboard struct {
	TotalExperience int              `json:"total_experience"`
	TopicsTrained   int              `json:"topics_trained"`
	ProblemsSolved  int              `json:"problems_solved"`
	RecentSessions  []SessionSummary `json:"recent_sessions"`
	Rank            int              `json:"rank"`
	TopicStats      []TopicStatsView `json:"topic_stats"`
}

// LeaderboardService aggregates experience across users.
type LeaderboardService struct {
	db     *gorm.DB
	cache  LeaderboardCache
	runner *SessionRunner
	size   int
	log    *logger.Logger
}

// NewLeaderboardService wires the aggregator. cache may be nil.
func NewLeaderboardService(db *gorm.DB, cache LeaderboardCache, runner *SessionRunner, size int, log *logger.Logger) *LeaderboardService {
	if size <= 0 {
		size = defaultLeaderboardSize
	}
	return &LeaderboardService{
		db:     db,
		cache:  cache,
		runner: runner,
		size:   size,
		log:    logger.OrNop(log).With("service", "leaderboard"),
	}
}

// GlobalTop returns the users with the highest total experience, ties broken by user id.
func (s *LeaderboardService) GlobalTop(ctx context.Context) ([]LeaderboardEntry, error) {
	// the version is read before the query so a board computed before a
	// concurrent award is stored under the superseded version
	var version int64
	useCache := s.cache != nil
	if useCache {
		v, err := s.cache.GlobalVersion(ctx)
		if err != nil {
			s.log.Warn("read leaderboard cache version failed", "error", err)
			useCache = false
		} else {
			version = v
			var cached []LeaderboardEntry
			if err := s.cache.GetGlobal(ctx, version, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var entries []LeaderboardEntry
	err := s.db.WithContext(ctx).Table("user_topic_stats AS s").
		Select("s.user_id AS user_id, u.uuid AS uuid, u.username AS username, SUM(s.experience) AS total_experience").
		Joins("JOIN users u ON u.id = s.user_id").
		Group("s.user_id, u.uuid, u.username").
		Order("total_experience DESC, s.user_id ASC").
		Limit(s.size).
		Scan(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("global leaderboard: %w", err)
	}
	if entries == nil {
		entries = []LeaderboardEntry{}
	}
	for i := range entries {
		entries[i].Position = i + 1
	}

	if useCache {
		if err := s.cache.SetGlobal(ctx, version, entries); err != nil {
			s.log.Warn("cache leaderboard failed", "error", err)
		}
	}
	return entries, nil
}

// TotalExperience sums every topic stats row of userID.
func (s *LeaderboardService) TotalExperience(ctx context.Context, userID uint) (int, error) {
	var total int
	err := s.db.WithContext(ctx).Model(&models.UserTopicStats{}).
		Select("COALESCE(SUM(experience), 0)").
		Where("user_id = ?", userID).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("total experience: %w", err)
	}
	return total, nil
}

// GlobalRank is 1 + the number of users with a strictly greater total.
func (s *LeaderboardService) GlobalRank(ctx context.Context, total int) (int, error) {
	above := s.db.WithContext(ctx).Model(&models.UserTopicStats{}).
		Select("user_id").
		Group("user_id").
		Having("SUM(experience) > ?", total)

	var n int64
	if err := s.db.WithContext(ctx).Table("(?) AS above", above).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("global rank: %w", err)
	}
	return int(n) + 1, nil
}

func (s *LeaderboardService) topicBoard(ctx context.Context, topic models.Topic, userID uint) (*TopicBoard, error) {
	board := &TopicBoard{TopicID: topic.ID, TopicName: topic.Name}

	err := s.db.WithContext(ctx).Table("user_topic_stats AS s").
		Select("s.user_id AS user_id, u.uuid AS uuid, u.username AS username, s.experience AS experience, r.name AS rank_name").
		Joins("JOIN users u ON u.id = s.user_id").
		Joins("LEFT JOIN ranks r ON r.id = s.rank_id").
		Where("s.topic_id = ?", topic.ID).
		Order("s.experience DESC, s.user_id ASC").
		Limit(s.size).
		Scan(&board.Entries).Error
	if err != nil {
		return nil, fmt.Errorf("topic leaderboard: %w", err)
	}
	if board.Entries == nil {
		board.Entries = []TopicLeaderboardEntry{}
	}
	for i := range board.Entries {
		board.Entries[i].Position = i + 1
	}

	var mine models.UserTopicStats
	err = s.db.WithContext(ctx).Where("user_id = ? AND topic_id = ?", userID, topic.ID).First(&mine).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return board, nil
	}
	if err != nil {
		return nil, fmt.Errorf("requester topic stats: %w", err)
	}
	var above int64
	if err := s.db.WithContext(ctx).Model(&models.UserTopicStats{}).
		Where("topic_id = ? AND experience > ?", topic.ID, mine.Experience).
		Count(&above).Error; err != nil {
		return nil, fmt.Errorf("topic rank: %w", err)
	}
	rank := int(above) + 1
	board.UserRank = &rank
	return board, nil
}

func (s *LeaderboardService) stats(ctx context.Context, global []LeaderboardEntry) (LeaderboardStats, error) {
	var out LeaderboardStats

	withExp := s.db.WithContext(ctx).Model(&models.UserTopicStats{}).
		Select("user_id").
		Group("user_id").
		Having("SUM(experience) > 0")
	var n int64
	if err := s.db.WithContext(ctx).Table("(?) AS trained", withExp).Count(&n).Error; err != nil {
		return out, fmt.Errorf("count users with experience: %w", err)
	}
	out.TotalUsersWithExperience = int(n)

	var popular []PopularTopic
	err := s.db.WithContext(ctx).Table("user_topic_stats AS s").
		Select("t.id AS topic_id, t.name AS name, COUNT(DISTINCT s.user_id) AS users").
		Joins("JOIN topics t ON t.id = s.topic_id").
		Group("t.id, t.name").
		Order("users DESC, t.id ASC").
		Limit(1).
		Scan(&popular).Error
	if err != nil {
		return out, fmt.Errorf("most popular topic: %w", err)
	}
	if len(popular) > 0 {
		out.MostPopularTopic = &popular[0]
	}

	if len(global) > 0 {
		out.TopExperience = global[0].TotalExperience
	}
	return out, nil
}

// GetLeaderboard builds the global board, the requester's rank and, when topicID names
// an existing topic, the per-topic board. Unknown topic ids are ignored.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, userID uint, topicID *uint) (*Leaderboard, error) {
	global, err := s.GlobalTop(ctx)
	if err != nil {
		return nil, err
	}
	total, err := s.TotalExperience(ctx, userID)
	if err != nil {
		return nil, err
	}
	rank, err := s.GlobalRank(ctx, total)
	if err != nil {
		return nil, err
	}
	stats, err := s.stats(ctx, global)
	if err != nil {
		return nil, err
	}

	lb := &Leaderboard{Global: global, UserRank: rank, UserTotal: total, Stats: stats}
	if topicID == nil {
		return lb, nil
	}

	var topic models.Topic
	err = s.db.WithContext(ctx).First(&topic, *topicID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return lb, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load topic: %w", err)
	}
	lb.Topic, err = s.topicBoard(ctx, topic, userID)
	if err != nil {
		return nil, err
	}
	return lb, nil
}

// GetDashboard collects the personal overview of userID.
func (s *LeaderboardService) GetDashboard(ctx context.Context, userID uint) (*Dashboard, error) {
	total, err := s.TotalExperience(ctx, userID)
	if err != nil {
		return nil, err
	}
	rank, err := s.GlobalRank(ctx, total)
	if err != nil {
		return nil, err
	}

	var solved int64
	if err := s.db.WithContext(ctx).Model(&models.UserSolvedProblem{}).
		Where("user_id = ?", userID).Count(&solved).Error; err != nil {
		return nil, fmt.Errorf("count solved problems: %w", err)
	}

	topicStats, err := ListTopicStats(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	recent, err := s.runner.ListSessions(ctx, userID, 5)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		TotalExperience: total,
		TopicsTrained:   len(topicStats),
		ProblemsSolved:  int(solved),
		RecentSessions:  recent,
		Rank:            rank,
		TopicStats:      topicStats,
	}, nil
}
