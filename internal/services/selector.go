package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"adeptly/internal/apierr"
	"adeptly/internal/logger"
	"adeptly/internal/models"

	"gorm.io/gorm"
)

const defaultAverageMinutes = 5

// CreateSessionInput is a validated training request.
type CreateSessionInput struct {
	TopicIDs         []uint
	DifficultyLevels []int
	TimeAvailable    int // minutes
}

// SessionSelector builds frozen, randomized problem sets.
type SessionSelector struct {
	db       *gorm.DB
	log      *logger.Logger
	fallback int
	mu       sync.Mutex
	rng      *rand.Rand
	now      func() time.Time
}

// NewSessionSelector uses rng for shuffling; pass nil for a clock seeded source.
func NewSessionSelector(db *gorm.DB, rng *rand.Rand, fallbackAverage int, log *logger.Logger) *SessionSelector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if fallbackAverage <= 0 {
		fallbackAverage = defaultAverageMinutes
	}
	return &SessionSelector{
		db:       db,
		log:      logger.OrNop(log).With("service", "selector"),
		fallback: fallbackAverage,
		rng:      rng,
		now:      time.Now,
	}
}

// AverageMinutes is the integer mean of the estimates, or fallback when it comes out as zero.
func AverageMinutes(problems []models.Problem, fallback int) int {
	if len(problems) == 0 {
		return fallback
	}
	sum := 0
	for _, p := range problems {
		sum += p.EstimatedTimeToComplete
	}
	avg := sum / len(problems)
	if avg <= 0 {
		return fallback
	}
	return avg
}

func (s *SessionSelector) shuffle(problems []models.Problem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng.Shuffle(len(problems), func(i, j int) {
		problems[i], problems[j] = problems[j], problems[i]
	})
}

// CreateSession selects problems for userID and persists the session in one transaction.
// No matching problem yields a session that is already completed.
func (s *SessionSelector) CreateSession(ctx context.Context, userID uint, in CreateSessionInput) (*models.TrainingSession, error) {
	if len(in.TopicIDs) == 0 || len(in.DifficultyLevels) == 0 {
		return nil, apierr.BadRequest("invalid_request", errors.New("at least one topic and one difficulty level are required"))
	}
	if in.TimeAvailable <= 0 {
		return nil, apierr.BadRequest("invalid_request", errors.New("time available must be positive"))
	}

	var session models.TrainingSession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidates []models.Problem
		err := tx.
			Where("difficulty IN ?", in.DifficultyLevels).
			Where("id IN (?)", tx.Table("problem_topics").Select("problem_id").Where("topic_id IN ?", in.TopicIDs)).
			Order("id ASC").
			Find(&candidates).Error
		if err != nil {
			return fmt.Errorf("query candidate problems: %w", err)
		}

		var covered []models.Topic
		if err := tx.Where("id IN ?", in.TopicIDs).Order("id ASC").Find(&covered).Error; err != nil {
			return fmt.Errorf("load topics: %w", err)
		}

		session = models.TrainingSession{
			UserID:                  userID,
			EstimatedTimeToComplete: in.TimeAvailable,
			TopicsCovered:           covered,
		}

		if len(candidates) == 0 {
			now := s.now()
			session.WasCompleted = true
			session.CompletedAt = &now
			if err := tx.Create(&session).Error; err != nil {
				return fmt.Errorf("create session: %w", err)
			}
			return nil
		}

		avg := AverageMinutes(candidates, s.fallback)
		maxProblems := in.TimeAvailable / avg

		s.shuffle(candidates)
		if maxProblems < len(candidates) {
			candidates = candidates[:maxProblems]
		}

		if err := tx.Create(&session).Error; err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		if len(candidates) == 0 {
			return nil
		}

		rows := make([]models.TrainingSessionProblem, 0, len(candidates))
		for i, p := range candidates {
			rows = append(rows, models.TrainingSessionProblem{
				SessionID: session.ID,
				Position:  i,
				ProblemID: p.ID,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("freeze problem set: %w", err)
		}
		session.Problems = rows
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("training session created",
		"session_id", session.ID,
		"user_id", userID,
		"problems", len(session.Problems),
		"completed", session.WasCompleted,
	)
	return &session, nil
}
