package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"adeptly/internal/graph"
	"adeptly/internal/logger"
	"adeptly/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChoiceView is one answer option.
type ChoiceView struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// ProblemView is a problem as shown to a trainee, without its correct answer.
type ProblemView struct {
	ID                      uint         `json:"id"`
	Name                    string       `json:"name"`
	Prompt                  string       `json:"prompt"`
	Choices                 []ChoiceView `json:"choices"`
	Topics                  []string     `json:"topics"`
	Difficulty              int          `json:"difficulty"`
	DifficultyName          string       `json:"difficulty_name"`
	EstimatedTimeToComplete int          `json:"estimated_time_to_complete"`
	ProblemDiagramURL       string       `json:"problem_diagram_url,omitempty"`
}

// ProblemStep is the result of asking for a problem by index.
// Finished means the index is past the set and the caller should show results.
type ProblemStep struct {
	SessionID uint         `json:"session_id"`
	Index     int          `json:"index"`
	Total     int          `json:"total"`
	Finished  bool         `json:"finished"`
	Problem   *ProblemView `json:"problem,omitempty"`
}

// AnswerOutcome reports how a submission was graded.
type AnswerOutcome struct {
	SessionID          uint         `json:"session_id"`
	Position           int          `json:"position"`
	Finished           bool         `json:"finished"`
	Correct            bool         `json:"correct"`
	CorrectAnswer      string       `json:"correct_answer,omitempty"`
	Awards             []TopicAward `json:"awards"`
	NextPosition       int          `json:"next_position"`
	NextIsPastEnd      bool         `json:"next_is_past_end"`
	SolutionDiagramURL string       `json:"solution_diagram_url,omitempty"`
}

// TopicExperience is one line of a results breakdown.
type TopicExperience struct {
	TopicName  string `json:"topic_name"`
	Experience int    `json:"experience"`
}

// SessionResults summarizes a session.
type SessionResults struct {
	SessionID       uint              `json:"session_id"`
	TotalProblems   int               `json:"total_problems"`
	Correct         int               `json:"correct"`
	Incorrect       int               `json:"incorrect"`
	Accuracy        float64           `json:"accuracy"`
	TotalExperience int               `json:"total_experience"`
	Breakdown       []TopicExperience `json:"breakdown"`
	WasCompleted    bool              `json:"was_completed"`
	CompletedAt     *time.Time        `json:"completed_at"`
}

// SessionSummary is the list and detail view of a session.
type SessionSummary struct {
	ID                      uint       `json:"id"`
	EstimatedTimeToComplete int        `json:"estimated_time_to_complete"`
	TotalProblems           int        `json:"total_problems"`
	ProblemsCompleted       int        `json:"problems_completed"`
	Position                int        `json:"position"`
	CorrectAttempts         int        `json:"correct_attempts"`
	IncorrectAttempts       int        `json:"incorrect_attempts"`
	TopicsCovered           []string   `json:"topics_covered"`
	WasCompleted            bool       `json:"was_completed"`
	CreatedAt               time.Time  `json:"created_at"`
	CompletedAt             *time.Time `json:"completed_at"`
}

// SessionRunner drives a session from Active to Completed and grades answers.
type SessionRunner struct {
	db       *gorm.DB
	engine   *ExperienceEngine
	graph    GraphMirror
	cache    LeaderboardCache
	diagrams DiagramStore
	log      *logger.Logger
	now      func() time.Time
}

// NewSessionRunner wires the runner. mirror, cache and diagrams may be nil.
func NewSessionRunner(db *gorm.DB, engine *ExperienceEngine, mirror GraphMirror, cache LeaderboardCache, diagrams DiagramStore, log *logger.Logger) *SessionRunner {
	return &SessionRunner{
		db:       db,
		engine:   engine,
		graph:    mirror,
		cache:    cache,
		diagrams: diagrams,
		log:      logger.OrNop(log).With("service", "runner"),
		now:      time.Now,
	}
}

func (r *SessionRunner) loadSession(ctx context.Context, userID, sessionID uint) (*models.TrainingSession, error) {
	var session models.TrainingSession
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", sessionID, userID).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &session, nil
}

func (r *SessionRunner) problemCount(ctx context.Context, sessionID uint) (int, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.TrainingSessionProblem{}).
		Where("session_id = ?", sessionID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count session problems: %w", err)
	}
	return int(n), nil
}

func (r *SessionRunner) loadEntry(ctx context.Context, sessionID uint, position int) (*models.TrainingSessionProblem, error) {
	var entry models.TrainingSessionProblem
	err := r.db.WithContext(ctx).
		Preload("Problem").
		Preload("Problem.Topics", func(db *gorm.DB) *gorm.DB { return db.Order("topics.id ASC") }).
		Where("session_id = ? AND position = ?", sessionID, position).
		First(&entry).Error
	if err != nil {
		return nil, fmt.Errorf("load session problem %d: %w", position, err)
	}
	return &entry, nil
}

// markCompleted flags the session; completed_at keeps its first value.
func (r *SessionRunner) markCompleted(ctx context.Context, session *models.TrainingSession) error {
	now := r.now()
	err := r.db.WithContext(ctx).Model(&models.TrainingSession{}).
		Where("id = ?", session.ID).
		Updates(map[string]interface{}{
			"was_completed": true,
			"completed_at":  gorm.Expr("COALESCE(completed_at, ?)", now),
		}).Error
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	if session.CompletedAt == nil {
		session.CompletedAt = &now
	}
	session.WasCompleted = true
	return nil
}

func (r *SessionRunner) presign(ctx context.Context, key string) string {
	if r.diagrams == nil || key == "" {
		return ""
	}
	u, err := r.diagrams.PresignGet(ctx, key)
	if err != nil {
		r.log.Warn("presign diagram failed", "key", key, "error", err)
		return ""
	}
	return u
}

func (r *SessionRunner) problemView(ctx context.Context, p models.Problem) *ProblemView {
	view := &ProblemView{
		ID:                      p.ID,
		Name:                    p.Name,
		Prompt:                  p.Prompt,
		Difficulty:              p.Difficulty,
		DifficultyName:          models.DifficultyName(p.Difficulty),
		EstimatedTimeToComplete: p.EstimatedTimeToComplete,
		ProblemDiagramURL:       r.presign(ctx, p.ProblemDiagram),
	}
	for _, label := range models.ChoiceLabels {
		view.Choices = append(view.Choices, ChoiceView{Label: label, Text: p.Choice(label)})
	}
	for _, t := range p.Topics {
		view.Topics = append(view.Topics, t.Name)
	}
	return view
}

// GetProblem returns the problem at index. An index outside the set completes the session.
func (r *SessionRunner) GetProblem(ctx context.Context, userID, sessionID uint, index int) (*ProblemStep, error) {
	session, err := r.loadSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return r.problemAt(ctx, session, index)
}

// GetCurrentProblem returns the problem at the session's answer cursor.
func (r *SessionRunner) GetCurrentProblem(ctx context.Context, userID, sessionID uint) (*ProblemStep, error) {
	session, err := r.loadSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return r.problemAt(ctx, session, session.Position)
}

func (r *SessionRunner) problemAt(ctx context.Context, session *models.TrainingSession, index int) (*ProblemStep, error) {
	total, err := r.problemCount(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	step := &ProblemStep{SessionID: session.ID, Index: index, Total: total}
	if index < 0 || index >= total {
		if err := r.markCompleted(ctx, session); err != nil {
			return nil, err
		}
		step.Finished = true
		return step, nil
	}

	entry, err := r.loadEntry(ctx, session.ID, index)
	if err != nil {
		return nil, err
	}
	step.Problem = r.problemView(ctx, entry.Problem)
	return step, nil
}

// SubmitAnswer grades choice for the problem at position. Only the problem under the
// session cursor is accepted, so each problem is graded at most once.
func (r *SessionRunner) SubmitAnswer(ctx context.Context, user *models.User, sessionID uint, position int, choice string) (*AnswerOutcome, error) {
	if !models.IsChoiceLabel(choice) {
		return nil, ErrInvalidChoice
	}
	session, err := r.loadSession(ctx, user.ID, sessionID)
	if err != nil {
		return nil, err
	}
	total, err := r.problemCount(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	outcome := &AnswerOutcome{SessionID: session.ID, Position: position}
	if position < 0 || position >= total {
		if err := r.markCompleted(ctx, session); err != nil {
			return nil, err
		}
		outcome.Finished = true
		return outcome, nil
	}
	if session.WasCompleted {
		return nil, ErrSessionCompleted
	}
	if position != session.Position {
		return nil, ErrStalePosition
	}

	entry, err := r.loadEntry(ctx, session.ID, position)
	if err != nil {
		return nil, err
	}
	problem := entry.Problem
	correct := choice == problem.CorrectAnswer
	now := r.now()

	var awards []TopicAward
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		counter := "incorrect_attempts"
		if correct {
			counter = "correct_attempts"
		}
		res := tx.Model(&models.TrainingSession{}).
			Where("id = ? AND position = ? AND was_completed = ?", session.ID, position, false).
			Updates(map[string]interface{}{
				"position": position + 1,
				counter:    gorm.Expr(counter + " + 1"),
			})
		if res.Error != nil {
			return fmt.Errorf("advance session cursor: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var current models.TrainingSession
			if err := tx.Select("was_completed").First(&current, session.ID).Error; err == nil && current.WasCompleted {
				return ErrSessionCompleted
			}
			return ErrStalePosition
		}
		if !correct {
			return nil
		}

		solved := models.UserSolvedProblem{UserID: user.ID, ProblemID: problem.ID, SolvedAt: now}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&solved).Error; err != nil {
			return fmt.Errorf("record solved problem: %w", err)
		}
		if err := tx.Model(&models.TrainingSessionProblem{}).
			Where("id = ?", entry.ID).
			Update("completed_at", now).Error; err != nil {
			return fmt.Errorf("mark problem completed: %w", err)
		}

		var err error
		awards, err = r.engine.Award(tx, user.ID, session.ID, problem, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	if correct {
		r.afterAward(ctx, user, awards)
	}

	outcome.Correct = correct
	outcome.CorrectAnswer = problem.CorrectAnswer
	outcome.Awards = awards
	if outcome.Awards == nil {
		outcome.Awards = []TopicAward{}
	}
	outcome.NextPosition = position + 1
	outcome.NextIsPastEnd = outcome.NextPosition >= total
	outcome.SolutionDiagramURL = r.presign(ctx, problem.SolutionDiagram)

	r.log.Info("answer graded",
		"session_id", session.ID,
		"user_id", user.ID,
		"position", position,
		"problem_id", problem.ID,
		"correct", correct,
	)
	return outcome, nil
}

// afterAward runs the post-commit side effects. Failures are logged only.
func (r *SessionRunner) afterAward(ctx context.Context, user *models.User, awards []TopicAward) {
	if r.cache != nil {
		if err := r.cache.InvalidateGlobal(ctx); err != nil {
			r.log.Warn("invalidate leaderboard cache failed", "error", err)
		}
	}
	if r.graph == nil {
		return
	}
	for _, a := range awards {
		edge := graph.ExperienceEdge{
			UserUUID:   user.UUID,
			TopicID:    a.TopicID,
			TopicName:  a.TopicName,
			Experience: a.Total,
			Rank:       a.Rank,
		}
		if err := r.graph.RecordExperience(ctx, edge); err != nil {
			r.log.Warn("mirror experience to graph failed", "user_uuid", user.UUID, "topic_id", a.TopicID, "error", err)
		}
	}
}

// GetResults summarizes a session from its counters and the ledger.
func (r *SessionRunner) GetResults(ctx context.Context, userID, sessionID uint) (*SessionResults, error) {
	session, err := r.loadSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	total, err := r.problemCount(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	results := &SessionResults{
		SessionID:     session.ID,
		TotalProblems: total,
		Correct:       session.CorrectAttempts,
		Incorrect:     session.IncorrectAttempts,
		Breakdown:     []TopicExperience{},
		WasCompleted:  session.WasCompleted,
		CompletedAt:   session.CompletedAt,
	}
	if total == 0 {
		return results, nil
	}
	results.Accuracy = float64(session.CorrectAttempts) / float64(total) * 100

	var breakdown []TopicExperience
	err = r.db.WithContext(ctx).Table("topic_experience_earned AS l").
		Select("t.name AS topic_name, SUM(l.experience_earned) AS experience").
		Joins("JOIN topics t ON t.id = l.topic_id").
		Where("l.training_session_id = ?", session.ID).
		Group("t.name").
		Order("t.name ASC").
		Scan(&breakdown).Error
	if err != nil {
		return nil, fmt.Errorf("experience breakdown: %w", err)
	}
	for _, b := range breakdown {
		results.TotalExperience += b.Experience
	}
	if breakdown != nil {
		results.Breakdown = breakdown
	}
	return results, nil
}

// GetSession returns the summary of one of userID's sessions.
func (r *SessionRunner) GetSession(ctx context.Context, userID, sessionID uint) (*SessionSummary, error) {
	session, err := r.loadSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	summaries, err := r.summarize(ctx, []models.TrainingSession{*session})
	if err != nil {
		return nil, err
	}
	return &summaries[0], nil
}

// ListSessions returns userID's sessions newest first. limit <= 0 means all.
func (r *SessionRunner) ListSessions(ctx context.Context, userID uint, limit int) ([]SessionSummary, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var sessions []models.TrainingSession
	if err := q.Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return r.summarize(ctx, sessions)
}

type sessionCounts struct {
	SessionID uint
	Total     int
	Completed int
}

func (r *SessionRunner) summarize(ctx context.Context, sessions []models.TrainingSession) ([]SessionSummary, error) {
	out := make([]SessionSummary, 0, len(sessions))
	if len(sessions) == 0 {
		return out, nil
	}
	ids := make([]uint, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}

	var counts []sessionCounts
	err := r.db.WithContext(ctx).Model(&models.TrainingSessionProblem{}).
		Select("session_id, COUNT(*) AS total, COUNT(completed_at) AS completed").
		Where("session_id IN ?", ids).
		Group("session_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("count session problems: %w", err)
	}
	byID := make(map[uint]sessionCounts, len(counts))
	for _, c := range counts {
		byID[c.SessionID] = c
	}

	var withTopics []models.TrainingSession
	if err := r.db.WithContext(ctx).Preload("TopicsCovered").Where("id IN ?", ids).Find(&withTopics).Error; err != nil {
		return nil, fmt.Errorf("load covered topics: %w", err)
	}
	topics := make(map[uint][]string, len(withTopics))
	for _, s := range withTopics {
		names := make([]string, 0, len(s.TopicsCovered))
		for _, t := range s.TopicsCovered {
			names = append(names, t.Name)
		}
		topics[s.ID] = names
	}

	for _, s := range sessions {
		c := byID[s.ID]
		out = append(out, SessionSummary{
			ID:                      s.ID,
			EstimatedTimeToComplete: s.EstimatedTimeToComplete,
			TotalProblems:           c.Total,
			ProblemsCompleted:       c.Completed,
			Position:                s.Position,
			CorrectAttempts:         s.CorrectAttempts,
			IncorrectAttempts:       s.IncorrectAttempts,
			TopicsCovered:           topics[s.ID],
			WasCompleted:            s.WasCompleted,
			CreatedAt:               s.CreatedAt,
			CompletedAt:             s.CompletedAt,
		})
	}
	return out, nil
}
