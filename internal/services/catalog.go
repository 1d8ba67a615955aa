package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"adeptly/internal/apierr"
	"adeptly/internal/graph"
	"adeptly/internal/logger"
	"adeptly/internal/models"
	"adeptly/internal/oss"

	"gorm.io/gorm"
)

// TopicInput creates or renames a topic.
type TopicInput struct {
	Name string `json:"name" binding:"required,max=100"`
}

// ProblemInput creates or replaces a problem.
type ProblemInput struct {
	Name                    string `json:"name" binding:"required,max=200"`
	TopicIDs                []uint `json:"topic_ids" binding:"required,min=1"`
	Prompt                  string `json:"prompt" binding:"required"`
	ChoiceA                 string `json:"choice_a" binding:"required,max=255"`
	ChoiceB                 string `json:"choice_b" binding:"required,max=255"`
	ChoiceC                 string `json:"choice_c" binding:"required,max=255"`
	ChoiceD                 string `json:"choice_d" binding:"required,max=255"`
	CorrectAnswer           string `json:"correct_answer" binding:"required,oneof=A B C D"`
	ProblemDiagram          string `json:"problem_diagram" binding:"max=255"`
	SolutionDiagram         string `json:"solution_diagram" binding:"max=255"`
	EstimatedTimeToComplete int    `json:"estimated_time_to_complete" binding:"required,min=1"`
	Difficulty              int    `json:"difficulty" binding:"omitempty,min=1,max=5"`
}

// ProblemFilter narrows ListProblems. Nil fields do not filter.
type ProblemFilter struct {
	TopicID    *uint
	Difficulty *int
}

// TopicView is a topic with its problem count.
type TopicView struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	ProblemCount int    `json:"problem_count"`
}

// CatalogService manages topics, problems and their diagrams.
type CatalogService struct {
	db       *gorm.DB
	graph    GraphMirror
	diagrams DiagramStore
	log      *logger.Logger
}

// NewCatalogService wires the catalog. mirror and diagrams may be nil.
func NewCatalogService(db *gorm.DB, mirror GraphMirror, diagrams DiagramStore, log *logger.Logger) *CatalogService {
	return &CatalogService{
		db:       db,
		graph:    mirror,
		diagrams: diagrams,
		log:      logger.OrNop(log).With("service", "catalog"),
	}
}

// ListTopics returns every topic in id order.
func (s *CatalogService) ListTopics(ctx context.Context) ([]TopicView, error) {
	out := []TopicView{}
	err := s.db.WithContext(ctx).Table("topics t").
		Select("t.id AS id, t.name AS name, COUNT(pt.problem_id) AS problem_count").
		Joins("LEFT JOIN problem_topics pt ON pt.topic_id = t.id").
		Group("t.id, t.name").
		Order("t.id ASC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return out, nil
}

// CreateTopic adds a topic. Duplicate names are accepted with a warning.
func (s *CatalogService) CreateTopic(ctx context.Context, in TopicInput) (*models.Topic, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apierr.BadRequest("invalid_request", errors.New("name is required"))
	}

	var dup int64
	if err := s.db.WithContext(ctx).Model(&models.Topic{}).Where("name = ?", name).Count(&dup).Error; err != nil {
		return nil, fmt.Errorf("check topic name: %w", err)
	}
	if dup > 0 {
		s.log.Warn("creating topic with duplicate name", "name", name, "existing", dup)
	}

	topic := models.Topic{Name: name}
	if err := s.db.WithContext(ctx).Create(&topic).Error; err != nil {
		return nil, fmt.Errorf("create topic: %w", err)
	}
	s.mirrorTopic(ctx, topic)
	return &topic, nil
}

// UpdateTopic renames a topic.
func (s *CatalogService) UpdateTopic(ctx context.Context, id uint, in TopicInput) (*models.Topic, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apierr.BadRequest("invalid_request", errors.New("name is required"))
	}
	var topic models.Topic
	if err := s.db.WithContext(ctx).First(&topic, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTopicNotFound
		}
		return nil, fmt.Errorf("load topic: %w", err)
	}
	topic.Name = name
	if err := s.db.WithContext(ctx).Save(&topic).Error; err != nil {
		return nil, fmt.Errorf("update topic: %w", err)
	}
	s.mirrorTopic(ctx, topic)
	return &topic, nil
}

// DeleteTopic removes a topic no problem uses and no experience was earned in.
func (s *CatalogService) DeleteTopic(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var topic models.Topic
		if err := tx.First(&topic, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTopicNotFound
			}
			return fmt.Errorf("load topic: %w", err)
		}

		var used int64
		if err := tx.Table("problem_topics").Where("topic_id = ?", id).Count(&used).Error; err != nil {
			return fmt.Errorf("check topic usage: %w", err)
		}
		if used == 0 {
			if err := tx.Model(&models.TopicExperienceEarned{}).Where("topic_id = ?", id).Count(&used).Error; err != nil {
				return fmt.Errorf("check topic ledger: %w", err)
			}
		}
		if used > 0 {
			return ErrTopicInUse
		}

		if err := tx.Exec("DELETE FROM training_session_topics WHERE topic_id = ?", id).Error; err != nil {
			return fmt.Errorf("detach topic from sessions: %w", err)
		}
		if err := tx.Where("topic_id = ?", id).Delete(&models.UserTopicStats{}).Error; err != nil {
			return fmt.Errorf("delete topic stats: %w", err)
		}
		if err := tx.Delete(&topic).Error; err != nil {
			return fmt.Errorf("delete topic: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.graph != nil {
		if err := s.graph.DeleteTopic(ctx, id); err != nil {
			s.log.Warn("delete topic from graph failed", "topic_id", id, "error", err)
		}
	}
	return nil
}

// ListProblems returns problems with topics, optionally filtered.
func (s *CatalogService) ListProblems(ctx context.Context, f ProblemFilter) ([]models.Problem, error) {
	q := s.db.WithContext(ctx).Preload("Topics", func(db *gorm.DB) *gorm.DB { return db.Order("topics.id ASC") })
	if f.TopicID != nil {
		q = q.Where("id IN (?)", s.db.Table("problem_topics").Select("problem_id").Where("topic_id = ?", *f.TopicID))
	}
	if f.Difficulty != nil {
		q = q.Where("difficulty = ?", *f.Difficulty)
	}
	problems := []models.Problem{}
	if err := q.Order("id ASC").Find(&problems).Error; err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	return problems, nil
}

// GetProblem returns one problem, correct answer included.
func (s *CatalogService) GetProblem(ctx context.Context, id uint) (*models.Problem, error) {
	var p models.Problem
	err := s.db.WithContext(ctx).
		Preload("Topics", func(db *gorm.DB) *gorm.DB { return db.Order("topics.id ASC") }).
		First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProblemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load problem: %w", err)
	}
	return &p, nil
}

func (s *CatalogService) resolveTopics(tx *gorm.DB, ids []uint) ([]models.Topic, error) {
	var topics []models.Topic
	if err := tx.Where("id IN ?", ids).Order("id ASC").Find(&topics).Error; err != nil {
		return nil, fmt.Errorf("load topics: %w", err)
	}
	found := make(map[uint]bool, len(topics))
	for _, t := range topics {
		found[t.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			return nil, apierr.BadRequest("unknown_topic", fmt.Errorf("topic %d does not exist", id))
		}
	}
	return topics, nil
}

func applyProblemInput(p *models.Problem, in ProblemInput) {
	p.Name = strings.TrimSpace(in.Name)
	p.Prompt = in.Prompt
	p.ChoiceA = in.ChoiceA
	p.ChoiceB = in.ChoiceB
	p.ChoiceC = in.ChoiceC
	p.ChoiceD = in.ChoiceD
	p.CorrectAnswer = in.CorrectAnswer
	p.ProblemDiagram = strings.TrimSpace(in.ProblemDiagram)
	p.SolutionDiagram = strings.TrimSpace(in.SolutionDiagram)
	p.EstimatedTimeToComplete = in.EstimatedTimeToComplete
	p.Difficulty = in.Difficulty
	if p.Difficulty == 0 {
		p.Difficulty = models.DefaultDifficulty
	}
}

func validateProblemInput(in ProblemInput) error {
	if !models.IsChoiceLabel(in.CorrectAnswer) {
		return ErrInvalidChoice
	}
	if in.Difficulty != 0 && (in.Difficulty < models.MinDifficulty || in.Difficulty > models.MaxDifficulty) {
		return apierr.BadRequest("invalid_difficulty", fmt.Errorf("difficulty must be between %d and %d", models.MinDifficulty, models.MaxDifficulty))
	}
	if in.EstimatedTimeToComplete <= 0 {
		return apierr.BadRequest("invalid_estimate", errors.New("estimated time must be positive"))
	}
	if len(in.TopicIDs) == 0 {
		return apierr.BadRequest("invalid_request", errors.New("at least one topic is required"))
	}
	return nil
}

// CreateProblem adds a problem linked to existing topics.
func (s *CatalogService) CreateProblem(ctx context.Context, in ProblemInput) (*models.Problem, error) {
	if err := validateProblemInput(in); err != nil {
		return nil, err
	}
	var p models.Problem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		topics, err := s.resolveTopics(tx, in.TopicIDs)
		if err != nil {
			return err
		}
		applyProblemInput(&p, in)
		p.Topics = topics
		if err := tx.Create(&p).Error; err != nil {
			return fmt.Errorf("create problem: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.mirrorProblem(ctx, p)
	return &p, nil
}

// UpdateProblem replaces every field of a problem, its topic set included.
func (s *CatalogService) UpdateProblem(ctx context.Context, id uint, in ProblemInput) (*models.Problem, error) {
	if err := validateProblemInput(in); err != nil {
		return nil, err
	}
	var p models.Problem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProblemNotFound
			}
			return fmt.Errorf("load problem: %w", err)
		}
		topics, err := s.resolveTopics(tx, in.TopicIDs)
		if err != nil {
			return err
		}
		applyProblemInput(&p, in)
		if err := tx.Omit("Topics").Save(&p).Error; err != nil {
			return fmt.Errorf("update problem: %w", err)
		}
		if err := tx.Model(&p).Association("Topics").Replace(topics); err != nil {
			return fmt.Errorf("replace problem topics: %w", err)
		}
		p.Topics = topics
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.mirrorProblem(ctx, p)
	return &p, nil
}

// DeleteProblem removes a problem that no training session references.
func (s *CatalogService) DeleteProblem(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Problem
		if err := tx.First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProblemNotFound
			}
			return fmt.Errorf("load problem: %w", err)
		}
		var refs int64
		if err := tx.Model(&models.TrainingSessionProblem{}).Where("problem_id = ?", id).Count(&refs).Error; err != nil {
			return fmt.Errorf("check problem usage: %w", err)
		}
		if refs > 0 {
			return ErrProblemInUse
		}
		if err := tx.Model(&p).Association("Topics").Clear(); err != nil {
			return fmt.Errorf("detach problem topics: %w", err)
		}
		if err := tx.Where("problem_id = ?", id).Delete(&models.UserSolvedProblem{}).Error; err != nil {
			return fmt.Errorf("delete solved records: %w", err)
		}
		if err := tx.Delete(&p).Error; err != nil {
			return fmt.Errorf("delete problem: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.graph != nil {
		if err := s.graph.DeleteProblem(ctx, id); err != nil {
			s.log.Warn("delete problem from graph failed", "problem_id", id, "error", err)
		}
	}
	return nil
}

// AttachDiagram sets the problem or solution diagram of the first problem named name.
// The key must exist in the diagram store when one is configured.
func (s *CatalogService) AttachDiagram(ctx context.Context, name, key string, solution bool) (*models.Problem, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, apierr.BadRequest("invalid_request", errors.New("diagram key is required"))
	}

	var p models.Problem
	err := s.db.WithContext(ctx).Where("name = ?", name).Order("id ASC").First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProblemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load problem: %w", err)
	}

	if s.diagrams != nil {
		if _, err := s.diagrams.Stat(ctx, key); err != nil {
			if errors.Is(err, oss.ErrObjectNotFound) {
				return nil, ErrDiagramNotFound
			}
			return nil, fmt.Errorf("stat diagram: %w", err)
		}
	} else {
		s.log.Warn("diagram store not configured, key not verified", "key", key)
	}

	column := "problem_diagram"
	if solution {
		column = "solution_diagram"
	}
	if err := s.db.WithContext(ctx).Model(&p).Update(column, key).Error; err != nil {
		return nil, fmt.Errorf("attach diagram: %w", err)
	}
	if solution {
		p.SolutionDiagram = key
	} else {
		p.ProblemDiagram = key
	}
	s.log.Info("diagram attached", "problem_id", p.ID, "column", column, "key", key)
	return &p, nil
}

// ListDiagrams lists objects in the diagram store under prefix.
func (s *CatalogService) ListDiagrams(ctx context.Context, prefix string, recursive bool) ([]oss.ObjectInfo, error) {
	if s.diagrams == nil {
		return nil, ErrDiagramsDisabled
	}
	objects, err := s.diagrams.List(ctx, prefix, recursive)
	if err != nil {
		return nil, fmt.Errorf("list diagrams: %w", err)
	}
	if objects == nil {
		objects = []oss.ObjectInfo{}
	}
	return objects, nil
}

// RelatedProblems asks the topic graph for problems sharing topics with id.
func (s *CatalogService) RelatedProblems(ctx context.Context, id uint, limit int) ([]graph.RelatedProblem, error) {
	if s.graph == nil {
		return nil, ErrGraphDisabled
	}
	if _, err := s.GetProblem(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	related, err := s.graph.RelatedProblems(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("related problems: %w", err)
	}
	if related == nil {
		related = []graph.RelatedProblem{}
	}
	return related, nil
}

// SyncGraph rebuilds the topic graph from the catalog.
func (s *CatalogService) SyncGraph(ctx context.Context) (*graph.SyncReport, error) {
	if s.graph == nil {
		return nil, ErrGraphDisabled
	}
	return s.graph.InitGraph(ctx, s.db)
}

func (s *CatalogService) mirrorTopic(ctx context.Context, t models.Topic) {
	if s.graph == nil {
		return
	}
	if err := s.graph.UpsertTopic(ctx, graph.TopicNode{TopicID: t.ID, Name: t.Name}); err != nil {
		s.log.Warn("mirror topic to graph failed", "topic_id", t.ID, "error", err)
	}
}

func (s *CatalogService) mirrorProblem(ctx context.Context, p models.Problem) {
	if s.graph == nil {
		return
	}
	if err := s.graph.UpsertProblem(ctx, graph.NodeFromProblem(p)); err != nil {
		s.log.Warn("mirror problem to graph failed", "problem_id", p.ID, "error", err)
	}
}
