package graph

import (
	"context"
	"fmt"
	"time"

	"adeptly/internal/models"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"gorm.io/gorm"
)

// TopicGraphService keeps a (Problem)-[:COVERS]->(Topic) graph and per-user
// experience edges (Engineer)-[:TRAINED]->(Topic).
type TopicGraphService struct {
	client *Neo4jClient
}

// NewTopicGraphService creates the service.
func NewTopicGraphService(client *Neo4jClient) *TopicGraphService {
	return &TopicGraphService{
		client: client,
	}
}

func toInt64s(ids []uint) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		out = append(out, int64(id))
	}
	return out
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

// UpsertTopic creates or renames a topic node.
func (s *TopicGraphService) UpsertTopic(ctx context.Context, topic TopicNode) error {
	query := `
		MERGE (t:Topic {topic_id: $topic_id})
		SET t.name = $name
	`
	params := map[string]interface{}{
		"topic_id": int64(topic.TopicID),
		"name":     topic.Name,
	}

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		_, err := tx.Run(ctx, query, params)
		return nil, err
	})
	return err
}

// DeleteTopic removes a topic node and its edges.
func (s *TopicGraphService) DeleteTopic(ctx context.Context, topicID uint) error {
	query := `
		MATCH (t:Topic {topic_id: $topic_id})
		DETACH DELETE t
	`
	params := map[string]interface{}{
		"topic_id": int64(topicID),
	}

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		_, err := tx.Run(ctx, query, params)
		return nil, err
	})
	return err
}

// UpsertProblem writes the problem node and replaces its COVERS edges.
func (s *TopicGraphService) UpsertProblem(ctx context.Context, problem ProblemNode) error {
	query := `
		MERGE (p:Problem {problem_id: $problem_id})
		SET p.name = $name,
			p.difficulty = $difficulty,
			p.updated_at = $updated_at
		WITH p
		OPTIONAL MATCH (p)-[old:COVERS]->(:Topic)
		DELETE old
		WITH DISTINCT p
		UNWIND $topic_ids AS tid
		MERGE (t:Topic {topic_id: tid})
		MERGE (p)-[:COVERS]->(t)
	`
	updatedAt := problem.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	params := map[string]interface{}{
		"problem_id": int64(problem.ProblemID),
		"name":       problem.Name,
		"difficulty": int64(problem.Difficulty),
		"updated_at": updatedAt,
		"topic_ids":  toInt64s(problem.TopicIDs),
	}

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		_, err := tx.Run(ctx, query, params)
		return nil, err
	})
	return err
}

// DeleteProblem removes a problem node and its edges.
func (s *TopicGraphService) DeleteProblem(ctx context.Context, problemID uint) error {
	query := `
		MATCH (p:Problem {problem_id: $problem_id})
		DETACH DELETE p
	`
	params := map[string]interface{}{
		"problem_id": int64(problemID),
	}

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		_, err := tx.Run(ctx, query, params)
		return nil, err
	})
	return err
}

// RecordExperience sets the user's experience and rank on the TRAINED edge.
func (s *TopicGraphService) RecordExperience(ctx context.Context, edge ExperienceEdge) error {
	query := `
		MERGE (u:Engineer {uuid: $uuid})
		MERGE (t:Topic {topic_id: $topic_id})
		ON CREATE SET t.name = $topic_name
		MERGE (u)-[r:TRAINED]->(t)
		SET r.experience = $experience,
			r.rank = $rank,
			r.updated_at = $updated_at
	`
	params := map[string]interface{}{
		"uuid":       edge.UserUUID,
		"topic_id":   int64(edge.TopicID),
		"topic_name": edge.TopicName,
		"experience": int64(edge.Experience),
		"rank":       edge.Rank,
		"updated_at": time.Now().UTC(),
	}

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		_, err := tx.Run(ctx, query, params)
		return nil, err
	})
	return err
}

// RelatedProblems lists problems sharing topics with problemID, most shared first.
func (s *TopicGraphService) RelatedProblems(ctx context.Context, problemID uint, limit int) ([]RelatedProblem, error) {
	query := `
		MATCH (p:Problem {problem_id: $problem_id})-[:COVERS]->(t:Topic)<-[:COVERS]-(other:Problem)
		WHERE other.problem_id <> $problem_id
		WITH other, count(DISTINCT t) AS shared
		RETURN other.problem_id AS problem_id,
			coalesce(other.name, '') AS name,
			coalesce(other.difficulty, 0) AS difficulty,
			shared
		ORDER BY shared DESC, problem_id ASC
		LIMIT $limit
	`
	params := map[string]interface{}{
		"problem_id": int64(problemID),
		"limit":      int64(limit),
	}

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}

		var related []RelatedProblem
		for result.Next(ctx) {
			record := result.Record()
			related = append(related, RelatedProblem{
				ProblemID:    uint(asInt(record.Values[0])),
				Name:         record.Values[1].(string),
				Difficulty:   asInt(record.Values[2]),
				SharedTopics: asInt(record.Values[3]),
			})
		}
		return related, result.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]RelatedProblem), nil
}

// listProblemIDs returns every problem id currently in the graph.
func (s *TopicGraphService) listProblemIDs(ctx context.Context) (map[uint]bool, error) {
	query := `MATCH (p:Problem) RETURN p.problem_id AS problem_id`

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		result, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		ids := make(map[uint]bool)
		for result.Next(ctx) {
			ids[uint(asInt(result.Record().Values[0]))] = true
		}
		return ids, result.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.(map[uint]bool), nil
}

// SyncReport summarizes an InitGraph run.
type SyncReport struct {
	Topics          int `json:"topics"`
	Problems        int `json:"problems"`
	ProblemsRemoved int `json:"problems_removed"`
}

// InitGraph reconciles the graph with the relational catalog.
func (s *TopicGraphService) InitGraph(ctx context.Context, db *gorm.DB) (*SyncReport, error) {
	var topics []models.Topic
	if err := db.WithContext(ctx).Order("id ASC").Find(&topics).Error; err != nil {
		return nil, fmt.Errorf("load topics: %w", err)
	}
	var problems []models.Problem
	if err := db.WithContext(ctx).Preload("Topics").Order("id ASC").Find(&problems).Error; err != nil {
		return nil, fmt.Errorf("load problems: %w", err)
	}

	report := &SyncReport{}
	for _, t := range topics {
		if err := s.UpsertTopic(ctx, TopicNode{TopicID: t.ID, Name: t.Name}); err != nil {
			return nil, fmt.Errorf("sync topic node (topic_id=%d): %w", t.ID, err)
		}
		report.Topics++
	}

	dbProblems := make(map[uint]bool, len(problems))
	for _, p := range problems {
		dbProblems[p.ID] = true
		if err := s.UpsertProblem(ctx, NodeFromProblem(p)); err != nil {
			return nil, fmt.Errorf("sync problem node (problem_id=%d): %w", p.ID, err)
		}
		report.Problems++
	}

	graphProblems, err := s.listProblemIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list graph problems: %w", err)
	}
	for id := range graphProblems {
		if dbProblems[id] {
			continue
		}
		if err := s.DeleteProblem(ctx, id); err != nil {
			return nil, fmt.Errorf("delete stale problem node (problem_id=%d): %w", id, err)
		}
		report.ProblemsRemoved++
	}
	return report, nil
}
