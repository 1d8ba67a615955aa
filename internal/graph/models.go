package graph

import (
	"time"

	"adeptly/internal/models"
)

// ProblemNode is the graph projection of a problem.
type ProblemNode struct {
	ProblemID  uint      `json:"problem_id"`
	Name       string    `json:"name"`
	Difficulty int       `json:"difficulty"`
	TopicIDs   []uint    `json:"topic_ids"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TopicNode is the graph projection of a topic.
type TopicNode struct {
	TopicID uint   `json:"topic_id"`
	Name    string `json:"name"`
}

// RelatedProblem is a problem sharing at least one topic with another.
type RelatedProblem struct {
	ProblemID    uint   `json:"problem_id"`
	Name         string `json:"name"`
	Difficulty   int    `json:"difficulty"`
	SharedTopics int    `json:"shared_topics"`
}

// ExperienceEdge mirrors one UserTopicStats row.
type ExperienceEdge struct {
	UserUUID   string `json:"user_uuid"`
	TopicID    uint   `json:"topic_id"`
	TopicName  string `json:"topic_name"`
	Experience int    `json:"experience"`
	Rank       string `json:"rank"`
}

// NodeFromProblem projects a problem with its topics loaded.
func NodeFromProblem(p models.Problem) ProblemNode {
	return ProblemNode{
		ProblemID:  p.ID,
		Name:       p.Name,
		Difficulty: p.Difficulty,
		TopicIDs:   models.TopicIDs(p.Topics),
		UpdatedAt:  p.UpdatedAt,
	}
}
