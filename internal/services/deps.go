package services

import (
	"context"

	"adeptly/internal/cache"
	"adeptly/internal/graph"
	"adeptly/internal/oss"

	"gorm.io/gorm"
)

// GraphMirror is the subset of the topic graph the services write to.
// A nil GraphMirror disables mirroring.
type GraphMirror interface {
	UpsertTopic(ctx context.Context, topic graph.TopicNode) error
	DeleteTopic(ctx context.Context, topicID uint) error
	UpsertProblem(ctx context.Context, problem graph.ProblemNode) error
	DeleteProblem(ctx context.Context, problemID uint) error
	RecordExperience(ctx context.Context, edge graph.ExperienceEdge) error
	RelatedProblems(ctx context.Context, problemID uint, limit int) ([]graph.RelatedProblem, error)
	InitGraph(ctx context.Context, db *gorm.DB) (*graph.SyncReport, error)
}

// LeaderboardCache caches the global leaderboard under a version that
// InvalidateGlobal bumps. A nil cache disables caching.
type LeaderboardCache interface {
	GlobalVersion(ctx context.Context) (int64, error)
	GetGlobal(ctx context.Context, version int64, dst any) error
	SetGlobal(ctx context.Context, version int64, entries any) error
	InvalidateGlobal(ctx context.Context) error
}

// DiagramStore resolves diagram object keys.
type DiagramStore interface {
	PresignGet(ctx context.Context, key string) (string, error)
	Stat(ctx context.Context, key string) (oss.ObjectInfo, error)
	List(ctx context.Context, prefix string, recursive bool) ([]oss.ObjectInfo, error)
}

var (
	_ GraphMirror  = (*graph.TopicGraphService)(nil)
	_ DiagramStore = (*oss.DiagramStore)(nil)

	_ LeaderboardCache = (*cache.LeaderboardCache)(nil)
)
