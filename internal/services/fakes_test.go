package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"adeptly/internal/cache"
	"adeptly/internal/graph"
	"adeptly/internal/models"
	"adeptly/internal/oss"
	"adeptly/internal/testutil"

	"gorm.io/gorm"
)

type fakeGraph struct {
	mu         sync.Mutex
	problems   map[uint]graph.ProblemNode
	topics     map[uint]graph.TopicNode
	experience []graph.ExperienceEdge
	related    []graph.RelatedProblem
	syncCalls  int
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{problems: map[uint]graph.ProblemNode{}, topics: map[uint]graph.TopicNode{}}
}

func (g *fakeGraph) UpsertTopic(ctx context.Context, topic graph.TopicNode) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.topics[topic.TopicID] = topic
	return nil
}

func (g *fakeGraph) DeleteTopic(ctx context.Context, topicID uint) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.topics, topicID)
	return nil
}

func (g *fakeGraph) UpsertProblem(ctx context.Context, problem graph.ProblemNode) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.problems[problem.ProblemID] = problem
	return nil
}

func (g *fakeGraph) DeleteProblem(ctx context.Context, problemID uint) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.problems, problemID)
	return nil
}

func (g *fakeGraph) RecordExperience(ctx context.Context, edge graph.ExperienceEdge) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.experience = append(g.experience, edge)
	return nil
}

func (g *fakeGraph) RelatedProblems(ctx context.Context, problemID uint, limit int) ([]graph.RelatedProblem, error) {
	return g.related, nil
}

func (g *fakeGraph) InitGraph(ctx context.Context, db *gorm.DB) (*graph.SyncReport, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.syncCalls++
	return &graph.SyncReport{}, nil
}

type fakeCache struct {
	mu          sync.Mutex
	version     int64
	raw         map[int64][]byte
	sets        int
	invalidated int
	// beforeSet runs once, outside the lock, ahead of the next SetGlobal
	beforeSet func()
}

func (c *fakeCache) GlobalVersion(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version, nil
}

func (c *fakeCache) GetGlobal(ctx context.Context, version int64, dst any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.raw[version]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(raw, dst)
}

func (c *fakeCache) SetGlobal(ctx context.Context, version int64, entries any) error {
	if hook := c.beforeSet; hook != nil {
		c.beforeSet = nil
		hook()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	if c.raw == nil {
		c.raw = make(map[int64][]byte)
	}
	c.raw[version] = raw
	c.sets++
	return nil
}

func (c *fakeCache) InvalidateGlobal(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.raw, c.version)
	c.version++
	c.invalidated++
	return nil
}

type fakeDiagrams struct {
	objects map[string]oss.ObjectInfo
}

func (d *fakeDiagrams) PresignGet(ctx context.Context, key string) (string, error) {
	return "https://diagrams.test/" + key + "?signed=1", nil
}

func (d *fakeDiagrams) Stat(ctx context.Context, key string) (oss.ObjectInfo, error) {
	info, ok := d.objects[key]
	if !ok {
		return oss.ObjectInfo{}, oss.ErrObjectNotFound
	}
	return info, nil
}

func (d *fakeDiagrams) List(ctx context.Context, prefix string, recursive bool) ([]oss.ObjectInfo, error) {
	var out []oss.ObjectInfo
	for _, o := range d.objects {
		out = append(out, o)
	}
	return out, nil
}

// fixture wires every service against one in-memory database.
type fixture struct {
	db          *gorm.DB
	ranks       models.RankTable
	graph       *fakeGraph
	cache       *fakeCache
	diagrams    *fakeDiagrams
	engine      *ExperienceEngine
	runner      *SessionRunner
	leaderboard *LeaderboardService
	catalog     *CatalogService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, ranks := testutil.SeededDB(t)
	f := &fixture{
		db:       db,
		ranks:    ranks,
		graph:    newFakeGraph(),
		cache:    &fakeCache{},
		diagrams: &fakeDiagrams{objects: map[string]oss.ObjectInfo{}},
	}
	f.engine = NewExperienceEngine(ranks)
	f.runner = NewSessionRunner(db, f.engine, f.graph, f.cache, f.diagrams, nil)
	f.leaderboard = NewLeaderboardService(db, f.cache, f.runner, 10, nil)
	f.catalog = NewCatalogService(db, f.graph, f.diagrams, nil)
	return f
}

// sessionWith freezes problems, in order, into a new session for user.
func (f *fixture) sessionWith(t *testing.T, user *models.User, problems ...models.Problem) *models.TrainingSession {
	t.Helper()
	s := models.TrainingSession{UserID: user.ID, EstimatedTimeToComplete: 15}
	if err := f.db.Create(&s).Error; err != nil {
		t.Fatalf("create session: %v", err)
	}
	for i, p := range problems {
		row := models.TrainingSessionProblem{SessionID: s.ID, Position: i, ProblemID: p.ID}
		if err := f.db.Create(&row).Error; err != nil {
			t.Fatalf("freeze problem: %v", err)
		}
	}
	return &s
}
