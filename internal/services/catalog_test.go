package services

import (
	"context"
	"net/http"
	"testing"

	"adeptly/internal/apierr"
	"adeptly/internal/graph"
	"adeptly/internal/models"
	"adeptly/internal/oss"
	"adeptly/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func problemInput(name string, topics ...uint) ProblemInput {
	return ProblemInput{
		Name:                    name,
		TopicIDs:                topics,
		Prompt:                  "What size duct?",
		ChoiceA:                 "8 in",
		ChoiceB:                 "10 in",
		ChoiceC:                 "12 in",
		ChoiceD:                 "14 in",
		CorrectAnswer:           "C",
		EstimatedTimeToComplete: 4,
	}
}

func TestTopicCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	topic, err := f.catalog.CreateTopic(ctx, TopicInput{Name: "  Plumbing  "})
	require.NoError(t, err)
	assert.Equal(t, "Plumbing", topic.Name)
	assert.Equal(t, "Plumbing", f.graph.topics[topic.ID].Name)

	// duplicates are allowed
	dup, err := f.catalog.CreateTopic(ctx, TopicInput{Name: "Plumbing"})
	require.NoError(t, err)
	assert.NotEqual(t, topic.ID, dup.ID)

	renamed, err := f.catalog.UpdateTopic(ctx, dup.ID, TopicInput{Name: "Fire Protection"})
	require.NoError(t, err)
	assert.Equal(t, "Fire Protection", renamed.Name)

	_, err = f.catalog.UpdateTopic(ctx, 9999, TopicInput{Name: "x"})
	assert.ErrorIs(t, err, ErrTopicNotFound)

	_, err = f.catalog.CreateTopic(ctx, TopicInput{Name: "   "})
	assert.Equal(t, http.StatusBadRequest, apierr.StatusOf(err))

	topics, err := f.catalog.ListTopics(ctx)
	require.NoError(t, err)
	assert.Len(t, topics, len(models.DefaultTopicNames)+2)
	assert.Equal(t, "HVAC Design", topics[0].Name)
}

func TestDeleteTopic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hvac := testutil.TopicByName(t, f.db, "HVAC Design")
	testutil.SeedProblem(t, f.db, "Duct sizing", 2, 5, hvac)

	err := f.catalog.DeleteTopic(ctx, hvac.ID)
	assert.ErrorIs(t, err, ErrTopicInUse)
	assert.Equal(t, http.StatusConflict, apierr.StatusOf(err))

	orphan := testutil.SeedTopic(t, f.db, "Orphan")
	alice := testutil.SeedUser(t, f.db, "alice")
	s := models.TrainingSession{UserID: alice.ID, EstimatedTimeToComplete: 5, TopicsCovered: []models.Topic{orphan}}
	require.NoError(t, f.db.Create(&s).Error)
	f.graph.topics[orphan.ID] = graph.TopicNode{TopicID: orphan.ID, Name: orphan.Name}

	require.NoError(t, f.catalog.DeleteTopic(ctx, orphan.ID))

	var links int64
	require.NoError(t, f.db.Table("training_session_topics").Where("topic_id = ?", orphan.ID).Count(&links).Error)
	assert.Zero(t, links)
	assert.NotContains(t, f.graph.topics, orphan.ID)

	assert.ErrorIs(t, f.catalog.DeleteTopic(ctx, orphan.ID), ErrTopicNotFound)
}

func TestDeleteTopicWithLedgerIsRefused(t *testing.T) {
	f := newFixture(t)
	topic := testutil.SeedTopic(t, f.db, "Retired")
	require.NoError(t, f.db.Create(&models.TopicExperienceEarned{
		UserID: 1, TopicID: topic.ID, ExperienceEarned: 10, TrainingSessionID: 1, ProblemID: 1,
	}).Error)

	assert.ErrorIs(t, f.catalog.DeleteTopic(context.Background(), topic.ID), ErrTopicInUse)
}

func TestProblemCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hvac := testutil.TopicByName(t, f.db, "HVAC Design")
	duct := testutil.TopicByName(t, f.db, "Ductwork Design")

	p, err := f.catalog.CreateProblem(ctx, problemInput("Duct sizing", duct.ID, hvac.ID))
	require.NoError(t, err)
	assert.Equal(t, models.DefaultDifficulty, p.Difficulty)
	require.Len(t, p.Topics, 2)
	assert.Equal(t, hvac.ID, p.Topics[0].ID)
	assert.ElementsMatch(t, []uint{hvac.ID, duct.ID}, f.graph.problems[p.ID].TopicIDs)

	in := problemInput("Duct sizing v2", duct.ID)
	in.Difficulty = 5
	updated, err := f.catalog.UpdateProblem(ctx, p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Difficulty)

	got, err := f.catalog.GetProblem(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Duct sizing v2", got.Name)
	assert.Equal(t, "C", got.CorrectAnswer)
	require.Len(t, got.Topics, 1)
	assert.Equal(t, duct.ID, got.Topics[0].ID)

	require.NoError(t, f.catalog.DeleteProblem(ctx, p.ID))
	_, err = f.catalog.GetProblem(ctx, p.ID)
	assert.ErrorIs(t, err, ErrProblemNotFound)
	assert.NotContains(t, f.graph.problems, p.ID)
}

func TestProblemValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hvac := testutil.TopicByName(t, f.db, "HVAC Design")

	bad := problemInput("Bad answer", hvac.ID)
	bad.CorrectAnswer = "E"
	_, err := f.catalog.CreateProblem(ctx, bad)
	assert.ErrorIs(t, err, ErrInvalidChoice)

	bad = problemInput("Bad difficulty", hvac.ID)
	bad.Difficulty = 9
	_, err = f.catalog.CreateProblem(ctx, bad)
	assert.Equal(t, "invalid_difficulty", apierr.CodeOf(err))

	_, err = f.catalog.CreateProblem(ctx, problemInput("Unknown topic", 9999))
	assert.Equal(t, "unknown_topic", apierr.CodeOf(err))

	_, err = f.catalog.UpdateProblem(ctx, 9999, problemInput("Missing", hvac.ID))
	assert.ErrorIs(t, err, ErrProblemNotFound)

	var n int64
	require.NoError(t, f.db.Model(&models.Problem{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestListProblemsFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hvac := testutil.TopicByName(t, f.db, "HVAC Design")
	refr := testutil.TopicByName(t, f.db, "Refrigeration")
	testutil.SeedProblem(t, f.db, "One", 1, 5, hvac)
	testutil.SeedProblem(t, f.db, "Two", 3, 5, hvac, refr)
	testutil.SeedProblem(t, f.db, "Three", 3, 5, refr)

	all, err := f.catalog.ListProblems(ctx, ProblemFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byTopic, err := f.catalog.ListProblems(ctx, ProblemFilter{TopicID: &refr.ID})
	require.NoError(t, err)
	require.Len(t, byTopic, 2)
	assert.Equal(t, "Two", byTopic[0].Name)

	three := 3
	both, err := f.catalog.ListProblems(ctx, ProblemFilter{TopicID: &hvac.ID, Difficulty: &three})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "Two", both[0].Name)
}

func TestDeleteProblemInSession(t *testing.T) {
	f := newFixture(t)
	hvac := testutil.TopicByName(t, f.db, "HVAC Design")
	p := testutil.SeedProblem(t, f.db, "Frozen", 2, 5, hvac)
	f.sessionWith(t, testutil.SeedUser(t, f.db, "alice"), p)

	err := f.catalog.DeleteProblem(context.Background(), p.ID)
	assert.ErrorIs(t, err, ErrProblemInUse)
	assert.ErrorIs(t, f.catalog.DeleteProblem(context.Background(), 9999), ErrProblemNotFound)
}

func TestAttachDiagram(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hvac := testutil.TopicByName(t, f.db, "HVAC Design")
	p := testutil.SeedProblem(t, f.db, "Psychrometrics", 3, 5, hvac)
	f.diagrams.objects["charts/psy.png"] = oss.ObjectInfo{Key: "charts/psy.png", Size: 2048}

	_, err := f.catalog.AttachDiagram(ctx, "Psychrometrics", "charts/missing.png", false)
	assert.ErrorIs(t, err, ErrDiagramNotFound)

	_, err = f.catalog.AttachDiagram(ctx, "Nope", "charts/psy.png", false)
	assert.ErrorIs(t, err, ErrProblemNotFound)

	_, err = f.catalog.AttachDiagram(ctx, "Psychrometrics", "charts/psy.png", true)
	require.NoError(t, err)

	got, err := f.catalog.GetProblem(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "charts/psy.png", got.SolutionDiagram)
	assert.Empty(t, got.ProblemDiagram)

	objects, err := f.catalog.ListDiagrams(ctx, "charts/", true)
	require.NoError(t, err)
	assert.Len(t, objects, 1)
}

func TestOptionalBackendsDisabled(t *testing.T) {
	db, _ := testutil.SeededDB(t)
	catalog := NewCatalogService(db, nil, nil, nil)
	ctx := context.Background()

	_, err := catalog.ListDiagrams(ctx, "", false)
	assert.ErrorIs(t, err, ErrDiagramsDisabled)
	_, err = catalog.SyncGraph(ctx)
	assert.ErrorIs(t, err, ErrGraphDisabled)
	_, err = catalog.RelatedProblems(ctx, 1, 5)
	assert.Equal(t, http.StatusServiceUnavailable, apierr.StatusOf(err))

	hvac := testutil.TopicByName(t, db, "HVAC Design")
	testutil.SeedProblem(t, db, "Unchecked", 2, 5, hvac)
	p, err := catalog.AttachDiagram(ctx, "Unchecked", "any/key.png", false)
	require.NoError(t, err)
	assert.Equal(t, "any/key.png", p.ProblemDiagram)
}

func TestRelatedProblemsAndSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hvac := testutil.TopicByName(t, f.db, "HVAC Design")
	p := testutil.SeedProblem(t, f.db, "Base", 2, 5, hvac)
	f.graph.related = []graph.RelatedProblem{{ProblemID: 42, Name: "Neighbor", SharedTopics: 1}}

	related, err := f.catalog.RelatedProblems(ctx, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, "Neighbor", related[0].Name)

	_, err = f.catalog.RelatedProblems(ctx, 9999, 5)
	assert.ErrorIs(t, err, ErrProblemNotFound)

	_, err = f.catalog.SyncGraph(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.graph.syncCalls)
}
