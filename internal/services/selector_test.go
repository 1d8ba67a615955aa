package services

import (
	"context"
	"math/rand"
	"testing"

	"adeptly/internal/apierr"
	"adeptly/internal/models"
	"adeptly/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frozenProblemIDs(t *testing.T, f *fixture, sessionID uint) []uint {
	t.Helper()
	var ids []uint
	require.NoError(t, f.db.Model(&models.TrainingSessionProblem{}).
		Where("session_id = ?", sessionID).
		Order("position ASC").
		Pluck("problem_id", &ids).Error)
	return ids
}

func TestAverageMinutes(t *testing.T) {
	tests := []struct {
		name     string
		minutes  []int
		expected int
	}{
		{name: "empty", minutes: nil, expected: 5},
		{name: "integer division", minutes: []int{4, 7}, expected: 5},
		{name: "zero estimates fall back", minutes: []int{0, 0}, expected: 5},
		{name: "single", minutes: []int{12}, expected: 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ps []models.Problem
			for _, m := range tt.minutes {
				ps = append(ps, models.Problem{EstimatedTimeToComplete: m})
			}
			assert.Equal(t, tt.expected, AverageMinutes(ps, 5))
		})
	}
}

func TestCreateSessionSelectsMatchingProblemsOnce(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedUser(t, f.db, "alice")
	a := testutil.TopicByName(t, f.db, "HVAC Design")
	b := testutil.TopicByName(t, f.db, "Refrigeration")
	c := testutil.TopicByName(t, f.db, "Lighting Design")

	p1 := testutil.SeedProblem(t, f.db, "both topics", 2, 4, a, b)
	p2 := testutil.SeedProblem(t, f.db, "topic a", 3, 6, a)
	testutil.SeedProblem(t, f.db, "too hard", 5, 5, b)
	testutil.SeedProblem(t, f.db, "other topic", 2, 5, c)

	selector := NewSessionSelector(f.db, rand.New(rand.NewSource(7)), 5, nil)
	session, err := selector.CreateSession(context.Background(), user.ID, CreateSessionInput{
		TopicIDs:         []uint{a.ID, b.ID},
		DifficultyLevels: []int{2, 3, 4},
		TimeAvailable:    10,
	})
	require.NoError(t, err)
	assert.False(t, session.WasCompleted)
	assert.Nil(t, session.CompletedAt)
	assert.Equal(t, 10, session.EstimatedTimeToComplete)

	ids := frozenProblemIDs(t, f, session.ID)
	assert.ElementsMatch(t, []uint{p1.ID, p2.ID}, ids)

	var covered models.TrainingSession
	require.NoError(t, f.db.Preload("TopicsCovered").First(&covered, session.ID).Error)
	assert.ElementsMatch(t, []uint{a.ID, b.ID}, models.TopicIDs(covered.TopicsCovered))
}

func TestCreateSessionBoundsByTimeBudget(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedUser(t, f.db, "alice")
	topic := testutil.TopicByName(t, f.db, "Control Systems")
	for i := 0; i < 8; i++ {
		testutil.SeedProblem(t, f.db, "p"+string(rune('a'+i)), 3, 6, topic)
	}

	selector := NewSessionSelector(f.db, rand.New(rand.NewSource(1)), 5, nil)
	tests := []struct {
		minutes int
		want    int
	}{
		{minutes: 5, want: 0},
		{minutes: 6, want: 1},
		{minutes: 20, want: 3},
		{minutes: 120, want: 8},
	}
	for _, tt := range tests {
		session, err := selector.CreateSession(context.Background(), user.ID, CreateSessionInput{
			TopicIDs:         []uint{topic.ID},
			DifficultyLevels: []int{3},
			TimeAvailable:    tt.minutes,
		})
		require.NoError(t, err)
		assert.Len(t, frozenProblemIDs(t, f, session.ID), tt.want, "minutes %d", tt.minutes)
		assert.False(t, session.WasCompleted)
	}
}

func TestCreateSessionFallbackAverage(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedUser(t, f.db, "alice")
	topic := testutil.TopicByName(t, f.db, "Power Distribution")
	for i := 0; i < 4; i++ {
		testutil.SeedProblem(t, f.db, "zero"+string(rune('a'+i)), 1, 0, topic)
	}

	selector := NewSessionSelector(f.db, rand.New(rand.NewSource(1)), 5, nil)
	session, err := selector.CreateSession(context.Background(), user.ID, CreateSessionInput{
		TopicIDs:         []uint{topic.ID},
		DifficultyLevels: []int{1},
		TimeAvailable:    12,
	})
	require.NoError(t, err)
	assert.Len(t, frozenProblemIDs(t, f, session.ID), 2)
}

func TestCreateSessionWithoutMatchIsCompleted(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedUser(t, f.db, "alice")
	topic := testutil.TopicByName(t, f.db, "Lighting Design")

	selector := NewSessionSelector(f.db, nil, 5, nil)
	session, err := selector.CreateSession(context.Background(), user.ID, CreateSessionInput{
		TopicIDs:         []uint{topic.ID},
		DifficultyLevels: []int{1, 2},
		TimeAvailable:    30,
	})
	require.NoError(t, err)
	assert.True(t, session.WasCompleted)
	require.NotNil(t, session.CompletedAt)
	assert.Zero(t, session.CorrectAttempts)
	assert.Zero(t, session.IncorrectAttempts)
	assert.Empty(t, frozenProblemIDs(t, f, session.ID))
}

func TestCreateSessionIsDeterministicForSeed(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedUser(t, f.db, "alice")
	topic := testutil.TopicByName(t, f.db, "Electrical Design")
	for i := 0; i < 10; i++ {
		testutil.SeedProblem(t, f.db, "e"+string(rune('a'+i)), 2, 5, topic)
	}
	in := CreateSessionInput{TopicIDs: []uint{topic.ID}, DifficultyLevels: []int{2}, TimeAvailable: 25}

	first, err := NewSessionSelector(f.db, rand.New(rand.NewSource(42)), 5, nil).CreateSession(context.Background(), user.ID, in)
	require.NoError(t, err)
	second, err := NewSessionSelector(f.db, rand.New(rand.NewSource(42)), 5, nil).CreateSession(context.Background(), user.ID, in)
	require.NoError(t, err)

	a := frozenProblemIDs(t, f, first.ID)
	assert.Len(t, a, 5)
	assert.Equal(t, a, frozenProblemIDs(t, f, second.ID))
}

func TestCreateSessionRejectsEmptyInput(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedUser(t, f.db, "alice")
	selector := NewSessionSelector(f.db, nil, 5, nil)

	_, err := selector.CreateSession(context.Background(), user.ID, CreateSessionInput{DifficultyLevels: []int{1}, TimeAvailable: 10})
	require.Error(t, err)
	assert.Equal(t, 400, apierr.StatusOf(err))

	var sessions int64
	require.NoError(t, f.db.Model(&models.TrainingSession{}).Count(&sessions).Error)
	assert.Zero(t, sessions)
}
