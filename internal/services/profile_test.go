package services

import (
	"context"
	"testing"
	"time"

	"adeptly/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trainedProfile answers three problems correctly, one minute apart.
func trainedProfile(t *testing.T) (*fixture, *ProfileService, uint) {
	t.Helper()
	f := newFixture(t)
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.runner.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	hvac := testutil.TopicByName(t, f.db, "HVAC Design")
	refr := testutil.TopicByName(t, f.db, "Refrigeration")
	alice := testutil.SeedUser(t, f.db, "alice")
	s := f.sessionWith(t, alice,
		testutil.SeedProblem(t, f.db, "One", 5, 5, hvac),
		testutil.SeedProblem(t, f.db, "Two", 1, 5, refr),
		testutil.SeedProblem(t, f.db, "Three", 2, 5, hvac, refr),
	)
	for pos := 0; pos < 3; pos++ {
		_, err := f.runner.SubmitAnswer(context.Background(), alice, s.ID, pos, "A")
		require.NoError(t, err)
	}
	return f, NewProfileService(f.db), alice.ID
}

func TestTopicStatsView(t *testing.T) {
	_, profile, userID := trainedProfile(t)

	stats, err := profile.TopicStats(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, TopicStatsView{TopicID: stats[0].TopicID, TopicName: "HVAC Design", Experience: 70, Rank: "Beginner"}, stats[0])
	assert.Equal(t, 30, stats[1].Experience)

	none, err := profile.TopicStats(context.Background(), 9999)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestExperienceHistoryPaging(t *testing.T) {
	f, profile, userID := trainedProfile(t)
	ctx := context.Background()

	page, err := profile.ExperienceHistory(ctx, userID, nil, 1, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 4, page.TotalCnt)
	require.Len(t, page.Result, 3)
	assert.Equal(t, "Three", page.Result[0].ProblemName)
	assert.Equal(t, 20, page.Result[0].ExperienceEarned)

	second, err := profile.ExperienceHistory(ctx, userID, nil, 2, 3)
	require.NoError(t, err)
	require.Len(t, second.Result, 1)
	assert.Equal(t, "One", second.Result[0].ProblemName)

	refr := testutil.TopicByName(t, f.db, "Refrigeration")
	filtered, err := profile.ExperienceHistory(ctx, userID, &refr.ID, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, filtered.TotalCnt)
	assert.Equal(t, 1, filtered.PageIdx)
	assert.Equal(t, 20, filtered.PageSize)
	for _, e := range filtered.Result {
		assert.Equal(t, "Refrigeration", e.TopicName)
	}
}

func TestRadarIsRelativeToBestTopic(t *testing.T) {
	_, profile, userID := trainedProfile(t)

	items, err := profile.Radar(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, items, 10)
	assert.Equal(t, "HVAC Design", items[0].Subject)
	assert.InDelta(t, 100, items[0].Value, 0.001)
	assert.Equal(t, "Refrigeration", items[3].Subject)
	assert.InDelta(t, 30.0/70.0*100, items[3].Value, 0.001)
	assert.Zero(t, items[1].Value)
	assert.Equal(t, float64(100), items[9].FullMark)
}

func TestSolvedMostRecentFirst(t *testing.T) {
	_, profile, userID := trainedProfile(t)

	solved, err := profile.Solved(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, solved, 3)
	assert.Equal(t, "Three", solved[0].Name)
	assert.Equal(t, "One", solved[2].Name)
}
