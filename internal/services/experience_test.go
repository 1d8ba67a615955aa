package services

import (
	"testing"
	"time"

	"adeptly/internal/models"
	"adeptly/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRankTierFor(t *testing.T) {
	tests := []struct {
		experience int
		want       string
	}{
		{0, ""},
		{99, ""},
		{100, models.TierIntermediate},
		{499, models.TierIntermediate},
		{500, models.TierAdvanced},
		{999, models.TierAdvanced},
		{1000, models.TierExpert},
		{25000, models.TierExpert},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RankTierFor(tt.experience), "experience %d", tt.experience)
	}
}

func TestAwardCreatesLedgerAndStats(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedUser(t, f.db, "alice")
	hvac := testutil.TopicByName(t, f.db, "HVAC Design")
	ducts := testutil.TopicByName(t, f.db, "Ductwork Design")
	p := testutil.SeedProblem(t, f.db, "Duct sizing", 4, 6, hvac, ducts)
	s := f.sessionWith(t, user, p)

	var awards []TopicAward
	err := f.db.Transaction(func(tx *gorm.DB) error {
		var err error
		awards, err = f.engine.Award(tx, user.ID, s.ID, p, time.Now())
		return err
	})
	require.NoError(t, err)
	require.Len(t, awards, 2)
	for _, a := range awards {
		assert.Equal(t, 40, a.Experience)
		assert.Equal(t, 40, a.Total)
		assert.Equal(t, models.TierBeginner, a.Rank)
	}

	var ledger []models.TopicExperienceEarned
	require.NoError(t, f.db.Order("topic_id ASC").Find(&ledger).Error)
	require.Len(t, ledger, 2)
	assert.Equal(t, s.ID, ledger[0].TrainingSessionID)
	assert.Equal(t, p.ID, ledger[0].ProblemID)

	var stats []models.UserTopicStats
	require.NoError(t, f.db.Where("user_id = ?", user.ID).Find(&stats).Error)
	require.Len(t, stats, 2)
}

func TestAwardPromotesRank(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedUser(t, f.db, "bob")
	topic := testutil.TopicByName(t, f.db, "Refrigeration")
	p := testutil.SeedProblem(t, f.db, "Cycle", 5, 5, topic)
	s := f.sessionWith(t, user, p)

	award := func() TopicAward {
		var awards []TopicAward
		require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
			var err error
			awards, err = f.engine.Award(tx, user.ID, s.ID, p, time.Now())
			return err
		}))
		require.Len(t, awards, 1)
		return awards[0]
	}

	assert.Equal(t, models.TierBeginner, award().Rank)     // 50
	assert.Equal(t, models.TierIntermediate, award().Rank) // 100
	for i := 0; i < 7; i++ {
		award()
	}
	last := award() // 500
	assert.Equal(t, 500, last.Total)
	assert.Equal(t, models.TierAdvanced, last.Rank)

	for i := 0; i < 10; i++ {
		last = award()
	}
	assert.Equal(t, 1000, last.Total)
	assert.Equal(t, models.TierExpert, last.Rank)

	var stats models.UserTopicStats
	require.NoError(t, f.db.Where("user_id = ? AND topic_id = ?", user.ID, topic.ID).First(&stats).Error)
	expert, _ := f.ranks.ID(models.TierExpert)
	assert.Equal(t, expert, stats.RankID)
	assert.Equal(t, 1000, stats.Experience)
}
