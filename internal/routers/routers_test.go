package routers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"adeptly/internal/config"
	"adeptly/internal/models"
	"adeptly/internal/services"
	"adeptly/internal/testutil"
	"adeptly/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestEngine(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Mode = gin.TestMode

	db, ranks := testutil.SeededDB(t)
	runner := services.NewSessionRunner(db, services.NewExperienceEngine(ranks), nil, nil, nil, nil)
	app := &App{
		DB:          db,
		Config:      cfg,
		Selector:    services.NewSessionSelector(db, rand.New(rand.NewSource(7)), cfg.Training.FallbackAverageMinutes, nil),
		Runner:      runner,
		Leaderboard: services.NewLeaderboardService(db, nil, runner, cfg.Training.LeaderboardSize, nil),
		Profile:     services.NewProfileService(db),
		Catalog:     services.NewCatalogService(db, nil, nil, nil),
	}
	return NewEngine(app), db
}

func do(t *testing.T, r http.Handler, method, path, userUUID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userUUID != "" {
		req.Header.Set(util.HeaderUserUUID, userUUID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	r, _ := newTestEngine(t)
	w := do(t, r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIdentity(t *testing.T) {
	r, db := newTestEngine(t)

	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodGet, "/dashboard", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodGet, "/dashboard", "not-a-uuid", nil).Code)

	fresh := uuid.NewString()
	require.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/dashboard", fresh, nil).Code)
	var u models.User
	require.NoError(t, db.Where("uuid = ?", fresh).First(&u).Error)
	assert.True(t, u.Active())

	require.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/dashboard", fresh, nil).Code)
	other := uuid.NewString()
	require.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/dashboard", other, nil).Code)
	var n int64
	require.NoError(t, db.Model(&models.User{}).Where("uuid IN ?", []string{fresh, other}).Count(&n).Error)
	assert.EqualValues(t, 2, n)

	require.NoError(t, db.Model(&u).Update("status", "disabled").Error)
	assert.Equal(t, http.StatusForbidden, do(t, r, http.MethodGet, "/dashboard", fresh, nil).Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/dashboard", other, nil).Code)
}

func TestCreateSessionValidation(t *testing.T) {
	r, db := newTestEngine(t)
	alice := testutil.SeedUser(t, db, "alice")
	hvac := testutil.TopicByName(t, db, "HVAC Design")

	w := do(t, r, http.MethodPost, "/training/sessions", alice.UUID, gin.H{
		"topic_ids": []uint{}, "difficulty_levels": []int{7}, "time_available": 15,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := decode(t, w)["fields"].(map[string]any)
	assert.Contains(t, fields, "topic_ids")
	assert.Contains(t, fields, "difficulty_levels[0]")

	w = do(t, r, http.MethodPost, "/training/sessions", alice.UUID, gin.H{
		"topic_ids": []uint{hvac.ID}, "difficulty_levels": []int{1}, "time_available": 3,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["fields"], "time_available")

	var n int64
	require.NoError(t, db.Model(&models.TrainingSession{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestTrainingFlow(t *testing.T) {
	r, db := newTestEngine(t)
	alice := testutil.SeedUser(t, db, "alice")
	hvac := testutil.TopicByName(t, db, "HVAC Design")
	testutil.SeedProblem(t, db, "One", 1, 5, hvac)
	testutil.SeedProblem(t, db, "Two", 1, 5, hvac)

	w := do(t, r, http.MethodPost, "/training/sessions", alice.UUID, gin.H{
		"topic_ids": []uint{hvac.ID}, "difficulty_levels": []int{1}, "time_available": 15,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.EqualValues(t, 2, created["total_problems"])
	base := fmt.Sprintf("/training/sessions/%v", created["id"])

	w = do(t, r, http.MethodGet, base+"/current", alice.UUID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	step := decode(t, w)
	problem := step["problem"].(map[string]any)
	assert.NotContains(t, problem, "correct_answer")

	w = do(t, r, http.MethodPost, base+"/problems/0/answer", alice.UUID, gin.H{"answer": "A"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["correct"])

	w = do(t, r, http.MethodPost, base+"/problems/0/answer", alice.UUID, gin.H{"answer": "A"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodPost, base+"/problems/1/answer", alice.UUID, gin.H{"answer": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, base+"/problems/1/answer", alice.UUID, gin.H{"answer": "B"})
	require.Equal(t, http.StatusOK, w.Code)
	outcome := decode(t, w)
	assert.Equal(t, false, outcome["correct"])
	assert.Equal(t, true, outcome["next_is_past_end"])

	w = do(t, r, http.MethodGet, base+"/current", alice.UUID, nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, base+"/results", w.Header().Get("Location"))

	w = do(t, r, http.MethodGet, base+"/results", alice.UUID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	results := decode(t, w)
	assert.EqualValues(t, 1, results["correct"])
	assert.EqualValues(t, 1, results["incorrect"])
	assert.EqualValues(t, 10, results["total_experience"])

	bob := testutil.SeedUser(t, db, "bob")
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, base, bob.UUID, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/training/sessions/abc", bob.UUID, nil).Code)

	w = do(t, r, http.MethodGet, "/leaderboard?topic="+fmt.Sprint(hvac.ID), bob.UUID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	board := decode(t, w)
	assert.Len(t, board["global"], 1)
	assert.EqualValues(t, 2, board["user_rank"])
}

func TestCatalogRequiresAdmin(t *testing.T) {
	r, db := newTestEngine(t)
	alice := testutil.SeedUser(t, db, "alice")
	root := testutil.SeedAdmin(t, db, "root")

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/topics", alice.UUID, nil).Code)
	assert.Equal(t, http.StatusForbidden, do(t, r, http.MethodPost, "/topics", alice.UUID, gin.H{"name": "Acoustics"}).Code)

	w := do(t, r, http.MethodPost, "/topics", root.UUID, gin.H{"name": "Acoustics"})
	require.Equal(t, http.StatusCreated, w.Code)
	topicID := decode(t, w)["data"].(map[string]any)["id"]

	w = do(t, r, http.MethodPost, "/problems", root.UUID, gin.H{
		"name": "Reverb", "topic_ids": []any{topicID}, "prompt": "RT60?",
		"choice_a": "0.5", "choice_b": "1", "choice_c": "2", "choice_d": "3",
		"correct_answer": "B", "estimated_time_to_complete": 3,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, "/problems", root.UUID, gin.H{"name": "Broken", "correct_answer": "Z"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["fields"], "correct_answer")

	w = do(t, r, http.MethodGet, "/problems", alice.UUID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode(t, w)["result"].([]any)
	require.Len(t, items, 1)
	assert.NotContains(t, items[0], "correct_answer")

	w = do(t, r, http.MethodDelete, fmt.Sprintf("/topics/%v", topicID), root.UUID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.Equal(t, http.StatusServiceUnavailable, do(t, r, http.MethodGet, "/diagrams", root.UUID, nil).Code)
	assert.Equal(t, http.StatusForbidden, do(t, r, http.MethodGet, "/diagrams", alice.UUID, nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, r, http.MethodPost, "/graph/sync", root.UUID, nil).Code)
}

func TestUserDataIsSelfOrAdmin(t *testing.T) {
	r, db := newTestEngine(t)
	alice := testutil.SeedUser(t, db, "alice")
	bob := testutil.SeedUser(t, db, "bob")
	root := testutil.SeedAdmin(t, db, "root")

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/users/"+alice.UUID+"/topic-stats", alice.UUID, nil).Code)
	assert.Equal(t, http.StatusForbidden, do(t, r, http.MethodGet, "/users/"+alice.UUID+"/radar", bob.UUID, nil).Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/users/"+alice.UUID+"/experience", root.UUID, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/users/"+uuid.NewString()+"/solved", root.UUID, nil).Code)

	w := do(t, r, http.MethodPost, "/users/"+alice.UUID, alice.UUID, gin.H{"status": "disabled"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, r, http.MethodPost, "/users/"+alice.UUID, root.UUID, gin.H{"status": "disabled"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusForbidden, do(t, r, http.MethodGet, "/dashboard", alice.UUID, nil).Code)
}
