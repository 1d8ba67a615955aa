package Controllers

import (
	"fmt"
	"net/http"

	"adeptly/internal/config"
	"adeptly/internal/logger"
	"adeptly/internal/services"
	"adeptly/internal/util"

	"github.com/gin-gonic/gin"
)

// TrainingController serves the session lifecycle of the calling user.
type TrainingController struct {
	selector *services.SessionSelector
	runner   *services.SessionRunner
	limits   config.TrainingConfig
	log      *logger.Logger
}

func NewTrainingController(selector *services.SessionSelector, runner *services.SessionRunner, limits config.TrainingConfig, log *logger.Logger) *TrainingController {
	return &TrainingController{
		selector: selector,
		runner:   runner,
		limits:   limits,
		log:      logger.OrNop(log).With("controller", "training"),
	}
}

type createSessionRequest struct {
	TopicIDs         []uint `json:"topic_ids" binding:"required,min=1"`
	DifficultyLevels []int  `json:"difficulty_levels" binding:"required,min=1,dive,min=1,max=5"`
	TimeAvailable    int    `json:"time_available"`
}

type answerRequest struct {
	Answer string `json:"answer" binding:"required"`
}

func resultsPath(sessionID uint) string {
	return fmt.Sprintf("/training/sessions/%d/results", sessionID)
}

// CreateSession POST /training/sessions
func (tc *TrainingController) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBindError(c, err)
		return
	}
	if req.TimeAvailable == 0 {
		req.TimeAvailable = tc.limits.DefaultMinutes
	}
	if req.TimeAvailable < tc.limits.MinMinutes || req.TimeAvailable > tc.limits.MaxMinutes {
		util.RespondFieldError(c, "time_available",
			fmt.Sprintf("must be between %d and %d", tc.limits.MinMinutes, tc.limits.MaxMinutes))
		return
	}

	user := util.CurrentUser(c)
	ctx := c.Request.Context()
	session, err := tc.selector.CreateSession(ctx, user.ID, services.CreateSessionInput{
		TopicIDs:         req.TopicIDs,
		DifficultyLevels: req.DifficultyLevels,
		TimeAvailable:    req.TimeAvailable,
	})
	if err != nil {
		util.RespondError(c, tc.log, err)
		return
	}
	summary, err := tc.runner.GetSession(ctx, user.ID, session.ID)
	if err != nil {
		util.RespondError(c, tc.log, err)
		return
	}
	c.JSON(http.StatusCreated, summary)
}

// ListSessions GET /training/sessions
func (tc *TrainingController) ListSessions(c *gin.Context) {
	user := util.CurrentUser(c)
	sessions, err := tc.runner.ListSessions(c.Request.Context(), user.ID, util.QueryInt(c, "limit", 0))
	if err != nil {
		util.RespondError(c, tc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// GetSession GET /training/sessions/:id
func (tc *TrainingController) GetSession(c *gin.Context) {
	id, ok := util.ParamUint(c, "id")
	if !ok {
		return
	}
	summary, err := tc.runner.GetSession(c.Request.Context(), util.CurrentUser(c).ID, id)
	if err != nil {
		util.RespondError(c, tc.log, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (tc *TrainingController) writeStep(c *gin.Context, step *services.ProblemStep, err error) {
	if err != nil {
		util.RespondError(c, tc.log, err)
		return
	}
	if step.Finished {
		c.Redirect(http.StatusSeeOther, resultsPath(step.SessionID))
		return
	}
	c.JSON(http.StatusOK, step)
}

// CurrentProblem GET /training/sessions/:id/current
func (tc *TrainingController) CurrentProblem(c *gin.Context) {
	id, ok := util.ParamUint(c, "id")
	if !ok {
		return
	}
	step, err := tc.runner.GetCurrentProblem(c.Request.Context(), util.CurrentUser(c).ID, id)
	tc.writeStep(c, step, err)
}

// GetProblem GET /training/sessions/:id/problems/:index
func (tc *TrainingController) GetProblem(c *gin.Context) {
	id, ok := util.ParamUint(c, "id")
	if !ok {
		return
	}
	index, ok := util.ParamInt(c, "index")
	if !ok {
		return
	}
	step, err := tc.runner.GetProblem(c.Request.Context(), util.CurrentUser(c).ID, id, index)
	tc.writeStep(c, step, err)
}

// SubmitAnswer POST /training/sessions/:id/problems/:index/answer
func (tc *TrainingController) SubmitAnswer(c *gin.Context) {
	id, ok := util.ParamUint(c, "id")
	if !ok {
		return
	}
	index, ok := util.ParamInt(c, "index")
	if !ok {
		return
	}
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBindError(c, err)
		return
	}

	outcome, err := tc.runner.SubmitAnswer(c.Request.Context(), util.CurrentUser(c), id, index, req.Answer)
	if err != nil {
		util.RespondError(c, tc.log, err)
		return
	}
	if outcome.Finished {
		c.Redirect(http.StatusSeeOther, resultsPath(outcome.SessionID))
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// Results GET /training/sessions/:id/results
func (tc *TrainingController) Results(c *gin.Context) {
	id, ok := util.ParamUint(c, "id")
	if !ok {
		return
	}
	results, err := tc.runner.GetResults(c.Request.Context(), util.CurrentUser(c).ID, id)
	if err != nil {
		util.RespondError(c, tc.log, err)
		return
	}
	c.JSON(http.StatusOK, results)
}
