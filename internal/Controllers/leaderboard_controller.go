package Controllers

import (
	"net/http"

	"adeptly/internal/logger"
	"adeptly/internal/services"
	"adeptly/internal/util"

	"github.com/gin-gonic/gin"
)

type LeaderboardController struct {
	leaderboard *services.LeaderboardService
	log         *logger.Logger
}

func NewLeaderboardController(leaderboard *services.LeaderboardService, log *logger.Logger) *LeaderboardController {
	return &LeaderboardController{leaderboard: leaderboard, log: logger.OrNop(log).With("controller", "leaderboard")}
}

// Leaderboard GET /leaderboard?topic=ID
func (lc *LeaderboardController) Leaderboard(c *gin.Context) {
	board, err := lc.leaderboard.GetLeaderboard(c.Request.Context(), util.CurrentUser(c).ID, util.QueryUint(c, "topic"))
	if err != nil {
		util.RespondError(c, lc.log, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

// Dashboard GET /dashboard
func (lc *LeaderboardController) Dashboard(c *gin.Context) {
	dashboard, err := lc.leaderboard.GetDashboard(c.Request.Context(), util.CurrentUser(c).ID)
	if err != nil {
		util.RespondError(c, lc.log, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}
