package Controllers

import (
	"net/http"

	"adeptly/internal/logger"
	"adeptly/internal/models"
	"adeptly/internal/services"
	"adeptly/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ProfileController exposes a user's history to the user and to admins.
type ProfileController struct {
	db      *gorm.DB
	profile *services.ProfileService
	log     *logger.Logger
}

func NewProfileController(db *gorm.DB, profile *services.ProfileService, log *logger.Logger) *ProfileController {
	return &ProfileController{db: db, profile: profile, log: logger.OrNop(log).With("controller", "profile")}
}

// target resolves :uuid after checking the caller may read it.
func (pc *ProfileController) target(c *gin.Context) (*models.User, bool) {
	targetUUID := c.Param("uuid")
	if !util.CanAccessUser(util.CurrentUser(c), targetUUID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to view this user"})
		return nil, false
	}
	user, err := util.LoadUserByUUID(c.Request.Context(), pc.db, targetUUID)
	if err != nil {
		util.RespondError(c, pc.log, err)
		return nil, false
	}
	return user, true
}

// TopicStats GET /users/:uuid/topic-stats
func (pc *ProfileController) TopicStats(c *gin.Context) {
	user, ok := pc.target(c)
	if !ok {
		return
	}
	stats, err := pc.profile.TopicStats(c.Request.Context(), user.ID)
	if err != nil {
		util.RespondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topic_stats": stats})
}

// Experience GET /users/:uuid/experience?topic=ID&pageIdx=1&pageSize=20
func (pc *ProfileController) Experience(c *gin.Context) {
	user, ok := pc.target(c)
	if !ok {
		return
	}
	page, err := pc.profile.ExperienceHistory(c.Request.Context(), user.ID,
		util.QueryUint(c, "topic"),
		util.QueryInt(c, "pageIdx", 1),
		util.QueryInt(c, "pageSize", 20),
	)
	if err != nil {
		util.RespondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Radar GET /users/:uuid/radar
func (pc *ProfileController) Radar(c *gin.Context) {
	user, ok := pc.target(c)
	if !ok {
		return
	}
	items, err := pc.profile.Radar(c.Request.Context(), user.ID)
	if err != nil {
		util.RespondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": items})
}

// Solved GET /users/:uuid/solved
func (pc *ProfileController) Solved(c *gin.Context) {
	user, ok := pc.target(c)
	if !ok {
		return
	}
	solved, err := pc.profile.Solved(c.Request.Context(), user.ID)
	if err != nil {
		util.RespondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"solved": solved})
}
