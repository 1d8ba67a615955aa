package admin

import (
	"net/http"

	"adeptly/internal/logger"
	"adeptly/internal/models"
	"adeptly/internal/services"
	"adeptly/internal/util"

	"github.com/gin-gonic/gin"
)

type ProblemController struct {
	catalog *services.CatalogService
	log     *logger.Logger
}

func NewProblemController(catalog *services.CatalogService, log *logger.Logger) *ProblemController {
	return &ProblemController{catalog: catalog, log: logger.OrNop(log).With("controller", "problem")}
}

// problemListItem is what non-admins see of a problem: no answer, no prompt.
type problemListItem struct {
	ID                      uint           `json:"id"`
	Name                    string         `json:"name"`
	Topics                  []models.Topic `json:"topics"`
	Difficulty              int            `json:"difficulty"`
	DifficultyName          string         `json:"difficulty_name"`
	EstimatedTimeToComplete int            `json:"estimated_time_to_complete"`
}

// Index GET /problems?topic=ID&difficulty=N
func (con *ProblemController) Index(c *gin.Context) {
	var filter services.ProblemFilter
	filter.TopicID = util.QueryUint(c, "topic")
	if d := util.QueryInt(c, "difficulty", 0); d != 0 {
		filter.Difficulty = &d
	}

	problems, err := con.catalog.ListProblems(c.Request.Context(), filter)
	if err != nil {
		util.RespondError(c, con.log, err)
		return
	}

	user := util.CurrentUser(c)
	if user != nil && user.HasPermission(util.PermissionAdmin) {
		c.JSON(http.StatusOK, gin.H{"result": problems})
		return
	}
	items := make([]problemListItem, 0, len(problems))
	for _, p := range problems {
		items = append(items, problemListItem{
			ID:                      p.ID,
			Name:                    p.Name,
			Topics:                  p.Topics,
			Difficulty:              p.Difficulty,
			DifficultyName:          models.DifficultyName(p.Difficulty),
			EstimatedTimeToComplete: p.EstimatedTimeToComplete,
		})
	}
	c.JSON(http.StatusOK, gin.H{"result": items})
}

// Show GET /problems/:id previews a problem with its correct answer.
func (con *ProblemController) Show(c *gin.Context) {
	id, ok := util.ParamUint(c, "id")
	if !ok {
		return
	}
	problem, err := con.catalog.GetProblem(c.Request.Context(), id)
	if err != nil {
		util.RespondError(c, con.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": problem})
}

// Store POST /problems
func (con *ProblemController) Store(c *gin.Context) {
	var in services.ProblemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		util.RespondBindError(c, err)
		return
	}
	problem, err := con.catalog.CreateProblem(c.Request.Context(), in)
	if err != nil {
		util.RespondError(c, con.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": problem, "msg": "problem created"})
}

// Update POST /problems/:id replaces every field, topic set included.
func (con *ProblemController) Update(c *gin.Context) {
	id, ok := util.ParamUint(c, "id")
	if !ok {
		return
	}
	var in services.ProblemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		util.RespondBindError(c, err)
		return
	}
	problem, err := con.catalog.UpdateProblem(c.Request.Context(), id, in)
	if err != nil {
		util.RespondError(c, con.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": problem, "msg": "problem updated"})
}

// Delete DELETE /problems/:id
func (con *ProblemController) Delete(c *gin.Context) {
	id, ok := util.ParamUint(c, "id")
	if !ok {
		return
	}
	if err := con.catalog.DeleteProblem(c.Request.Context(), id); err != nil {
		util.RespondError(c, con.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "problem deleted"})
}
