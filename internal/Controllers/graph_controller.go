package Controllers

import (
	"net/http"

	"adeptly/internal/logger"
	"adeptly/internal/services"
	"adeptly/internal/util"

	"github.com/gin-gonic/gin"
)

// GraphController serves the topic graph read models.
type GraphController struct {
	catalog *services.CatalogService
	log     *logger.Logger
}

func NewGraphController(catalog *services.CatalogService, log *logger.Logger) *GraphController {
	return &GraphController{catalog: catalog, log: logger.OrNop(log).With("controller", "graph")}
}

// RelatedProblems GET /problems/:id/related?limit=5
func (gc *GraphController) RelatedProblems(c *gin.Context) {
	id, ok := util.ParamUint(c, "id")
	if !ok {
		return
	}
	related, err := gc.catalog.RelatedProblems(c.Request.Context(), id, util.QueryInt(c, "limit", 5))
	if err != nil {
		util.RespondError(c, gc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"problem_id":      id,
		"recommendations": related,
	})
}

// SyncGraph POST /graph/sync rebuilds the graph from the relational catalog.
func (gc *GraphController) SyncGraph(c *gin.Context) {
	report, err := gc.catalog.SyncGraph(c.Request.Context())
	if err != nil {
		util.RespondError(c, gc.log, err)
		return
	}
	gc.log.Info("graph synchronized", "report", report)
	c.JSON(http.StatusOK, report)
}
