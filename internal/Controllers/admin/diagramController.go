package admin

import (
	"net/http"

	"adeptly/internal/logger"
	"adeptly/internal/services"
	"adeptly/internal/util"

	"github.com/gin-gonic/gin"
)

// DiagramController browses the diagram bucket and links objects to problems.
type DiagramController struct {
	catalog *services.CatalogService
	log     *logger.Logger
}

func NewDiagramController(catalog *services.CatalogService, log *logger.Logger) *DiagramController {
	return &DiagramController{catalog: catalog, log: logger.OrNop(log).With("controller", "diagram")}
}

type attachDiagramRequest struct {
	ProblemName string `json:"problem_name" binding:"required"`
	Key         string `json:"key" binding:"required,max=255"`
	Solution    bool   `json:"solution"`
}

// ListFiles GET /diagrams?prefix=charts/&recursive=true
func (dc *DiagramController) ListFiles(c *gin.Context) {
	prefix := c.Query("prefix")
	recursive := c.Query("recursive") == "true"

	objects, err := dc.catalog.ListDiagrams(c.Request.Context(), prefix, recursive)
	if err != nil {
		util.RespondError(c, dc.log, err)
		return
	}
	// directories are reported with IsDir for the front end tree
	c.JSON(http.StatusOK, gin.H{
		"prefix":  prefix,
		"objects": objects,
	})
}

// Attach POST /diagrams/attach
func (dc *DiagramController) Attach(c *gin.Context) {
	var req attachDiagramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBindError(c, err)
		return
	}
	problem, err := dc.catalog.AttachDiagram(c.Request.Context(), req.ProblemName, req.Key, req.Solution)
	if err != nil {
		util.RespondError(c, dc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": problem, "msg": "diagram attached"})
}
