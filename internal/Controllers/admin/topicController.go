package admin

import (
	"net/http"

	"adeptly/internal/logger"
	"adeptly/internal/services"
	"adeptly/internal/util"

	"github.com/gin-gonic/gin"
)

type TopicController struct {
	catalog *services.CatalogService
	log     *logger.Logger
}

func NewTopicController(catalog *services.CatalogService, log *logger.Logger) *TopicController {
	return &TopicController{catalog: catalog, log: logger.OrNop(log).With("controller", "topic")}
}

// Index GET /topics
func (con *TopicController) Index(c *gin.Context) {
	topics, err := con.catalog.ListTopics(c.Request.Context())
	if err != nil {
		util.RespondError(c, con.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": topics})
}

// Store POST /topics
func (con *TopicController) Store(c *gin.Context) {
	var in services.TopicInput
	if err := c.ShouldBindJSON(&in); err != nil {
		util.RespondBindError(c, err)
		return
	}
	topic, err := con.catalog.CreateTopic(c.Request.Context(), in)
	if err != nil {
		util.RespondError(c, con.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": topic, "msg": "topic created"})
}

// Update POST /topics/:id
func (con *TopicController) Update(c *gin.Context) {
	id, ok := util.ParamUint(c, "id")
	if !ok {
		return
	}
	var in services.TopicInput
	if err := c.ShouldBindJSON(&in); err != nil {
		util.RespondBindError(c, err)
		return
	}
	topic, err := con.catalog.UpdateTopic(c.Request.Context(), id, in)
	if err != nil {
		util.RespondError(c, con.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": topic, "msg": "topic updated"})
}

// Delete DELETE /topics/:id
func (con *TopicController) Delete(c *gin.Context) {
	id, ok := util.ParamUint(c, "id")
	if !ok {
		return
	}
	if err := con.catalog.DeleteTopic(c.Request.Context(), id); err != nil {
		util.RespondError(c, con.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "topic deleted"})
}
