package routers

import (
	"time"

	"adeptly/internal/Controllers"
	"adeptly/internal/Controllers/admin"
	"adeptly/internal/config"
	"adeptly/internal/logger"
	"adeptly/internal/services"
	"adeptly/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"
)

// App carries everything the HTTP layer needs.
type App struct {
	DB          *gorm.DB
	Config      *config.Config
	Log         *logger.Logger
	Selector    *services.SessionSelector
	Runner      *services.SessionRunner
	Leaderboard *services.LeaderboardService
	Profile     *services.ProfileService
	Catalog     *services.CatalogService
}

// NewEngine builds the gin engine with middleware and every route registered.
func NewEngine(app *App) *gin.Engine {
	if app.Config.Server.Mode != "" {
		gin.SetMode(app.Config.Server.Mode)
	}
	util.UseJSONFieldNames()

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(app.Log))
	if app.Config.Tracing.Enabled {
		r.Use(otelgin.Middleware(app.Config.Tracing.ServiceName))
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     app.Config.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", util.HeaderUserUUID, util.HeaderUserName},
		ExposeHeaders:    []string{"Content-Length", "Location"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RoutersInit(r, app)
	return r
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	log = logger.OrNop(log).With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

func RoutersInit(r *gin.Engine, app *App) {
	healthCtrl := Controllers.NewHealthController(app.DB)
	r.GET("/healthz", healthCtrl.Healthz)

	authed := r.Group("/")
	authed.Use(util.RequireUser(app.DB, app.Log))
	adminOnly := util.RequireAdmin()

	// training sessions
	trainingRouter := authed.Group("/training/sessions")
	{
		trainingCtrl := Controllers.NewTrainingController(app.Selector, app.Runner, app.Config.Training, app.Log)
		trainingRouter.POST("", trainingCtrl.CreateSession)
		trainingRouter.GET("", trainingCtrl.ListSessions)
		trainingRouter.GET("/:id", trainingCtrl.GetSession)
		trainingRouter.GET("/:id/current", trainingCtrl.CurrentProblem)
		trainingRouter.GET("/:id/problems/:index", trainingCtrl.GetProblem)
		trainingRouter.POST("/:id/problems/:index/answer", trainingCtrl.SubmitAnswer)
		trainingRouter.GET("/:id/results", trainingCtrl.Results)
	}

	leaderboardCtrl := Controllers.NewLeaderboardController(app.Leaderboard, app.Log)
	authed.GET("/leaderboard", leaderboardCtrl.Leaderboard)
	authed.GET("/dashboard", leaderboardCtrl.Dashboard)

	// users
	userRouter := authed.Group("/users")
	{
		userCtrl := admin.NewUserController(app.DB, app.Log)
		profileCtrl := Controllers.NewProfileController(app.DB, app.Profile, app.Log)
		userRouter.GET("", adminOnly, userCtrl.Index)
		userRouter.GET("/:uuid", userCtrl.Show)
		userRouter.POST("/:uuid", userCtrl.Update)
		userRouter.GET("/:uuid/topic-stats", profileCtrl.TopicStats)
		userRouter.GET("/:uuid/experience", profileCtrl.Experience)
		userRouter.GET("/:uuid/radar", profileCtrl.Radar)
		userRouter.GET("/:uuid/solved", profileCtrl.Solved)
	}

	// topics
	topicRouter := authed.Group("/topics")
	{
		topicCtrl := admin.NewTopicController(app.Catalog, app.Log)
		topicRouter.GET("", topicCtrl.Index)
		topicRouter.POST("", adminOnly, topicCtrl.Store)
		topicRouter.POST("/:id", adminOnly, topicCtrl.Update)
		topicRouter.DELETE("/:id", adminOnly, topicCtrl.Delete)
	}

	// problems
	graphCtrl := Controllers.NewGraphController(app.Catalog, app.Log)
	problemRouter := authed.Group("/problems")
	{
		problemCtrl := admin.NewProblemController(app.Catalog, app.Log)
		problemRouter.GET("", problemCtrl.Index)
		problemRouter.GET("/:id", adminOnly, problemCtrl.Show)
		problemRouter.GET("/:id/related", graphCtrl.RelatedProblems)
		problemRouter.POST("", adminOnly, problemCtrl.Store)
		problemRouter.POST("/:id", adminOnly, problemCtrl.Update)
		problemRouter.DELETE("/:id", adminOnly, problemCtrl.Delete)
	}

	authed.POST("/graph/sync", adminOnly, graphCtrl.SyncGraph)

	diagramRouter := authed.Group("/diagrams", adminOnly)
	{
		diagramCtrl := admin.NewDiagramController(app.Catalog, app.Log)
		diagramRouter.GET("", diagramCtrl.ListFiles)
		diagramRouter.POST("/attach", diagramCtrl.Attach)
	}
}
