package routes

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-parkspot/handlers"
	"go-parkspot/logger"
	"go-parkspot/metrics"
)

// Deps are the collaborators the handlers are wired to.
type Deps struct {
	ViewState handlers.ViewState
	Locator   handlers.Locator
	Positions handlers.PositionFeed
	Search    handlers.Searcher
	Store     handlers.HealthChecker
	Log       *slog.Logger
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.AccessMiddleware(d.Log))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Hello, welcome to go-parkspot!",
		})
	})
	r.GET("/healthz", func(c *gin.Context) {
		handlers.Health(c, d.Store, d.Log)
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// api routes
	api := r.Group("/api/parking")
	{
		api.GET("/state", func(c *gin.Context) { handlers.GetState(c, d.ViewState) })
		api.POST("/position", func(c *gin.Context) { handlers.PostPosition(c, d.Positions) })
		api.POST("/override", func(c *gin.Context) { handlers.PostOverride(c, d.Locator) })
		api.POST("/resume", func(c *gin.Context) { handlers.PostResume(c, d.Locator) })
		api.GET("/search", func(c *gin.Context) { handlers.SearchPlaces(c, d.Search) })
		api.POST("/refresh", func(c *gin.Context) { handlers.PostRefresh(c, d.ViewState) })
		api.PUT("/conditions", func(c *gin.Context) { handlers.PutConditions(c, d.ViewState) })
		api.POST("/reports", func(c *gin.Context) { handlers.PostReport(c, d.ViewState) })
		api.POST("/dismiss", func(c *gin.Context) { handlers.PostDismiss(c, d.ViewState) })
	}

	return r
}
