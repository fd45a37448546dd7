package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/forum-query-engine/services"
)

// API holds dependencies for API handlers, primarily the query engine.
type API struct {
	engine services.QueryEngine
}

// NewAPI creates a new API handler structure.
func NewAPI(engine services.QueryEngine) *API {
	return &API{engine: engine}
}

// SetupRoutes defines all the API routes of the query engine. jwtSecret
// verifies bearer tokens; when empty, only anonymous requests are accepted.
func SetupRoutes(router *gin.Engine, engine services.QueryEngine, jwtSecret string) {
	apiHandler := NewAPI(engine)

	router.GET("/health", apiHandler.HealthCheckHandler)
	router.GET("/analytics", apiHandler.GetAnalyticsHandler)

	// Job management routes
	jobRoutes := router.Group("/jobs")
	{
		jobRoutes.GET("", apiHandler.ListJobsHandler)              // List jobs, optionally by status
		jobRoutes.GET("/metrics", apiHandler.GetJobMetricsHandler) // Get job performance metrics
		jobRoutes.GET("/:jobId", apiHandler.GetJobHandler)         // Get job status by ID
	}

	// Public query API, run as the bearer token's participant or anonymously
	v0 := router.Group("/-/v0", IdentityMiddleware(jwtSecret))
	{
		v0.POST("/list", apiHandler.ListHandler)
		v0.POST("/search", apiHandler.SearchHandler)
		v0.POST("/reindex", apiHandler.ReindexHandler) // Staff only
	}
}

// HealthCheckHandler reports liveness together with the snapshot being served.
func (api *API) HealthCheckHandler(c *gin.Context) {
	status := api.engine.Status()
	state := "healthy"
	if !status.Ready {
		state = "initializing"
	}
	c.JSON(http.StatusOK, gin.H{
		"status": state,
		"index":  status,
	})
}
