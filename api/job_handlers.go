package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	qerrors "github.com/gcbaptista/forum-query-engine/internal/errors"
	"github.com/gcbaptista/forum-query-engine/model"
)

// GetJobHandler handles requests to get job status by ID
func (api *API) GetJobHandler(c *gin.Context) {
	jobID := c.Param("jobId")
	if result := ValidateJobID(jobID); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	job, err := api.engine.GetJob(jobID)
	if err != nil {
		if errors.Is(err, qerrors.ErrJobNotFound) {
			SendJobNotFoundError(c, jobID)
			return
		}
		SendEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListJobsHandler handles requests to list jobs, newest first
func (api *API) ListJobsHandler(c *gin.Context) {
	statusParam := c.Query("status")

	var statusFilter *model.JobStatus
	if statusParam != "" {
		if result := ValidateJobStatus(statusParam); result.HasErrors() {
			SendValidationError(c, result)
			return
		}
		status := model.JobStatus(statusParam)
		statusFilter = &status
	}

	jobs := api.engine.ListJobs(statusFilter)
	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"total": len(jobs),
	})
}

// GetJobMetricsHandler handles requests to get job performance metrics
func (api *API) GetJobMetricsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, api.engine.JobMetrics())
}
