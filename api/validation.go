// Package api provides the HTTP surface of the query engine.
package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gcbaptista/forum-query-engine/model"
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of validation operations
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// AddError adds a validation error to the result
func (vr *ValidationResult) AddError(field, message string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// ValidateJobID checks that a job ID is a UUID, as issued by the job manager
func ValidateJobID(jobID string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if jobID == "" {
		result.AddError("jobId", "Job ID is required")
		return result
	}

	if _, err := uuid.Parse(jobID); err != nil {
		result.AddError("jobId", "Job ID must be a UUID")
	}

	return result
}

var jobStatuses = []model.JobStatus{
	model.JobStatusPending,
	model.JobStatusRunning,
	model.JobStatusCompleted,
	model.JobStatusFailed,
	model.JobStatusCancelled,
}

// ValidateJobStatus checks a job status filter
func ValidateJobStatus(status string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	for _, s := range jobStatuses {
		if string(s) == status {
			return result
		}
	}

	result.AddError("status", fmt.Sprintf("Unknown job status '%s', expected one of %v", status, jobStatuses))
	return result
}

// SendValidationError sends a standardized validation error response
func SendValidationError(c *gin.Context, result *ValidationResult) {
	SendStructuredValidationError(c, result)
}
