package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	qerrors "github.com/gcbaptista/forum-query-engine/internal/errors"
	"github.com/gcbaptista/forum-query-engine/internal/logging"
)

// ErrorCode represents standardized error codes for the API
type ErrorCode string

const (
	// Client Error Codes (4xx)
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrorCodeInvalidJSON      ErrorCode = "INVALID_JSON"
	ErrorCodeRequestTooLarge  ErrorCode = "REQUEST_TOO_LARGE"

	// Codes shared with the engine's errors
	ErrorCodeInvalidRequest            = ErrorCode(qerrors.CodeInvalidRequest)
	ErrorCodeInvalidReference          = ErrorCode(qerrors.CodeInvalidReference)
	ErrorCodeConflictingQueryAndCursor = ErrorCode(qerrors.CodeConflictingQueryAndCursor)
	ErrorCodeInvalidLimit              = ErrorCode(qerrors.CodeInvalidLimit)
	ErrorCodeUnimplemented             = ErrorCode(qerrors.CodeUnimplemented)
	ErrorCodeUnauthorized              = ErrorCode(qerrors.CodeUnauthorized)
	ErrorCodeForbidden                 = ErrorCode(qerrors.CodeForbidden)
	ErrorCodeJobNotFound               = ErrorCode(qerrors.CodeJobNotFound)
	ErrorCodeReindexInProgress         = ErrorCode(qerrors.CodeReindexInProgress)
	ErrorCodeIndexUnavailable          = ErrorCode(qerrors.CodeIndexUnavailable)

	// Server Error Codes (5xx)
	ErrorCodeInternalError ErrorCode = ErrorCode(qerrors.CodeInternal)
)

var statusByCode = map[qerrors.Code]int{
	qerrors.CodeInvalidRequest:            http.StatusBadRequest,
	qerrors.CodeInvalidReference:          http.StatusBadRequest,
	qerrors.CodeConflictingQueryAndCursor: http.StatusBadRequest,
	qerrors.CodeInvalidLimit:              http.StatusBadRequest,
	qerrors.CodeUnimplemented:             http.StatusNotImplemented,
	qerrors.CodeUnauthorized:              http.StatusUnauthorized,
	qerrors.CodeForbidden:                 http.StatusForbidden,
	qerrors.CodeJobNotFound:               http.StatusNotFound,
	qerrors.CodeReindexInProgress:         http.StatusConflict,
	qerrors.CodeIndexUnavailable:          http.StatusServiceUnavailable,
}

// ErrorDetail provides additional context for an error
type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// APIError represents a standardized API error response
type APIError struct {
	Error     string        `json:"error"`
	Code      ErrorCode     `json:"code"`
	Message   string        `json:"message"`
	Details   []ErrorDetail `json:"details,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIErrorResponse creates a standardized error response
func APIErrorResponse(code ErrorCode, message string, details ...ErrorDetail) *APIError {
	return &APIError{
		Error:     "Request failed",
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}

// SendError sends a standardized error response and aborts the handler chain
func SendError(c *gin.Context, statusCode int, code ErrorCode, message string, details ...ErrorDetail) {
	errorResponse := APIErrorResponse(code, message, details...)

	if requestID, exists := c.Get(logging.FieldRequestID); exists {
		if id, ok := requestID.(string); ok {
			errorResponse.RequestID = id
		}
	}

	c.AbortWithStatusJSON(statusCode, errorResponse)
}

// SendEngineError maps an engine error to its HTTP status and API code.
// Unrecognized errors become 500 INTERNAL_ERROR and are logged.
func SendEngineError(c *gin.Context, err error) {
	code := qerrors.CodeOf(err)
	status, known := statusByCode[code]
	if !known {
		status = http.StatusInternalServerError
		logger := logging.Ctx(c.Request.Context())
		logger.Error().Err(err).Msg("request failed")
	}

	var details []ErrorDetail
	if field := qerrors.FieldOf(err); field != "" {
		details = append(details, ErrorDetail{Field: field, Message: err.Error(), Code: string(code)})
	}

	SendError(c, status, ErrorCode(code), err.Error(), details...)
}

// SendBindingError reports a request body that could not be decoded
func SendBindingError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		SendError(c, http.StatusRequestEntityTooLarge, ErrorCodeRequestTooLarge,
			"Request body exceeds the size limit")
		return
	}
	SendError(c, http.StatusBadRequest, ErrorCodeInvalidJSON,
		"Invalid JSON in request body: "+err.Error())
}

// SendStructuredValidationError sends a validation error with structured details
func SendStructuredValidationError(c *gin.Context, result *ValidationResult) {
	details := make([]ErrorDetail, len(result.Errors))
	for i, err := range result.Errors {
		details[i] = ErrorDetail{
			Field:   err.Field,
			Message: err.Message,
			Code:    "VALIDATION_ERROR",
		}
	}

	SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, "Request validation failed", details...)
}

// SendJobNotFoundError sends a standardized job not found error
func SendJobNotFoundError(c *gin.Context, jobID string) {
	SendError(c, http.StatusNotFound, ErrorCodeJobNotFound,
		"Job '"+jobID+"' not found")
}
