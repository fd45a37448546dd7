package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions
var (
	// ErrInvalidRequest is returned when a request is malformed or missing required parts
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidReference is returned when a ref is malformed or names nothing
	ErrInvalidReference = errors.New("invalid reference")

	// ErrConflictingQueryAndCursor is returned when both a query and a scroll cursor are supplied
	ErrConflictingQueryAndCursor = errors.New("conflicting query and scroll cursor")

	// ErrInvalidLimit is returned when limit is zero or negative
	ErrInvalidLimit = errors.New("invalid limit")

	// ErrUnimplemented is returned for recognized but unsupported query shapes
	ErrUnimplemented = errors.New("unimplemented")

	// ErrIndexUnavailable is returned when no snapshot has been built yet
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrJobNotFound is returned when a job is not found
	ErrJobNotFound = errors.New("job not found")

	// ErrUnauthorized is returned when a bearer token is present but invalid
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the requester may not perform an operation
	ErrForbidden = errors.New("forbidden")

	// ErrReindexInProgress is returned when a reindex is requested while one is pending or running
	ErrReindexInProgress = errors.New("reindex in progress")
)

// Code is the machine-readable error code exposed to API clients.
type Code string

const (
	CodeInvalidRequest            Code = "INVALID_REQUEST"
	CodeInvalidReference          Code = "INVALID_REFERENCE"
	CodeConflictingQueryAndCursor Code = "CONFLICTING_QUERY_AND_CURSOR"
	CodeInvalidLimit              Code = "INVALID_LIMIT"
	CodeUnimplemented             Code = "UNIMPLEMENTED"
	CodeIndexUnavailable          Code = "INDEX_UNAVAILABLE"
	CodeJobNotFound               Code = "JOB_NOT_FOUND"
	CodeUnauthorized              Code = "UNAUTHORIZED"
	CodeForbidden                 Code = "FORBIDDEN"
	CodeReindexInProgress         Code = "REINDEX_IN_PROGRESS"
	CodeInternal                  Code = "INTERNAL_ERROR"
)

var sentinels = map[Code]error{
	CodeInvalidRequest:            ErrInvalidRequest,
	CodeInvalidReference:          ErrInvalidReference,
	CodeConflictingQueryAndCursor: ErrConflictingQueryAndCursor,
	CodeInvalidLimit:              ErrInvalidLimit,
	CodeUnimplemented:             ErrUnimplemented,
	CodeIndexUnavailable:          ErrIndexUnavailable,
	CodeJobNotFound:               ErrJobNotFound,
	CodeUnauthorized:              ErrUnauthorized,
	CodeForbidden:                 ErrForbidden,
	CodeReindexInProgress:         ErrReindexInProgress,
}

// QueryError is a rejection of a query request with the offending field
type QueryError struct {
	Code    Code
	Field   string
	Message string
}

func (e *QueryError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: field '%s': %s", sentinels[e.Code], e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", sentinels[e.Code], e.Message)
}

func (e *QueryError) Is(target error) bool {
	sentinel, ok := sentinels[e.Code]
	return ok && target == sentinel
}

// NewInvalidRequestError creates a QueryError for a malformed request
func NewInvalidRequestError(field, message string) *QueryError {
	return &QueryError{Code: CodeInvalidRequest, Field: field, Message: message}
}

// NewInvalidReferenceError creates a QueryError for a ref that is malformed or unknown
func NewInvalidReferenceError(field, ref string) *QueryError {
	return &QueryError{Code: CodeInvalidReference, Field: field, Message: fmt.Sprintf("cannot resolve ref '%s'", ref)}
}

// NewConflictingQueryAndCursorError creates a QueryError for requests carrying both a query and a cursor
func NewConflictingQueryAndCursorError() *QueryError {
	return &QueryError{
		Code:    CodeConflictingQueryAndCursor,
		Field:   "continueAtScrollCursor",
		Message: "specify either a query or a scroll cursor, not both",
	}
}

// NewInvalidLimitError creates a QueryError for a non-positive limit
func NewInvalidLimitError(limit int) *QueryError {
	return &QueryError{Code: CodeInvalidLimit, Field: "limit", Message: fmt.Sprintf("limit must be positive, got %d", limit)}
}

// NewUnimplementedError creates a QueryError for a recognized but unsupported feature
func NewUnimplementedError(field, message string) *QueryError {
	return &QueryError{Code: CodeUnimplemented, Field: field, Message: message}
}

// IndexUnavailableError is returned before the first snapshot is published
type IndexUnavailableError struct {
	Reason string
}

func (e *IndexUnavailableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("index unavailable: %s", e.Reason)
	}
	return "index unavailable"
}

func (e *IndexUnavailableError) Is(target error) bool {
	return target == ErrIndexUnavailable
}

// NewIndexUnavailableError creates a new IndexUnavailableError
func NewIndexUnavailableError(reason string) *IndexUnavailableError {
	return &IndexUnavailableError{Reason: reason}
}

// JobNotFoundError represents a job not found error with context
type JobNotFoundError struct {
	JobID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job with ID '%s' not found", e.JobID)
}

func (e *JobNotFoundError) Is(target error) bool {
	return target == ErrJobNotFound
}

// NewJobNotFoundError creates a new JobNotFoundError
func NewJobNotFoundError(jobID string) *JobNotFoundError {
	return &JobNotFoundError{JobID: jobID}
}

// UnauthorizedError represents a rejected bearer token
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized: %s", e.Reason)
}

func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

// NewUnauthorizedError creates a new UnauthorizedError
func NewUnauthorizedError(reason string) *UnauthorizedError {
	return &UnauthorizedError{Reason: reason}
}

// CodeOf maps any error to its API code, CodeInternal when unrecognized
func CodeOf(err error) Code {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code
	}
	for code, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeInternal
}

// FieldOf returns the offending field of a QueryError, if any
func FieldOf(err error) string {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Field
	}
	return ""
}
