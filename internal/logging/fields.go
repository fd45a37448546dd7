package logging

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor, set by the identity middleware
	FieldParticipantID = "participant_id"

	// Service
	FieldService = "service"

	// Query engine
	FieldEndpoint   = "endpoint"
	FieldFindWhat   = "find_what"
	FieldGeneration = "generation"
	FieldResults    = "results"
	FieldCacheHit   = "cache_hit"
	FieldJobID      = "job_id"
	FieldSource     = "source"
)
