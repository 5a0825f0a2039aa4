package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, propagated through the call chain via context.
const (
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"
	FieldJobKind   = "job_kind"
	FieldComponent = "component"
	FieldProvider  = "provider"
	FieldBatch     = "batch"
)

// Metric fields, attached per entry.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldSize       = "size"
	FieldStatus     = "status"
	FieldTokens     = "tokens"
	FieldAttempt    = "attempt"
)
