package errors

import (
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// InvalidParameter indicates a missing or malformed request parameter
	InvalidParameter ErrorCode = "INVALID_PARAMETER"
	// CacheMiss indicates no usable cached snapshot exists for a project
	CacheMiss ErrorCode = "CACHE_MISS"
	// AnalyzerUnavailable indicates the external analyzer could not be invoked
	AnalyzerUnavailable ErrorCode = "ANALYZER_UNAVAILABLE"
	// StoreUnavailable indicates the knowledge-graph store is not reachable
	StoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// SnapshotMalformed indicates a snapshot or metadata file failed to parse
	SnapshotMalformed ErrorCode = "SNAPSHOT_MALFORMED"
	// UnknownCommand indicates an unregistered command name
	UnknownCommand ErrorCode = "UNKNOWN_COMMAND"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// BrokerError represents an akb error with a stable code and message
type BrokerError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// New creates a new BrokerError
func New(code ErrorCode, message string, cause error) *BrokerError {
	return &BrokerError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *BrokerError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *BrokerError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *BrokerError) WithDetails(details interface{}) *BrokerError {
	e.Details = details
	return e
}

// NewInvalidParameterError creates an error for a missing or malformed parameter
func NewInvalidParameterError(param string, detail string) *BrokerError {
	msg := fmt.Sprintf("invalid or missing parameter: %s", param)
	if detail != "" {
		msg = fmt.Sprintf("%s (%s)", msg, detail)
	}
	return New(InvalidParameter, msg, nil)
}

// NewAnalyzerUnavailableError creates an error describing how to make the
// analyzer reachable for the given project.
func NewAnalyzerUnavailableError(projectID string, cause error) *BrokerError {
	msg := fmt.Sprintf(
		"no analysis available for project %q: start the analysis sidecar to populate the cache, or configure analyzer.command so akb can invoke the analyzer directly",
		projectID,
	)
	return New(AnalyzerUnavailable, msg, cause)
}

// NewOperationError wraps an unexpected failure of a named operation
func NewOperationError(op string, cause error) *BrokerError {
	return New(InternalError, fmt.Sprintf("operation failed: %s", op), cause)
}
