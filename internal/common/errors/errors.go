// Package errors provides the structured errors shared by the chatbot's
// data access, transports and workflow worker.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeDatabaseConnectionFailed  ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeUnsupportedDatabaseDriver ErrorCode = "UNSUPPORTED_DATABASE_DRIVER"
	ErrCodeQueryExecutionFailed      ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout              ErrorCode = "QUERY_TIMEOUT"
	ErrCodeCatalogLookupFailed       ErrorCode = "CATALOG_LOOKUP_FAILED"

	ErrCodeResponseRenderFailed ErrorCode = "RESPONSE_RENDER_FAILED"
	ErrCodeAnswerFailed         ErrorCode = "ANSWER_FAILED"

	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"

	ErrCodeEngineUnavailable ErrorCode = "ENGINE_UNAVAILABLE"
	ErrCodeEngineTimeout     ErrorCode = "ENGINE_TIMEOUT"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying driver or network error.
func (e *StandardError) Unwrap() error {
	return e.cause
}

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err, true)
}

func NewUnsupportedDatabaseDriverError(driver string) *StandardError {
	e := newError(ErrCodeUnsupportedDatabaseDriver, "Unsupported database driver", nil, false)
	e.Details = fmt.Sprintf("driver: %s", driver)
	return e
}

// NewQueryExecutionFailedError wraps a failed read against the readings store.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	e := newError(ErrCodeQueryExecutionFailed, "Database query execution error", err, true)
	e.Metadata = map[string]interface{}{"operation": operation}
	return e
}

func NewQueryTimeoutError(operation string, err error) *StandardError {
	e := newError(ErrCodeQueryTimeout, "Database query timeout", err, true)
	e.Metadata = map[string]interface{}{"operation": operation}
	return e
}

func NewCatalogLookupFailedError(err error) *StandardError {
	return newError(ErrCodeCatalogLookupFailed, "Could not list known cows", err, true)
}

func NewResponseRenderFailedError(details string) *StandardError {
	e := newError(ErrCodeResponseRenderFailed, "Response rendering failed", nil, false)
	e.Details = details
	return e
}

func NewAnswerFailedError(err error) *StandardError {
	return newError(ErrCodeAnswerFailed, "Question could not be answered", err, true)
}

// NewInvalidRequestError reports a payload that failed schema validation.
func NewInvalidRequestError(details string) *StandardError {
	e := newError(ErrCodeInvalidRequest, "Invalid request", nil, false)
	e.Details = details
	return e
}

func NewEngineUnavailableError(operation string, err error) *StandardError {
	e := newError(ErrCodeEngineUnavailable, "Workflow engine unavailable", err, true)
	e.Metadata = map[string]interface{}{"operation": operation}
	return e
}

func NewEngineTimeoutError(operation string, err error) *StandardError {
	e := newError(ErrCodeEngineTimeout, "Workflow engine timeout", err, true)
	e.Metadata = map[string]interface{}{"operation": operation}
	return e
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeDatabaseConnectionFailed:  "DATABASE_CONNECTION_FAILED",
	ErrCodeUnsupportedDatabaseDriver: "UNSUPPORTED_DATABASE_DRIVER",
	ErrCodeQueryExecutionFailed:      "QUERY_EXECUTION_FAILED",
	ErrCodeQueryTimeout:              "QUERY_TIMEOUT",
	ErrCodeCatalogLookupFailed:       "CATALOG_LOOKUP_FAILED",
	ErrCodeResponseRenderFailed:      "RESPONSE_RENDER_FAILED",
	ErrCodeAnswerFailed:              "ANSWER_FAILED",
	ErrCodeInvalidRequest:            "INVALID_REQUEST",
}

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeCatalogLookupFailed,
		ErrCodeAnswerFailed:
		return 3

	case ErrCodeQueryTimeout, ErrCodeEngineUnavailable, ErrCodeEngineTimeout:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, ok := BPMNErrorMapping[stdErr.Code]
	if !ok {
		bpmnCode = string(stdErr.Code)
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   GetRetryCount(stdErr.Code),
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError finds a StandardError in err's chain, or wraps err as an
// internal error.
func AsStandardError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return newError(ErrCodeInternal, "Unexpected error", err, false)
}

// CodeOf returns the error code carried by err, or INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	return AsStandardError(err).Code
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "CATALOG"):
		return "DATABASE"
	case strings.Contains(codeStr, "RENDER") || strings.Contains(codeStr, "ANSWER"):
		return "CHATBOT"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	case strings.Contains(codeStr, "ENGINE"):
		return "WORKFLOW"
	default:
		return "OTHER"
	}
}
