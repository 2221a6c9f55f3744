// SPDX-License-Identifier: Apache-2.0
// Package errors provides typed error handling with rich context for Nabd.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies Nabd errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeToolFailure indicates a tool execution failed.
	CodeToolFailure ErrorCode = "TOOL_FAILURE"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeNotFound indicates a resource was not found.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeUnauthorized indicates authorization failed.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeMemoryError indicates a vector store or conversation store error.
	CodeMemoryError ErrorCode = "MEMORY_ERROR"

	// CodeLLMError indicates a model provider error.
	CodeLLMError ErrorCode = "LLM_ERROR"

	// CodeNotExecutable indicates an instruction-only skill was asked to run.
	CodeNotExecutable ErrorCode = "SKILL_NOT_EXECUTABLE"

	// CodeDiscovery indicates the skills directory could not be scanned.
	CodeDiscovery ErrorCode = "DISCOVERY_ERROR"

	// CodeUpstream indicates a data provider answered with a non-2xx status.
	CodeUpstream ErrorCode = "UPSTREAM_ERROR"
)

// NabdError is a typed error with rich context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type NabdError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Attributes  map[string]string
	Recoverable bool
	StatusCode  int
}

// Error implements the error interface.
func (e *NabdError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *NabdError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *NabdError) MarshalJSON() ([]byte, error) {
	var cause string
	if e.Err != nil {
		cause = e.Err.Error()
	}
	return json.Marshal(&struct {
		Code        string                 `json:"code"`
		Message     string                 `json:"message"`
		Err         string                 `json:"error,omitempty"`
		Context     map[string]interface{} `json:"context,omitempty"`
		Recoverable bool                   `json:"recoverable"`
		StatusCode  int                    `json:"status_code"`
	}{
		Code:        string(e.Code),
		Message:     e.Message,
		Err:         cause,
		Context:     e.Context,
		Recoverable: e.Recoverable,
		StatusCode:  e.StatusCode,
	})
}

// New creates a new NabdError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *NabdError {
	return &NabdError{
		Code:       code,
		Message:    msg,
		Err:        cause,
		Context:    make(map[string]interface{}),
		Attributes: make(map[string]string),
		StatusCode: codeToStatusCode(code),
	}
}

// Newf is New with a formatted message and no cause.
func Newf(code ErrorCode, format string, args ...any) *NabdError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *NabdError) WithContext(key string, value interface{}) *NabdError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithAttribute adds a string attribute for OTEL traces.
// Returns the error for method chaining.
func (e *NabdError) WithAttribute(key, value string) *NabdError {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *NabdError) WithRecoverable(recoverable bool) *NabdError {
	e.Recoverable = recoverable
	return e
}

// AsNabdError attempts to convert an error to a NabdError.
// Context deadline errors become CodeTimeout, anything else CodeInternal.
func AsNabdError(err error) *NabdError {
	if err == nil {
		return nil
	}
	var ne *NabdError
	if stderrors.As(err, &ne) {
		return ne
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return New(CodeTimeout, "operation timed out", err).WithRecoverable(true)
	}
	return New(CodeInternal, "wrapped error", err)
}

// Is reports whether any error in err's chain is a NabdError with the given code.
func Is(err error, code ErrorCode) bool {
	var ne *NabdError
	if !stderrors.As(err, &ne) {
		return false
	}
	return ne.Code == code
}

// UserMessage renders err as plain text suitable for embedding in a reply.
// Codes and wrapper prefixes are left out.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ne *NabdError
	if stderrors.As(err, &ne) {
		if ne.Err != nil && ne.Code != CodeInvalidInput && ne.Code != CodeNotFound && ne.Code != CodeNotExecutable {
			return ne.Message + ": " + UserMessage(ne.Err)
		}
		return ne.Message
	}
	return err.Error()
}

// RecoverableString returns "true" or "false" as a string for observability.
func (e *NabdError) RecoverableString() string {
	if e.Recoverable {
		return "true"
	}
	return "false"
}

// codeToStatusCode maps error codes to HTTP status codes.
func codeToStatusCode(code ErrorCode) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeInvalidInput, CodeNotExecutable:
		return http.StatusBadRequest
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeUpstream, CodeLLMError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
