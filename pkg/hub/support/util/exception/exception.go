// Package exception provides the custom error types used throughout OMTX-Hub.
// It standardizes errors raised during batch submission, completion polling
// and result reconciliation, so that callers can decide whether an error is
// retryable on the next monitor tick or containable to a single child job.
package exception

import (
	"errors"
	"fmt"
	"runtime"
)

// HubError is the custom error type for failures inside the hub core.
// It records the module where the error occurred, a message, the wrapped
// original error, and flags describing how the error should be handled.
type HubError struct {
	// Module indicates where the error occurred (e.g. "submitter",
	// "monitor", "reconciler", "docstore", "storage", "compute").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// isRetryable indicates the operation may succeed on a later attempt
	// (typically a transient provider or store failure).
	isRetryable bool
	// isContainable indicates the error is local to a single child job and
	// must not abort processing of its siblings.
	isContainable bool
	// StackTrace is the stack captured at construction time.
	StackTrace string
}

// NewHubError creates a new HubError instance.
func NewHubError(module, message string, originalErr error, containable, retryable bool) *HubError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &HubError{
		Module:        module,
		Message:       message,
		OriginalErr:   originalErr,
		isRetryable:   retryable,
		isContainable: containable,
		StackTrace:    string(buf[:n]),
	}
}

// NewHubErrorf creates a new HubError with a formatted message. The resulting
// error is neither retryable nor containable; use NewHubError when the flags
// matter.
func NewHubErrorf(module, format string, a ...interface{}) *HubError {
	return NewHubError(module, fmt.Sprintf(format, a...), nil, false, false)
}

// Error implements the error interface.
func (e *HubError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the wrapped original error, enabling errors.Is / errors.As.
func (e *HubError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable reports whether the error (or any error it wraps) is marked
// retryable.
func IsRetryable(err error) bool {
	var he *HubError
	if errors.As(err, &he) {
		return he.isRetryable
	}
	return false
}

// IsContainable reports whether the error (or any error it wraps) is marked
// containable, meaning it affects a single child job only.
func IsContainable(err error) bool {
	var he *HubError
	if errors.As(err, &he) {
		return he.isContainable
	}
	return false
}

// ExtractErrorMessage returns a short, persistence-friendly message for err.
// HubError messages keep their module prefix; other errors are stringified.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var he *HubError
	if errors.As(err, &he) {
		return he.Error()
	}
	return err.Error()
}
