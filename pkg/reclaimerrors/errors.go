// Package reclaimerrors provides structured error handling for reclaim with
// categorization, key-value context, and stack traces captured at the point of
// creation.
//
// # Overview
//
// The reclaimerrors package extends Go's standard error handling with:
//   - Error categorization through ErrorType
//   - Structured context with key-value details
//   - Automatic stack trace capture
//   - Error wrapping with cause preservation
//   - Sentinel matching through errors.Is
//
// # Basic Usage
//
//	// Create a new error
//	err := reclaimerrors.New(reclaimerrors.ErrorTypeValidation, "capacity must be positive")
//
//	// Add context
//	err = err.WithDetail("capacity", 0).
//	         WithDetail("pool", "particles")
//
//	// Wrap an error returned by an object factory
//	if obj, err := factory(); err != nil {
//	    return reclaimerrors.Wrap(err, reclaimerrors.ErrorTypePolicy, "create failed").
//	        WithDetail("pool", name)
//	}
//
// # Sentinels
//
// Packages declare sentinel errors with New and match them with errors.Is.
// Two *Error values match when their Type and Message are equal, so a sentinel
// that was later decorated with WithDetail or wrapped by another error still
// matches.
//
// # Thread Safety
//
// Error instances are not thread-safe for modification. Create new
// instances or use WithDetail before sharing across goroutines.
package reclaimerrors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of an error.
type ErrorType string

const (
	// ErrorTypeInternal represents internal errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation represents invalid arguments at construction time
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeState represents operations on an object in the wrong state
	ErrorTypeState ErrorType = "state"
	// ErrorTypePolicy represents failures raised by a pool policy
	ErrorTypePolicy ErrorType = "policy"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeData represents malformed input data
	ErrorTypeData ErrorType = "data"
	// ErrorTypeCapability represents unsupported features
	ErrorTypeCapability ErrorType = "capability"
	// ErrorTypeFile represents file operation errors
	ErrorTypeFile ErrorType = "file"
)

// Error represents a structured error with context.
//
// Fields:
//   - Type: Categorizes the error
//   - Message: Human-readable error description
//   - Cause: The underlying error that caused this error
//   - Details: Key-value pairs providing additional context
//   - Stack: Call stack at the point of error creation
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack.
type StackFrame struct {
	Function string // Fully qualified function name
	File     string // Source file path
	Line     int    // Line number in source file
}

// Error implements the error interface, returning a formatted error message
// that includes the error type, message, and cause (if present).
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error, enabling compatibility with errors.Is
// and errors.As for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same type and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	return e.Type == t.Type && e.Message == t.Message
}

// WithDetail adds a key-value detail to the error. This method can be chained.
//
// Example:
//
//	err := reclaimerrors.New(ErrorTypeValidation, "invalid capacity").
//	    WithDetail("local", local).
//	    WithDetail("shared", shared)
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message, capturing the call
// stack at the point of creation.
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf is New with a formatted message.
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context, preserving the original
// error as the cause. If the error is already a structured Error, its stack
// trace is preserved. Returns nil if the input error is nil.
//
// Example:
//
//	obj, err := policy.Create(args)
//	if err != nil {
//	    return zero, reclaimerrors.Wrap(err, reclaimerrors.ErrorTypePolicy, "create failed")
//	}
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, errType ErrorType, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	e := Wrap(err, errType, fmt.Sprintf(format, args...))
	if e.Stack == nil {
		e.Stack = captureStack(2)
	}
	return e
}

// IsType checks if the outermost structured error in err's chain is of the
// given type.
//
// Example:
//
//	if reclaimerrors.IsType(err, reclaimerrors.ErrorTypePolicy) {
//	    // the object factory failed; the pool is unchanged
//	}
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// GetType returns the type of the outermost structured error in err's chain,
// or ErrorTypeInternal when err carries none.
func GetType(err error) ErrorType {
	var e *Error
	if !errors.As(err, &e) {
		return ErrorTypeInternal
	}
	return e.Type
}

// captureStack captures the current call stack up to maxFrames deep,
// skipping the specified number of frames from the top.
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
