// Package errors provides the structured error type shared by every layer of
// the metadata repository: the Cypher compiler, the Neo4j repositories, the
// lock backends and the CLI all report failures as *AppError so callers can
// branch on a stable code instead of parsing messages.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// stackDepth is the maximum number of frames captured per error.
const stackDepth = 32

func captureStack(skip int) string {
	pcs := make([]uintptr, stackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		f, more := frames.Next()
		if !strings.Contains(f.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", f.File, f.Line, f.Function)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// AppError carries a typed code, a caller-facing message and an optional
// cause. It supports errors.Is / errors.As through Unwrap.
//
//	return errors.NotFound("No ObjectiveTemplateRoot with UID 'OT_1' found")
//	return errors.Wrap(err, errors.ErrCodeDatabaseError, "list query failed")
type AppError struct {
	Code    ErrorCode
	Message string

	// Detail holds debugging context (query constraints, uids) that is
	// not part of the primary message.
	Detail string

	Cause error

	// Stack is captured by the constructors and never rendered by Error().
	Stack string
}

// Error renders "[<code>] <message>: <detail>", omitting an empty detail.
func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail returns a copy of the receiver with Detail set. Nil-safe.
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithCause returns a copy of the receiver with Cause set. Nil-safe.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Cause = err
	return &clone
}

func newAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Stack:   captureStack(2),
	}
}

// New constructs an AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return newAppError(code, message)
}

// Newf is New with a format string.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return newAppError(code, fmt.Sprintf(format, args...))
}

// Wrap constructs an AppError around err. A nil err yields nil.
// When code is CodeUnknown and err already carries an AppError, the original
// code is kept so cross-layer wrapping does not lose the classification.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		var ae *AppError
		if errors.As(err, &ae) {
			code = ae.Code
		}
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
		Stack:   captureStack(1),
	}
}

// IsCode reports whether any error in err's chain is an *AppError with code.
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) {
			if ae.Code == code {
				return true
			}
			err = ae.Cause
			continue
		}
		return false
	}
	return false
}

// IsNotFound reports whether err's chain holds a not-found AppError.
func IsNotFound(err error) bool {
	return IsCode(err, ErrCodeNotFound)
}

// IsVersioningConflict reports whether err's chain holds a versioning conflict.
func IsVersioningConflict(err error) bool {
	return IsCode(err, ErrCodeVersioningConflict)
}

// GetCode extracts the code of the first *AppError in err's chain.
// nil yields CodeOK and a foreign error yields CodeUnknown.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// NotFound constructs an ErrCodeNotFound AppError.
func NotFound(message string) *AppError {
	return newAppError(ErrCodeNotFound, message)
}

// InvalidParam constructs an ErrCodeBadRequest AppError.
func InvalidParam(message string) *AppError {
	return newAppError(ErrCodeBadRequest, message)
}

// BusinessLogic constructs an ErrCodeBusinessLogic AppError.
func BusinessLogic(message string) *AppError {
	return newAppError(ErrCodeBusinessLogic, message)
}

// Validation constructs an ErrCodeValidation AppError.
func Validation(message string) *AppError {
	return newAppError(ErrCodeValidation, message)
}

// VersioningConflict constructs an ErrCodeVersioningConflict AppError.
func VersioningConflict(message string) *AppError {
	return newAppError(ErrCodeVersioningConflict, message)
}

// NotImplemented constructs an ErrCodeNotImplemented AppError.
func NotImplemented(message string) *AppError {
	return newAppError(ErrCodeNotImplemented, message)
}

// Conflict constructs an ErrCodeConflict AppError.
func Conflict(message string) *AppError {
	return newAppError(ErrCodeConflict, message)
}

// Internal constructs an ErrCodeInternal AppError.
func Internal(message string) *AppError {
	return newAppError(ErrCodeInternal, message)
}
