package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal        ErrorCode = "COMMON_001"
	ErrCodeBadRequest      ErrorCode = "COMMON_002"
	ErrCodeNotFound        ErrorCode = "COMMON_005"
	ErrCodeConflict        ErrorCode = "COMMON_006"
	ErrCodeTimeout         ErrorCode = "COMMON_009"
	ErrCodeValidation      ErrorCode = "COMMON_010"
	ErrCodeSerialization   ErrorCode = "COMMON_011"
	ErrCodeDatabaseError   ErrorCode = "COMMON_012"
	ErrCodeCacheError      ErrorCode = "COMMON_013"
	ErrCodeNotImplemented  ErrorCode = "COMMON_016"
	ErrCodeUnknown         ErrorCode = "COMMON_000"
	ErrCodeConfigInvalid   ErrorCode = "COMMON_017"
	ErrCodeLockUnavailable ErrorCode = "COMMON_018"
)

// Syntax repository error codes
const (
	// ErrCodeBusinessLogic flags client input the repository cannot honour,
	// such as filtering or sorting on a field the entity kind does not expose.
	ErrCodeBusinessLogic ErrorCode = "SYN_001"
	// ErrCodeVersioningConflict is raised when the entity disappeared between
	// locking and reading.
	ErrCodeVersioningConflict ErrorCode = "SYN_002"
	ErrCodeRelatedNotFound    ErrorCode = "SYN_003"
	ErrCodeUnknownKind        ErrorCode = "SYN_004"
)

// Aliases
const (
	CodeUnknown        = ErrCodeUnknown
	CodeOK             = ErrorCode("OK")
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeNotImplemented = ErrCodeNotImplemented
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeConflict:        http.StatusConflict,
	ErrCodeTimeout:         http.StatusGatewayTimeout,
	ErrCodeValidation:      http.StatusUnprocessableEntity,
	ErrCodeSerialization:   http.StatusInternalServerError,
	ErrCodeDatabaseError:   http.StatusInternalServerError,
	ErrCodeCacheError:      http.StatusInternalServerError,
	ErrCodeNotImplemented:  http.StatusNotImplemented,
	ErrCodeConfigInvalid:   http.StatusInternalServerError,
	ErrCodeLockUnavailable: http.StatusConflict,

	ErrCodeBusinessLogic:      http.StatusBadRequest,
	ErrCodeVersioningConflict: http.StatusConflict,
	ErrCodeRelatedNotFound:    http.StatusBadRequest,
	ErrCodeUnknownKind:        http.StatusBadRequest,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTimeout:            "operation timed out",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization error",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeNotImplemented:     "not implemented",
	ErrCodeConfigInvalid:      "invalid configuration",
	ErrCodeLockUnavailable:    "lock unavailable",
	ErrCodeBusinessLogic:      "business rule violated",
	ErrCodeVersioningConflict: "versioning conflict",
	ErrCodeRelatedNotFound:    "related item not found",
	ErrCodeUnknownKind:        "unknown entity kind",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
