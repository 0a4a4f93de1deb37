package response

import (
	"net/http"
)

// Response represents the standard API response structure
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo represents error details in the response
type ErrorInfo struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// --- Error Code Constants ---

const (
	// Client errors (4xx)
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"

	// Server errors (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"

	// Business logic errors
	ErrCodeValidationFailed     = "VALIDATION_FAILED"
	ErrCodeSlotConflict         = "SLOT_CONFLICT"
	ErrCodeInvalidState         = "INVALID_STATE"
	ErrCodePaymentFailed        = "PAYMENT_FAILED"
	ErrCodeProcessorUnavailable = "PROCESSOR_UNAVAILABLE"
	ErrCodeDuplicateEntry       = "DUPLICATE_ENTRY"
)

// --- HTTP Status Code Mapping ---

// ErrorCodeToHTTPStatus maps error codes to HTTP status codes
var ErrorCodeToHTTPStatus = map[string]int{
	ErrCodeBadRequest:           http.StatusBadRequest,
	ErrCodeUnauthorized:         http.StatusUnauthorized,
	ErrCodeForbidden:            http.StatusForbidden,
	ErrCodeNotFound:             http.StatusNotFound,
	ErrCodeConflict:             http.StatusConflict,
	ErrCodeInternalError:        http.StatusInternalServerError,
	ErrCodeServiceUnavailable:   http.StatusServiceUnavailable,
	ErrCodeValidationFailed:     http.StatusBadRequest,
	ErrCodeSlotConflict:         http.StatusConflict,
	ErrCodeInvalidState:         http.StatusConflict,
	ErrCodePaymentFailed:        http.StatusPaymentRequired,
	ErrCodeProcessorUnavailable: http.StatusBadGateway,
	ErrCodeDuplicateEntry:       http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status code for an error code
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeToHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// --- Response Builders ---

// Success creates a success response with data
func Success(data interface{}) *Response {
	return &Response{
		Success: true,
		Data:    data,
	}
}

// Error creates an error response
func Error(code string, message string) *Response {
	return &Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}

// ErrorWithDetails creates an error response with additional details
func ErrorWithDetails(code string, message string, details map[string]string) *Response {
	return &Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// --- Common Error Responses ---

// BadRequest creates a bad request error response
func BadRequest(message string) *Response {
	return Error(ErrCodeBadRequest, message)
}

// Unauthorized creates an unauthorized error response
func Unauthorized(message string) *Response {
	if message == "" {
		message = "Authentication required"
	}
	return Error(ErrCodeUnauthorized, message)
}

// NotFound creates a not found error response
func NotFound(message string) *Response {
	if message == "" {
		message = "Resource not found"
	}
	return Error(ErrCodeNotFound, message)
}

// InternalError creates an internal server error response
func InternalError(message string) *Response {
	if message == "" {
		message = "An internal error occurred"
	}
	return Error(ErrCodeInternalError, message)
}

// SlotConflict creates a slot conflict error response
func SlotConflict(message string) *Response {
	if message == "" {
		message = "Requested time slot is not available"
	}
	return Error(ErrCodeSlotConflict, message)
}

// InvalidState creates an invalid state transition error response
func InvalidState(message string) *Response {
	if message == "" {
		message = "Operation not allowed in the current state"
	}
	return Error(ErrCodeInvalidState, message)
}

// ValidationFailed creates a validation error response with field details
func ValidationFailed(details map[string]string) *Response {
	return ErrorWithDetails(ErrCodeValidationFailed, "Validation failed", details)
}
