// Package response provides unified API response structures.
// All HTTP handlers in the service reply with these envelopes so clients can
// rely on a single shape.
package response

import (
	"net/http"

	"github.com/kart-io/abhyasam/pkg/utils/errors"
)

// Response is the unified API response structure.
type Response struct {
	// Code is the business error code (0 = success)
	Code int `json:"code"`

	// Message is a human-readable message
	Message string `json:"message"`

	// Data contains the response payload (nil for errors)
	Data interface{} `json:"data,omitempty"`

	// RequestID is the unique request identifier for tracing
	RequestID string `json:"request_id,omitempty"`

	// Timestamp is the response timestamp (Unix milliseconds)
	Timestamp int64 `json:"timestamp,omitempty"`
}

// Success creates a successful response with data.
func Success(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// SuccessWithMessage creates a successful response with custom message.
func SuccessWithMessage(message string, data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: message,
		Data:    data,
	}
}

// Err creates an error response from an Errno value.
func Err(e *errors.Errno) *Response {
	if e == nil {
		return Success(nil)
	}
	return &Response{
		Code:    e.Code,
		Message: e.MessageEN,
	}
}

// ErrWithLang creates an error response with language-specific message.
func ErrWithLang(e *errors.Errno, lang string) *Response {
	if e == nil {
		return Success(nil)
	}
	return &Response{
		Code:    e.Code,
		Message: e.Message(lang),
	}
}

// WithRequestID adds request ID to the response.
func (r *Response) WithRequestID(requestID string) *Response {
	r.RequestID = requestID
	return r
}

// WithTimestamp adds timestamp to the response.
func (r *Response) WithTimestamp(timestamp int64) *Response {
	r.Timestamp = timestamp
	return r
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Code == 0
}

// HTTPStatus returns the appropriate HTTP status code for this response,
// derived from the error code's category.
func (r *Response) HTTPStatus() int {
	if r.Code == 0 {
		return http.StatusOK
	}

	switch errors.GetCategory(r.Code) {
	case errors.CategoryRequest:
		return http.StatusBadRequest
	case errors.CategoryResource:
		return http.StatusNotFound
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryTimeout:
		return http.StatusGatewayTimeout
	case errors.CategoryNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
