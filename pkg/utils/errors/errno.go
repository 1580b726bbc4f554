// Package errors provides the structured error code system used across the
// service.
//
// Error Code Format: AABBCCC (7 digits)
//
//	AA  (00-99): Service/Module code - identifies the source component
//	BB  (00-99): Category code - identifies the error category
//	CCC (000-999): Sequence number - specific error within the category
//
// Category Codes (BB):
//
//	00: Success
//	01: Request/Validation errors (400)
//	04: Resource not found errors (404)
//	05: Conflict errors (409)
//	07: Internal errors (500)
//	10: Network/Upstream errors (502/503)
//	11: Timeout errors (504)
//	12: Configuration errors (500)
//
// Usage:
//
//	// Using predefined errors
//	return errors.ErrSourceUnavailable.WithCause(err)
//
//	// Overriding the message for a specific call site
//	return errors.ErrInvalidParam.WithMessage("count must be positive")
package errors

import (
	"fmt"
	"net/http"
)

// Errno represents a structured error with code and messages.
type Errno struct {
	// Code is the unique error code
	Code int `json:"code"`

	// HTTP is the HTTP status code to return
	HTTP int `json:"-"`

	// MessageEN is the English error message
	MessageEN string `json:"message"`

	// MessageZH is the Chinese error message
	MessageZH string `json:"message_zh,omitempty"`

	// cause is the underlying error
	cause error
}

// Error implements the error interface.
func (e *Errno) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("errno %d: %s: %v", e.Code, e.MessageEN, e.cause)
	}
	return fmt.Sprintf("errno %d: %s", e.Code, e.MessageEN)
}

// Unwrap returns the underlying cause.
func (e *Errno) Unwrap() error {
	return e.cause
}

// WithCause creates a new Errno with the given cause.
func (e *Errno) WithCause(cause error) *Errno {
	return &Errno{
		Code:      e.Code,
		HTTP:      e.HTTP,
		MessageEN: e.MessageEN,
		MessageZH: e.MessageZH,
		cause:     cause,
	}
}

// WithMessage creates a new Errno with custom English message.
func (e *Errno) WithMessage(msg string) *Errno {
	return &Errno{
		Code:      e.Code,
		HTTP:      e.HTTP,
		MessageEN: msg,
		MessageZH: e.MessageZH,
		cause:     e.cause,
	}
}

// WithMessagef creates a new Errno with formatted English message.
func (e *Errno) WithMessagef(format string, args ...interface{}) *Errno {
	return &Errno{
		Code:      e.Code,
		HTTP:      e.HTTP,
		MessageEN: fmt.Sprintf(format, args...),
		MessageZH: e.MessageZH,
		cause:     e.cause,
	}
}

// Message returns the message based on language.
func (e *Errno) Message(lang string) string {
	if lang == "zh" || lang == "zh-CN" || lang == "zh_CN" {
		if e.MessageZH != "" {
			return e.MessageZH
		}
	}
	return e.MessageEN
}

// HTTPStatus returns the HTTP status code.
func (e *Errno) HTTPStatus() int {
	if e.HTTP != 0 {
		return e.HTTP
	}
	return http.StatusInternalServerError
}

// Is checks if this error matches the target error code.
func (e *Errno) Is(target error) bool {
	if t, ok := target.(*Errno); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a new Errno with the given parameters.
func New(code int, httpStatus int, messageEN, messageZH string) *Errno {
	return &Errno{
		Code:      code,
		HTTP:      httpStatus,
		MessageEN: messageEN,
		MessageZH: messageZH,
	}
}

// Format implements fmt.Formatter for better error formatting.
func (e *Errno) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = fmt.Fprintf(s, "errno %d [HTTP %d]: %s", e.Code, e.HTTP, e.MessageEN)
			if e.MessageZH != "" {
				_, _ = fmt.Fprintf(s, " (%s)", e.MessageZH)
			}
			if e.cause != nil {
				_, _ = fmt.Fprintf(s, "\ncaused by: %+v", e.cause)
			}
			return
		}
		fallthrough
	case 's':
		_, _ = fmt.Fprint(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}

// FromError extracts an *Errno from err's chain, or wraps err as an internal
// error when no Errno is present.
func FromError(err error) *Errno {
	if err == nil {
		return nil
	}
	for e := err; e != nil; {
		if en, ok := e.(*Errno); ok {
			return en
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return ErrInternal.WithCause(err)
}
