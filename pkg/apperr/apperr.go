// Package apperr defines the structured error body servers put in the "error"
// member of a response envelope, together with canonical codes and their HTTP
// status mapping.
package apperr

import (
	"fmt"
)

// Suggestion is a per-field suggestion to fix a validation error.
type Suggestion struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError is the canonical error shape decoded from server responses.
type AppError struct {
	Code        string       `json:"code"`
	Message     string       `json:"message"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
	HTTPStatus  int          `json:"-"`
}

// New creates a new AppError from an ErrorCode.
func New(ec *ErrorCode) *AppError {
	if ec == nil {
		ec = ErrorCodeInternal
	}
	return &AppError{
		Code:       ec.Code(),
		Message:    ec.Message(),
		HTTPStatus: ec.HTTPStatus(),
	}
}

// Newf creates AppError with formatted message.
func Newf(ec *ErrorCode, format string, args ...any) *AppError {
	a := New(ec)
	a.Message = fmt.Sprintf(format, args...)
	return a
}

// AddSuggestion appends a field suggestion (fluent)
func (a *AppError) AddSuggestion(field, message string) *AppError {
	a.Suggestions = append(a.Suggestions, Suggestion{Field: field, Message: message})
	return a
}

func (a *AppError) Error() string {
	if a == nil {
		return "<nil>"
	}
	if a.Code == "" {
		return a.Message
	}
	return fmt.Sprintf("%s: %s", a.Code, a.Message)
}

// WithStatus records the HTTP status the error arrived with.
func (a *AppError) WithStatus(status int) *AppError {
	a.HTTPStatus = status
	return a
}

// Is lets errors.Is match an AppError against another by code.
func (a *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || a == nil || t == nil {
		return false
	}
	return a.Code == t.Code
}

// HasCode reports whether the error carries the code of ec.
func (a *AppError) HasCode(ec *ErrorCode) bool {
	return a != nil && ec != nil && a.Code == ec.Code()
}

// UserMessage returns text suitable for showing to an end user.
func (a *AppError) UserMessage() string {
	if a == nil {
		return ""
	}
	if a.Message != "" {
		return a.Message
	}
	if ec := Lookup(a.Code); ec != nil {
		return ec.Message()
	}
	return ErrorCodeInternal.Message()
}
