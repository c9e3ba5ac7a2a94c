package apperr

import "net/http"

// Predefined standard error codes (can be extended)
var (
	ErrorCodeInvalidRequest = NewErrorCode("invalid_request", "Invalid request body", 10, http.StatusBadRequest)
	ErrorCodeValidationFail = NewErrorCode("validation_failed", "Validation failed", 30, http.StatusUnprocessableEntity)
	ErrorCodeUnauthorized   = NewErrorCode("unauthorized", "Unauthorized", 40, http.StatusUnauthorized)
	ErrorCodeTokenExpired   = NewErrorCode("token_expired", "Session expired", 41, http.StatusUnauthorized)
	ErrorCodeForbidden      = NewErrorCode("forbidden", "Forbidden", 50, http.StatusForbidden)
	ErrorCodeNotFound       = NewErrorCode("not_found", "Not found", 60, http.StatusNotFound)
	ErrorCodeParse          = NewErrorCode("parse_error", "Response could not be parsed", 90, http.StatusInternalServerError)
	ErrorCodeInternal       = NewErrorCode("internal_error", "Internal server error", 100, http.StatusInternalServerError)
)

var registry = map[string]*ErrorCode{}

func init() {
	for _, ec := range []*ErrorCode{
		ErrorCodeInvalidRequest, ErrorCodeValidationFail, ErrorCodeUnauthorized, ErrorCodeTokenExpired,
		ErrorCodeForbidden, ErrorCodeNotFound, ErrorCodeParse, ErrorCodeInternal,
	} {
		registry[ec.Code()] = ec
	}
}

// ErrorCode describes a canonical application error code.
// It carries a numeric severity/priority (Value) and an HTTP status.
type ErrorCode struct {
	code       string
	message    string
	value      int
	httpStatus int
}

func NewErrorCode(code, message string, value, httpStatus int) *ErrorCode {
	return &ErrorCode{code: code, message: message, value: value, httpStatus: httpStatus}
}

// Lookup returns the predefined code with the given name, or nil.
func Lookup(code string) *ErrorCode { return registry[code] }

func (ec *ErrorCode) Code() string    { return ec.code }
func (ec *ErrorCode) Message() string { return ec.message }
func (ec *ErrorCode) Value() int      { return ec.value }
func (ec *ErrorCode) HTTPStatus() int { return ec.httpStatus }
