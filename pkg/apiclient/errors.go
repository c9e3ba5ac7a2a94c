package apiclient

import (
	"errors"
	"fmt"
)

// Kind classifies a failed Perform.
type Kind int

const (
	// KindInternal is a failure of the client itself; nothing reached the user's network.
	KindInternal Kind = iota
	// KindTransport is a network, status or decoding failure without a structured error.
	KindTransport
	// KindServer carries the structured error returned by the server.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "internal"
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Reason details an internal failure.
type Reason int

const (
	ReasonNone Reason = iota
	// ReasonBadRequest means no well-formed request could be built; nothing was sent.
	ReasonBadRequest
	// ReasonResponseMissing means the engine reported success without a status code.
	ReasonResponseMissing
)

var (
	ErrBadRequest      = errors.New("apiclient: bad request")
	ErrResponseMissing = errors.New("apiclient: response missing")
)

// Error is returned by Perform for every failure. E is the structured error
// type carried in the response envelope.
type Error[E any] struct {
	Kind       Kind
	Reason     Reason
	StatusCode int
	// Server is set for KindServer.
	Server *E
	// Err is the underlying cause for KindInternal and KindTransport.
	Err error
}

func (e *Error[E]) Error() string {
	switch e.Kind {
	case KindInternal:
		if e.Err != nil {
			return fmt.Sprintf("apiclient: internal error (%s): %v", e.reasonText(), e.Err)
		}
		return fmt.Sprintf("apiclient: internal error (%s)", e.reasonText())
	case KindServer:
		if e.Server != nil {
			if err, ok := any(e.Server).(error); ok {
				return fmt.Sprintf("apiclient: server error %d: %v", e.StatusCode, err)
			}
			if err, ok := any(*e.Server).(error); ok {
				return fmt.Sprintf("apiclient: server error %d: %v", e.StatusCode, err)
			}
		}
		return fmt.Sprintf("apiclient: server error %d", e.StatusCode)
	default:
		return fmt.Sprintf("apiclient: transport error: %v", e.Err)
	}
}

func (e *Error[E]) reasonText() string {
	switch e.Reason {
	case ReasonBadRequest:
		return "bad request"
	case ReasonResponseMissing:
		return "response missing"
	default:
		return "unspecified"
	}
}

// Unwrap exposes the cause and, for internal failures, the matching sentinel.
func (e *Error[E]) Unwrap() []error {
	var errs []error
	switch e.Reason {
	case ReasonBadRequest:
		errs = append(errs, ErrBadRequest)
	case ReasonResponseMissing:
		errs = append(errs, ErrResponseMissing)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Server != nil {
		if err, ok := any(e.Server).(error); ok {
			errs = append(errs, err)
		}
	}
	return errs
}

// UserMessage returns text fit for an end user. Server errors that know how
// to describe themselves are asked first.
func (e *Error[E]) UserMessage() string {
	if e.Kind == KindServer && e.Server != nil {
		if m, ok := any(e.Server).(interface{ UserMessage() string }); ok {
			if msg := m.UserMessage(); msg != "" {
				return msg
			}
		}
		if m, ok := any(*e.Server).(interface{ UserMessage() string }); ok {
			if msg := m.UserMessage(); msg != "" {
				return msg
			}
		}
	}
	switch e.Kind {
	case KindTransport:
		return "The service could not be reached. Please check your connection and try again."
	case KindServer:
		return "The service reported an error. Please try again later."
	default:
		return "Something went wrong. Please try again."
	}
}

// AsError extracts an *Error[E] from err.
func AsError[E any](err error) (*Error[E], bool) {
	var e *Error[E]
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func internalError[E any](reason Reason, cause error) *Error[E] {
	return &Error[E]{Kind: KindInternal, Reason: reason, Err: cause}
}

func transportError[E any](status int, cause error) *Error[E] {
	return &Error[E]{Kind: KindTransport, StatusCode: status, Err: cause}
}

func serverError[E any](status int, structured *E) *Error[E] {
	return &Error[E]{Kind: KindServer, StatusCode: status, Server: structured}
}
