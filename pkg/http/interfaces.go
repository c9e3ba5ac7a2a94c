package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Doer is the dispatch surface API clients depend on.
// This interface allows for mocking and alternative implementations.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*Response, error)
}

// Ensure Session implements Doer interface.
var _ Doer = (*Session)(nil)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Request is the request as sent on the wire, after hooks ran.
	Request *http.Request
}

// ValidationError reports a response whose status is not acceptable.
type ValidationError struct {
	StatusCode int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("response status code was unacceptable: %d", e.StatusCode)
}

// IsStatus reports whether err is a ValidationError for status.
func IsStatus(err error, status int) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.StatusCode == status
}

// Attempt is a failed dispatch handed to a Retrier.
type Attempt struct {
	Request    *http.Request
	RetryCount int
	ctx        context.Context
}

// NewAttempt is used by Retrier implementations' tests and alternative engines.
func NewAttempt(ctx context.Context, req *http.Request, retryCount int) *Attempt {
	return &Attempt{Request: req, RetryCount: retryCount, ctx: ctx}
}

// Cancelled reports whether the caller has given up on the request.
func (a *Attempt) Cancelled() bool {
	return a.ctx != nil && a.ctx.Err() != nil
}

// RetryResult is a Retrier's verdict. A nil Request re-sends the failed one.
type RetryResult struct {
	Retry   bool
	Request *http.Request
}

var DoNotRetry = RetryResult{}

// RetryWith re-dispatches req.
func RetryWith(req *http.Request) RetryResult {
	return RetryResult{Retry: true, Request: req}
}

// Retrier decides whether a failed attempt is dispatched again. It may call
// completion later from any goroutine; the session waits for it or for the
// request context to end.
type Retrier interface {
	Retry(attempt *Attempt, err error, completion func(RetryResult))
}
