package interceptor

import "net/http"

// RequestType is the delegate's classification of a request.
type RequestType int

const (
	RequestDefault RequestType = iota
	RequestRefreshSession
	RequestNewSession
	RequestLogout
)

func (t RequestType) String() string {
	switch t {
	case RequestDefault:
		return "default"
	case RequestRefreshSession:
		return "refresh_session"
	case RequestNewSession:
		return "new_session"
	case RequestLogout:
		return "logout"
	default:
		return "unknown"
	}
}

// ResponseDataType is the delegate's classification of a new-session response payload.
type ResponseDataType int

const (
	ResponseDataDefault ResponseDataType = iota
	ResponseDataNewUser
)

// Delegate supplies session policy to the Interceptor.
//
// Refresh is called while the Interceptor holds its lock and must not call
// back into it. ExpiryEpisodeStarted is delivered on its own goroutine and may
// issue new requests.
type Delegate interface {
	ClassifyRequest(req *http.Request) RequestType
	ClassifyResponseData(data any) ResponseDataType
	Refresh(req *http.Request) *http.Request
	ExpiryEpisodeStarted()
}

// Finisher is told about every completed request before its result reaches the caller.
type Finisher interface {
	Finish(req *http.Request, responseData any, statusCode int)
}
