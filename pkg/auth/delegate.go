package auth

import (
	"net/http"

	"github.com/milan604/netlayer/pkg/interceptor"
)

// PathDelegate is an interceptor.Delegate that recognises session
// endpoints by path.
type PathDelegate struct {
	Paths Paths
	// NewUser reports whether a login response signed in a different user
	// than the one whose requests are parked. Nil means never.
	NewUser func(data any) bool
	// OnExpired is told that an expiry episode began. It usually starts a refresh.
	OnExpired func()
	// Cache, when set, is invalidated at the start of every episode so the
	// next read goes back to the store.
	Cache *TokenCache
}

var _ interceptor.Delegate = (*PathDelegate)(nil)

func (d *PathDelegate) ClassifyRequest(req *http.Request) interceptor.RequestType {
	if req == nil || req.URL == nil {
		return interceptor.RequestDefault
	}
	refresh, login, logout := d.Paths.Match(req.URL.Path)
	switch {
	case refresh:
		return interceptor.RequestRefreshSession
	case login:
		return interceptor.RequestNewSession
	case logout:
		return interceptor.RequestLogout
	default:
		return interceptor.RequestDefault
	}
}

func (d *PathDelegate) ClassifyResponseData(data any) interceptor.ResponseDataType {
	if d.NewUser != nil && d.NewUser(data) {
		return interceptor.ResponseDataNewUser
	}
	return interceptor.ResponseDataDefault
}

// Refresh returns a copy of req without its Authorization header; the
// Authenticator stamps the current token when the copy is dispatched.
func (d *PathDelegate) Refresh(req *http.Request) *http.Request {
	out := req.Clone(req.Context())
	out.Header.Del("Authorization")
	return out
}

func (d *PathDelegate) ExpiryEpisodeStarted() {
	if d.Cache != nil {
		d.Cache.Invalidate()
	}
	if d.OnExpired != nil {
		d.OnExpired()
	}
}
