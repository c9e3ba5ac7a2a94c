package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/milan604/netlayer/pkg/envelope"
	nethttp "github.com/milan604/netlayer/pkg/http"
	"github.com/milan604/netlayer/pkg/logger"
)

// Paths names the session endpoints, relative to the server host.
type Paths struct {
	Refresh string
	Login   string
	Logout  string
}

// Match reports which session endpoint reqPath addresses, if any.
func (p Paths) Match(reqPath string) (refresh, login, logout bool) {
	return matchPath(reqPath, p.Refresh), matchPath(reqPath, p.Login), matchPath(reqPath, p.Logout)
}

func matchPath(reqPath, endpoint string) bool {
	endpoint = strings.Trim(endpoint, "/")
	if endpoint == "" {
		return false
	}
	reqPath = strings.TrimRight(reqPath, "/")
	return reqPath == "/"+endpoint || strings.HasSuffix(reqPath, "/"+endpoint)
}

// Authenticator stamps the access token on outgoing requests and records
// credentials returned by the login and refresh endpoints.
type Authenticator struct {
	cache  *TokenCache
	paths  Paths
	logger logger.LogManager
}

func NewAuthenticator(cache *TokenCache, paths Paths, log logger.LogManager) *Authenticator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Authenticator{cache: cache, paths: paths, logger: log}
}

// Adapt sets "Authorization: Bearer <token>" unless the request already
// carries an Authorization header. It runs before every attempt, so a request
// retried after a refresh goes out with the new token.
func (a *Authenticator) Adapt(r *http.Request) error {
	if r.Header.Get("Authorization") != "" {
		return nil
	}
	token, err := a.cache.AccessToken(r.Context())
	if err != nil {
		return err
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

// Capture runs on every response. Successful login and refresh responses
// carry new credentials in their envelope; a successful logout signs out.
// Storing happens here, before the response reaches the API client, so the
// credentials are current when the interceptor releases parked requests.
func (a *Authenticator) Capture(resp *nethttp.Response) error {
	if resp == nil || resp.Request == nil || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}
	ctx := resp.Request.Context()
	refresh, login, logout := a.paths.Match(resp.Request.URL.Path)

	switch {
	case logout:
		if err := a.cache.Clear(ctx); err != nil {
			a.logger.WarnFCtx(ctx, "failed to clear credentials after logout: %v", err)
		}
	case refresh || login:
		env, err := envelope.Decode[Credentials, json.RawMessage](envelope.JSONDecoder{}, resp.Body)
		if err != nil || env.Data == nil || env.Data.AccessToken == "" {
			a.logger.WarnFCtx(ctx, "session response from %s carried no credentials", resp.Request.URL.Path)
			return nil
		}
		creds := *env.Data
		if creds.RefreshToken == "" {
			if prev, err := a.cache.Credentials(ctx); err == nil {
				creds.RefreshToken = prev.RefreshToken
			}
		}
		if err := a.cache.Update(ctx, creds); err != nil {
			a.logger.ErrorFCtx(ctx, "failed to store refreshed credentials: %v", err)
			return nil
		}
		a.logger.DebugFCtx(ctx, "stored credentials from %s", resp.Request.URL.Path)
	}
	return nil
}
