package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/milan604/netlayer/pkg/apiclient"
	"github.com/milan604/netlayer/pkg/apperr"
	"github.com/milan604/netlayer/pkg/logger"
)

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresher exchanges the stored refresh token for new credentials.
type Refresher struct {
	client *apiclient.Client
	cache  *TokenCache
	path   string
	logger logger.LogManager
	// onFailure runs when no new credentials could be obtained, e.g. to
	// abandon parked requests and send the user to login.
	onFailure func(error)
}

func NewRefresher(client *apiclient.Client, cache *TokenCache, path string, log logger.LogManager, onFailure func(error)) *Refresher {
	if log == nil {
		log = logger.NewNop()
	}
	return &Refresher{client: client, cache: cache, path: path, logger: log, onFailure: onFailure}
}

// Refresh calls the refresh endpoint. On success the Authenticator has
// already stored the new credentials by the time Refresh returns.
func (r *Refresher) Refresh(ctx context.Context) error {
	creds, err := r.cache.Credentials(ctx)
	if err == nil && creds.RefreshToken == "" {
		err = ErrNoCredentials
	}
	if err != nil {
		return r.fail(fmt.Errorf("auth: cannot refresh: %w", err))
	}

	_, err = apiclient.Post[Credentials, apperr.AppError](ctx, r.client, r.path, refreshRequest{RefreshToken: creds.RefreshToken})
	if err != nil {
		return r.fail(fmt.Errorf("auth: refresh failed: %w", err))
	}
	r.logger.InfoFCtx(ctx, "session refreshed")
	return nil
}

// RefreshIfExpiring refreshes before the server rejects the access token,
// i.e. when the cached token is inside its refresh buffer or already
// expired. It reports whether a refresh was attempted. A signed-out client,
// or one without a refresh token, is left alone.
func (r *Refresher) RefreshIfExpiring(ctx context.Context) (bool, error) {
	creds, err := r.cache.Credentials(ctx)
	if errors.Is(err, ErrNoCredentials) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if creds.RefreshToken == "" || r.cache.IsValid() {
		return false, nil
	}
	r.logger.DebugFCtx(ctx, "access token expiring, refreshing ahead of use")
	return true, r.Refresh(ctx)
}

func (r *Refresher) fail(err error) error {
	r.logger.WarnF("%v", err)
	if r.onFailure != nil {
		r.onFailure(err)
	}
	return err
}
