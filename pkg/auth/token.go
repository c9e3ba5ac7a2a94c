package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiresAt reads the exp claim of a JWT access token. The signature is not
// checked; the server remains the authority on validity.
func ExpiresAt(token string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("auth: parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}

// TokenCache keeps the current credentials in memory in front of a Store.
type TokenCache struct {
	mu        sync.RWMutex
	store     Store
	creds     Credentials
	loaded    bool
	empty     bool // the last load found nothing in the store
	expiresAt time.Time
	// refreshBuffer is the time before expiration a token stops counting as valid
	refreshBuffer time.Duration
}

// NewTokenCache creates a cache backed by store.
func NewTokenCache(store Store, refreshBuffer time.Duration) *TokenCache {
	if store == nil {
		store = NewMemoryStore()
	}
	if refreshBuffer <= 0 {
		refreshBuffer = 30 * time.Second // default: treat tokens as stale 30s before expiration
	}
	return &TokenCache{store: store, refreshBuffer: refreshBuffer}
}

// Credentials returns the cached credentials, loading them from the store
// on first use or after Invalidate. An empty store is remembered too, so a
// signed-out client keeps getting ErrNoCredentials without reloading.
func (tc *TokenCache) Credentials(ctx context.Context) (Credentials, error) {
	tc.mu.RLock()
	if tc.loaded {
		c, empty := tc.creds, tc.empty
		tc.mu.RUnlock()
		if empty {
			return Credentials{}, ErrNoCredentials
		}
		return c, nil
	}
	tc.mu.RUnlock()

	tc.mu.Lock()
	defer tc.mu.Unlock()
	// Double-check: another goroutine might have loaded it
	if tc.loaded {
		if tc.empty {
			return Credentials{}, ErrNoCredentials
		}
		return tc.creds, nil
	}
	c, err := tc.store.Load(ctx)
	if errors.Is(err, ErrNoCredentials) {
		tc.resetLocked()
		tc.loaded, tc.empty = true, true
		return Credentials{}, err
	}
	if err != nil {
		return Credentials{}, err
	}
	tc.setLocked(c)
	return c, nil
}

// AccessToken returns the current access token, or "" when signed out.
func (tc *TokenCache) AccessToken(ctx context.Context) (string, error) {
	c, err := tc.Credentials(ctx)
	if errors.Is(err, ErrNoCredentials) {
		return "", nil
	}
	return c.AccessToken, err
}

// Update saves c to the store and makes it current.
func (tc *TokenCache) Update(ctx context.Context, c Credentials) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if err := tc.store.Save(ctx, c); err != nil {
		return err
	}
	tc.setLocked(c)
	return nil
}

// Clear signs out: the store entry and the cached copy are removed.
func (tc *TokenCache) Clear(ctx context.Context) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.resetLocked()
	return tc.store.Clear(ctx)
}

// Invalidate drops the cached copy, forcing a reload from the store on next use.
func (tc *TokenCache) Invalidate() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.resetLocked()
}

// IsValid reports whether the cached access token exists and is not about
// to expire. Tokens without an exp claim are valid until the server says otherwise.
func (tc *TokenCache) IsValid() bool {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	if !tc.loaded || tc.creds.AccessToken == "" {
		return false
	}
	if tc.expiresAt.IsZero() {
		return true
	}
	return time.Now().Before(tc.expiresAt.Add(-tc.refreshBuffer))
}

func (tc *TokenCache) resetLocked() {
	tc.creds = Credentials{}
	tc.expiresAt = time.Time{}
	tc.loaded = false
	tc.empty = false
}

func (tc *TokenCache) setLocked(c Credentials) {
	tc.creds = c
	tc.loaded = true
	tc.empty = false
	tc.expiresAt = time.Time{}
	if exp, err := ExpiresAt(c.AccessToken); err == nil {
		tc.expiresAt = exp
	}
}
