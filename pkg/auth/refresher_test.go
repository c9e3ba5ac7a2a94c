package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/milan604/netlayer/pkg/apiclient"
	"github.com/milan604/netlayer/pkg/apperr"
	nethttp "github.com/milan604/netlayer/pkg/http"
	"github.com/milan604/netlayer/pkg/request"
)

func newRefresherStack(t *testing.T, handler http.HandlerFunc) (*TokenCache, *apiclient.Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cache := NewTokenCache(NewMemoryStore(), 0)
	a := NewAuthenticator(cache, testPaths, nil)
	session := nethttp.NewSession(nethttp.WithRequestHook(a.Adapt), nethttp.WithResponseHook(a.Capture))
	return cache, apiclient.New(request.NewBuilder(request.StaticConfiguration{Host: srv.URL}), session)
}

func TestRefresherStoresNewCredentials(t *testing.T) {
	cache, client := newRefresherStack(t, func(w http.ResponseWriter, r *http.Request) {
		var body refreshRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.RefreshToken != "r1" || r.Header.Get("Authorization") != "Bearer a1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		io.WriteString(w, `{"data":{"access_token":"a2","refresh_token":"r2"}}`)
	})
	ctx := context.Background()
	_ = cache.Update(ctx, Credentials{AccessToken: "a1", RefreshToken: "r1"})

	var failures int
	r := NewRefresher(client, cache, testPaths.Refresh, nil, func(error) { failures++ })
	if err := r.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	got, _ := cache.Credentials(ctx)
	if got.AccessToken != "a2" || got.RefreshToken != "r2" {
		t.Errorf("credentials = %+v", got)
	}
	if failures != 0 {
		t.Errorf("failure callback ran %d times", failures)
	}
}

func TestRefresherReportsFailures(t *testing.T) {
	cache, client := newRefresherStack(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"code":"token_expired"}}`)
	})
	ctx := context.Background()

	var reported []error
	r := NewRefresher(client, cache, testPaths.Refresh, nil, func(err error) { reported = append(reported, err) })

	if err := r.Refresh(ctx); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("Refresh() without credentials error = %v", err)
	}

	_ = cache.Update(ctx, Credentials{AccessToken: "a1", RefreshToken: "r1"})
	err := r.Refresh(ctx)
	e, ok := apiclient.AsError[apperr.AppError](err)
	if !ok || e.Kind != apiclient.KindServer || e.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Refresh() error = %v, want server 401", err)
	}
	if len(reported) != 2 {
		t.Errorf("failure callback ran %d times, want 2", len(reported))
	}
	if got, _ := cache.Credentials(ctx); got.AccessToken != "a1" {
		t.Errorf("credentials changed after failed refresh: %+v", got)
	}
}

func TestRefreshIfExpiring(t *testing.T) {
	ctx := context.Background()
	fresh := signedToken(t, time.Now().Add(time.Hour))
	expiring := signedToken(t, time.Now().Add(5*time.Second))

	tests := []struct {
		name        string
		creds       *Credentials
		wantRefresh bool
	}{
		{"signed out", nil, false},
		{"fresh token", &Credentials{AccessToken: fresh, RefreshToken: "r1"}, false},
		{"expiring token", &Credentials{AccessToken: expiring, RefreshToken: "r1"}, true},
		{"expiring without refresh token", &Credentials{AccessToken: expiring}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			cache, client := newRefresherStack(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				io.WriteString(w, `{"data":{"access_token":"`+fresh+`","refresh_token":"r2"}}`)
			})
			if tt.creds != nil {
				_ = cache.Update(ctx, *tt.creds)
			}

			r := NewRefresher(client, cache, testPaths.Refresh, nil, nil)
			refreshed, err := r.RefreshIfExpiring(ctx)
			if err != nil {
				t.Fatalf("RefreshIfExpiring() error = %v", err)
			}
			if refreshed != tt.wantRefresh {
				t.Errorf("refreshed = %v, want %v", refreshed, tt.wantRefresh)
			}
			wantCalls := int32(0)
			if tt.wantRefresh {
				wantCalls = 1
			}
			if got := calls.Load(); got != wantCalls {
				t.Errorf("server calls = %d, want %d", got, wantCalls)
			}
			if tt.wantRefresh && !cache.IsValid() {
				t.Error("cache still invalid after refresh")
			}
		})
	}
}
