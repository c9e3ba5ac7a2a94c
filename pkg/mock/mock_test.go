package mock

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/milan604/netlayer/pkg/logger"
)

var fixtures = fstest.MapFS{
	"200_get_users_me.json": {Data: []byte(`{"data":{"id":1}}`)},
	"expired.json":          {Data: []byte(`{"error":{"code":"token_expired"}}`)},
}

func TestDefaultFileName(t *testing.T) {
	tests := []struct {
		path, method string
		status       int
		want         string
	}{
		{"/users/me", "GET", 200, "200_get_users_me"},
		{"users/me/", "POST", 0, "200_post_users_me"},
		{"", "DELETE", 404, "404_delete"},
	}
	for _, tt := range tests {
		if got := Default(tt.path, tt.status, tt.method).FileName(); got != tt.want {
			t.Errorf("Default(%q, %d, %q) = %q, want %q", tt.path, tt.status, tt.method, got, tt.want)
		}
	}
}

func tagged(t *testing.T, m RequestMock) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "http://api.test/users/me", nil)
	for _, h := range m.Headers() {
		req.Header.Add(h[0], h[1])
	}
	return req
}

func TestTransportServesFixture(t *testing.T) {
	tr := NewTransport(fixtures)
	resp, err := tr.RoundTrip(tagged(t, Custom("expired", http.StatusUnauthorized)))
	if err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"error":{"code":"token_expired"}}` {
		t.Errorf("body = %s", body)
	}
}

type recordingTripper struct{ called bool }

func (r *recordingTripper) RoundTrip(*http.Request) (*http.Response, error) {
	r.called = true
	return &http.Response{StatusCode: http.StatusTeapot, Body: http.NoBody}, nil
}

func TestTransportFallsThroughWithoutFixture(t *testing.T) {
	next := &recordingTripper{}
	tr := &Transport{FS: fixtures, Next: next}

	resp, err := tr.RoundTrip(tagged(t, Custom("missing", 200)))
	if err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	if !next.called || resp.StatusCode != http.StatusTeapot {
		t.Error("untagged fixture should fall through to Next")
	}
}

func TestTransportDelayHonoursContext(t *testing.T) {
	tr := &Transport{FS: fixtures, Delay: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := tagged(t, Default("/users/me", 200, "get")).WithContext(ctx)
	if _, err := tr.RoundTrip(req); err == nil {
		t.Fatal("expected context error")
	}
}

func TestServerServesFixtures(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := httptest.NewServer(NewServer(fixtures))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/users/me", nil)
	for _, h := range Default("/users/me", 200, "get").Headers() {
		req.Header.Add(h[0], h[1])
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	plain, err := http.Get(srv.URL + "/users/me")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	plain.Body.Close()
	if plain.StatusCode != http.StatusNotFound {
		t.Errorf("untagged status = %d, want 404", plain.StatusCode)
	}
}

func TestServerLogsAndEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	srv := httptest.NewServer(NewServer(fixtures, WithServerLogger(logger.FromZap(zap.New(core)))))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/users/me", nil)
	req.Header.Set("X-Request-ID", "rid-1")
	for _, h := range Default("/users/me", 200, "get").Headers() {
		req.Header.Add(h[0], h[1])
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "rid-1" {
		t.Errorf("X-Request-ID = %q", got)
	}

	entries := logs.FilterMessage("mock request").All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["fixture"] != "200_get_users_me" || fields["request_id"] != "rid-1" {
		t.Errorf("log fields = %v", fields)
	}
}
