package apiclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/milan604/netlayer/pkg/apperr"
	"github.com/milan604/netlayer/pkg/envelope"
	nethttp "github.com/milan604/netlayer/pkg/http"
	"github.com/milan604/netlayer/pkg/request"
)

type user struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type finishCall struct {
	path   string
	data   any
	status int
}

type recordingFinisher struct {
	mu    sync.Mutex
	calls []finishCall
}

func (f *recordingFinisher) Finish(req *http.Request, data any, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, finishCall{path: req.URL.Path, data: data, status: status})
}

func (f *recordingFinisher) snapshot() []finishCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]finishCall(nil), f.calls...)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *recordingFinisher) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	f := &recordingFinisher{}
	builder := request.NewBuilder(request.StaticConfiguration{Host: srv.URL})
	return New(builder, nethttp.NewSession(), append([]Option{WithFinisher(f)}, opts...)...), f
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func TestPerformSuccessShapes(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		want       user
		wantFinish any
	}{
		{"data", `{"data":{"id":"u1","name":"Ada"}}`, user{ID: "u1", Name: "Ada"}, user{ID: "u1", Name: "Ada"}},
		{"empty envelope", `{}`, user{}, nil},
		{"empty body", ``, user{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, f := newTestClient(t, respond(http.StatusOK, tt.body))
			got, err := Get[user, apperr.AppError](context.Background(), c, "/users/me", nil)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("payload mismatch (-want +got):\n%s", diff)
			}
			want := []finishCall{{path: "/users/me", data: tt.wantFinish, status: http.StatusOK}}
			if diff := cmp.Diff(want, f.snapshot(), cmp.AllowUnexported(finishCall{})); diff != "" {
				t.Errorf("finish calls mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPerformEmptyPayloadType(t *testing.T) {
	c, _ := newTestClient(t, respond(http.StatusNoContent, ``))
	if _, err := Delete[envelope.Empty, apperr.AppError](context.Background(), c, "/users/u1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestPerformServerErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"error on success status", http.StatusOK, `{"error":{"code":"validation_failed","message":"name is required"}}`},
		{"error and data", http.StatusOK, `{"data":{"id":"u1"},"error":{"code":"validation_failed","message":"name is required"}}`},
		{"error on failure status", http.StatusUnprocessableEntity, `{"error":{"code":"validation_failed","message":"name is required"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, f := newTestClient(t, respond(tt.status, tt.body))
			_, err := Post[user, apperr.AppError](context.Background(), c, "/users", user{Name: ""})

			e, ok := AsError[apperr.AppError](err)
			if !ok {
				t.Fatalf("error %v is not an *Error", err)
			}
			if e.Kind != KindServer || e.StatusCode != tt.status {
				t.Fatalf("Kind=%v StatusCode=%d, want server/%d", e.Kind, e.StatusCode, tt.status)
			}
			if e.Server.Code != "validation_failed" {
				t.Errorf("server code = %q", e.Server.Code)
			}
			if e.UserMessage() != "name is required" {
				t.Errorf("UserMessage() = %q", e.UserMessage())
			}
			if !errors.Is(err, apperr.New(apperr.ErrorCodeValidationFail)) {
				t.Error("errors.Is does not reach the structured error")
			}

			calls := f.snapshot()
			if len(calls) != 1 || calls[0].status != tt.status {
				t.Fatalf("finish calls = %+v", calls)
			}
			if ae, ok := calls[0].data.(apperr.AppError); !ok || ae.Code != "validation_failed" {
				t.Errorf("finish data = %#v, want the structured error", calls[0].data)
			}
		})
	}
}

func TestPerformTransportErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus bool
	}{
		{"failure status without structured error", http.StatusBadGateway, `<html>bad gateway</html>`, true},
		{"failure status with data only", http.StatusServiceUnavailable, `{"data":{"id":"u1"}}`, true},
		{"undecodable success", http.StatusOK, `{"data":`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, f := newTestClient(t, respond(tt.status, tt.body))
			_, err := Get[user, apperr.AppError](context.Background(), c, "/users/me", nil)

			e, ok := AsError[apperr.AppError](err)
			if !ok || e.Kind != KindTransport {
				t.Fatalf("error = %v, want transport", err)
			}
			if tt.wantStatus && !nethttp.IsStatus(err, tt.status) {
				t.Errorf("validation error not wrapped: %v", err)
			}
			calls := f.snapshot()
			if len(calls) != 1 || calls[0].status != tt.status || calls[0].data != nil {
				t.Errorf("finish calls = %+v", calls)
			}
		})
	}
}

func TestPerformConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	host := srv.URL
	srv.Close()

	f := &recordingFinisher{}
	c := New(request.NewBuilder(request.StaticConfiguration{Host: host}), nethttp.NewSession(), WithFinisher(f))
	_, err := Get[user, apperr.AppError](context.Background(), c, "/users/me", nil)
	if e, ok := AsError[apperr.AppError](err); !ok || e.Kind != KindTransport || e.StatusCode != 0 {
		t.Fatalf("error = %v, want transport without status", err)
	}
	if calls := f.snapshot(); len(calls) != 1 || calls[0].status != 0 || calls[0].data != nil {
		t.Errorf("finish calls = %+v", calls)
	}
}

func TestPerformBadRequestIsNotDispatched(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits.Add(1) }))
	defer srv.Close()

	tests := []struct {
		name    string
		host    string
		factory func(*request.Builder) *request.Holder
	}{
		{"unparsable host", "http://[::1", func(b *request.Builder) *request.Holder { return b.Make(http.MethodGet, "/users") }},
		{"relative host", "api.test", func(b *request.Builder) *request.Holder { return b.Make(http.MethodGet, "/users") }},
		{"unencodable body", srv.URL, func(b *request.Builder) *request.Holder {
			return b.Make(http.MethodPost, "/users").SetBody(map[string]any{"ch": make(chan int)})
		}},
		{"nil holder", srv.URL, func(*request.Builder) *request.Holder { return nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &recordingFinisher{}
			c := New(request.NewBuilder(request.StaticConfiguration{Host: tt.host}), nethttp.NewSession(), WithFinisher(f))
			_, err := Perform[user, apperr.AppError](context.Background(), c, tt.factory)
			if !errors.Is(err, ErrBadRequest) {
				t.Fatalf("error = %v, want ErrBadRequest", err)
			}
			if e, _ := AsError[apperr.AppError](err); e.Kind != KindInternal || e.Reason != ReasonBadRequest {
				t.Errorf("Kind=%v Reason=%v", e.Kind, e.Reason)
			}
			if len(f.snapshot()) != 0 {
				t.Error("finish called for a request that was never built")
			}
		})
	}
	if hits.Load() != 0 {
		t.Errorf("server received %d requests", hits.Load())
	}
}

type doerFunc func(context.Context, *http.Request) (*nethttp.Response, error)

func (f doerFunc) Do(ctx context.Context, req *http.Request) (*nethttp.Response, error) {
	return f(ctx, req)
}

func TestPerformResponseMissing(t *testing.T) {
	for _, resp := range []*nethttp.Response{nil, {StatusCode: 0, Body: []byte(`{"data":{}}`)}} {
		f := &recordingFinisher{}
		doer := doerFunc(func(context.Context, *http.Request) (*nethttp.Response, error) { return resp, nil })
		c := New(request.NewBuilder(request.StaticConfiguration{Host: "http://api.test"}), doer, WithFinisher(f))

		_, err := Get[user, apperr.AppError](context.Background(), c, "/users/me", nil)
		if !errors.Is(err, ErrResponseMissing) {
			t.Fatalf("error = %v, want ErrResponseMissing", err)
		}
		if calls := f.snapshot(); len(calls) != 1 || calls[0].status != 0 {
			t.Errorf("finish calls = %+v", calls)
		}
	}
}

func TestPerformUpload(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
		}
		file, header, err := r.FormFile("avatar")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "me.png" || string(data) != "PNG" || r.FormValue("caption") != "hi" {
			t.Errorf("upload = %s %q caption %q", header.Filename, data, r.FormValue("caption"))
		}
		respond(http.StatusOK, `{"data":{"id":"u1"}}`)(w, r)
	})

	got, err := PerformUpload[user, apperr.AppError](context.Background(), c, func(b *request.Builder) (*request.Holder, *request.MultipartForm) {
		form := request.NewMultipartForm().
			AddField("caption", "hi").
			AddFile("avatar", "me.png", "image/png", []byte("PNG"))
		return b.Make(http.MethodPost, "/users/me/avatar"), form
	})
	if err != nil {
		t.Fatalf("PerformUpload() error = %v", err)
	}
	if got.ID != "u1" {
		t.Errorf("payload = %+v", got)
	}

	_, err = PerformUpload[user, apperr.AppError](context.Background(), c, func(b *request.Builder) (*request.Holder, *request.MultipartForm) {
		return b.Make(http.MethodPost, "/users/me/avatar"), nil
	})
	if !errors.Is(err, ErrBadRequest) {
		t.Errorf("missing form error = %v, want ErrBadRequest", err)
	}
}
