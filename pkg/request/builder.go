// Package request builds outgoing API requests. Construction errors are
// recorded on the Holder and reported only when the request is dispatched.
package request

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/milan604/netlayer/pkg/mock"
)

// ErrNoRequest is reported for a nil Holder.
var ErrNoRequest = errors.New("request: no request")

// Configuration supplies the server the builder targets.
type Configuration interface {
	ServerHost() string
	DebugMode() bool
}

// StaticConfiguration is a fixed Configuration.
type StaticConfiguration struct {
	Host  string
	Debug bool
}

func (c StaticConfiguration) ServerHost() string { return c.Host }
func (c StaticConfiguration) DebugMode() bool    { return c.Debug }

// Builder creates request holders against one server.
type Builder struct {
	config       Configuration
	bodyEncoder  BodyEncoder
	queryEncoder QueryEncoder
}

type BuilderOption func(*Builder)

func WithBodyEncoder(e BodyEncoder) BuilderOption {
	return func(b *Builder) { b.bodyEncoder = e }
}

func WithQueryEncoder(e QueryEncoder) BuilderOption {
	return func(b *Builder) { b.queryEncoder = e }
}

func NewBuilder(config Configuration, opts ...BuilderOption) *Builder {
	b := &Builder{
		config:       config,
		bodyEncoder:  JSONEncoder{},
		queryEncoder: FormQueryEncoder{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Make starts a request for path relative to the configured server host.
func (b *Builder) Make(method, path string) *Holder {
	h := &Holder{
		bodyEncoder:  b.bodyEncoder,
		queryEncoder: b.queryEncoder,
		debug:        b.config != nil && b.config.DebugMode(),
	}
	if b.config == nil {
		h.err = errors.New("request: builder has no configuration")
		return h
	}
	if method == "" {
		h.err = errors.New("request: empty method")
		return h
	}

	base, err := url.Parse(b.config.ServerHost())
	if err != nil {
		h.err = fmt.Errorf("request: invalid server host: %w", err)
		return h
	}
	if base.Scheme == "" || base.Host == "" {
		h.err = fmt.Errorf("request: server host %q is not absolute", b.config.ServerHost())
		return h
	}

	h.desc = &Descriptor{Method: method, URL: base.JoinPath(path)}
	return h
}

// Holder is a mutable request under construction. Every mutator returns the
// same holder and does nothing once construction has failed.
type Holder struct {
	desc         *Descriptor
	err          error
	bodyEncoder  BodyEncoder
	queryEncoder QueryEncoder
	debug        bool
}

func (h *Holder) ok() bool { return h != nil && h.err == nil && h.desc != nil }

func (h *Holder) fail(err error) {
	h.err = err
}

// AddQueryParameters merges v into the URL query. See FormQueryEncoder.
func (h *Holder) AddQueryParameters(v any) *Holder {
	return h.AddQueryParametersWith(v, nil)
}

// AddQueryParametersWith is AddQueryParameters with a one-off encoder.
func (h *Holder) AddQueryParametersWith(v any, enc QueryEncoder) *Holder {
	if !h.ok() {
		return h
	}
	if enc == nil {
		enc = h.queryEncoder
	}
	values, err := enc.EncodeQuery(v)
	if err != nil {
		h.fail(err)
		return h
	}
	q := h.desc.URL.Query()
	for k, vs := range values {
		for _, val := range vs {
			q.Add(k, val)
		}
	}
	h.desc.URL.RawQuery = q.Encode()
	return h
}

// SetBody encodes v as the request body.
func (h *Holder) SetBody(v any) *Holder {
	return h.SetBodyWith(v, nil)
}

// SetBodyWith is SetBody with a one-off encoder.
func (h *Holder) SetBodyWith(v any, enc BodyEncoder) *Holder {
	if !h.ok() {
		return h
	}
	if enc == nil {
		enc = h.bodyEncoder
	}
	body, err := enc.Encode(v)
	if err != nil {
		h.fail(fmt.Errorf("request: encode body: %w", err))
		return h
	}
	h.desc.Body = body
	if h.desc.Header.Get("Content-Type") == "" {
		h.desc.Header.Add("Content-Type", enc.ContentType())
	}
	return h
}

// AddHeader appends a header line; earlier lines with the same name are kept.
func (h *Holder) AddHeader(name, value string) *Holder {
	if !h.ok() {
		return h
	}
	h.desc.Header.Add(name, value)
	return h
}

// SetTimeout bounds each dispatch attempt of this request.
func (h *Holder) SetTimeout(d time.Duration) *Holder {
	if !h.ok() {
		return h
	}
	h.desc.Timeout = d
	return h
}

// Mock tags the request with the fixture chosen by config. It only applies in
// debug mode; otherwise, or with a nil config, the holder is unchanged.
func (h *Holder) Mock(config func(*Descriptor) mock.RequestMock) *Holder {
	if !h.ok() || config == nil || !h.debug {
		return h
	}
	m := config(h.desc.Clone())
	for _, kv := range m.Headers() {
		h.desc.Header.Set(kv[0], kv[1])
	}
	return h
}

// MockDefault tags the request with the 200 fixture derived from its method and path.
func (h *Holder) MockDefault() *Holder {
	return h.Mock(func(d *Descriptor) mock.RequestMock {
		return mock.Default(d.URL.Path, http.StatusOK, d.Method)
	})
}

// SetMultipart replaces the body with the encoded form.
func (h *Holder) SetMultipart(form *MultipartForm) *Holder {
	if !h.ok() {
		return h
	}
	if form == nil {
		h.fail(errors.New("request: missing upload form"))
		return h
	}
	body, contentType, err := form.Encode()
	if err != nil {
		h.fail(fmt.Errorf("request: encode multipart form: %w", err))
		return h
	}
	h.desc.Body = body
	h.desc.Header.Set("Content-Type", contentType)
	return h
}

// Err returns the construction error, if any.
func (h *Holder) Err() error {
	if h == nil {
		return ErrNoRequest
	}
	return h.err
}

// Descriptor returns a snapshot of the request.
func (h *Holder) Descriptor() (*Descriptor, error) {
	if err := h.Err(); err != nil {
		return nil, err
	}
	return h.desc.Clone(), nil
}

// Request builds the net/http request.
func (h *Holder) Request(ctx context.Context) (*http.Request, error) {
	d, err := h.Descriptor()
	if err != nil {
		return nil, err
	}
	return d.HTTPRequest(ctx)
}
