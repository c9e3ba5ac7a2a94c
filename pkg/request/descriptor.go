package request

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Descriptor describes one outgoing request.
type Descriptor struct {
	Method  string
	URL     *url.URL
	Header  Header
	Body    []byte
	Timeout time.Duration
}

// Clone returns a deep copy.
func (d *Descriptor) Clone() *Descriptor {
	c := *d
	if d.URL != nil {
		u := *d.URL
		c.URL = &u
	}
	c.Header = d.Header.clone()
	if d.Body != nil {
		c.Body = append([]byte(nil), d.Body...)
	}
	return &c
}

// HTTPRequest builds the net/http request. The timeout travels in the context
// as a value and is applied per attempt by the engine.
func (d *Descriptor) HTTPRequest(ctx context.Context) (*http.Request, error) {
	if d.URL == nil {
		return nil, fmt.Errorf("request: missing URL")
	}
	var body *bytes.Reader
	if d.Body != nil {
		body = bytes.NewReader(d.Body)
	}
	if d.Timeout > 0 {
		ctx = WithTimeout(ctx, d.Timeout)
	}

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, d.Method, d.URL.String(), body)
	} else {
		req, err = http.NewRequestWithContext(ctx, d.Method, d.URL.String(), nil)
	}
	if err != nil {
		return nil, err
	}
	req.Header = d.Header.HTTP()
	return req, nil
}

type timeoutKey struct{}

// WithTimeout attaches a per-attempt timeout to ctx.
func WithTimeout(ctx context.Context, d time.Duration) context.Context {
	return context.WithValue(ctx, timeoutKey{}, d)
}

// TimeoutFrom returns the per-attempt timeout carried by ctx, if any.
func TimeoutFrom(ctx context.Context) (time.Duration, bool) {
	d, ok := ctx.Value(timeoutKey{}).(time.Duration)
	return d, ok && d > 0
}
