package mock

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"time"
)

// Transport answers mock-tagged requests from fixtures in FS and hands every
// other request to Next.
type Transport struct {
	FS    fs.FS
	Next  http.RoundTripper
	Delay time.Duration
}

// NewTransport builds a Transport over fsys that falls through to http.DefaultTransport.
func NewTransport(fsys fs.FS) *Transport {
	return &Transport{FS: fsys, Next: http.DefaultTransport}
}

func fixturePath(name string) string { return name + ".json" }

// CanServe reports whether the request is tagged and its fixture exists.
func (t *Transport) CanServe(r *http.Request) bool {
	m, ok := FromRequest(r)
	if !ok || t.FS == nil {
		return false
	}
	_, err := fs.Stat(t.FS, fixturePath(m.FileName()))
	return err == nil
}

func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	if !t.CanServe(r) {
		next := t.Next
		if next == nil {
			next = http.DefaultTransport
		}
		return next.RoundTrip(r)
	}

	if t.Delay > 0 {
		timer := time.NewTimer(t.Delay)
		select {
		case <-r.Context().Done():
			timer.Stop()
			return nil, r.Context().Err()
		case <-timer.C:
		}
	}

	m, _ := FromRequest(r)
	status, body := Load(t.FS, m)
	return &http.Response{
		Status:        http.StatusText(status),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{"application/json"}},
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       r,
	}, nil
}

// Load reads the fixture for m. Unreadable fixtures yield a 500 with no body.
func Load(fsys fs.FS, m RequestMock) (int, []byte) {
	data, err := fs.ReadFile(fsys, fixturePath(m.FileName()))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return http.StatusNotFound, nil
		}
		return http.StatusInternalServerError, nil
	}
	return m.StatusCode(), data
}
