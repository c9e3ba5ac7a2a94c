// Package mock serves canned JSON responses for requests tagged with mock
// headers, either in-process through a RoundTripper or over a gin server.
package mock

import (
	"net/http"
	"strconv"
	"strings"
)

const (
	HeaderFileName   = "X-Mock-File-Name"
	HeaderStatusCode = "X-Mock-Status-Code"
)

// RequestMock selects which fixture answers a request.
type RequestMock struct {
	fileName   string
	statusCode int
}

// Default derives the fixture name from the status, method and path:
// "200_get_users_me" for GET /users/me. A zero status means 200.
func Default(path string, statusCode int, method string) RequestMock {
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	parts := []string{strconv.Itoa(statusCode), strings.ToLower(method)}
	if p := strings.Trim(strings.ReplaceAll(path, "/", "_"), "_"); p != "" {
		parts = append(parts, p)
	}
	return RequestMock{fileName: strings.Join(parts, "_"), statusCode: statusCode}
}

// Custom names the fixture explicitly.
func Custom(fileName string, statusCode int) RequestMock {
	return RequestMock{fileName: fileName, statusCode: statusCode}
}

func (m RequestMock) FileName() string { return m.fileName }
func (m RequestMock) StatusCode() int  { return m.statusCode }

// Headers returns the header pairs that tag a request with this mock.
func (m RequestMock) Headers() [][2]string {
	return [][2]string{
		{HeaderFileName, m.fileName},
		{HeaderStatusCode, strconv.Itoa(m.statusCode)},
	}
}

// FromRequest reads the mock tag back from a request.
func FromRequest(r *http.Request) (RequestMock, bool) {
	name := r.Header.Get(HeaderFileName)
	if name == "" {
		return RequestMock{}, false
	}
	status, err := strconv.Atoi(r.Header.Get(HeaderStatusCode))
	if err != nil {
		status = http.StatusOK
	}
	return RequestMock{fileName: name, statusCode: status}, true
}
