package request

import (
	"net/http"
	"net/textproto"
)

// Field is one header line.
type Field struct {
	Name  string
	Value string
}

// Header is an ordered header list. Duplicate names are kept in insertion order.
type Header []Field

// Add appends a header line.
func (h *Header) Add(name, value string) {
	*h = append(*h, Field{Name: textproto.CanonicalMIMEHeaderKey(name), Value: value})
}

// Set removes every line named name and appends one with value.
func (h *Header) Set(name, value string) {
	h.Del(name)
	h.Add(name, value)
}

// Del removes every line named name.
func (h *Header) Del(name string) {
	name = textproto.CanonicalMIMEHeaderKey(name)
	out := (*h)[:0]
	for _, f := range *h {
		if f.Name != name {
			out = append(out, f)
		}
	}
	*h = out
}

// Get returns the first value for name.
func (h Header) Get(name string) string {
	if vs := h.Values(name); len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Values returns all values for name in insertion order.
func (h Header) Values(name string) []string {
	name = textproto.CanonicalMIMEHeaderKey(name)
	var out []string
	for _, f := range h {
		if f.Name == name {
			out = append(out, f.Value)
		}
	}
	return out
}

// HTTP converts to a net/http header, preserving per-name value order.
func (h Header) HTTP() http.Header {
	out := make(http.Header, len(h))
	for _, f := range h {
		out[f.Name] = append(out[f.Name], f.Value)
	}
	return out
}

func (h Header) clone() Header {
	if h == nil {
		return nil
	}
	return append(Header(nil), h...)
}
