package request

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
)

type formPart struct {
	name        string
	fileName    string
	contentType string
	data        []byte
}

// MultipartForm collects the parts of an upload body in insertion order.
type MultipartForm struct {
	parts []formPart
}

func NewMultipartForm() *MultipartForm { return &MultipartForm{} }

// AddField appends a plain form field.
func (f *MultipartForm) AddField(name, value string) *MultipartForm {
	f.parts = append(f.parts, formPart{name: name, data: []byte(value)})
	return f
}

// AddFile appends a file part. An empty contentType means application/octet-stream.
func (f *MultipartForm) AddFile(name, fileName, contentType string, data []byte) *MultipartForm {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	f.parts = append(f.parts, formPart{name: name, fileName: fileName, contentType: contentType, data: data})
	return f
}

// Len returns the number of parts.
func (f *MultipartForm) Len() int { return len(f.parts) }

// Encode renders the body and its Content-Type.
func (f *MultipartForm) Encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range f.parts {
		var (
			pw  interface{ Write([]byte) (int, error) }
			err error
		)
		if p.fileName == "" {
			pw, err = w.CreateFormField(p.name)
		} else {
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.name, p.fileName))
			h.Set("Content-Type", p.contentType)
			pw, err = w.CreatePart(h)
		}
		if err != nil {
			return nil, "", err
		}
		if _, err := pw.Write(p.data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
