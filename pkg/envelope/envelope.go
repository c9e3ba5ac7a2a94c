// Package envelope defines the {data, error} body every API response decodes into.
package envelope

import (
	"bytes"
	"encoding/json"
)

// Envelope holds an optional payload and an optional structured error.
// Both absent means success without a payload; a present Error wins over Data.
type Envelope[D, E any] struct {
	Data  *D `json:"data,omitempty"`
	Error *E `json:"error,omitempty"`
}

// Failed reports whether the envelope carries a structured error.
func (e Envelope[D, E]) Failed() bool { return e.Error != nil }

// Payload returns the data or the zero value when absent.
func (e Envelope[D, E]) Payload() D {
	var zero D
	if e.Data == nil {
		return zero
	}
	return *e.Data
}

// Empty is the payload type of endpoints that return no data.
type Empty struct{}

// Decoder unmarshals response bodies.
type Decoder interface {
	Unmarshal(data []byte, v any) error
}

// JSONDecoder is the default Decoder.
type JSONDecoder struct {
	// DisallowUnknownFields rejects bodies with members the target does not declare.
	DisallowUnknownFields bool
}

func (d JSONDecoder) Unmarshal(data []byte, v any) error {
	if !d.DisallowUnknownFields {
		return json.Unmarshal(data, v)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// Decode reads body into an envelope. Blank bodies decode to the empty envelope.
func Decode[D, E any](dec Decoder, body []byte) (Envelope[D, E], error) {
	var env Envelope[D, E]
	if len(bytes.TrimSpace(body)) == 0 {
		return env, nil
	}
	if dec == nil {
		dec = JSONDecoder{}
	}
	if err := dec.Unmarshal(body, &env); err != nil {
		return Envelope[D, E]{}, err
	}
	return env, nil
}
