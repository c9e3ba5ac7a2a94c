package request

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"sort"

	"github.com/go-viper/mapstructure/v2"
)

// BodyEncoder turns a value into a request body.
type BodyEncoder interface {
	ContentType() string
	Encode(v any) ([]byte, error)
}

// QueryEncoder turns a value into query parameters.
type QueryEncoder interface {
	EncodeQuery(v any) (url.Values, error)
}

// JSONEncoder is the default BodyEncoder.
type JSONEncoder struct{}

func (JSONEncoder) ContentType() string { return "application/json" }

func (JSONEncoder) Encode(v any) ([]byte, error) { return json.Marshal(v) }

// FormQueryEncoder flattens url.Values, string maps and structs tagged with
// `url:"name"` into query parameters. Slices expand to repeated keys and nil
// values are skipped.
type FormQueryEncoder struct {
	TagName string
}

func (e FormQueryEncoder) EncodeQuery(v any) (url.Values, error) {
	switch t := v.(type) {
	case nil:
		return url.Values{}, nil
	case url.Values:
		return t, nil
	case map[string]string:
		out := url.Values{}
		for k, val := range t {
			out.Set(k, val)
		}
		return out, nil
	}

	tag := e.TagName
	if tag == "" {
		tag = "url"
	}
	flat := map[string]any{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: tag,
		Result:  &flat,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(v); err != nil {
		return nil, fmt.Errorf("request: encode query parameters: %w", err)
	}

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := url.Values{}
	for _, k := range keys {
		addQueryValue(out, k, flat[k])
	}
	return out, nil
}

func addQueryValue(out url.Values, key string, v any) {
	if v == nil {
		return
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return
		}
		addQueryValue(out, key, rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			addQueryValue(out, key, rv.Index(i).Interface())
		}
	default:
		out.Add(key, fmt.Sprint(v))
	}
}
