package apiclient

import (
	"context"
	"net/http"

	"github.com/milan604/netlayer/pkg/request"
)

// Get performs GET path with optional query parameters.
func Get[D, E any](ctx context.Context, c *Client, path string, query any) (D, error) {
	return Perform[D, E](ctx, c, func(b *request.Builder) *request.Holder {
		h := b.Make(http.MethodGet, path)
		if query != nil {
			h.AddQueryParameters(query)
		}
		return h
	})
}

func Post[D, E any](ctx context.Context, c *Client, path string, body any) (D, error) {
	return withBody[D, E](ctx, c, http.MethodPost, path, body)
}

func Put[D, E any](ctx context.Context, c *Client, path string, body any) (D, error) {
	return withBody[D, E](ctx, c, http.MethodPut, path, body)
}

func Patch[D, E any](ctx context.Context, c *Client, path string, body any) (D, error) {
	return withBody[D, E](ctx, c, http.MethodPatch, path, body)
}

func Delete[D, E any](ctx context.Context, c *Client, path string) (D, error) {
	return Perform[D, E](ctx, c, func(b *request.Builder) *request.Holder {
		return b.Make(http.MethodDelete, path)
	})
}

func withBody[D, E any](ctx context.Context, c *Client, method, path string, body any) (D, error) {
	return Perform[D, E](ctx, c, func(b *request.Builder) *request.Holder {
		h := b.Make(method, path)
		if body != nil {
			h.SetBody(body)
		}
		return h
	})
}
