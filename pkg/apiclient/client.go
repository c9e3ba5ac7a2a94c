// Package apiclient performs typed API calls: it builds requests, dispatches
// them through the engine, decodes the response envelope and classifies the
// outcome. Every dispatched request is reported to the Finisher before its
// result is returned.
package apiclient

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/milan604/netlayer/pkg/envelope"
	nethttp "github.com/milan604/netlayer/pkg/http"
	"github.com/milan604/netlayer/pkg/interceptor"
	"github.com/milan604/netlayer/pkg/logger"
	"github.com/milan604/netlayer/pkg/metrics"
	"github.com/milan604/netlayer/pkg/observability"
	"github.com/milan604/netlayer/pkg/request"
)

// Client is safe for concurrent use.
type Client struct {
	builder  *request.Builder
	doer     nethttp.Doer
	decoder  envelope.Decoder
	finisher interceptor.Finisher
	logger   logger.LogManager
	metrics  *metrics.Collector
	tracer   trace.Tracer
}

// Option configures the Client.
type Option func(*Client)

// WithFinisher wires the token-refresh interceptor (or any other Finisher).
func WithFinisher(f interceptor.Finisher) Option {
	return func(c *Client) { c.finisher = f }
}

func WithDecoder(d envelope.Decoder) Option {
	return func(c *Client) { c.decoder = d }
}

func WithLogger(l logger.LogManager) Option {
	return func(c *Client) { c.logger = l }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// New creates a Client that builds requests with builder and sends them with doer.
func New(builder *request.Builder, doer nethttp.Doer, opts ...Option) *Client {
	c := &Client{
		builder: builder,
		doer:    doer,
		decoder: envelope.JSONDecoder{},
		logger:  logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(observability.TracerName)
	}
	return c
}

// Builder returns the request builder the client hands to factories.
func (c *Client) Builder() *request.Builder { return c.builder }

// Perform builds a request with factory, sends it and decodes the response
// into an envelope of D and E. A failure is always an *Error[E].
func Perform[D, E any](ctx context.Context, c *Client, factory func(*request.Builder) *request.Holder) (D, error) {
	var zero D
	if factory == nil {
		return zero, internalError[E](ReasonBadRequest, request.ErrNoRequest)
	}
	req, err := factory(c.builder).Request(ctx)
	if err != nil {
		c.metrics.ObserveError(KindInternal.String())
		c.logger.WarnFCtx(ctx, "request could not be built: %v", err)
		return zero, internalError[E](ReasonBadRequest, err)
	}
	return dispatch[D, E](ctx, c, req)
}

// PerformUpload is Perform for multipart bodies. A missing holder or form
// fails with ReasonBadRequest before anything is sent.
func PerformUpload[D, E any](ctx context.Context, c *Client, factory func(*request.Builder) (*request.Holder, *request.MultipartForm)) (D, error) {
	var zero D
	if factory == nil {
		return zero, internalError[E](ReasonBadRequest, request.ErrNoRequest)
	}
	holder, form := factory(c.builder)
	if holder == nil {
		return zero, internalError[E](ReasonBadRequest, request.ErrNoRequest)
	}
	req, err := holder.SetMultipart(form).Request(ctx)
	if err != nil {
		c.metrics.ObserveError(KindInternal.String())
		c.logger.WarnFCtx(ctx, "upload request could not be built: %v", err)
		return zero, internalError[E](ReasonBadRequest, err)
	}
	return dispatch[D, E](ctx, c, req)
}

// outcome is everything dispatch learned about one call.
type outcome[D, E any] struct {
	value  D
	err    *Error[E]
	status int
	// finishData is what the Finisher sees: the payload or the structured error.
	finishData any
}

func dispatch[D, E any](ctx context.Context, c *Client, req *http.Request) (D, error) {
	start := time.Now()
	ctx, span := observability.StartClientSpan(ctx, c.tracer, req)

	resp, err := c.doer.Do(ctx, req)
	out := classify[D, E](c.decoder, resp, err)

	// Finish runs before the caller sees the result: waiters parked on this
	// request's outcome must be resolved first.
	if c.finisher != nil {
		c.finisher.Finish(req, out.finishData, out.status)
	}

	c.metrics.ObserveRequest(req.Method, out.status, time.Since(start))
	if out.err != nil {
		c.metrics.ObserveError(out.err.Kind.String())
		observability.EndClientSpan(span, out.status, out.err, out.err.Kind.String())
		c.logger.DebugFCtx(ctx, "%s %s failed: %v", req.Method, req.URL.Redacted(), out.err)
		var zero D
		return zero, out.err
	}
	observability.EndClientSpan(span, out.status, nil, "")
	return out.value, nil
}

// classify maps an engine result onto a typed outcome.
func classify[D, E any](dec envelope.Decoder, resp *nethttp.Response, err error) outcome[D, E] {
	if err == nil {
		if resp == nil || resp.StatusCode == 0 {
			return outcome[D, E]{err: internalError[E](ReasonResponseMissing, nil)}
		}
		env, decodeErr := envelope.Decode[D, E](dec, resp.Body)
		if decodeErr != nil {
			return outcome[D, E]{err: transportError[E](resp.StatusCode, decodeErr), status: resp.StatusCode}
		}
		if env.Failed() {
			return outcome[D, E]{
				err:        serverError(resp.StatusCode, env.Error),
				status:     resp.StatusCode,
				finishData: *env.Error,
			}
		}
		out := outcome[D, E]{value: env.Payload(), status: resp.StatusCode}
		if env.Data != nil {
			out.finishData = *env.Data
		}
		return out
	}

	if resp == nil {
		return outcome[D, E]{err: transportError[E](0, err)}
	}

	var ve *nethttp.ValidationError
	if errors.As(err, &ve) {
		if env, decodeErr := envelope.Decode[D, E](dec, resp.Body); decodeErr == nil && env.Failed() {
			return outcome[D, E]{
				err:        serverError(resp.StatusCode, env.Error),
				status:     resp.StatusCode,
				finishData: *env.Error,
			}
		}
	}
	return outcome[D, E]{err: transportError[E](resp.StatusCode, err), status: resp.StatusCode}
}
