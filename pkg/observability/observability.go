package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/milan604/netlayer/pkg/logger"
	"github.com/milan604/netlayer/pkg/version"
)

// Options for the tracer provider.
type Options struct {
	ServiceName string
	// Endpoint is the OTLP/HTTP collector host:port. Empty disables export.
	Endpoint string
	Insecure bool
	// SampleRatio in [0,1]; zero means always sample.
	SampleRatio float64
}

// Observability owns the tracer provider used by API clients.
type Observability struct {
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
	log            logger.LogManager
}

// New creates the tracer provider and installs it, with W3C propagation, as
// the otel globals.
func New(ctx context.Context, log logger.LogManager, opts Options, extra ...sdktrace.TracerProviderOption) (*Observability, error) {
	if opts.ServiceName == "" {
		opts.ServiceName = "netlayer"
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(opts.ServiceName),
			semconv.ServiceVersionKey.String(version.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	sampler := sdktrace.AlwaysSample()
	if opts.SampleRatio > 0 && opts.SampleRatio < 1 {
		sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opts.SampleRatio))
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	}
	if opts.Endpoint != "" {
		exporterOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(opts.Endpoint)}
		if opts.Insecure {
			exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}
	tpOpts = append(tpOpts, extra...)

	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.InfoF("tracing initialized: service=%s, version=%s, endpoint=%q", opts.ServiceName, version.Version, opts.Endpoint)

	return &Observability{
		tracerProvider: tp,
		tracer:         tp.Tracer(TracerName, trace.WithInstrumentationVersion(version.Version)),
		log:            log,
	}, nil
}

// TracerName is the instrumentation scope used by netlayer spans.
const TracerName = "github.com/milan604/netlayer"

// Tracer returns the tracer API clients should use.
func (o *Observability) Tracer() trace.Tracer {
	return o.tracer
}

// Shutdown flushes pending spans.
func (o *Observability) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := o.tracerProvider.Shutdown(ctx); err != nil {
		o.log.ErrorF("failed to shutdown tracer provider: %v", err)
		return err
	}
	return nil
}
