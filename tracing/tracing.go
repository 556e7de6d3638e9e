// Package tracing provides OpenTelemetry initialization and a pipeline
// middleware that opens a span per request and injects W3C trace
// context into the outgoing headers.
package tracing

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	courier "github.com/corvid-labs/courier"
)

// Options configures the tracer provider. A zero Options (or an empty
// endpoint) yields a no-op provider.
type Options struct {
	ServiceName string
	Endpoint    string
	Protocol    string // "grpc" (default) or "http"
	Insecure    bool
	SampleRate  float64 // 0 never, 1 always; in between, ratio-based
}

// Provider wraps the OTel TracerProvider for the client library.
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
}

// Init creates a provider from opts. Environment fallbacks follow the
// OTel conventions (OTEL_SERVICE_NAME, OTEL_EXPORTER_OTLP_ENDPOINT).
func Init(ctx context.Context, opts Options) (*Provider, error) {
	serviceName := opts.ServiceName
	if serviceName == "" {
		if envName := os.Getenv("OTEL_SERVICE_NAME"); envName != "" {
			serviceName = envName
		} else {
			serviceName = "courier"
		}
	}

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if endpoint == "" {
		return &Provider{}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	exporter, err := newExporter(ctx, opts, endpoint)
	if err != nil {
		return nil, fmt.Errorf("tracing exporter: %w", err)
	}

	if opts.SampleRate < 0 || opts.SampleRate > 1.0 {
		return nil, fmt.Errorf("tracing sample rate must be between 0.0 and 1.0, got %g", opts.SampleRate)
	}
	sampler := sdktrace.AlwaysSample()
	if opts.SampleRate > 0 && opts.SampleRate < 1.0 {
		sampler = sdktrace.TraceIDRatioBased(opts.SampleRate)
	} else if opts.SampleRate == 0 {
		sampler = sdktrace.NeverSample()
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{tp: tp, tracer: tp.Tracer("courier")}, nil
}

// Tracer returns the configured tracer, or a no-op one when tracing is
// disabled.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil || p.tracer == nil {
		return noop.NewTracerProvider().Tracer("courier")
	}
	return p.tracer
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

func newExporter(ctx context.Context, opts Options, endpoint string) (sdktrace.SpanExporter, error) {
	protocol := strings.ToLower(opts.Protocol)
	if protocol == "" {
		protocol = "grpc"
	}

	switch protocol {
	case "grpc":
		grpcOpts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(endpoint),
		}
		if opts.Insecure {
			grpcOpts = append(grpcOpts,
				otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
				otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, grpcOpts...)

	case "http":
		httpOpts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(endpoint),
		}
		if opts.Insecure {
			httpOpts = append(httpOpts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, httpOpts...)

	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q: use \"grpc\" or \"http\"", protocol)
	}
}

// Middleware opens a span around each request, injects W3C trace
// headers into the outgoing request, and records status or failure.
func Middleware(p *Provider) courier.Middleware {
	return func(next courier.Executor) courier.Executor {
		return func(req *courier.Request, respond func(*courier.Response), raise func(error)) {
			ctx, span := p.Tracer().Start(req.Context(), "courier.request",
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(
					attribute.String("http.request.method", req.Method),
					attribute.String("server.address", req.ServerName),
					attribute.String("url.full", req.URL),
				),
			)

			r := req.WithContext(ctx)
			otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(r.Header()))

			next(r,
				func(resp *courier.Response) {
					if resp != nil {
						span.SetAttributes(attribute.Int("http.response.status_code", resp.Status))
					}
					span.End()
					respond(resp)
				},
				func(err error) {
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
					span.End()
					raise(err)
				})
		}
	}
}
