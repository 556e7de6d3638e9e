package tracing

import (
	"context"
	"testing"

	courier "github.com/corvid-labs/courier"
)

func TestInitDisabledWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	p, err := Init(context.Background(), Options{})
	if err != nil {
		t.Fatalf("expected no-op provider, got error: %v", err)
	}
	if p.Tracer() == nil {
		t.Fatalf("expected usable tracer from disabled provider")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown of disabled provider failed: %v", err)
	}
}

func TestInitRejectsBadSampleRate(t *testing.T) {
	_, err := Init(context.Background(), Options{Endpoint: "localhost:4317", SampleRate: 1.5, Insecure: true})
	if err == nil {
		t.Fatalf("expected error for out-of-range sample rate")
	}
}

func TestNilProviderTracer(t *testing.T) {
	var p *Provider
	if p.Tracer() == nil {
		t.Fatalf("expected no-op tracer from nil provider")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("nil provider shutdown failed: %v", err)
	}
}

func TestMiddlewareForwardsOutcome(t *testing.T) {
	mw := Middleware(nil)

	var got *courier.Response
	exec := mw(func(req *courier.Request, respond func(*courier.Response), raise func(error)) {
		respond(&courier.Response{Status: 204})
	})
	exec(&courier.Request{Method: "GET", ServerName: "example.com"},
		func(resp *courier.Response) { got = resp },
		func(err error) { t.Fatalf("unexpected failure: %v", err) })

	if got == nil || got.Status != 204 {
		t.Fatalf("expected response forwarded, got %+v", got)
	}
}
