package courier

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-kit/log"
	"golang.org/x/time/rate"
)

func TestLogRequestsEmitsOutcomes(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewLogfmtLogger(&buf)

	_, err := runRequest(t, LogRequests(logger),
		&Request{Method: "GET", ServerName: "example.com", URI: "/things"},
		func(req *Request, respond func(*Response), raise func(error)) {
			respond(&Response{Status: 200})
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "method=GET") || !strings.Contains(out, "host=example.com") {
		t.Fatalf("request line missing fields: %q", out)
	}
	if !strings.Contains(out, "status=200") {
		t.Fatalf("response line missing status: %q", out)
	}

	buf.Reset()
	boom := errors.New("boom")
	_, err = runRequest(t, LogRequests(logger),
		&Request{Method: "GET", ServerName: "example.com"},
		func(req *Request, respond func(*Response), raise func(error)) {
			raise(boom)
		})
	if err != boom {
		t.Fatalf("failure not forwarded: %v", err)
	}
	if !strings.Contains(buf.String(), "err=boom") {
		t.Fatalf("failure line missing error: %q", buf.String())
	}
}

func TestEnsureRequestIDStampsHeader(t *testing.T) {
	var got *Request
	caller := &Request{}
	if _, err := runRequest(t, EnsureRequestID(), caller,
		captureExecutor(&got, &Response{Status: 200})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id := got.Headers.Get("X-Request-Id")
	if len(id) != 26 {
		t.Fatalf("expected a 26-character ULID, got %q", id)
	}
	if caller.Headers.Get("X-Request-Id") != "" {
		t.Fatalf("caller request was mutated")
	}
}

func TestEnsureRequestIDKeepsExisting(t *testing.T) {
	var got *Request
	req := &Request{}
	req.Header().Set("X-Request-Id", "caller-chosen")
	if _, err := runRequest(t, EnsureRequestID(), req,
		captureExecutor(&got, &Response{Status: 200})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id := got.Headers.Get("X-Request-Id"); id != "caller-chosen" {
		t.Fatalf("existing request id replaced: %q", id)
	}
}

func TestThrottleAdmitsWithinLimit(t *testing.T) {
	var got *Request
	if _, err := runRequest(t, Throttle(rate.NewLimiter(rate.Inf, 1)), &Request{},
		captureExecutor(&got, &Response{Status: 200})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatalf("terminal never ran")
	}
}

func TestThrottleFailureIsTransportError(t *testing.T) {
	// A zero burst can never admit a request, so Wait fails immediately.
	limiter := rate.NewLimiter(1, 0)
	_, err := runRequest(t, Throttle(limiter), (&Request{}).WithContext(context.Background()),
		func(req *Request, respond func(*Response), raise func(error)) {
			t.Fatalf("terminal ran despite limiter failure")
		})
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}
