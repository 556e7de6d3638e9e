package courier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// tagMiddleware appends its tag on the request path and on the response
// path, exposing composition order.
func tagMiddleware(tag string, reqLog, respLog *[]string) Middleware {
	return func(next Executor) Executor {
		return func(req *Request, respond func(*Response), raise func(error)) {
			*reqLog = append(*reqLog, tag)
			next(req, func(resp *Response) {
				*respLog = append(*respLog, tag)
				respond(resp)
			}, raise)
		}
	}
}

func TestComposeOrder(t *testing.T) {
	var reqLog, respLog []string
	exec := Compose(
		[]Middleware{
			tagMiddleware("outer", &reqLog, &respLog),
			tagMiddleware("inner", &reqLog, &respLog),
		},
		func(req *Request, respond func(*Response), raise func(error)) {
			respond(&Response{Status: 200})
		},
	)

	exec(&Request{}, func(*Response) {}, func(err error) { t.Fatalf("unexpected raise: %v", err) })

	if len(reqLog) != 2 || reqLog[0] != "outer" || reqLog[1] != "inner" {
		t.Fatalf("request order = %v, want [outer inner]", reqLog)
	}
	if len(respLog) != 2 || respLog[0] != "inner" || respLog[1] != "outer" {
		t.Fatalf("response order = %v, want [inner outer]", respLog)
	}
}

func TestComposeEmptyIsTerminal(t *testing.T) {
	called := false
	exec := Compose(nil, func(req *Request, respond func(*Response), raise func(error)) {
		called = true
		respond(nil)
	})
	exec(&Request{}, func(*Response) {}, func(error) {})
	if !called {
		t.Fatalf("terminal executor was not invoked")
	}
}

func TestWithMiddlewareReplacesPipeline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// The replacement list omits every default stage, so a header-setting
	// probe is the only way to tell it ran.
	var sawProbe bool
	probe := func(next Executor) Executor {
		return func(req *Request, respond func(*Response), raise func(error)) {
			sawProbe = true
			next(req, respond, raise)
		}
	}
	ctx := WithMiddleware(context.Background(), probe, WrapURL)

	resp, err := Do(ctx, &Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if !sawProbe {
		t.Fatalf("override middleware did not run")
	}
	// WrapExceptions was not in the override, so a raw stream comes back.
	if _, ok := resp.BodyStream(); !ok {
		t.Fatalf("expected raw stream body under replaced pipeline, got %#v", resp.Body)
	}
}

func TestWithExtraMiddlewarePrepends(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	var order []string
	record := func(tag string) Middleware {
		return func(next Executor) Executor {
			return func(req *Request, respond func(*Response), raise func(error)) {
				order = append(order, tag)
				next(req, respond, raise)
			}
		}
	}

	ctx := WithExtraMiddleware(context.Background(), record("first"), record("second"))
	if _, err := Do(ctx, &Request{URL: srv.URL}); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("extra middleware order = %v", order)
	}
}

func TestOverridesAreScopedPerContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	var mu sync.Mutex
	hits := map[string]int{}
	count := func(tag string) Middleware {
		return func(next Executor) Executor {
			return func(req *Request, respond func(*Response), raise func(error)) {
				mu.Lock()
				hits[tag]++
				mu.Unlock()
				next(req, respond, raise)
			}
		}
	}

	ctxA := WithExtraMiddleware(context.Background(), count("a"))
	ctxB := WithExtraMiddleware(context.Background(), count("b"))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		ctx := ctxA
		if i%2 == 1 {
			ctx = ctxB
		}
		wg.Add(1)
		go func(ctx context.Context) {
			defer wg.Done()
			if _, err := Do(ctx, &Request{URL: srv.URL}); err != nil {
				t.Errorf("request failed: %v", err)
			}
		}(ctx)
	}
	wg.Wait()

	if hits["a"] != 2 || hits["b"] != 2 {
		t.Fatalf("override leaked across call chains: %v", hits)
	}
}

func TestNestedOverridesShadow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	var outerRan, innerRan bool
	outer := func(next Executor) Executor {
		return func(req *Request, respond func(*Response), raise func(error)) {
			outerRan = true
			next(req, respond, raise)
		}
	}
	inner := func(next Executor) Executor {
		return func(req *Request, respond func(*Response), raise func(error)) {
			innerRan = true
			next(req, respond, raise)
		}
	}

	ctx := WithMiddleware(context.Background(), outer, WrapURL)
	ctx = WithMiddleware(ctx, inner, WrapURL)

	if _, err := Do(ctx, &Request{URL: srv.URL}); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if outerRan {
		t.Fatalf("shadowed outer override still ran")
	}
	if !innerRan {
		t.Fatalf("inner override did not run")
	}
}

func TestRequestMiddlewareWinsOverContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	var ctxRan, reqRan bool
	fromCtx := func(next Executor) Executor {
		return func(req *Request, respond func(*Response), raise func(error)) {
			ctxRan = true
			next(req, respond, raise)
		}
	}
	fromReq := func(next Executor) Executor {
		return func(req *Request, respond func(*Response), raise func(error)) {
			reqRan = true
			next(req, respond, raise)
		}
	}

	ctx := WithMiddleware(context.Background(), fromCtx, WrapURL)
	req := &Request{URL: srv.URL, Middleware: []Middleware{fromReq, WrapURL}}

	if _, err := Do(ctx, req); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if ctxRan {
		t.Fatalf("context override ran despite per-request pipeline")
	}
	if !reqRan {
		t.Fatalf("per-request pipeline did not run")
	}
}

func TestDoAsyncExactlyOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var mu sync.Mutex
	successes, failures := 0, 0
	done := make(chan struct{})

	err := DoAsync(context.Background(), &Request{URL: srv.URL},
		func(resp *Response) {
			mu.Lock()
			successes++
			mu.Unlock()
			close(done)
		},
		func(e error) {
			mu.Lock()
			failures++
			mu.Unlock()
			close(done)
		})
	if err != nil {
		t.Fatalf("DoAsync returned sync error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("no continuation fired")
	}
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if successes != 1 || failures != 0 {
		t.Fatalf("continuations fired successes=%d failures=%d, want exactly one success", successes, failures)
	}
}

func TestDoAsyncPreDispatchErrorIsSynchronous(t *testing.T) {
	called := make(chan string, 2)
	err := DoAsync(context.Background(), &Request{},
		func(*Response) { called <- "success" },
		func(error) { called <- "failure" })

	if err != ErrHostRequired {
		t.Fatalf("expected ErrHostRequired synchronously, got %v", err)
	}
	select {
	case which := <-called:
		t.Fatalf("continuation %q fired for a pre-dispatch error", which)
	case <-time.After(100 * time.Millisecond):
	}
}
