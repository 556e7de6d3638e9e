package courier

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/corvid-labs/courier/pool"
)

// Client carries call-site defaults: a middleware list used when
// neither the context nor the request overrides it, and a default pool
// handle. The zero Client is fully usable.
type Client struct {
	Middleware []Middleware
	Pool       *pool.Manager
}

// DefaultClient backs the package-level helpers.
var DefaultClient = &Client{}

// Do executes a request synchronously, blocking until the terminal
// call returns, and either returns a response or an error from the
// taxonomy in errors.go. A nil response with a nil error is only
// possible with IgnoreUnknownHost.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	r := c.prepare(ctx, req, false)

	var dispatched atomic.Bool
	exec := Compose(c.middlewareFor(ctx, r), terminalExecutor(&dispatched))

	var (
		resp *Response
		err  error
	)
	exec(r,
		func(rr *Response) { resp = rr },
		func(e error) { err = e })
	return resp, err
}

// DoAsync executes a request through the transport's asynchronous
// facility. Exactly one of onSuccess and onFailure fires, exactly once,
// on a goroutine chosen by the transport. Failures raised before the
// terminal call begins — configuration errors, the host precondition —
// are returned synchronously instead, and neither callback fires.
func (c *Client) DoAsync(ctx context.Context, req *Request, onSuccess func(*Response), onFailure func(error)) error {
	r := c.prepare(ctx, req, true)

	var dispatched atomic.Bool
	exec := Compose(c.middlewareFor(ctx, r), terminalExecutor(&dispatched))

	var (
		syncErr error
		once    sync.Once
	)
	exec(r,
		func(resp *Response) {
			once.Do(func() { onSuccess(resp) })
		},
		func(err error) {
			if !dispatched.Load() {
				syncErr = err
				return
			}
			once.Do(func() { onFailure(err) })
		})
	return syncErr
}

func (c *Client) prepare(ctx context.Context, req *Request, async bool) *Request {
	if ctx == nil {
		ctx = context.Background()
	}
	r := req.Clone()
	r.ctx = ctx
	r.Async = async
	if r.ConnectionManager == nil {
		r.ConnectionManager = c.Pool
	}
	return r
}

func (c *Client) middlewareFor(ctx context.Context, req *Request) []Middleware {
	if req.Middleware != nil {
		return req.Middleware
	}
	if ctx != nil {
		if mw, ok := ctx.Value(middlewareKey{}).([]Middleware); ok {
			return mw
		}
	}
	if c.Middleware != nil {
		return c.Middleware
	}
	return DefaultMiddleware()
}

func withVerb(url, method string, opts *Request) *Request {
	var r *Request
	if opts != nil {
		r = opts.Clone()
	} else {
		r = &Request{}
	}
	r.URL = url
	r.Method = method
	return r
}

// Get issues a GET. opts may be nil.
func (c *Client) Get(ctx context.Context, url string, opts *Request) (*Response, error) {
	return c.Do(ctx, withVerb(url, http.MethodGet, opts))
}

// Head issues a HEAD.
func (c *Client) Head(ctx context.Context, url string, opts *Request) (*Response, error) {
	return c.Do(ctx, withVerb(url, http.MethodHead, opts))
}

// Post issues a POST.
func (c *Client) Post(ctx context.Context, url string, opts *Request) (*Response, error) {
	return c.Do(ctx, withVerb(url, http.MethodPost, opts))
}

// Put issues a PUT.
func (c *Client) Put(ctx context.Context, url string, opts *Request) (*Response, error) {
	return c.Do(ctx, withVerb(url, http.MethodPut, opts))
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, url string, opts *Request) (*Response, error) {
	return c.Do(ctx, withVerb(url, http.MethodDelete, opts))
}

// Patch issues a PATCH.
func (c *Client) Patch(ctx context.Context, url string, opts *Request) (*Response, error) {
	return c.Do(ctx, withVerb(url, http.MethodPatch, opts))
}

// Options issues an OPTIONS.
func (c *Client) Options(ctx context.Context, url string, opts *Request) (*Response, error) {
	return c.Do(ctx, withVerb(url, http.MethodOptions, opts))
}

// Package-level helpers on DefaultClient.

func Do(ctx context.Context, req *Request) (*Response, error) {
	return DefaultClient.Do(ctx, req)
}

func DoAsync(ctx context.Context, req *Request, onSuccess func(*Response), onFailure func(error)) error {
	return DefaultClient.DoAsync(ctx, req, onSuccess, onFailure)
}

func Get(ctx context.Context, url string, opts *Request) (*Response, error) {
	return DefaultClient.Get(ctx, url, opts)
}

func Head(ctx context.Context, url string, opts *Request) (*Response, error) {
	return DefaultClient.Head(ctx, url, opts)
}

func Post(ctx context.Context, url string, opts *Request) (*Response, error) {
	return DefaultClient.Post(ctx, url, opts)
}

func Put(ctx context.Context, url string, opts *Request) (*Response, error) {
	return DefaultClient.Put(ctx, url, opts)
}

func Delete(ctx context.Context, url string, opts *Request) (*Response, error) {
	return DefaultClient.Delete(ctx, url, opts)
}

func Patch(ctx context.Context, url string, opts *Request) (*Response, error) {
	return DefaultClient.Patch(ctx, url, opts)
}

func Options(ctx context.Context, url string, opts *Request) (*Response, error) {
	return DefaultClient.Options(ctx, url, opts)
}
