package courier

import (
	"context"
	"net/http"
	"time"

	"github.com/corvid-labs/courier/codec"
	"github.com/corvid-labs/courier/params"
	"github.com/corvid-labs/courier/pool"
)

// Part is one section of a multipart request body.
type Part struct {
	Name        string
	Content     any // string, []byte, or io.Reader
	FileName    string
	ContentType string
}

// Request is the declarative description handed to the pipeline. The
// pipeline treats it as immutable: every middleware that changes a
// field works on a clone, so a caller's Request is never mutated and
// can be reused across calls.
type Request struct {
	// URL, when set, is parsed by the URL middleware and its components
	// override the fields below.
	URL string

	Scheme      string
	ServerName  string
	ServerPort  int // 0 means unspecified or the scheme default
	URI         string
	QueryString string
	UserInfo    string // "user:password", sent as basic auth

	Method  string
	Headers http.Header
	Body    any // io.Reader, []byte, or string

	// ContentType is a format tag (json, edn, transit+json,
	// transit+msgpack) or a literal MIME type.
	ContentType       string
	CharacterEncoding string
	Accept            string
	AcceptEncoding    []string

	QueryParams map[string]any
	FormParams  map[string]any
	Multipart   []Part

	MultiParamStyle params.Style

	// FlattenNestedKeys selects which param fields get nested-key
	// flattening ("query-params", "form-params"). The two legacy
	// booleans are sugar for one target each and cannot be combined
	// with the explicit list.
	FlattenNestedKeys  []string
	FlattenNestedQuery bool
	FlattenNestedForm  bool

	Transit *codec.TransitOptions

	// As selects incoming coercion: auto (default), json, edn,
	// transit+json, transit+msgpack, x-www-form-urlencoded, text,
	// byte-array, stream.
	As string

	Async bool

	// Middleware overrides the pipeline for this request only.
	Middleware []Middleware

	// ConnectionManager routes the terminal call through an externally
	// owned pool handle. The pipeline never creates or shuts one down.
	ConnectionManager *pool.Manager

	ThrowExceptions    *bool // nil means true
	ThrowEntireMessage bool
	DecompressBody     *bool // nil means true
	IgnoreUnknownHost  bool
	CaptureSocket      bool

	// One-shot transport tuning; ignored when a ConnectionManager is
	// present (the handle owns its own configuration).
	Timeout  time.Duration
	Insecure bool

	ctx context.Context
}

// Bool builds the tri-state flag pointers.
func Bool(b bool) *bool { return &b }

// Context returns the context the request is executing under.
func (r *Request) Context() context.Context {
	if r.ctx != nil {
		return r.ctx
	}
	return context.Background()
}

// WithContext returns a clone carrying ctx.
func (r *Request) WithContext(ctx context.Context) *Request {
	c := r.Clone()
	c.ctx = ctx
	return c
}

// Clone returns a copy safe for a middleware to modify. Headers are
// deep-copied; param maps are replaced wholesale by middlewares, never
// mutated in place.
func (r *Request) Clone() *Request {
	c := *r
	if r.Headers != nil {
		c.Headers = r.Headers.Clone()
	}
	if r.AcceptEncoding != nil {
		c.AcceptEncoding = append([]string(nil), r.AcceptEncoding...)
	}
	return &c
}

// Header returns the header map, allocating it on first use.
func (r *Request) Header() http.Header {
	if r.Headers == nil {
		r.Headers = make(http.Header)
	}
	return r.Headers
}

func (r *Request) throwExceptions() bool {
	return r.ThrowExceptions == nil || *r.ThrowExceptions
}

func (r *Request) decompressBody() bool {
	return r.DecompressBody == nil || *r.DecompressBody
}

func (r *Request) codecOptions() *codec.Options {
	if r.Transit == nil {
		return nil
	}
	return &codec.Options{Transit: r.Transit}
}

func (r *Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}
