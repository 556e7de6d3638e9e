package pool

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"
)

// Options configures a connection manager. The zero value gives a
// sensible pooled client with no overall timeout.
type Options struct {
	// Timeout bounds each whole request issued through the manager.
	Timeout time.Duration
	// Insecure skips TLS certificate verification.
	Insecure bool

	MaxIdle        int
	MaxIdlePerHost int
	IdleTimeout    time.Duration
}

// Manager is an externally owned pool handle. The request pipeline only
// consumes it: it never creates one and never shuts one down. Callers
// that construct a Manager must call Shutdown when done with it.
type Manager struct {
	client    *http.Client
	transport *http.Transport
	once      sync.Once
}

// New creates a pool handle for synchronous execution.
func New(opts Options) *Manager {
	return newManager(opts, 256, 32)
}

// NewAsync creates a pool handle for callback-driven execution. The
// transport is identical; idle sizing leans larger because callbacks
// tend to hold connections across more in-flight requests.
func NewAsync(opts Options) *Manager {
	return newManager(opts, 512, 64)
}

func newManager(opts Options, maxIdle, maxIdlePerHost int) *Manager {
	if opts.MaxIdle > 0 {
		maxIdle = opts.MaxIdle
	}
	if opts.MaxIdlePerHost > 0 {
		maxIdlePerHost = opts.MaxIdlePerHost
	}
	idleTimeout := 90 * time.Second
	if opts.IdleTimeout > 0 {
		idleTimeout = opts.IdleTimeout
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          maxIdle,
		MaxIdleConnsPerHost:   maxIdlePerHost,
		IdleConnTimeout:       idleTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if opts.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Manager{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		transport: transport,
	}
}

// Client returns the pooled http.Client backing the handle.
func (m *Manager) Client() *http.Client {
	return m.client
}

// Shutdown releases the manager's idle connections. Safe to call more
// than once. In-flight requests finish normally.
func (m *Manager) Shutdown() {
	if m == nil {
		return
	}
	m.once.Do(func() {
		m.transport.CloseIdleConnections()
	})
}

type ctxKey struct{}

// NewContext installs a manager as the default pool handle for the
// call chains derived from ctx.
func NewContext(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, ctxKey{}, m)
}

// FromContext returns the scoped default manager, if any.
func FromContext(ctx context.Context) *Manager {
	if ctx == nil {
		return nil
	}
	m, _ := ctx.Value(ctxKey{}).(*Manager)
	return m
}

// With runs fn with a scoped default pool handle and tears the handle
// down on every exit path, including panics. It serves both execution
// modes; async callers must ensure their callbacks have completed
// before fn returns.
func With(ctx context.Context, opts Options, fn func(ctx context.Context) error) error {
	m := New(opts)
	defer m.Shutdown()
	return fn(NewContext(ctx, m))
}

// WithAsync is With backed by NewAsync sizing.
func WithAsync(ctx context.Context, opts Options, fn func(ctx context.Context) error) error {
	m := NewAsync(opts)
	defer m.Shutdown()
	return fn(NewContext(ctx, m))
}
