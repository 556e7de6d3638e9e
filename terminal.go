package courier

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/corvid-labs/courier/pool"
	"github.com/corvid-labs/courier/urlkit"
)

// terminalExecutor adapts net/http into the pipeline's executor
// contract. Configuration guards and request assembly run synchronously
// on the caller's goroutine; only once the call is dispatched may
// failures surface through the raise continuation, and for async
// requests the round trip moves onto its own goroutine.
func terminalExecutor(dispatched *atomic.Bool) Executor {
	return func(req *Request, respond func(*Response), raise func(error)) {
		mgr := req.ConnectionManager
		if mgr == nil {
			mgr = pool.FromContext(req.Context())
		}

		if req.CaptureSocket {
			if mgr != nil {
				raise(ErrCaptureWithPool)
				return
			}
			if req.Async {
				raise(ErrCaptureWithAsync)
				return
			}
		}

		httpReq, err := buildHTTPRequest(req)
		if err != nil {
			raise(err)
			return
		}

		dispatched.Store(true)
		if req.Async {
			go roundTrip(req, mgr, httpReq, respond, raise)
		} else {
			roundTrip(req, mgr, httpReq, respond, raise)
		}
	}
}

func buildHTTPRequest(req *Request) (*http.Request, error) {
	target := urlkit.Unparse(&urlkit.URL{
		Scheme:      req.Scheme,
		ServerName:  req.ServerName,
		ServerPort:  req.ServerPort,
		URI:         req.URI,
		QueryString: req.QueryString,
	})

	body, err := bodyReader(req.Body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(req.Context(), req.method(), target, body)
	if err != nil {
		return nil, &ConfigError{Reason: "build request: " + err.Error()}
	}
	if req.Headers != nil {
		for key, values := range req.Headers {
			httpReq.Header[key] = append([]string(nil), values...)
		}
	}
	if req.UserInfo != "" {
		user, pass, _ := strings.Cut(req.UserInfo, ":")
		httpReq.SetBasicAuth(user, pass)
	}
	return httpReq, nil
}

func bodyReader(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case io.Reader:
		return b, nil
	case []byte:
		return bytes.NewReader(b), nil
	case string:
		return strings.NewReader(b), nil
	default:
		return nil, &ConfigError{Reason: "unsupported body type"}
	}
}

func roundTrip(req *Request, mgr *pool.Manager, httpReq *http.Request, respond func(*Response), raise func(error)) {
	var (
		client  *http.Client
		capture *captureBuffer
		closed  bool
	)
	if mgr != nil {
		client = mgr.Client()
	} else {
		client, capture = oneShotClient(req)
		httpReq.Header.Set("Connection", "close")
		httpReq.Close = true
		closed = true
	}

	start := time.Now()
	httpResp, err := client.Do(httpReq)
	elapsed := time.Since(start)
	if err != nil {
		raise(&TransportError{URL: httpReq.URL.String(), Err: err})
		return
	}

	resp := &Response{
		Status:           httpResp.StatusCode,
		Headers:          httpResp.Header,
		Body:             httpResp.Body,
		ReasonPhrase:     reasonPhrase(httpResp),
		RequestTime:      elapsed,
		ConnectionClosed: closed,
		ProtocolVersion: ProtocolVersion{
			Name:  protoName(httpResp.Proto),
			Major: httpResp.ProtoMajor,
			Minor: httpResp.ProtoMinor,
		},
	}
	if capture != nil {
		resp.CapturedRequest = capture.Bytes()
	}
	respond(resp)
}

// oneShotClient builds a keep-alive-free client for requests without a
// pool handle. Socket capture tees the request's wire bytes through the
// dialed connection.
func oneShotClient(req *Request) (*http.Client, *captureBuffer) {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: -1,
	}
	dial := dialer.DialContext

	var capture *captureBuffer
	if req.CaptureSocket {
		capture = &captureBuffer{}
		base := dial
		dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := base(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &captureConn{Conn: conn, buf: capture}, nil
		}
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dial,
		DisableKeepAlives:   true,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if req.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{
		Timeout:   req.Timeout,
		Transport: transport,
	}, capture
}

func reasonPhrase(resp *http.Response) string {
	phrase := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	return strings.TrimSpace(phrase)
}

func protoName(proto string) string {
	if name, _, ok := strings.Cut(proto, "/"); ok {
		return name
	}
	return proto
}

type captureBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *captureBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func (c *captureBuffer) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.buf.Bytes()...)
}

type captureConn struct {
	net.Conn
	buf *captureBuffer
}

func (c *captureConn) Write(p []byte) (int, error) {
	c.buf.Write(p)
	return c.Conn.Write(p)
}
