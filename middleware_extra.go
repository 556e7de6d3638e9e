package courier

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"
)

// LogRequests returns a middleware that logs each call at debug level:
// the outgoing method and host, then the status and elapsed time, or
// the failure. It never alters the request or the outcome.
func LogRequests(logger log.Logger) Middleware {
	return func(next Executor) Executor {
		return func(req *Request, respond func(*Response), raise func(error)) {
			level.Debug(logger).Log(
				"msg", "request",
				"method", req.method(),
				"host", req.ServerName,
				"uri", req.URI,
			)
			next(req,
				func(resp *Response) {
					if resp != nil {
						level.Debug(logger).Log(
							"msg", "response",
							"status", resp.Status,
							"elapsed", resp.RequestTime,
						)
					}
					respond(resp)
				},
				func(err error) {
					level.Debug(logger).Log("msg", "request failed", "err", err)
					raise(err)
				})
		}
	}
}

// EnsureRequestID stamps an X-Request-Id header with a fresh ULID on
// requests that do not already carry one.
func EnsureRequestID() Middleware {
	return func(next Executor) Executor {
		return func(req *Request, respond func(*Response), raise func(error)) {
			if req.Headers.Get("X-Request-Id") != "" {
				next(req, respond, raise)
				return
			}
			r := req.Clone()
			r.Header().Set("X-Request-Id", ulid.Make().String())
			next(r, respond, raise)
		}
	}
}

// Throttle paces admission through a shared rate limiter. It delays,
// never retries; a context expiry while waiting surfaces as a transport
// error.
func Throttle(limiter *rate.Limiter) Middleware {
	return func(next Executor) Executor {
		return func(req *Request, respond func(*Response), raise func(error)) {
			if err := limiter.Wait(req.Context()); err != nil {
				raise(&TransportError{URL: req.URL, Err: err})
				return
			}
			next(req, respond, raise)
		}
	}
}
