package courier

import "fmt"

// ConfigError reports a contradictory or incomplete request
// description. Configuration errors are always raised synchronously,
// before any network activity, in both execution modes.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return e.Reason }

// ErrHostRequired is the fatal precondition failure for a request that
// does not resolve to a host. It fires before any other processing.
var ErrHostRequired = &ConfigError{Reason: "host URL cannot be nil"}

// Distinct fast-fail errors for the socket-capture exclusions.
var (
	ErrCaptureWithPool  = &ConfigError{Reason: "socket capture cannot be combined with a connection manager"}
	ErrCaptureWithAsync = &ConfigError{Reason: "socket capture cannot be combined with async execution"}
)

// TransportError reports a failure below the HTTP layer: name
// resolution, connect, read. It is distinct from StatusError, which
// always carries a well-formed response.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a well-formed response whose status fell outside
// [200,400). The full response, already decompressed and coerced, is
// attached.
type StatusError struct {
	Status   int
	Response *Response
	Message  string
}

func (e *StatusError) Error() string { return e.Message }

// DecodeError reports a body that could not be coerced to the requested
// representation. Distinct from transport failures.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("coerce %s body: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
