package courier

import (
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// ProtocolVersion identifies the HTTP protocol a response arrived on.
type ProtocolVersion struct {
	Name  string
	Major int
	Minor int
}

// Response is the description produced by the pipeline. At the
// transport boundary Body is the raw io.ReadCloser; after output
// coercion it holds the decoded value ([]byte, string, map, or the
// untouched stream, depending on the As option).
type Response struct {
	Status       int
	Headers      http.Header
	Body         any
	ReasonPhrase string

	// OrigContentEncoding is set only when the decompression
	// transformer actually inflated the body.
	OrigContentEncoding string

	// RequestTime is the elapsed wall time of the terminal call.
	RequestTime time.Duration

	ProtocolVersion ProtocolVersion

	// ConnectionClosed reports the per-call close signal: true for
	// one-shot requests, false when a connection manager kept the
	// connection alive.
	ConnectionClosed bool

	// CapturedRequest holds the raw request wire bytes when socket
	// capture was enabled.
	CapturedRequest []byte
}

// BodyStream returns the body as a stream when it still is one.
func (r *Response) BodyStream() (io.ReadCloser, bool) {
	switch b := r.Body.(type) {
	case io.ReadCloser:
		return b, true
	case io.Reader:
		return io.NopCloser(b), true
	default:
		return nil, false
	}
}

// BodyString renders a coerced body as text. Streams are not drained.
func (r *Response) BodyString() string {
	switch b := r.Body.(type) {
	case string:
		return b
	case []byte:
		return string(b)
	default:
		return ""
	}
}

// Extract pulls a value out of a JSON body by gjson path. Accepts the
// JSONPath-style "$.field" spelling as well as bare "field" paths.
// Works on string and []byte bodies.
func (r *Response) Extract(path string) (gjson.Result, bool) {
	var data []byte
	switch b := r.Body.(type) {
	case []byte:
		data = b
	case string:
		data = []byte(b)
	default:
		return gjson.Result{}, false
	}
	if len(path) > 0 && path[0] == '$' {
		if len(path) > 1 && path[1] == '.' {
			path = path[2:]
		} else if len(path) == 1 {
			path = "@this"
		}
	}
	res := gjson.GetBytes(data, path)
	return res, res.Exists()
}
