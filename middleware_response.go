package courier

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/corvid-labs/courier/codec"
)

// WrapDecompression transparently inflates gzip and deflate response
// bodies. The content-encoding value is matched exactly and
// case-sensitively; anything else, including unknown codings, passes
// through byte-for-byte with its header intact. When decompression is
// disabled everything passes through unmodified.
func WrapDecompression(next Executor) Executor {
	return func(req *Request, respond func(*Response), raise func(error)) {
		if !req.decompressBody() {
			next(req, respond, raise)
			return
		}
		next(req, func(resp *Response) {
			if resp == nil {
				respond(nil)
				return
			}
			encoding := resp.Headers.Get("Content-Encoding")
			var inflate func(io.Reader) (io.ReadCloser, error)
			switch encoding {
			case "gzip":
				inflate = codec.InflateGzip
			case "deflate":
				inflate = codec.InflateDeflate
			default:
				respond(resp)
				return
			}
			stream, ok := resp.BodyStream()
			if !ok {
				respond(resp)
				return
			}
			br := bufio.NewReader(stream)
			if _, err := br.Peek(1); err != nil {
				// HEAD and 204 responses carry the encoding header with
				// no body; nothing to inflate.
				resp.Body = &bufferedBody{Reader: br, raw: stream}
				respond(resp)
				return
			}
			inflated, err := inflate(br)
			if err != nil {
				stream.Close()
				raise(&DecodeError{Format: encoding, Err: err})
				return
			}
			resp.Body = &inflatedBody{ReadCloser: inflated, raw: stream}
			resp.Headers.Del("Content-Encoding")
			resp.OrigContentEncoding = encoding
			respond(resp)
		}, raise)
	}
}

// bufferedBody rejoins a peeked stream with the closer it came from.
type bufferedBody struct {
	io.Reader
	raw io.Closer
}

func (b *bufferedBody) Close() error { return b.raw.Close() }

// inflatedBody closes the raw transport stream alongside the inflating
// reader; gzip and zlib readers do not close what they wrap.
type inflatedBody struct {
	io.ReadCloser
	raw io.Closer
}

func (b *inflatedBody) Close() error {
	err := b.ReadCloser.Close()
	if cerr := b.raw.Close(); err == nil {
		err = cerr
	}
	return err
}

// WrapOutputCoercion decodes the response body according to the As
// option. stream and byte-array bypass decoding; an absent body always
// coerces to an absent value; decode failures surface as DecodeError,
// never as transport errors.
func WrapOutputCoercion(next Executor) Executor {
	return func(req *Request, respond func(*Response), raise func(error)) {
		if req.As == "stream" {
			next(req, respond, raise)
			return
		}
		next(req, func(resp *Response) {
			if resp == nil {
				respond(nil)
				return
			}
			stream, ok := resp.BodyStream()
			if !ok {
				// Already coerced or absent.
				respond(resp)
				return
			}
			data, err := io.ReadAll(stream)
			stream.Close()
			if err != nil {
				raise(&TransportError{URL: req.URL, Err: fmt.Errorf("read response body: %w", err)})
				return
			}
			if len(data) == 0 {
				resp.Body = nil
				respond(resp)
				return
			}
			if req.As == "byte-array" {
				resp.Body = data
				respond(resp)
				return
			}

			contentType := resp.Headers.Get("Content-Type")
			format, structured := resolveFormat(req.As, contentType)
			if !structured {
				text, err := codec.DecodeText(data, contentType)
				if err != nil {
					raise(&DecodeError{Format: "text", Err: err})
					return
				}
				resp.Body = text
				respond(resp)
				return
			}

			c, ok := codec.Default.Lookup(format)
			if !ok {
				raise(&DecodeError{Format: string(format), Err: fmt.Errorf("no codec registered")})
				return
			}
			value, err := c.Decode(data, req.codecOptions())
			if err != nil {
				raise(&DecodeError{Format: string(format), Err: err})
				return
			}
			resp.Body = value
			respond(resp)
		}, raise)
	}
}

// resolveFormat maps the As option (or, for auto, the response
// content-type) to a decoder. The boolean is false when the body should
// be treated as charset-decoded text.
func resolveFormat(as, contentType string) (codec.Format, bool) {
	switch as {
	case "", "auto":
		return codec.DetectFormat(contentType)
	case "text":
		return codec.FormatText, false
	}
	f := codec.Format(as)
	if _, ok := codec.Default.Lookup(f); ok {
		return f, true
	}
	return codec.FormatText, false
}

// WrapExceptions converts unexceptional statuses outside [200,400)
// into StatusError unless suppressed. On the async path the same
// classification selects which continuation fires; with
// throw-exceptions disabled the raw response is always delivered to
// respond regardless of status.
func WrapExceptions(next Executor) Executor {
	return func(req *Request, respond func(*Response), raise func(error)) {
		next(req, func(resp *Response) {
			if resp == nil || !req.throwExceptions() || Unexceptional(resp.Status) {
				respond(resp)
				return
			}
			msg := fmt.Sprintf("courier: status %d", resp.Status)
			if req.ThrowEntireMessage {
				msg = fmt.Sprintf("courier: status %d %+v", resp.Status, *resp)
			}
			raise(&StatusError{Status: resp.Status, Response: resp, Message: msg})
		}, raise)
	}
}

// WrapUnknownHost converts a name-resolution failure into an absent
// successful result when the request opts in.
func WrapUnknownHost(next Executor) Executor {
	return func(req *Request, respond func(*Response), raise func(error)) {
		if !req.IgnoreUnknownHost {
			next(req, respond, raise)
			return
		}
		next(req, respond, func(err error) {
			if isUnknownHost(err) {
				respond(nil)
				return
			}
			raise(err)
		})
	}
}

func isUnknownHost(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsNotFound
	}
	return false
}
