package courier

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/corvid-labs/courier/codec"
	"github.com/corvid-labs/courier/params"
	"github.com/corvid-labs/courier/urlkit"
)

// WrapURL parses the request URL into its components and enforces the
// host precondition before any other request processing.
func WrapURL(next Executor) Executor {
	return func(req *Request, respond func(*Response), raise func(error)) {
		r := req.Clone()
		if r.URL != "" {
			u, err := urlkit.Parse(r.URL)
			if err != nil {
				raise(&ConfigError{Reason: fmt.Sprintf("invalid URL %q: %v", r.URL, err)})
				return
			}
			r.Scheme = u.Scheme
			r.ServerName = u.ServerName
			r.ServerPort = u.ServerPort
			r.URI = u.URI
			r.QueryString = u.QueryString
			r.UserInfo = u.UserInfo
		}
		if r.ServerName == "" {
			raise(ErrHostRequired)
			return
		}
		if r.Scheme == "" {
			r.Scheme = "http"
		}
		next(r, respond, raise)
	}
}

// WrapNestedParams flattens nested param maps for the opted-in target
// fields. Contradictory flatten options are a configuration error,
// raised before any network activity.
func WrapNestedParams(next Executor) Executor {
	return func(req *Request, respond func(*Response), raise func(error)) {
		targets, err := params.ExpandFlattenTargets(req.FlattenNestedKeys, req.FlattenNestedQuery, req.FlattenNestedForm)
		if err != nil {
			raise(&ConfigError{Reason: err.Error()})
			return
		}
		if len(targets) == 0 {
			next(req, respond, raise)
			return
		}
		r := req.Clone()
		for _, target := range targets {
			switch target {
			case params.TargetQueryParams:
				r.QueryParams = params.FlattenNested(r.QueryParams)
			case params.TargetFormParams:
				r.FormParams = params.FlattenNested(r.FormParams)
			default:
				raise(&ConfigError{Reason: fmt.Sprintf("unknown flatten target %q", target)})
				return
			}
		}
		next(r, respond, raise)
	}
}

// WrapQueryParams renders query-params into the query string. A
// pre-supplied query string is kept and extended with "&", never
// replaced.
func WrapQueryParams(next Executor) Executor {
	return func(req *Request, respond func(*Response), raise func(error)) {
		if len(req.QueryParams) == 0 {
			next(req, respond, raise)
			return
		}
		encoded, err := params.EncodeQuery(req.QueryParams, req.MultiParamStyle)
		if err != nil {
			raise(&ConfigError{Reason: err.Error()})
			return
		}
		r := req.Clone()
		if r.QueryString != "" {
			r.QueryString += "&" + encoded
		} else {
			r.QueryString = encoded
		}
		r.QueryParams = nil
		next(r, respond, raise)
	}
}

// WrapContentType sets the Content-Type header from the request's
// format tag, appending charset when a character encoding is given.
func WrapContentType(next Executor) Executor {
	return func(req *Request, respond func(*Response), raise func(error)) {
		if req.ContentType == "" {
			next(req, respond, raise)
			return
		}
		r := req.Clone()
		r.Header().Set("Content-Type", contentTypeValue(r.ContentType, r.CharacterEncoding))
		next(r, respond, raise)
	}
}

func contentTypeValue(tag, characterEncoding string) string {
	value := codec.MIMEFor(codec.Format(tag))
	if characterEncoding != "" {
		value += "; charset=" + characterEncoding
	}
	return value
}

// WrapAccept sets the Accept header only when one was requested.
func WrapAccept(next Executor) Executor {
	return func(req *Request, respond func(*Response), raise func(error)) {
		if req.Accept == "" {
			next(req, respond, raise)
			return
		}
		r := req.Clone()
		r.Header().Set("Accept", codec.MIMEFor(codec.Format(r.Accept)))
		next(r, respond, raise)
	}
}

// WrapAcceptEncoding advertises the encodings the decompression stage
// can transparently undo. Caller-supplied encodings come first; the
// built-ins are merged after them. With decompression disabled only the
// caller's list is sent.
func WrapAcceptEncoding(next Executor) Executor {
	return func(req *Request, respond func(*Response), raise func(error)) {
		var offered []string
		if req.decompressBody() {
			offered = mergeEncodings(req.AcceptEncoding, "gzip", "deflate")
		} else {
			offered = req.AcceptEncoding
		}
		if len(offered) == 0 {
			next(req, respond, raise)
			return
		}
		r := req.Clone()
		r.Header().Set("Accept-Encoding", strings.Join(offered, ", "))
		next(r, respond, raise)
	}
}

func mergeEncodings(extra []string, builtin ...string) []string {
	out := append([]string(nil), extra...)
	for _, b := range builtin {
		seen := false
		for _, e := range out {
			if e == b {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, b)
		}
	}
	return out
}

// formMethods are the methods whose form-params become the body. For
// any other method the description passes through untouched.
var formMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// WrapFormParams encodes form-params into the request body, dispatching
// on the content type in either its tag or literal MIME spelling. The
// default encoding is x-www-form-urlencoded; structured formats
// delegate to the codec registry.
func WrapFormParams(next Executor) Executor {
	return func(req *Request, respond func(*Response), raise func(error)) {
		if len(req.FormParams) == 0 || !formMethods[req.method()] {
			next(req, respond, raise)
			return
		}
		r := req.Clone()
		format, structured := codec.DetectFormat(r.ContentType)
		switch {
		case structured && format != codec.FormatForm:
			c, ok := codec.Default.Lookup(format)
			if !ok {
				raise(&ConfigError{Reason: fmt.Sprintf("no codec registered for %q", format)})
				return
			}
			body, err := c.Encode(r.FormParams, r.codecOptions())
			if err != nil {
				if errors.Is(err, codec.ErrTransitHandlerShapes) {
					raise(&ConfigError{Reason: err.Error()})
					return
				}
				raise(&DecodeError{Format: string(format), Err: err})
				return
			}
			r.Body = body
		default:
			encoded, err := params.EncodeQuery(r.FormParams, r.MultiParamStyle)
			if err != nil {
				raise(&ConfigError{Reason: err.Error()})
				return
			}
			r.Body = encoded
			if r.Header().Get("Content-Type") == "" {
				r.Header().Set("Content-Type", contentTypeValue("", r.CharacterEncoding))
			}
		}
		r.FormParams = nil
		next(r, respond, raise)
	}
}

// WrapMultipart builds a multipart/form-data body from the request's
// parts.
func WrapMultipart(next Executor) Executor {
	return func(req *Request, respond func(*Response), raise func(error)) {
		if len(req.Multipart) == 0 {
			next(req, respond, raise)
			return
		}
		r := req.Clone()
		body, contentType, err := encodeMultipart(r.Multipart)
		if err != nil {
			raise(&ConfigError{Reason: err.Error()})
			return
		}
		r.Body = body
		r.Header().Set("Content-Type", contentType)
		next(r, respond, raise)
	}
}

func encodeMultipart(parts []Part) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		if p.Name == "" {
			return nil, "", fmt.Errorf("multipart part requires a name")
		}
		header := make(textproto.MIMEHeader)
		disposition := fmt.Sprintf("form-data; name=%q", p.Name)
		if p.FileName != "" {
			disposition += fmt.Sprintf("; filename=%q", p.FileName)
		}
		header.Set("Content-Disposition", disposition)
		if p.ContentType != "" {
			header.Set("Content-Type", p.ContentType)
		}
		dst, err := w.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("multipart part %q: %w", p.Name, err)
		}
		switch content := p.Content.(type) {
		case string:
			_, err = io.WriteString(dst, content)
		case []byte:
			_, err = dst.Write(content)
		case io.Reader:
			_, err = io.Copy(dst, content)
		default:
			err = fmt.Errorf("unsupported content type %T", p.Content)
		}
		if err != nil {
			return nil, "", fmt.Errorf("multipart part %q: %w", p.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finish multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
