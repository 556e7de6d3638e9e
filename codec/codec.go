package codec

import (
	"fmt"
	"mime"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"olympos.io/encoding/edn"

	"github.com/corvid-labs/courier/params"
)

// Format is a body format tag as used by request options.
type Format string

const (
	FormatJSON           Format = "json"
	FormatEDN            Format = "edn"
	FormatTransitJSON    Format = "transit+json"
	FormatTransitMsgpack Format = "transit+msgpack"
	FormatForm           Format = "x-www-form-urlencoded"
	FormatText           Format = "text"
)

// MIMEFor maps a format tag to its canonical MIME type. Unknown tags
// containing a slash are treated as literal MIME types.
func MIMEFor(f Format) string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatEDN:
		return "application/edn"
	case FormatTransitJSON:
		return "application/transit+json"
	case FormatTransitMsgpack:
		return "application/transit+msgpack"
	case FormatForm, "":
		return "application/x-www-form-urlencoded"
	case FormatText:
		return "text/plain"
	default:
		if strings.Contains(string(f), "/") {
			return string(f)
		}
		return "application/" + string(f)
	}
}

// Options carries per-request codec configuration; today that is the
// transit handler registrations.
type Options struct {
	Transit *TransitOptions
}

// Codec encodes and decodes one body format.
type Codec interface {
	Encode(v any, opts *Options) ([]byte, error)
	Decode(data []byte, opts *Options) (any, error)
}

// Registry maps format tags to codec implementations. The zero set of
// built-ins covers json, edn, both transit variants and form bodies;
// Register adds or replaces entries at runtime.
type Registry struct {
	mu  sync.RWMutex
	set map[Format]Codec
}

func NewRegistry() *Registry {
	r := &Registry{set: make(map[Format]Codec)}
	r.Register(FormatJSON, jsonCodec{})
	r.Register(FormatEDN, ednCodec{})
	r.Register(FormatTransitJSON, transitCodec{binary: false})
	r.Register(FormatTransitMsgpack, transitCodec{binary: true})
	r.Register(FormatForm, formCodec{})
	return r
}

func (r *Registry) Register(f Format, c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set[f] = c
}

func (r *Registry) Lookup(f Format) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.set[f]
	return c, ok
}

// Default is the process-wide registry consumed by the client pipeline.
var Default = NewRegistry()

// DetectFormat inspects a response Content-Type header and picks the
// decoder for as=auto dispatch. The boolean is false when no structured
// decoder applies and the body should be treated as text.
func DetectFormat(contentType string) (Format, bool) {
	mediaType := contentType
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = mt
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))

	switch {
	case strings.Contains(mediaType, "transit+json"):
		return FormatTransitJSON, true
	case strings.Contains(mediaType, "transit+msgpack"):
		return FormatTransitMsgpack, true
	case strings.Contains(mediaType, "json"):
		return FormatJSON, true
	case strings.Contains(mediaType, "edn"):
		return FormatEDN, true
	case strings.Contains(mediaType, "x-www-form-urlencoded"):
		return FormatForm, true
	default:
		return FormatText, false
	}
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type jsonCodec struct{}

func (jsonCodec) Encode(v any, _ *Options) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Decode(data []byte, _ *Options) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode json body: %w", err)
	}
	return v, nil
}

type ednCodec struct{}

func (ednCodec) Encode(v any, _ *Options) ([]byte, error) {
	return edn.Marshal(v)
}

func (ednCodec) Decode(data []byte, _ *Options) (any, error) {
	var v any
	if err := edn.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode edn body: %w", err)
	}
	return v, nil
}

type formCodec struct{}

func (formCodec) Encode(v any, _ *Options) ([]byte, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("form encoding requires a params map, got %T", v)
	}
	s, err := params.EncodeQuery(m, params.StyleRepeat)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (formCodec) Decode(data []byte, _ *Options) (any, error) {
	return params.DecodeForm(string(data))
}
