package codec

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// WriteHandler converts values of one runtime type into a tagged wire
// representation.
type WriteHandler struct {
	Tag string
	// Rep produces the representation stored under the tag. It must
	// return data the base codec can encode.
	Rep func(v any) (any, error)
}

// ReadHandler rebuilds a value from the representation stored under a
// wire tag.
type ReadHandler func(rep any) (any, error)

// TransitOptions configures the extensible codec. The nested Encode and
// Decode fields are the current shape.
//
// Handlers is the deprecated flat shape and is honored for encoding
// only. Supplying both shapes is a configuration error.
type TransitOptions struct {
	Encode *TransitEncodeOptions
	Decode *TransitDecodeOptions

	// Deprecated: use Encode.Handlers.
	Handlers map[reflect.Type]WriteHandler
}

type TransitEncodeOptions struct {
	Handlers map[reflect.Type]WriteHandler
}

type TransitDecodeOptions struct {
	Handlers map[string]ReadHandler
}

// ErrTransitHandlerShapes is raised when both the nested and the
// deprecated flat handler shapes are supplied at once.
var ErrTransitHandlerShapes = errors.New("transit handlers supplied in both nested and deprecated flat form")

func (o *TransitOptions) writeHandlers() (map[reflect.Type]WriteHandler, error) {
	if o == nil {
		return nil, nil
	}
	nested := o.Encode != nil && len(o.Encode.Handlers) > 0
	if nested && len(o.Handlers) > 0 {
		return nil, ErrTransitHandlerShapes
	}
	if nested {
		return o.Encode.Handlers, nil
	}
	return o.Handlers, nil
}

func (o *TransitOptions) readHandlers() map[string]ReadHandler {
	if o == nil || o.Decode == nil {
		return nil
	}
	return o.Decode.Handlers
}

const tagPrefix = "~#"

// transitCodec implements the tagged-envelope surface of the extensible
// codec over a JSON or msgpack base encoding. Caller-registered write
// handlers are keyed by runtime type; read handlers by wire tag.
type transitCodec struct {
	binary bool
}

func (c transitCodec) Encode(v any, opts *Options) ([]byte, error) {
	var topts *TransitOptions
	if opts != nil {
		topts = opts.Transit
	}
	handlers, err := topts.writeHandlers()
	if err != nil {
		return nil, err
	}
	tagged, err := applyWriteHandlers(v, handlers)
	if err != nil {
		return nil, err
	}
	if c.binary {
		return msgpack.Marshal(tagged)
	}
	return json.Marshal(tagged)
}

func (c transitCodec) Decode(data []byte, opts *Options) (any, error) {
	var v any
	if c.binary {
		if err := msgpack.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode transit+msgpack body: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode transit+json body: %w", err)
		}
	}
	var topts *TransitOptions
	if opts != nil {
		topts = opts.Transit
	}
	return applyReadHandlers(v, topts.readHandlers())
}

func applyWriteHandlers(v any, handlers map[reflect.Type]WriteHandler) (any, error) {
	if v == nil {
		return nil, nil
	}
	if h, ok := handlers[reflect.TypeOf(v)]; ok {
		rep, err := h.Rep(v)
		if err != nil {
			return nil, fmt.Errorf("transit write handler for %T: %w", v, err)
		}
		rep, err = applyWriteHandlers(rep, handlers)
		if err != nil {
			return nil, err
		}
		return map[string]any{tagPrefix + h.Tag: rep}, nil
	}

	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, mv := range val {
			enc, err := applyWriteHandlers(mv, handlers)
			if err != nil {
				return nil, err
			}
			out[k] = enc
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, sv := range val {
			enc, err := applyWriteHandlers(sv, handlers)
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	default:
		return v, nil
	}
}

func applyReadHandlers(v any, handlers map[string]ReadHandler) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 1 {
			for k, rep := range val {
				if strings.HasPrefix(k, tagPrefix) {
					if h, ok := handlers[strings.TrimPrefix(k, tagPrefix)]; ok {
						rep, err := applyReadHandlers(rep, handlers)
						if err != nil {
							return nil, err
						}
						out, err := h(rep)
						if err != nil {
							return nil, fmt.Errorf("transit read handler for tag %q: %w", k, err)
						}
						return out, nil
					}
				}
			}
		}
		out := make(map[string]any, len(val))
		for k, mv := range val {
			dec, err := applyReadHandlers(mv, handlers)
			if err != nil {
				return nil, err
			}
			out[k] = dec
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, sv := range val {
			dec, err := applyReadHandlers(sv, handlers)
			if err != nil {
				return nil, err
			}
			out[i] = dec
		}
		return out, nil
	default:
		return v, nil
	}
}
