package params

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Style selects how multi-valued keys are rendered.
type Style string

const (
	// StyleRepeat renders a=1&a=2&a=3. The default.
	StyleRepeat Style = ""
	// StyleIndexed renders a[0]=1&a[1]=2&a[2]=3.
	StyleIndexed Style = "indexed"
	// StyleArray renders a[]=1&a[]=2&a[]=3.
	StyleArray Style = "array"
)

// Targets for nested-key flattening.
const (
	TargetQueryParams = "query-params"
	TargetFormParams  = "form-params"
)

// ErrFlattenConflict is raised when the explicit flatten target list is
// combined with either legacy boolean flag.
var ErrFlattenConflict = errors.New("flatten-nested-keys cannot be combined with flatten-nested-query or flatten-nested-form")

// ExpandFlattenTargets resolves the flatten target list. The two legacy
// booleans are sugar for the corresponding target names and are
// mutually exclusive with supplying the list directly.
func ExpandFlattenTargets(explicit []string, legacyQuery, legacyForm bool) ([]string, error) {
	if explicit != nil {
		if legacyQuery || legacyForm {
			return nil, ErrFlattenConflict
		}
		return explicit, nil
	}
	var targets []string
	if legacyQuery {
		targets = append(targets, TargetQueryParams)
	}
	if legacyForm {
		targets = append(targets, TargetFormParams)
	}
	return targets, nil
}

// FlattenNested rewrites nested-mapping values into parent[child] keys,
// recursing to unbounded depth. Non-mapping values pass through.
func FlattenNested(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		flattenInto(out, k, v)
	}
	return out
}

func flattenInto(out map[string]any, key string, v any) {
	switch nested := v.(type) {
	case map[string]any:
		for ck, cv := range nested {
			flattenInto(out, key+"["+ck+"]", cv)
		}
	case map[string]string:
		for ck, cv := range nested {
			flattenInto(out, key+"["+ck+"]", cv)
		}
	default:
		out[key] = v
	}
}

// EncodeQuery renders params as a query string using the "+" space
// convention. Keys are emitted in sorted order so output is stable.
func EncodeQuery(m map[string]any, style Style) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		encoded, err := encodeValue(k, m[k], style)
		if err != nil {
			return "", err
		}
		parts = append(parts, encoded...)
	}
	return strings.Join(parts, "&"), nil
}

func encodeValue(key string, v any, style Style) ([]string, error) {
	values, ok := sliceValues(v)
	if !ok {
		return []string{pair(key, v)}, nil
	}
	switch style {
	case StyleRepeat:
		out := make([]string, len(values))
		for i, val := range values {
			out[i] = pair(key, val)
		}
		return out, nil
	case StyleIndexed:
		out := make([]string, len(values))
		for i, val := range values {
			out[i] = pair(key+"["+strconv.Itoa(i)+"]", val)
		}
		return out, nil
	case StyleArray:
		out := make([]string, len(values))
		for i, val := range values {
			out[i] = pair(key+"[]", val)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown multi-param style %q", style)
	}
}

func sliceValues(v any) ([]any, bool) {
	switch vs := v.(type) {
	case []any:
		return vs, true
	case []string:
		out := make([]any, len(vs))
		for i, s := range vs {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(vs))
		for i, n := range vs {
			out[i] = n
		}
		return out, true
	default:
		return nil, false
	}
}

func pair(key string, v any) string {
	return url.QueryEscape(key) + "=" + url.QueryEscape(stringify(v))
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// DecodeForm parses an application/x-www-form-urlencoded body into a
// params map. Single-valued keys decode to string, multi-valued to
// []string.
func DecodeForm(body string) (map[string]any, error) {
	values, err := url.ParseQuery(body)
	if err != nil {
		return nil, fmt.Errorf("decode form body: %w", err)
	}
	out := make(map[string]any, len(values))
	for k, vs := range values {
		if len(vs) == 1 {
			out[k] = vs[0]
		} else {
			out[k] = vs
		}
	}
	return out, nil
}
