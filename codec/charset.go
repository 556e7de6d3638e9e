package codec

import (
	"fmt"
	"mime"
	"strings"

	xcharset "golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
)

// CharsetOf reads the charset parameter from a Content-Type string,
// tolerating odd casing and whitespace. Defaults to utf-8.
func CharsetOf(contentType string) string {
	if contentType == "" {
		return "utf-8"
	}
	if _, ps, err := mime.ParseMediaType(contentType); err == nil {
		if cs, ok := ps["charset"]; ok && strings.TrimSpace(cs) != "" {
			return strings.ToLower(strings.TrimSpace(cs))
		}
		return "utf-8"
	}
	// Fall back to a lenient scan for malformed headers.
	for _, part := range strings.Split(contentType, ";") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(k), "charset") {
			v = strings.Trim(strings.TrimSpace(v), `"`)
			if v != "" {
				return strings.ToLower(v)
			}
		}
	}
	return "utf-8"
}

// DecodeText converts body bytes to a string using the charset named in
// the Content-Type header.
func DecodeText(data []byte, contentType string) (string, error) {
	name := CharsetOf(contentType)
	if name == "utf-8" || name == "utf8" || name == "ascii" || name == "us-ascii" {
		return string(data), nil
	}
	enc, _ := xcharset.Lookup(name)
	if enc == nil {
		var err error
		enc, err = htmlindex.Get(name)
		if err != nil {
			return "", fmt.Errorf("unsupported charset %q: %w", name, err)
		}
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode %s body: %w", name, err)
	}
	return string(decoded), nil
}
