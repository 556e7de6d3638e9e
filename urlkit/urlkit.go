package urlkit

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// URL is the decomposed form of an HTTP(S) URL as the request pipeline
// consumes it. UserInfo holds decoded credentials; URI and QueryString
// stay in wire (percent-encoded) form.
type URL struct {
	Scheme      string
	ServerName  string
	ServerPort  int // 0 when unspecified or equal to the scheme default
	URI         string
	QueryString string
	UserInfo    string
	Original    string
}

// DefaultPort returns the well-known port for a scheme, or 0.
func DefaultPort(scheme string) int {
	switch scheme {
	case "http":
		return 80
	case "https":
		return 443
	default:
		return 0
	}
}

// Parse splits a raw URL into its components. The port is elided when it
// is unspecified or matches the scheme default. Credentials are decoded
// so that Unparse can re-encode them safely.
func Parse(raw string) (*URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	out := &URL{
		Scheme:      u.Scheme,
		ServerName:  u.Hostname(),
		URI:         u.EscapedPath(),
		QueryString: u.RawQuery,
		Original:    raw,
	}

	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("parse url port %q: %w", p, err)
		}
		if port != DefaultPort(u.Scheme) {
			out.ServerPort = port
		}
	}

	if u.User != nil {
		info, err := Decode(u.User.String())
		if err != nil {
			return nil, fmt.Errorf("parse url user info: %w", err)
		}
		out.UserInfo = info
	}

	return out, nil
}

// Unparse reassembles a URL from its components, inverting Parse.
// Components are re-encoded idempotently: already-encoded sequences are
// left alone, everything outside the component's allowed set is escaped.
func Unparse(u *URL) string {
	var sb strings.Builder
	if u.Scheme != "" {
		sb.WriteString(u.Scheme)
		sb.WriteString("://")
	}
	if u.UserInfo != "" {
		name, pass, hasPass := strings.Cut(u.UserInfo, ":")
		sb.WriteString(EncodeUserInfo(name))
		if hasPass {
			sb.WriteString(":")
			sb.WriteString(EncodeUserInfo(pass))
		}
		sb.WriteString("@")
	}
	sb.WriteString(u.ServerName)
	if u.ServerPort != 0 && u.ServerPort != DefaultPort(u.Scheme) {
		sb.WriteString(":")
		sb.WriteString(strconv.Itoa(u.ServerPort))
	}
	if u.URI != "" {
		if !strings.HasPrefix(u.URI, "/") {
			sb.WriteString("/")
		}
		sb.WriteString(EncodePath(u.URI))
	}
	if u.QueryString != "" {
		sb.WriteString("?")
		sb.WriteString(EncodeQuery(u.QueryString))
	}
	return sb.String()
}

const (
	unreserved = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"
	subDelims  = "!$&'()*+,;="
)

// Allowed sets per RFC 3986. The path set keeps "/" so whole paths can
// be re-encoded segment structure intact. The user-info set drops the
// apostrophe so decoded credentials re-encode to the same bytes they
// arrived with.
var (
	pathAllowed     = makeSet(unreserved + subDelims + ":@/")
	userInfoAllowed = makeSet(unreserved + "!$&()*+,;=")
	queryAllowed    = makeSet(unreserved + subDelims + ":@/?")
)

func makeSet(chars string) [256]bool {
	var set [256]bool
	for i := 0; i < len(chars); i++ {
		set[chars[i]] = true
	}
	return set
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

const upperhex = "0123456789ABCDEF"

// encode escapes every byte outside the allowed set. Valid %XX triplets
// pass through untouched, which makes the transform idempotent over the
// full byte domain.
func encode(s string, allowed *[256]bool) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			sb.WriteString(s[i : i+3])
			i += 2
		case allowed[c]:
			sb.WriteByte(c)
		default:
			sb.WriteByte('%')
			sb.WriteByte(upperhex[c>>4])
			sb.WriteByte(upperhex[c&0xf])
		}
	}
	return sb.String()
}

// EncodePath escapes a URL path. Spaces become %20; this is the path
// space codec, distinct from the query-param "+" convention.
func EncodePath(s string) string {
	return encode(s, &pathAllowed)
}

// EncodeUserInfo escapes one side of a user:password credential pair.
func EncodeUserInfo(s string) string {
	return encode(s, &userInfoAllowed)
}

// EncodeQuery escapes a raw query string, preserving its structure
// characters (&, =, and already-encoded sequences).
func EncodeQuery(s string) string {
	return encode(s, &queryAllowed)
}

// Decode reverses percent-encoding. "+" is left alone: translating it
// belongs to the form codec, not the URL model.
func Decode(s string) (string, error) {
	if !strings.Contains(s, "%") {
		return s, nil
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' {
			if i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2]) {
				return "", fmt.Errorf("invalid percent-encoding at offset %d", i)
			}
			v, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil {
				return "", fmt.Errorf("invalid percent-encoding at offset %d", i)
			}
			sb.WriteByte(byte(v))
			i += 2
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String(), nil
}
