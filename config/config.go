// Package config loads client profiles: a reusable request template
// plus optional pool settings, read from a YAML file with environment
// overrides. The CLI consumes it; library callers can too.
package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	courier "github.com/corvid-labs/courier"
	"github.com/corvid-labs/courier/pool"
)

// PoolProfile configures an optional connection manager for the
// profile. The caller owns the resulting handle.
type PoolProfile struct {
	Enabled        bool          `yaml:"enabled"`
	Timeout        time.Duration `yaml:"timeout"`
	Insecure       bool          `yaml:"insecure"`
	MaxIdle        int           `yaml:"max_idle"`
	MaxIdlePerHost int           `yaml:"max_idle_per_host"`
}

// Profile is a declarative request template.
type Profile struct {
	URL               string            `yaml:"url"`
	Method            string            `yaml:"method"`
	Headers           map[string]string `yaml:"headers"`
	Body              string            `yaml:"body"`
	ContentType       string            `yaml:"content_type"`
	CharacterEncoding string            `yaml:"character_encoding"`
	Accept            string            `yaml:"accept"`
	AcceptEncoding    []string          `yaml:"accept_encoding"`
	As                string            `yaml:"as"`
	QueryParams       map[string]any    `yaml:"query_params"`
	FormParams        map[string]any    `yaml:"form_params"`
	FlattenNestedKeys []string          `yaml:"flatten_nested_keys"`
	ThrowExceptions   *bool             `yaml:"throw_exceptions"`
	DecompressBody    *bool             `yaml:"decompress_body"`
	IgnoreUnknownHost bool              `yaml:"ignore_unknown_host"`
	Timeout           time.Duration     `yaml:"timeout"`
	Insecure          bool              `yaml:"insecure"`
	Pool              *PoolProfile      `yaml:"pool"`
}

// Load reads a profile file (optional) and applies COURIER_* env
// overrides for the fields most often flipped per environment.
func Load(path string) (*Profile, error) {
	p := &Profile{Method: http.MethodGet}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read profile: %w", err)
		}
		if err := yaml.Unmarshal(data, p); err != nil {
			return nil, fmt.Errorf("parse profile %s: %w", path, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("courier")
	v.AutomaticEnv()
	if url := v.GetString("url"); url != "" {
		p.URL = url
	}
	if method := v.GetString("method"); method != "" {
		p.Method = method
	}
	if v.IsSet("timeout") {
		p.Timeout = v.GetDuration("timeout")
	}
	if v.IsSet("insecure") {
		p.Insecure = v.GetBool("insecure")
	}

	p.Method = strings.ToUpper(strings.TrimSpace(p.Method))
	if p.Method == "" {
		p.Method = http.MethodGet
	}
	return p, nil
}

// Request materializes the profile into a request description.
func (p *Profile) Request() (*courier.Request, error) {
	headers := http.Header{}
	for key, value := range p.Headers {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" || strings.ContainsAny(trimmed, "\r\n") {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", trimmed)
		}
		headers.Set(http.CanonicalHeaderKey(trimmed), value)
	}

	req := &courier.Request{
		URL:               p.URL,
		Method:            p.Method,
		Headers:           headers,
		ContentType:       p.ContentType,
		CharacterEncoding: p.CharacterEncoding,
		Accept:            p.Accept,
		AcceptEncoding:    append([]string(nil), p.AcceptEncoding...),
		As:                p.As,
		QueryParams:       p.QueryParams,
		FormParams:        p.FormParams,
		FlattenNestedKeys: p.FlattenNestedKeys,
		ThrowExceptions:   p.ThrowExceptions,
		DecompressBody:    p.DecompressBody,
		IgnoreUnknownHost: p.IgnoreUnknownHost,
		Timeout:           p.Timeout,
		Insecure:          p.Insecure,
	}
	if p.Body != "" {
		req.Body = p.Body
	}
	return req, nil
}

// PoolOptions reports the pool configuration when the profile enables
// pooling.
func (p *Profile) PoolOptions() (pool.Options, bool) {
	if p.Pool == nil || !p.Pool.Enabled {
		return pool.Options{}, false
	}
	return pool.Options{
		Timeout:        p.Pool.Timeout,
		Insecure:       p.Pool.Insecure,
		MaxIdle:        p.Pool.MaxIdle,
		MaxIdlePerHost: p.Pool.MaxIdlePerHost,
	}, true
}
