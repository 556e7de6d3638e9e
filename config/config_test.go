package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeProfile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	return path
}

func TestLoadProfileFile(t *testing.T) {
	path := writeProfile(t, `
url: https://api.example.com/things
method: post
content_type: json
accept: json
timeout: 5s
headers:
  X-Env: staging
form_params:
  name: widget
pool:
  enabled: true
  timeout: 10s
  max_idle: 64
`)
	p, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if p.URL != "https://api.example.com/things" {
		t.Fatalf("unexpected url %q", p.URL)
	}
	if p.Method != "POST" {
		t.Fatalf("expected method normalized to POST, got %q", p.Method)
	}
	if p.Timeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %v", p.Timeout)
	}

	opts, ok := p.PoolOptions()
	if !ok {
		t.Fatalf("expected pool enabled")
	}
	if opts.Timeout != 10*time.Second || opts.MaxIdle != 64 {
		t.Fatalf("unexpected pool options %+v", opts)
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	p, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if p.Method != "GET" {
		t.Fatalf("expected GET default, got %q", p.Method)
	}
	if _, ok := p.PoolOptions(); ok {
		t.Fatalf("expected pooling disabled by default")
	}
}

func TestEnvOverridesProfile(t *testing.T) {
	path := writeProfile(t, "url: http://from-file.example.com\n")
	t.Setenv("COURIER_URL", "http://from-env.example.com")

	p, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if p.URL != "http://from-env.example.com" {
		t.Fatalf("expected env override, got %q", p.URL)
	}
}

func TestRequestRejectsBadHeaders(t *testing.T) {
	p := &Profile{URL: "http://example.com", Method: "GET", Headers: map[string]string{"Bad\nKey": "v"}}
	if _, err := p.Request(); err == nil {
		t.Fatalf("expected error for header key with newline")
	}

	p = &Profile{URL: "http://example.com", Method: "GET", Headers: map[string]string{"X-Ok": "bad\nvalue"}}
	if _, err := p.Request(); err == nil {
		t.Fatalf("expected error for header value with newline")
	}
}

func TestRequestMaterializesFields(t *testing.T) {
	p := &Profile{
		URL:         "http://example.com/x",
		Method:      "POST",
		ContentType: "json",
		Headers:     map[string]string{"x-trace": "1"},
		Body:        `{"a":1}`,
	}
	req, err := p.Request()
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if req.Headers.Get("X-Trace") != "1" {
		t.Fatalf("expected canonicalized header, got %v", req.Headers)
	}
	if req.Body != `{"a":1}` {
		t.Fatalf("expected body carried, got %#v", req.Body)
	}
}
