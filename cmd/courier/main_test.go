package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRootCommandSendsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Check"); got != "1" {
			t.Errorf("expected X-Check header, got %q", got)
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("pong"))
	}))
	defer srv.Close()

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"-H", "X-Check: 1", "-q", srv.URL + "/ping"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !strings.Contains(out.String(), "pong") {
		t.Fatalf("expected body in output, got %q", out.String())
	}
}

func TestRootCommandAsyncMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--async", "-q", srv.URL})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("async execute failed: %v", err)
	}
	if !strings.Contains(out.String(), "ok") {
		t.Fatalf("expected body in output, got %q", out.String())
	}
}

func TestRootCommandRejectsMalformedHeader(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"-H", "no-colon-here", "http://example.com"})

	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for malformed header flag")
	}
}

func TestRootCommandMissingHost(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "host URL cannot be nil") {
		t.Fatalf("expected host-required error, got %v", err)
	}
}
