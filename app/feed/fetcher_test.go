package feed

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetcher_Fetch(t *testing.T) {
	var userAgent atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent.Store(r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte("<rss/>"))
	}))
	defer server.Close()

	fetcher := NewFetcher("test-agent/1.0", 5*time.Second, nil)
	data, err := fetcher.Fetch(context.Background(), server.URL)

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if string(data) != "<rss/>" {
		t.Errorf("Expected body '<rss/>', got: %s", data)
	}
	if userAgent.Load() != "test-agent/1.0" {
		t.Errorf("Expected User-Agent 'test-agent/1.0', got: %v", userAgent.Load())
	}
}

func TestFetcher_Fetch_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/error":
			http.Error(w, "boom", http.StatusInternalServerError)
		case "/slow":
			time.Sleep(500 * time.Millisecond)
			w.Write([]byte("late"))
		}
	}))
	defer server.Close()

	fetcher := NewFetcher("test-agent", 100*time.Millisecond, nil)

	tests := []struct {
		name string
		url  string
	}{
		{"not found", server.URL + "/missing"},
		{"server error", server.URL + "/error"},
		{"timeout", server.URL + "/slow"},
		{"unreachable", "http://127.0.0.1:1/feed"},
		{"malformed url", "http://[::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fetcher.Fetch(context.Background(), tt.url)
			if !errors.Is(err, ErrNetwork) {
				t.Errorf("Expected ErrNetwork, got: %v", err)
			}
		})
	}
}

func TestFetcher_Fetch_BodyTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("a"), maxBodySize+1))
	}))
	defer server.Close()

	_, err := NewFetcher("test-agent", 5*time.Second, nil).Fetch(context.Background(), server.URL)

	if !errors.Is(err, ErrNetwork) {
		t.Errorf("Expected ErrNetwork, got: %v", err)
	}
}

func TestFetcher_FetchPage_DecodesCharset(t *testing.T) {
	// "café" in ISO-8859-1
	latin1 := []byte("<html><body><p>caf\xe9</p></body></html>")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		w.Write(latin1)
	}))
	defer server.Close()

	data, err := NewFetcher("test-agent", 5*time.Second, nil).FetchPage(context.Background(), server.URL)

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !strings.Contains(string(data), "café") {
		t.Errorf("Expected UTF-8 decoded page, got: %q", data)
	}
}

func TestFetcher_FetchPage_RejectsNonHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	}))
	defer server.Close()

	_, err := NewFetcher("test-agent", 5*time.Second, nil).FetchPage(context.Background(), server.URL)

	if !errors.Is(err, ErrNetwork) {
		t.Errorf("Expected ErrNetwork, got: %v", err)
	}
}

func TestIsHTML(t *testing.T) {
	tests := map[string]bool{
		"text/html":                        true,
		"text/html; charset=utf-8":         true,
		"TEXT/HTML":                        true,
		"application/xhtml+xml":            true,
		"application/json":                 false,
		"image/png":                        false,
		"text/plain; charset=windows-1252": false,
	}

	for contentType, expected := range tests {
		if got := isHTML(contentType); got != expected {
			t.Errorf("isHTML(%q) = %v, expected %v", contentType, got, expected)
		}
	}
}

func TestHostRateLimiter(t *testing.T) {
	limiter := NewHostRateLimiter(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for range 3 {
		if err := limiter.WaitForHost(ctx, "https://example.com/page"); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("Expected requests to the same host to be spaced out, took %v", elapsed)
	}

	// Other hosts have their own budget
	start = time.Now()
	if err := limiter.WaitForHost(ctx, "https://other.example.com/page"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 40*time.Millisecond {
		t.Errorf("Expected first request to a new host to pass immediately, took %v", elapsed)
	}

	if err := limiter.WaitForHost(ctx, "/relative/path"); err == nil {
		t.Error("Expected error for URL without host")
	}
}

func TestHostRateLimiter_Disabled(t *testing.T) {
	var nilLimiter *HostRateLimiter
	if err := nilLimiter.WaitForHost(context.Background(), "https://example.com"); err != nil {
		t.Errorf("Expected nil limiter to allow requests, got: %v", err)
	}

	limiter := NewHostRateLimiter(0)
	start := time.Now()
	for range 10 {
		if err := limiter.WaitForHost(context.Background(), "https://example.com"); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 40*time.Millisecond {
		t.Errorf("Expected zero interval to disable limiting, took %v", elapsed)
	}
}

func TestHostRateLimiter_ContextCancelled(t *testing.T) {
	limiter := NewHostRateLimiter(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	if err := limiter.WaitForHost(ctx, "https://example.com"); err != nil {
		t.Fatalf("Expected first request to pass, got: %v", err)
	}

	cancel()
	if err := limiter.WaitForHost(ctx, "https://example.com"); err == nil {
		t.Error("Expected cancelled context to abort the wait")
	}
}
