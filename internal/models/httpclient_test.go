// internal/models/httpclient_test.go
package models

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testRetryConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Timeout:     5 * time.Second,
	}
}

func TestDoWithRetry_RecoversFromRateLimit(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewRetryableClient(testRetryConfig(3))
	req, _ := NewRequestWithBody(context.Background(), http.MethodPost, server.URL, []byte(`{}`))

	resp, err := client.DoWithRetry(context.Background(), "test", req)
	if err != nil {
		t.Fatalf("DoWithRetry returned error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 after retries, got %d", resp.StatusCode)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
}

func TestDoWithRetry_DoesNotRetryClientErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewRetryableClient(testRetryConfig(3))
	req, _ := NewRequestWithBody(context.Background(), http.MethodPost, server.URL, []byte(`{}`))

	resp, err := client.DoWithRetry(context.Background(), "test", req)
	if err != nil {
		t.Fatalf("DoWithRetry returned error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected the 400 passed through, got %d", resp.StatusCode)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("Expected exactly 1 attempt for a client error, got %d", got)
	}
}

func TestDoWithRetry_ExhaustionEscalatesAsTransient(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewRetryableClient(testRetryConfig(2))
	req, _ := NewRequestWithBody(context.Background(), http.MethodPost, server.URL, []byte(`{}`))

	_, err := client.DoWithRetry(context.Background(), "test", req)
	if err == nil {
		t.Fatal("Expected error after retry exhaustion")
	}

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected ProviderError, got %T: %v", err, err)
	}
	if pe.Kind != Transient {
		t.Errorf("Expected transient kind, got %v", pe.Kind)
	}
	if !IsTransient(err) {
		t.Error("Expected IsTransient to report true")
	}
	if got := attempts.Load(); got != 2 {
		t.Errorf("Expected 2 attempts, got %d", got)
	}
}

func TestDoWithRetry_ReplaysBodyOnRetry(t *testing.T) {
	var bodies []string
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		bodies = append(bodies, string(buf[:n]))
		if attempts.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewRetryableClient(testRetryConfig(3))
	req, _ := NewRequestWithBody(context.Background(), http.MethodPost, server.URL, []byte(`{"k":"v"}`))

	resp, err := client.DoWithRetry(context.Background(), "test", req)
	if err != nil {
		t.Fatalf("DoWithRetry returned error: %v", err)
	}
	resp.Body.Close()

	if len(bodies) != 2 {
		t.Fatalf("Expected 2 attempts, got %d", len(bodies))
	}
	for i, body := range bodies {
		if body != `{"k":"v"}` {
			t.Errorf("Attempt %d: expected full body replayed, got %q", i, body)
		}
	}
}

func TestDoWithRetry_RespectsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := testRetryConfig(3)
	cfg.BaseDelay = time.Second
	client := NewRetryableClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req, _ := NewRequestWithBody(ctx, http.MethodPost, server.URL, []byte(`{}`))

	start := time.Now()
	_, err := client.DoWithRetry(ctx, "test", req)
	if err == nil {
		t.Fatal("Expected error from cancelled context")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Expected cancellation to cut the backoff short, took %v", elapsed)
	}
}
