package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func sseChunk(content string) string {
	return fmt.Sprintf("data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", content)
}

func newStreamServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Unexpected auth header: %s", auth)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, body)
	}))
}

func TestChatStreamDeltas(t *testing.T) {
	server := newStreamServer(t, sseChunk("Hello")+sseChunk(" world")+"data: [DONE]\n\n")
	defer server.Close()

	p, err := New(Config{Provider: ProviderDeepSeek, APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var got strings.Builder
	err = p.Stream(context.Background(), "hi", func(delta string) error {
		got.WriteString(delta)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if got.String() != "Hello world" {
		t.Errorf("Collected %q, want %q", got.String(), "Hello world")
	}
}

func TestChatStreamSkipsMalformedChunk(t *testing.T) {
	body := sseChunk("before") +
		"data: {not valid json}\n\n" +
		sseChunk("after") +
		"data: [DONE]\n\n"
	server := newStreamServer(t, body)
	defer server.Close()

	p, err := New(Config{Provider: ProviderDeepSeek, APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var got strings.Builder
	err = p.Stream(context.Background(), "hi", func(delta string) error {
		got.WriteString(delta)
		return nil
	})
	if err != nil {
		t.Fatalf("A malformed chunk must not kill the stream: %v", err)
	}
	if got.String() != "beforeafter" {
		t.Errorf("Collected %q, want %q", got.String(), "beforeafter")
	}
}

func TestChatStreamStopsEarly(t *testing.T) {
	server := newStreamServer(t, sseChunk("one")+sseChunk("two")+sseChunk("three")+"data: [DONE]\n\n")
	defer server.Close()

	p, err := New(Config{Provider: ProviderDeepSeek, APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var deltas []string
	err = p.Stream(context.Background(), "hi", func(delta string) error {
		deltas = append(deltas, delta)
		if len(deltas) == 2 {
			return ErrStop
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ErrStop must read as a graceful end: %v", err)
	}
	if len(deltas) != 2 {
		t.Errorf("Expected 2 deltas before stopping, got %d", len(deltas))
	}
}

func TestChatStreamAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	p, _ := New(Config{Provider: ProviderDeepSeek, APIKey: "bad", BaseURL: server.URL})
	err := p.Stream(context.Background(), "hi", func(string) error { return nil })

	if !errors.Is(err, ErrAuth) {
		t.Fatalf("Expected ErrAuth, got %v", err)
	}
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatal("Expected an UpstreamError wrapper")
	}
	if upstream.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", upstream.StatusCode)
	}
}

func TestChatStreamRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	p, _ := New(Config{Provider: ProviderVolcano, APIKey: "k", BaseURL: server.URL})
	err := p.Stream(context.Background(), "hi", func(string) error { return nil })

	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("Expected ErrRateLimited, got %v", err)
	}
}

func TestChatStreamGatewayTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream slow", http.StatusGatewayTimeout)
	}))
	defer server.Close()

	p, _ := New(Config{Provider: ProviderOpenAI, APIKey: "k", BaseURL: server.URL})
	err := p.Stream(context.Background(), "hi", func(string) error { return nil })

	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Expected ErrTimeout, got %v", err)
	}
}

func TestNewProviderSelection(t *testing.T) {
	for _, name := range []string{ProviderDeepSeek, ProviderVolcano, ProviderOpenAI, ProviderGemini} {
		p, err := New(Config{Provider: name, APIKey: "k"})
		if err != nil {
			t.Errorf("New(%q) failed: %v", name, err)
			continue
		}
		if p.Name() != name {
			t.Errorf("Name() = %q, want %q", p.Name(), name)
		}
	}

	if _, err := New(Config{Provider: "nonsense", APIKey: "k"}); err == nil {
		t.Error("Expected an error for an unsupported provider")
	}
}

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		code int
		want error
	}{
		{http.StatusUnauthorized, ErrAuth},
		{http.StatusForbidden, ErrAuth},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusRequestTimeout, ErrTimeout},
		{http.StatusGatewayTimeout, ErrTimeout},
		{http.StatusInternalServerError, ErrMalformed},
	}
	for _, tc := range cases {
		err := classifyStatus("test", tc.code, "msg")
		if !errors.Is(err, tc.want) {
			t.Errorf("classifyStatus(%d) = %v, want sentinel %v", tc.code, err, tc.want)
		}
	}
}
