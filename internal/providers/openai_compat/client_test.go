package openai_compat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"relaybot/internal/providers"
)

func TestBuildPayloadIncludesHistory(t *testing.T) {
	body, err := buildPayload(providers.ChatRequest{
		Model:  "grok-4-fast",
		Prompt: "and now?",
		History: []providers.Message{
			{Role: providers.RoleUser, Content: "hello"},
			{Role: providers.RoleAssistant, Content: "hi there"},
		},
		MaxTokens:   123,
		Temperature: 0.4,
	})
	if err != nil {
		t.Fatalf("build payload: %v", err)
	}

	var payload struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Model != "grok-4-fast" {
		t.Fatalf("expected model grok-4-fast, got %q", payload.Model)
	}
	if len(payload.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(payload.Messages))
	}
	if payload.Messages[0].Role != "user" || payload.Messages[1].Role != "assistant" {
		t.Fatalf("history roles wrong: %+v", payload.Messages)
	}
	if payload.Messages[2].Content != "and now?" {
		t.Fatalf("prompt must come last, got %q", payload.Messages[2].Content)
	}
}

func TestBuildEndpointURL(t *testing.T) {
	c := New(Config{BaseURL: "https://api.x.ai/v1"})
	u, err := c.buildEndpointURL()
	if err != nil {
		t.Fatalf("build endpoint: %v", err)
	}
	if u != "https://api.x.ai/v1/chat/completions" {
		t.Fatalf("unexpected endpoint %q", u)
	}
}

func TestChatClassifiesStatuses(t *testing.T) {
	cases := []struct {
		name   string
		status int
		kind   providers.FailureKind
	}{
		{"unauthorized", http.StatusUnauthorized, providers.FailureAuth},
		{"rate limited", http.StatusTooManyRequests, providers.FailureTransient},
		{"server error", http.StatusInternalServerError, providers.FailureTransient},
		{"bad request", http.StatusBadRequest, providers.FailureUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			c := New(Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
			_, err := c.Chat(context.Background(), providers.ChatRequest{Model: "gpt-4o-mini", APIKey: "k", Prompt: "hi"})
			if err == nil {
				t.Fatalf("expected error for status %d", tc.status)
			}
			var pe *providers.Error
			if !errors.As(err, &pe) {
				t.Fatalf("expected typed provider error, got %T", err)
			}
			if pe.Kind != tc.kind {
				t.Fatalf("expected kind %s, got %s", tc.kind, pe.Kind)
			}
		})
	}
}

func TestChatDeadlineIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		// Drain the body so the server's client-disconnect watcher runs;
		// otherwise r.Context() is never canceled and Close deadlocks.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Chat(ctx, providers.ChatRequest{Model: "gpt-4o-mini", APIKey: "k", Prompt: "hi"})
	var pe *providers.Error
	if !errors.As(err, &pe) {
		t.Fatalf("expected typed provider error, got %v", err)
	}
	if pe.Kind != providers.FailureTransient {
		t.Fatalf("expected transient failure on deadline, got %s", pe.Kind)
	}
}

func TestChatParsesReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"pong"}}]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
	resp, err := c.Chat(context.Background(), providers.ChatRequest{Model: "gpt-4o-mini", APIKey: "sk-test", Prompt: "ping"})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Text != "pong" {
		t.Fatalf("expected pong, got %q", resp.Text)
	}
}
