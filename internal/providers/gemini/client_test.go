package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"relaybot/internal/providers"
)

func TestChatBuildsContentsAndParsesReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-2.5-flash") {
			t.Errorf("model missing from path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "g-key" {
			t.Errorf("key missing from query: %s", r.URL.RawQuery)
		}

		var payload struct {
			Contents []struct {
				Role  string `json:"role"`
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if len(payload.Contents) != 3 {
			t.Errorf("expected 3 contents, got %d", len(payload.Contents))
		} else if payload.Contents[1].Role != "model" {
			t.Errorf("assistant turn must map to role model, got %q", payload.Contents[1].Role)
		}

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"bonjour"}]}}]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
	resp, err := c.Chat(context.Background(), providers.ChatRequest{
		Model:  "gemini-2.5-flash",
		APIKey: "g-key",
		Prompt: "translate hello",
		History: []providers.Message{
			{Role: providers.RoleUser, Content: "hi"},
			{Role: providers.RoleAssistant, Content: "hello"},
		},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Text != "bonjour" {
		t.Fatalf("expected bonjour, got %q", resp.Text)
	}
}

func TestChatInvalidKeyIsAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"status":"INVALID_ARGUMENT","message":"API_KEY_INVALID"}}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
	_, err := c.Chat(context.Background(), providers.ChatRequest{Model: "gemini-2.5-flash", APIKey: "bad", Prompt: "hi"})
	var pe *providers.Error
	if !errors.As(err, &pe) || pe.Kind != providers.FailureAuth {
		t.Fatalf("expected auth failure, got %v", err)
	}
}
