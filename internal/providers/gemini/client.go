package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"relaybot/internal/providers"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type Config struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Client speaks the generateContent REST API. Gemini has no assistant role;
// prior assistant turns are sent as role "model".
type Client struct {
	cfg Config
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{cfg: cfg}
}

var _ providers.Provider = (*Client)(nil)

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

func (c *Client) Chat(ctx context.Context, req providers.ChatRequest) (providers.ChatResponse, error) {
	contents := make([]content, 0, len(req.History)+1)
	for _, turn := range req.History {
		role := "user"
		if turn.Role == providers.RoleAssistant {
			role = "model"
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: turn.Content}}})
	}
	contents = append(contents, content{Role: "user", Parts: []part{{Text: req.Prompt}}})

	payload := map[string]any{"contents": contents}
	genCfg := map[string]any{}
	if req.MaxTokens > 0 {
		genCfg["maxOutputTokens"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		genCfg["temperature"] = req.Temperature
	}
	if len(genCfg) > 0 {
		payload["generationConfig"] = genCfg
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return providers.ChatResponse{}, fmt.Errorf("marshal generate content payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimSuffix(c.cfg.BaseURL, "/"), url.PathEscape(req.Model), url.QueryEscape(req.APIKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return providers.ChatResponse{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return providers.ChatResponse{}, providers.TransientError(0, ctx.Err())
		}
		return providers.ChatResponse{}, providers.TransientError(0, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return providers.ChatResponse{}, providers.UnknownError(fmt.Errorf("read response body: %w", err))
	}
	if resp.StatusCode == http.StatusBadRequest && bytes.Contains(respBody, []byte("API_KEY_INVALID")) {
		// Gemini reports a bad key as 400, not 401.
		return providers.ChatResponse{}, providers.AuthError(resp.StatusCode, fmt.Errorf("api key rejected"))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return providers.ChatResponse{}, providers.StatusError(resp.StatusCode)
	}

	text, err := parseGenerateContent(respBody)
	if err != nil {
		return providers.ChatResponse{}, providers.UnknownError(err)
	}
	return providers.ChatResponse{Text: text}, nil
}

func parseGenerateContent(body []byte) (string, error) {
	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []part `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode generate content response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty candidates in generate content response")
	}
	parts := resp.Candidates[0].Content.Parts
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p.Text) != "" {
			texts = append(texts, p.Text)
		}
	}
	if len(texts) == 0 {
		return "", fmt.Errorf("missing text parts in generate content response")
	}
	return strings.Join(texts, "\n"), nil
}
