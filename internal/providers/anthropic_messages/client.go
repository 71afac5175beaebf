package anthropic_messages

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"

	"relaybot/internal/providers"
)

type Config struct {
	HTTPClient *http.Client
}

// Client wraps the Anthropic messages API.
type Client struct {
	cfg Config
}

func New(cfg Config) *Client {
	return &Client{cfg: cfg}
}

var _ providers.Provider = (*Client)(nil)

func (c *Client) Chat(ctx context.Context, req providers.ChatRequest) (providers.ChatResponse, error) {
	opts := []anthropic.ClientOption{}
	if c.cfg.HTTPClient != nil {
		opts = append(opts, anthropic.WithHTTPClient(c.cfg.HTTPClient))
	}
	client := anthropic.NewClient(req.APIKey, opts...)

	messages := make([]anthropic.Message, 0, len(req.History)+1)
	for _, turn := range req.History {
		if turn.Role == providers.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantTextMessage(turn.Content))
		} else {
			messages = append(messages, anthropic.NewUserTextMessage(turn.Content))
		}
	}
	messages = append(messages, anthropic.NewUserTextMessage(req.Prompt))

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	resp, err := client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(req.Model),
		Messages:  messages,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return providers.ChatResponse{}, classify(ctx, err)
	}

	text := strings.TrimSpace(resp.GetFirstContentText())
	if text == "" {
		return providers.ChatResponse{}, providers.UnknownError(fmt.Errorf("empty message content"))
	}
	return providers.ChatResponse{Text: text}, nil
}

func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return providers.TransientError(0, ctx.Err())
	}

	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.IsAuthenticationErr(), apiErr.IsPermissionErr():
			return providers.AuthError(0, err)
		case apiErr.IsRateLimitErr(), apiErr.IsOverloadedErr(), apiErr.IsApiErr():
			return providers.TransientError(0, err)
		default:
			return providers.UnknownError(err)
		}
	}

	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) {
		return providers.StatusError(reqErr.StatusCode)
	}

	// Transport-level failure (connection refused, DNS, etc).
	return providers.TransientError(0, err)
}
