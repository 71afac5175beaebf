package providers

import "context"

// ID identifies one of the statically known text-generation providers.
type ID string

const (
	ChatGPT ID = "chatgpt"
	Gemini  ID = "gemini"
	Claude  ID = "claude"
	Grok    ID = "grok"
	Custom  ID = "custom"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one prior conversation turn passed as context.
type Message struct {
	Role    Role
	Content string
}

type ChatRequest struct {
	Model       string
	APIKey      string
	Prompt      string
	History     []Message
	MaxTokens   int
	Temperature float64
}

type ChatResponse struct {
	Text string
}

// Provider is the single capability every adapter implements. Adapters make
// exactly one upstream attempt per call; resending is up to the user.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}
