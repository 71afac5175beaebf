package registry

import (
	"context"
	"fmt"
	"net/http"

	"relaybot/internal/providers"
	"relaybot/internal/providers/anthropic_messages"
	"relaybot/internal/providers/gemini"
	"relaybot/internal/providers/openai_compat"
)

// Descriptor is the static catalog entry for one provider: everything the
// onboarding flow needs to present it and pick a model.
type Descriptor struct {
	ID           providers.ID
	DisplayName  string
	Models       []string
	DefaultModel string
	KeyURL       string
}

var catalog = []Descriptor{
	{
		ID:           providers.ChatGPT,
		DisplayName:  "ChatGPT",
		Models:       []string{"gpt-5", "gpt-5-mini", "gpt-4.1", "gpt-4o", "gpt-4o-mini"},
		DefaultModel: "gpt-4o-mini",
		KeyURL:       "https://platform.openai.com/api-keys",
	},
	{
		ID:           providers.Gemini,
		DisplayName:  "Google Gemini",
		Models:       []string{"gemini-2.5-pro", "gemini-2.5-flash"},
		DefaultModel: "gemini-2.5-flash",
		KeyURL:       "https://makersuite.google.com/app/apikey",
	},
	{
		ID:           providers.Claude,
		DisplayName:  "Claude",
		Models:       []string{"claude-opus-4.1", "claude-sonnet-4.5", "claude-haiku-4.5"},
		DefaultModel: "claude-sonnet-4.5",
		KeyURL:       "https://console.anthropic.com/",
	},
	{
		ID:           providers.Grok,
		DisplayName:  "Grok",
		Models:       []string{"grok-4", "grok-4-fast", "grok-code-fast-1"},
		DefaultModel: "grok-4-fast",
		KeyURL:       "https://console.x.ai/",
	},
	{
		ID:           providers.Custom,
		DisplayName:  "Custom LLM",
		Models:       []string{"llama-4-scout", "llama-3.3-70b", "magistral-medium", "devstral-small"},
		DefaultModel: "llama-3.3-70b",
		KeyURL:       "your custom LLM endpoint",
	},
}

func All() []Descriptor {
	out := make([]Descriptor, len(catalog))
	copy(out, catalog)
	return out
}

func Get(id providers.ID) (Descriptor, bool) {
	for _, d := range catalog {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

func (d Descriptor) HasModel(model string) bool {
	for _, m := range d.Models {
		if m == model {
			return true
		}
	}
	return false
}

type BuildOptions struct {
	CustomBaseURL string
	HTTPClient    *http.Client
}

func Build(id providers.ID, opts BuildOptions) (providers.Provider, error) {
	switch id {
	case providers.ChatGPT:
		return openai_compat.New(openai_compat.Config{
			BaseURL:    "https://api.openai.com/v1",
			HTTPClient: opts.HTTPClient,
		}), nil
	case providers.Grok:
		return openai_compat.New(openai_compat.Config{
			BaseURL:    "https://api.x.ai/v1",
			HTTPClient: opts.HTTPClient,
		}), nil
	case providers.Custom:
		if opts.CustomBaseURL == "" {
			return nil, fmt.Errorf("custom provider base url is not configured")
		}
		return openai_compat.New(openai_compat.Config{
			BaseURL:    opts.CustomBaseURL,
			HTTPClient: opts.HTTPClient,
		}), nil
	case providers.Gemini:
		return gemini.New(gemini.Config{HTTPClient: opts.HTTPClient}), nil
	case providers.Claude:
		return anthropic_messages.New(anthropic_messages.Config{HTTPClient: opts.HTTPClient}), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", id)
	}
}

// Invoker builds the adapter for a provider and performs one chat call. It is
// the production implementation of the dispatch boundary.
type Invoker struct {
	CustomBaseURL string
	HTTPClient    *http.Client
}

func (i Invoker) Invoke(ctx context.Context, id providers.ID, req providers.ChatRequest) (providers.ChatResponse, error) {
	p, err := Build(id, BuildOptions{CustomBaseURL: i.CustomBaseURL, HTTPClient: i.HTTPClient})
	if err != nil {
		return providers.ChatResponse{}, providers.UnknownError(err)
	}
	return p.Chat(ctx, req)
}
