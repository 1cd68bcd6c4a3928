// Package llm drafts agent replies with a hosted language model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// CompletionRequest is a provider-neutral chat completion request.
type CompletionRequest struct {
	Model       string
	System      string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
}

// ChatMessage is one turn sent to the model.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CompletionResponse is the model's answer.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is implemented by each LLM provider.
type Client interface {
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
	Name() string
}

// Provider names a hosted model vendor.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

const defaultMaxTokens = 1024

// ErrNoProvider means no API key is configured for drafting.
var ErrNoProvider = errors.New("no LLM provider configured")

// Keys holds the configured API key of each provider.
type Keys struct {
	Anthropic string
	OpenAI    string
}

// SelectProvider picks the provider to draft with. An empty name picks the
// first provider with a key, Anthropic first.
func SelectProvider(name string, keys Keys) (Provider, string, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(name))) {
	case "":
		if keys.Anthropic != "" {
			return ProviderAnthropic, keys.Anthropic, nil
		}
		if keys.OpenAI != "" {
			return ProviderOpenAI, keys.OpenAI, nil
		}
		return "", "", ErrNoProvider
	case ProviderAnthropic:
		if keys.Anthropic == "" {
			return "", "", fmt.Errorf("%w: ANTHROPIC_API_KEY is empty", ErrNoProvider)
		}
		return ProviderAnthropic, keys.Anthropic, nil
	case ProviderOpenAI:
		if keys.OpenAI == "" {
			return "", "", fmt.Errorf("%w: OPENAI_API_KEY is empty", ErrNoProvider)
		}
		return ProviderOpenAI, keys.OpenAI, nil
	default:
		return "", "", fmt.Errorf("unknown LLM provider %q", name)
	}
}

// NewClient creates a client for provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey)
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", provider)
	}
}
