// Package llm adapts hosted language models to a small text-in, text-out
// interface used for report summaries and follow-up chat.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Roles used in chat history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("model returned an empty response")

	// ErrRequestFailed is returned for transport or API errors.
	ErrRequestFailed = errors.New("model request failed")
)

// GenerationConfig carries the sampling parameters of a single call.
type GenerationConfig struct {
	MaxTokens   int
	Temperature float32
	TopP        float32
	TopK        int
}

// Message is one prior turn of a conversation.
type Message struct {
	Role    string
	Content string
}

// Provider generates text from a prompt.
type Provider interface {
	// Generate answers a single prompt.
	Generate(ctx context.Context, prompt string, cfg GenerationConfig) (string, error)

	// Chat answers prompt as the next turn after history.
	Chat(ctx context.Context, history []Message, prompt string, cfg GenerationConfig) (string, error)

	// Name identifies the provider and model in logs.
	Name() string
}

// Options configure a provider.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
}

// NewProvider builds the provider registered under name ("gemini" or "openai").
func NewProvider(name string, opts Options) (Provider, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("llm: API key is required for provider %q", name)
	}

	switch strings.ToLower(name) {
	case "gemini", "google":
		return NewGeminiProvider(opts), nil
	case "openai":
		return NewOpenAIProvider(opts), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", name)
	}
}
