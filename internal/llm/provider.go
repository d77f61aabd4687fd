package llm

import "context"

// ChatMessage is one turn in a chat-completion payload
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request contains chat generation parameters
type Request struct {
	Messages    []ChatMessage
	Model       string
	Temperature float64
	MaxTokens   int
}

// Response contains the generation result
type Response struct {
	Content    string
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// Provider defines the interface for LLM providers. Implementations that
// stream tokens concatenate them before returning; no caller depends on
// intermediate chunks.
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// AvailableModels returns list of supported models
	AvailableModels() []string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Chat generates a completion for the given messages
	Chat(ctx context.Context, req Request) (*Response, error)
}
