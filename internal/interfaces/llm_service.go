package interfaces

import (
	"context"
)

// LLMMode represents the operational mode of the LLM service
type LLMMode string

const (
	// LLMModeCloud indicates the service uses cloud-based LLM APIs
	LLMModeCloud LLMMode = "cloud"

	// LLMModeOffline indicates the service uses a local fake or offline model
	LLMModeOffline LLMMode = "offline"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// LLMService defines the boundary to the external language-model provider:
// embedding vectors for the retrieval pipeline and chat completions for the
// answer composer. Both calls are blocking network operations; callers pass
// a context and treat failures per the retrieval/generation error taxonomy.
type LLMService interface {
	// Embed generates a fixed-dimensionality embedding vector for the
	// given text. The vector is used for similarity search over the
	// fragment index.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Chat generates a completion for the conversation history. The
	// messages slice carries the full context in chronological order,
	// including system prompts.
	Chat(ctx context.Context, messages []Message) (string, error)

	// HealthCheck verifies the provider is reachable and authenticated.
	HealthCheck(ctx context.Context) error

	// GetMode reports whether the service talks to a cloud API or a
	// local/offline substitute.
	GetMode() LLMMode

	// Close releases client resources.
	Close() error
}
