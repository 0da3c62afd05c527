package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/salus/internal/common"
	"github.com/ternarybob/salus/internal/interfaces"
)

// NewLLMService creates the appropriate LLM service implementation based on
// configuration. The gemini provider serves both embeddings and chat; the
// claude provider serves chat only and is paired with a Gemini embedding
// gateway, so a Gemini API key is required in either case.
func NewLLMService(cfg *common.Config, logger arbor.ILogger) (interfaces.LLMService, error) {
	provider := cfg.LLM.DefaultProvider
	if provider == "" {
		provider = common.LLMProviderGemini
	}

	logger.Info().Str("provider", string(provider)).Msg("Initializing LLM service")

	switch provider {
	case common.LLMProviderGemini:
		return NewGeminiService(&cfg.Gemini, logger)

	case common.LLMProviderClaude:
		embedder, err := NewGeminiService(&cfg.Gemini, logger)
		if err != nil {
			return nil, fmt.Errorf("claude provider requires a gemini embedding gateway: %w", err)
		}
		chatter, err := NewClaudeService(&cfg.Claude, logger)
		if err != nil {
			embedder.Close()
			return nil, err
		}
		return &hybridService{embedder: embedder, chatter: chatter}, nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider '%s': must be 'gemini' or 'claude'", provider)
	}
}

// hybridService routes embeddings to Gemini and chat to Claude.
type hybridService struct {
	embedder *GeminiService
	chatter  *ClaudeService
}

func (h *hybridService) Embed(ctx context.Context, text string) ([]float32, error) {
	return h.embedder.Embed(ctx, text)
}

func (h *hybridService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	return h.chatter.Chat(ctx, messages)
}

func (h *hybridService) HealthCheck(ctx context.Context) error {
	if err := h.embedder.HealthCheck(ctx); err != nil {
		return fmt.Errorf("embedding gateway unhealthy: %w", err)
	}
	if err := h.chatter.HealthCheck(ctx); err != nil {
		return fmt.Errorf("chat gateway unhealthy: %w", err)
	}
	return nil
}

func (h *hybridService) GetMode() interfaces.LLMMode {
	return interfaces.LLMModeCloud
}

func (h *hybridService) Close() error {
	embedErr := h.embedder.Close()
	chatErr := h.chatter.Close()
	if embedErr != nil {
		return embedErr
	}
	return chatErr
}
