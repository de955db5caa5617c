package llm

import (
	"context"
	"fmt"

	"github.com/lazypower/prospector/internal/config"
)

// Client is the interface for LLM providers.
type Client interface {
	Complete(ctx context.Context, prompt string) (*Response, error)
}

// Response holds the result of an LLM completion.
type Response struct {
	Content    string
	Provider   string
	TokensUsed int
}

// NewClient creates an LLM client based on the config provider setting.
func NewClient(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "claude-cli":
		return NewClaudeCLI(modelOr(cfg.Model, "haiku")), nil
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, fmt.Errorf("anthropic provider requires ANTHROPIC_API_KEY or config")
		}
		return NewAnthropic(cfg.AnthropicKey, modelOr(cfg.Model, "claude-haiku-4-5-20251001")), nil
	case "ollama":
		url := cfg.OllamaURL
		if url == "" {
			url = "http://localhost:11434"
		}
		return NewOllama(url, modelOr(cfg.OllamaModel, "llama3.2")), nil
	case "gemini":
		return NewGemini(ctx, cfg.GeminiKey, modelOr(cfg.Model, "gemini-1.5-flash"))
	case "mock":
		// Empty completions; every draft takes the fallback path.
		return &MockClient{Response: &Response{Provider: "mock"}}, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
}

func modelOr(model, fallback string) string {
	if model == "" {
		return fallback
	}
	return model
}
