package factory

import (
	"fmt"
	"time"

	"agent-catalog-be/internal/pkg/logger"
	"agent-catalog-be/pkg/llm"
	"agent-catalog-be/pkg/llm/ollama"
	"agent-catalog-be/pkg/llm/openai"
)

type ProviderConfig struct {
	Provider       string // "openai" or "ollama"
	Model          string
	BaseURL        string
	APIKey         string
	Temperature    float64
	MaxTokens      int
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

func NewLLMProvider(cfg ProviderConfig, log logger.ILogger) (llm.LLMProvider, error) {
	defaults := llm.Options{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Model:       cfg.Model,
	}

	switch cfg.Provider {
	case "openai":
		if cfg.BaseURL == "" {
			cfg.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return openai.NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.ConnectTimeout, cfg.ReadTimeout, defaults, log), nil
	case "ollama":
		if cfg.BaseURL == "" {
			cfg.BaseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(cfg.BaseURL, cfg.Model, cfg.ConnectTimeout, cfg.ReadTimeout, defaults, log), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
