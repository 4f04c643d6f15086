package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/yojana/internal/model"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "nvidia":
		if config.BaseURL == "" {
			config.BaseURL = DefaultNVIDIABaseURL
		}
		return newOpenAI(config)

	case "openai":
		if config.BaseURL == DefaultNVIDIABaseURL {
			config.BaseURL = ""
		}
		return newOpenAI(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		// No provider configured - return nil (LLM disabled)
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: nvidia, openai, ollama)", config.Provider)
	}
}

// newOpenAI returns an untyped nil Provider on error
func newOpenAI(config Config) (Provider, error) {
	p, err := NewOpenAIProvider(config)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ConfigFromModel converts the application config to llm.Config
func ConfigFromModel(cfg model.LLMConfig, proxy model.HTTPConfig) Config {
	return Config{
		Provider:    cfg.Provider,
		Model:       cfg.Model,
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Timeout:     cfg.Timeout,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		MaxTokens:   cfg.MaxTokens,
		HTTPProxy:   proxy.HTTPProxy,
		HTTPSProxy:  proxy.HTTPSProxy,
		NoProxy:     proxy.NoProxy,
	}
}
