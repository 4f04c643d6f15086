package llm

import (
	"context"
	"strings"
)

// Provider defines the interface for chat-completion providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends a single user prompt and returns the completion text
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest contains the input for one completion call
type CompletionRequest struct {
	// Prompt is sent as the single user-role message
	Prompt string

	// Model overrides the configured model when set
	Model string

	// Sampling parameters; zero values fall back to the provider config
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// CompletionResponse contains the completion output
type CompletionResponse struct {
	// Content is the text of the first choice
	Content string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "nvidia", "openai", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for bearer-authenticated providers
	APIKey string

	// BaseURL for custom endpoints
	BaseURL string

	// Timeout for API requests in seconds; 0 leaves the transport default
	Timeout int

	Temperature float32
	TopP        float32
	MaxTokens   int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

const (
	DefaultNVIDIABaseURL = "https://integrate.api.nvidia.com/v1"
	DefaultModel         = "mistralai/mistral-nemotron"
)

// DefaultConfig returns the NVIDIA-hosted defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "nvidia",
		Model:       DefaultModel,
		BaseURL:     DefaultNVIDIABaseURL,
		Temperature: 0.6,
		TopP:        0.7,
		MaxTokens:   2048,
	}
}

// placeholderKeys are values shipped in sample .env files
var placeholderKeys = map[string]bool{
	"your_nvidia_api_key_here": true,
	"your_api_key_here":        true,
	"your-api-key":             true,
	"<your-api-key>":           true,
	"changeme":                 true,
	"xxx":                      true,
}

// IsPlaceholderKey reports whether key is empty or an obvious sample value
func IsPlaceholderKey(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "" || placeholderKeys[k] {
		return true
	}
	return strings.HasPrefix(k, "your_") && strings.HasSuffix(k, "_here")
}

// RequiresKey reports whether the named provider authenticates with a bearer key
func RequiresKey(provider string) bool {
	return strings.ToLower(provider) != "ollama"
}

// Configured reports whether cfg is usable without a guaranteed failure:
// a provider is selected and, where one is needed, a real key is present
func Configured(cfg Config) bool {
	if cfg.Provider == "" {
		return false
	}
	if RequiresKey(cfg.Provider) && IsPlaceholderKey(cfg.APIKey) {
		return false
	}
	return true
}
