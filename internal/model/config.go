package model

import "time"

// Config is the complete yojana configuration, assembled from defaults,
// the config file, environment variables and flags (in rising priority)
type Config struct {
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Flow        FlowConfig        `yaml:"flow" mapstructure:"flow"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// LLMConfig configures the external completion service
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // nvidia, openai, ollama, "" (disabled)
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"` // seconds, 0 = transport default
	Temperature float32 `yaml:"temperature" mapstructure:"temperature"`
	TopP        float32 `yaml:"top_p" mapstructure:"top_p"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// FlowConfig configures the onboarding flow controller
type FlowConfig struct {
	MinResolving time.Duration `yaml:"min_resolving" mapstructure:"min_resolving"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr        string        `yaml:"addr" mapstructure:"addr"`
	SessionTTL  time.Duration `yaml:"session_ttl" mapstructure:"session_ttl"`
	MaxWait     time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
	ReleaseMode bool          `yaml:"release_mode" mapstructure:"release_mode"`
	CORSOrigins []string      `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// ConcurrencyConfig configures batch resolution
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// HTTPConfig holds outbound proxy settings
type HTTPConfig struct {
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // console, json
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "nvidia",
			Model:       "mistralai/mistral-nemotron",
			BaseURL:     "https://integrate.api.nvidia.com/v1",
			Timeout:     0,
			Temperature: 0.6,
			TopP:        0.7,
			MaxTokens:   2048,
		},
		Flow: FlowConfig{
			MinResolving: 3 * time.Second,
		},
		Server: ServerConfig{
			Addr:       ":8080",
			SessionTTL: 30 * time.Minute,
			MaxWait:    30 * time.Second,
			CORSOrigins: []string{
				"http://localhost:5173",
				"http://localhost:3000",
				"http://127.0.0.1:5173",
			},
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}
