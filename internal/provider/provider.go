package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
)

// CompletionRequest is the input to an LLM completion.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

// CompletionResponse is the output from an LLM completion.
type CompletionResponse struct {
	Text      string
	Model     string
	LatencyMs int64
}

// LLMClient is the interface for making completions against any LLM provider.
type LLMClient interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

var (
	// ErrUnknownProvider is returned for a provider id with no client.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrMissingAPIKey is returned when no API key could be resolved.
	ErrMissingAPIKey = errors.New("API key is required")
)

// APIError is a non-2xx reply from an upstream provider.
type APIError struct {
	Provider   string
	StatusCode int
	Details    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: %d", e.Provider, e.StatusCode)
}

// Provider ids.
const (
	Anthropic        = "anthropic"
	OpenAI           = "openai"
	Google           = "google"
	Mistral          = "mistral"
	DeepSeek         = "deepseek"
	XAI              = "xai"
	Meta             = "meta"
	OpenAICompatible = "openai-compatible"
)

type wireFormat int

const (
	formatAnthropic wireFormat = iota
	formatOpenAI
	formatGemini
)

// providerSpec describes how to reach one provider family.
type providerSpec struct {
	format       wireFormat
	baseURL      string
	defaultModel string
	keyEnv       string
}

var providers = map[string]providerSpec{
	Anthropic: {formatAnthropic, "https://api.anthropic.com/v1", "claude-haiku-4-5-20251001", "ANTHROPIC_API_KEY"},
	OpenAI:    {formatOpenAI, "https://api.openai.com/v1", "gpt-4.1-mini", "OPENAI_API_KEY"},
	Google:    {formatGemini, "", "gemini-2.5-flash", "GEMINI_API_KEY"},
	Mistral:   {formatOpenAI, "https://api.mistral.ai/v1", "mistral-small-latest", "MISTRAL_API_KEY"},
	DeepSeek:  {formatOpenAI, "https://api.deepseek.com", "deepseek-chat", "DEEPSEEK_API_KEY"},
	XAI:       {formatOpenAI, "https://api.x.ai/v1", "grok-3-mini", "XAI_API_KEY"},
	Meta:      {formatOpenAI, "https://api.together.xyz/v1", "meta-llama/Llama-4-Maverick-17B-128E-Instruct", "TOGETHER_API_KEY"},
	// Base URL and model come from config.
	OpenAICompatible: {formatOpenAI, "", "", ""},
}

// Known returns the supported provider ids, sorted.
func Known() []string {
	ids := make([]string, 0, len(providers))
	for id := range providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsKnown reports whether id names a supported provider.
func IsKnown(id string) bool {
	_, ok := providers[id]
	return ok
}

// DefaultModel returns the default analysis model for a provider.
func DefaultModel(id string) string {
	return providers[id].defaultModel
}

// DefaultMaxTokens matches the size of a full four-section analysis reply.
const DefaultMaxTokens = 1500

// Config holds provider configuration.
type Config struct {
	Provider   string // see Known(); empty means anthropic
	Model      string
	BaseURL    string // required for openai-compatible, optional override otherwise
	APIKey     string // takes precedence over APIKeyEnv
	APIKeyEnv  string // env var name to read API key from
	MaxTokens  int
	MaxRetries int // 429 retries; negative disables
	HTTPClient *http.Client
}

// NewClient creates an LLMClient from configuration.
func NewClient(cfg Config) (LLMClient, error) {
	if cfg.Provider == "" {
		cfg.Provider = Anthropic
	}
	spec, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s (supported: %s)", ErrUnknownProvider, cfg.Provider, strings.Join(Known(), ", "))
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	} else if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}

	if cfg.Provider == OpenAICompatible {
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("base_url is required for openai-compatible provider")
		}
		if cfg.Model == "" {
			return nil, fmt.Errorf("model is required for openai-compatible provider")
		}
	}
	if cfg.Model == "" {
		cfg.Model = spec.defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = spec.baseURL
	}

	apiKey, err := resolveKey(cfg, spec)
	if err != nil {
		return nil, err
	}

	switch spec.format {
	case formatAnthropic:
		return &AnthropicClient{
			apiKey:     apiKey,
			model:      cfg.Model,
			maxTokens:  cfg.MaxTokens,
			baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
			httpClient: cfg.HTTPClient,
			maxRetries: cfg.MaxRetries,
		}, nil
	case formatGemini:
		return &GeminiClient{
			apiKey:    apiKey,
			model:     cfg.Model,
			maxTokens: cfg.MaxTokens,
			endpoint:  cfg.BaseURL,
		}, nil
	default:
		return &OpenAIClient{
			name:       cfg.Provider,
			apiKey:     apiKey, // may be empty for local providers like Ollama
			model:      cfg.Model,
			maxTokens:  cfg.MaxTokens,
			baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
			httpClient: cfg.HTTPClient,
			maxRetries: cfg.MaxRetries,
		}, nil
	}
}

func resolveKey(cfg Config, spec providerSpec) (string, error) {
	if cfg.APIKey != "" {
		return cfg.APIKey, nil
	}
	keyEnv := cfg.APIKeyEnv
	if keyEnv == "" {
		keyEnv = spec.keyEnv
	}
	if keyEnv == "" {
		// openai-compatible without a key env
		return "", nil
	}
	apiKey := os.Getenv(keyEnv)
	if apiKey == "" && cfg.Provider != OpenAICompatible {
		return "", fmt.Errorf("%w: environment variable %s is not set", ErrMissingAPIKey, keyEnv)
	}
	return apiKey, nil
}
