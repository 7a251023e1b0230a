package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/segmentio/encoding/json"
)

// --- NewClient tests ---

func TestNewClientUnknownProvider(t *testing.T) {
	_, err := NewClient(Config{Provider: "nope"})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("err = %v, want ErrUnknownProvider", err)
	}
}

func TestNewClientAnthropicMissingKey(t *testing.T) {
	os.Unsetenv("ANTHROPIC_API_KEY")
	_, err := NewClient(Config{Provider: Anthropic})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestNewClientEmptyProviderIsAnthropic(t *testing.T) {
	client, err := NewClient(Config{APIKey: "k"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ac, ok := client.(*AnthropicClient)
	if !ok {
		t.Fatalf("client = %T, want *AnthropicClient", client)
	}
	if ac.model != "claude-haiku-4-5-20251001" {
		t.Errorf("model = %q", ac.model)
	}
	if ac.maxTokens != DefaultMaxTokens {
		t.Errorf("maxTokens = %d, want %d", ac.maxTokens, DefaultMaxTokens)
	}
	if ac.maxRetries != defaultMaxRetries {
		t.Errorf("maxRetries = %d, want %d", ac.maxRetries, defaultMaxRetries)
	}
}

func TestNewClientExplicitKeyWinsOverEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "from-env")
	client, err := NewClient(Config{Provider: OpenAI, APIKey: "from-request"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := client.(*OpenAIClient).apiKey; got != "from-request" {
		t.Errorf("apiKey = %q, want from-request", got)
	}
}

func TestNewClientOpenAIStyleDefaults(t *testing.T) {
	tests := []struct {
		provider string
		keyEnv   string
		baseURL  string
		model    string
	}{
		{OpenAI, "OPENAI_API_KEY", "https://api.openai.com/v1", "gpt-4.1-mini"},
		{Mistral, "MISTRAL_API_KEY", "https://api.mistral.ai/v1", "mistral-small-latest"},
		{DeepSeek, "DEEPSEEK_API_KEY", "https://api.deepseek.com", "deepseek-chat"},
		{XAI, "XAI_API_KEY", "https://api.x.ai/v1", "grok-3-mini"},
		{Meta, "TOGETHER_API_KEY", "https://api.together.xyz/v1", "meta-llama/Llama-4-Maverick-17B-128E-Instruct"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			t.Setenv(tt.keyEnv, "test-key")
			client, err := NewClient(Config{Provider: tt.provider})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			oc, ok := client.(*OpenAIClient)
			if !ok {
				t.Fatalf("client = %T, want *OpenAIClient", client)
			}
			if oc.baseURL != tt.baseURL {
				t.Errorf("baseURL = %q, want %q", oc.baseURL, tt.baseURL)
			}
			if oc.model != tt.model {
				t.Errorf("model = %q, want %q", oc.model, tt.model)
			}
			if oc.name != tt.provider {
				t.Errorf("name = %q, want %q", oc.name, tt.provider)
			}
		})
	}
}

func TestNewClientGoogle(t *testing.T) {
	client, err := NewClient(Config{Provider: Google, APIKey: "g-key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gc, ok := client.(*GeminiClient)
	if !ok {
		t.Fatalf("client = %T, want *GeminiClient", client)
	}
	if gc.model != "gemini-2.5-flash" {
		t.Errorf("model = %q", gc.model)
	}
}

func TestNewClientOpenAICompatMissingBaseURL(t *testing.T) {
	_, err := NewClient(Config{Provider: OpenAICompatible, Model: "llama3"})
	if err == nil {
		t.Fatal("expected error when base_url is missing")
	}
}

func TestNewClientOpenAICompatMissingModel(t *testing.T) {
	_, err := NewClient(Config{Provider: OpenAICompatible, BaseURL: "http://localhost:11434/v1"})
	if err == nil {
		t.Fatal("expected error when model is missing")
	}
}

func TestNewClientOpenAICompatNoKeyRequired(t *testing.T) {
	client, err := NewClient(Config{
		Provider: OpenAICompatible,
		BaseURL:  "http://localhost:11434/v1/",
		Model:    "llama3",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	oc := client.(*OpenAIClient)
	if oc.apiKey != "" {
		t.Error("expected empty API key for local provider")
	}
	if oc.baseURL != "http://localhost:11434/v1" {
		t.Errorf("baseURL = %q, want trailing slash trimmed", oc.baseURL)
	}
}

func TestNewClientCustomAPIKeyEnv(t *testing.T) {
	t.Setenv("CEREBRAS_API_KEY", "crs-test-key")
	client, err := NewClient(Config{
		Provider:  OpenAICompatible,
		BaseURL:   "https://api.cerebras.ai/v1",
		Model:     "llama-4-scout-17b-16e-instruct",
		APIKeyEnv: "CEREBRAS_API_KEY",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	oc := client.(*OpenAIClient)
	if oc.apiKey != "crs-test-key" {
		t.Errorf("expected API key from CEREBRAS_API_KEY, got %q", oc.apiKey)
	}
}

func TestNewClientNegativeRetriesDisables(t *testing.T) {
	client, err := NewClient(Config{Provider: Anthropic, APIKey: "k", MaxRetries: -1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := client.(*AnthropicClient).maxRetries; got != 0 {
		t.Errorf("maxRetries = %d, want 0", got)
	}
}

func TestKnownProviders(t *testing.T) {
	for _, id := range []string{Anthropic, OpenAI, Google, Mistral, DeepSeek, XAI, Meta, OpenAICompatible} {
		if !IsKnown(id) {
			t.Errorf("IsKnown(%q) = false", id)
		}
	}
	if IsKnown("cohere") {
		t.Error("IsKnown(cohere) = true")
	}
	if got := len(Known()); got != 8 {
		t.Errorf("len(Known()) = %d, want 8", got)
	}
}

// --- HTTP round-trip tests ---

func openAIReply(text string) openaiResponse {
	var r openaiResponse
	r.Choices = make([]struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}, 1)
	r.Choices[0].Message.Content = text
	r.Model = "test-model"
	return r
}

func TestOpenAIClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("missing or wrong Authorization header")
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Error("missing Content-Type header")
		}

		var req openaiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Temperature == nil {
			t.Error("expected temperature to be set")
		}
		if req.Model != "test-model" {
			t.Errorf("expected model test-model, got %s", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("messages = %+v, want system then user", req.Messages)
		}

		json.NewEncoder(w).Encode(openAIReply("hello from test"))
	}))
	defer server.Close()

	client := &OpenAIClient{
		apiKey:    "test-key",
		model:     "test-model",
		maxTokens: 100,
		baseURL:   server.URL,
	}

	resp, err := client.Complete(context.Background(), CompletionRequest{
		SystemPrompt: "be brief",
		UserPrompt:   "hi",
		Temperature:  0.7,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "hello from test" {
		t.Errorf("unexpected response text: %s", resp.Text)
	}
	if resp.LatencyMs < 0 {
		t.Error("expected non-negative latency")
	}
}

func TestAnthropicClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Error("missing or wrong x-api-key header")
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Error("missing anthropic-version header")
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.System != "you are helpful" {
			t.Errorf("expected system prompt, got %q", req.System)
		}
		if req.MaxTokens != 100 {
			t.Errorf("max_tokens = %d, want 100", req.MaxTokens)
		}

		w.Write([]byte(`{"content":[{"text":"hello from anthropic"}],"model":"claude-test"}`))
	}))
	defer server.Close()

	client := &AnthropicClient{
		apiKey:    "test-key",
		model:     "claude-test",
		maxTokens: 100,
		baseURL:   server.URL,
	}

	resp, err := client.Complete(context.Background(), CompletionRequest{
		SystemPrompt: "you are helpful",
		UserPrompt:   "hi",
		Temperature:  0.7,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "hello from anthropic" {
		t.Errorf("unexpected response text: %s", resp.Text)
	}
	if resp.Model != "claude-test" {
		t.Errorf("model = %q", resp.Model)
	}
}

func TestClientErrorResponseIsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "bad key"}}`))
	}))
	defer server.Close()

	clients := map[string]LLMClient{
		"openai":    &OpenAIClient{name: Mistral, apiKey: "k", model: "m", baseURL: server.URL},
		"anthropic": &AnthropicClient{apiKey: "k", model: "m", baseURL: server.URL},
	}
	for name, client := range clients {
		t.Run(name, func(t *testing.T) {
			_, err := client.Complete(context.Background(), CompletionRequest{UserPrompt: "hi"})
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *APIError", err)
			}
			if apiErr.StatusCode != http.StatusUnauthorized {
				t.Errorf("StatusCode = %d, want 401", apiErr.StatusCode)
			}
			if apiErr.Details != `{"error": {"message": "bad key"}}` {
				t.Errorf("Details = %q", apiErr.Details)
			}
		})
	}
}

func TestAPIErrorMessage(t *testing.T) {
	err := &APIError{Provider: Mistral, StatusCode: 429}
	if err.Error() != "mistral API error: 429" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestOpenAIClientEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openaiResponse{Model: "test"})
	}))
	defer server.Close()

	client := &OpenAIClient{
		apiKey:    "test-key",
		model:     "test-model",
		maxTokens: 100,
		baseURL:   server.URL,
	}

	_, err := client.Complete(context.Background(), CompletionRequest{UserPrompt: "hi"})
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestOpenAIClientBodyErrorField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
	}))
	defer server.Close()

	client := &OpenAIClient{name: DeepSeek, model: "m", baseURL: server.URL}
	_, err := client.Complete(context.Background(), CompletionRequest{UserPrompt: "hi"})
	if err == nil || err.Error() != "deepseek error: model overloaded" {
		t.Fatalf("err = %v", err)
	}
}
