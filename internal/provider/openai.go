package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/segmentio/encoding/json"
)

// OpenAIClient implements LLMClient for OpenAI and every provider that speaks
// the chat-completions wire format (Mistral, DeepSeek, xAI, Together, Ollama).
type OpenAIClient struct {
	name       string // provider id used in errors
	apiKey     string
	model      string
	maxTokens  int
	baseURL    string // e.g. "https://api.openai.com/v1" or "http://localhost:11434/v1"
	httpClient *http.Client
	maxRetries int
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Model string `json:"model"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	var messages []openaiMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openaiMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, openaiMessage{Role: "user", Content: req.UserPrompt})

	body := openaiRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: maxTokens,
	}
	temp := req.Temperature
	body.Temperature = &temp

	payload, err := json.Marshal(body)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return CompletionResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	client := c.httpClient
	if client == nil {
		client = http.DefaultClient
	}
	name := c.name
	if name == "" {
		name = OpenAI
	}

	start := time.Now()
	resp, err := doWithRetry(ctx, client, httpReq, payload, c.maxRetries)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("%s API call failed: %w", name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return CompletionResponse{}, &APIError{Provider: name, StatusCode: resp.StatusCode, Details: string(respBody)}
	}

	var result openaiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return CompletionResponse{}, fmt.Errorf("unmarshal response: %w", err)
	}

	if result.Error != nil {
		return CompletionResponse{}, fmt.Errorf("%s error: %s", name, result.Error.Message)
	}

	if len(result.Choices) == 0 {
		return CompletionResponse{}, fmt.Errorf("empty response from %s", name)
	}

	return CompletionResponse{
		Text:      result.Choices[0].Message.Content,
		Model:     result.Model,
		LatencyMs: latency,
	}, nil
}
