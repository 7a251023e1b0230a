package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
)

// GeminiClient implements LLMClient for Google Gemini via the generative-ai-go SDK.
type GeminiClient struct {
	apiKey    string
	model     string
	maxTokens int
	endpoint  string // optional override of the SDK endpoint
}

// geminiTemperature is used when the request leaves temperature at zero.
const geminiTemperature = 0.7

func (c *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	opts := []option.ClientOption{option.WithAPIKey(c.apiKey)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("create gemini client: %w", err)
	}
	defer client.Close()

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}
	temp := req.Temperature
	if temp == 0 {
		temp = geminiTemperature
	}

	model := client.GenerativeModel(c.model)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.SetTemperature(float32(temp))
	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemPrompt)}}
	}

	start := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(req.UserPrompt))
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return CompletionResponse{}, geminiError(err)
	}

	text := geminiText(resp)
	if text == "" {
		return CompletionResponse{}, fmt.Errorf("empty response from google")
	}

	return CompletionResponse{
		Text:      text,
		Model:     c.model,
		LatencyMs: latency,
	}, nil
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}

// geminiError converts SDK errors into APIError where a status is known.
func geminiError(err error) error {
	var ae *apierror.APIError
	if !errors.As(err, &ae) {
		if converted, ok := apierror.FromError(err); ok {
			ae = converted
		}
	}
	if ae == nil {
		return fmt.Errorf("google API call failed: %w", err)
	}

	status := ae.HTTPCode()
	if status <= 0 && ae.GRPCStatus() != nil {
		status = httpStatusFromCode(ae.GRPCStatus().Code())
	}
	if status <= 0 {
		status = http.StatusBadGateway
	}
	return &APIError{Provider: Google, StatusCode: status, Details: ae.Error()}
}

func httpStatusFromCode(c codes.Code) int {
	switch c {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
