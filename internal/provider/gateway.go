package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// AnalysisRequest is one deep-analysis call routed through the gateway.
type AnalysisRequest struct {
	APIKey          string // falls back to the provider's env var
	SystemPrompt    string
	UserPrompt      string
	ProviderID      string // empty means anthropic
	AnalysisModelID string // empty means the provider default
}

// AnalysisResponse is the raw reply from the upstream provider.
type AnalysisResponse struct {
	Content   string `json:"content"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	LatencyMs int64  `json:"latencyMs"`
}

// GatewayConfig tunes every client the gateway builds.
type GatewayConfig struct {
	MaxTokens         int
	Temperature       float64
	MaxRetries        int
	RequestsPerMinute int
	BaseURLs          map[string]string // per-provider endpoint overrides
	HTTPClient        *http.Client
}

// Gateway sends analysis prompts to the provider selected per request.
// It owns timeout, retry and rate-limit policy; callers see raw text or an error.
type Gateway struct {
	cfg       GatewayConfig
	limiter   *rate.Limiter
	logger    *slog.Logger
	newClient func(Config) (LLMClient, error)
}

// DefaultTemperature is used for analysis calls unless configured.
const DefaultTemperature = 0.7

// NewGateway returns a gateway. A nil logger uses slog.Default().
func NewGateway(cfg GatewayConfig, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	return &Gateway{
		cfg:       cfg,
		limiter:   NewLimiter(cfg.RequestsPerMinute, 1),
		logger:    logger,
		newClient: NewClient,
	}
}

// SendAnalysisRequest resolves the provider, sends the prompts and returns
// the raw reply. Upstream non-2xx replies surface as *APIError.
func (g *Gateway) SendAnalysisRequest(ctx context.Context, req AnalysisRequest) (AnalysisResponse, error) {
	providerID := strings.TrimSpace(req.ProviderID)
	if providerID == "" {
		providerID = Anthropic
	}
	if !IsKnown(providerID) {
		return AnalysisResponse{}, fmt.Errorf("%w: %s", ErrUnknownProvider, providerID)
	}

	client, err := g.newClient(Config{
		Provider:   providerID,
		Model:      req.AnalysisModelID,
		BaseURL:    g.cfg.BaseURLs[providerID],
		APIKey:     req.APIKey,
		MaxTokens:  g.cfg.MaxTokens,
		MaxRetries: g.cfg.MaxRetries,
		HTTPClient: g.cfg.HTTPClient,
	})
	if err != nil {
		return AnalysisResponse{}, fmt.Errorf("configure %s client: %w", providerID, err)
	}
	client = WithLimiter(client, g.limiter)

	model := req.AnalysisModelID
	if model == "" {
		model = DefaultModel(providerID)
	}
	g.logger.Debug("sending analysis request", "provider", providerID, "model", model)

	resp, err := client.Complete(ctx, CompletionRequest{
		SystemPrompt: req.SystemPrompt,
		UserPrompt:   req.UserPrompt,
		Temperature:  g.cfg.Temperature,
		MaxTokens:    g.cfg.MaxTokens,
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			g.logger.Warn("analysis provider error", "provider", providerID, "status", apiErr.StatusCode)
		} else {
			g.logger.Warn("analysis request failed", "provider", providerID, "error", err)
		}
		return AnalysisResponse{}, err
	}

	if resp.Model != "" {
		model = resp.Model
	}
	g.logger.Debug("analysis reply received", "provider", providerID, "model", model, "latency_ms", resp.LatencyMs)

	return AnalysisResponse{
		Content:   resp.Text,
		Provider:  providerID,
		Model:     model,
		LatencyMs: resp.LatencyMs,
	}, nil
}
