package deepanalysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/thinkwright/prompt-evals/internal/provider"
	"github.com/thinkwright/prompt-evals/internal/rubric"
)

// ErrMissingPrompt is returned when the prompt to analyze is blank.
var ErrMissingPrompt = errors.New("prompt is required")

// Gateway sends a built analysis request upstream.
type Gateway interface {
	SendAnalysisRequest(ctx context.Context, req provider.AnalysisRequest) (provider.AnalysisResponse, error)
}

// Cache stores raw upstream replies by request key.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, providerID, model, response string) error
}

// Analyzer runs one deep analysis. *Service implements it.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (Response, error)
}

// Request is a single deep-analysis call.
type Request struct {
	APIKey          string `json:"apiKey,omitempty"`
	Prompt          string `json:"prompt"`
	ModelName       string `json:"modelName,omitempty"`
	SystemPrompt    string `json:"systemPrompt,omitempty"`
	ProviderID      string `json:"providerId,omitempty"`
	AnalysisModelID string `json:"analysisModelId,omitempty"`
}

// RequestFor fills the model-derived fields of a request from a profile.
func RequestFor(prompt string, model *rubric.ModelConfig) Request {
	req := Request{Prompt: prompt}
	if model != nil {
		req.ModelName = model.Name
		req.SystemPrompt = model.DeepAnalysisPrompt
		req.ProviderID = model.ProviderID
		req.AnalysisModelID = model.AnalysisModelID
	}
	return req
}

// Response is the raw reply plus its parsed form.
type Response struct {
	Content  string `json:"content"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Cached   bool   `json:"cached"`
	Result   Result `json:"result"`
}

// ServiceConfig wires optional collaborators into a Service.
type ServiceConfig struct {
	Cache  Cache
	Levers func() []rubric.Lever // feeds the evaluation-criteria block
	Logger *slog.Logger

	// Endpoints maps a provider id to the base URL override the gateway
	// sends it to. It keeps cache keys apart across upstreams.
	Endpoints map[string]string
}

// Service builds analysis prompts, calls the gateway and parses replies.
type Service struct {
	gateway   Gateway
	cache     Cache
	levers    func() []rubric.Lever
	endpoints map[string]string
	logger    *slog.Logger
}

// NewService returns a Service. Unset config fields get defaults: no cache,
// the built-in rubric, slog.Default().
func NewService(gw Gateway, cfg ServiceConfig) *Service {
	s := &Service{gateway: gw, cache: cfg.Cache, levers: cfg.Levers, endpoints: cfg.Endpoints, logger: cfg.Logger}
	if s.levers == nil {
		s.levers = rubric.DefaultLevers
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Analyze sends the prompt for critique and parses the reply. Upstream
// failures are returned unparsed; *provider.APIError survives errors.As.
func (s *Service) Analyze(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return Response{}, ErrMissingPrompt
	}

	providerID := req.ProviderID
	if providerID == "" {
		providerID = provider.Anthropic
	}
	model := req.AnalysisModelID
	if model == "" {
		model = provider.DefaultModel(providerID)
	}

	system := req.SystemPrompt
	if system == "" {
		system = SystemPrompt(req.ModelName)
	}
	user := BuildUserPrompt(req.Prompt, req.ModelName, s.levers())

	key := CacheKey(providerID, s.endpoints[providerID], model, system, user)
	if s.cache != nil {
		raw, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("analysis cache read failed", "error", err)
		} else if ok {
			s.logger.Debug("analysis cache hit", "provider", providerID, "model", model)
			return Response{Content: raw, Provider: providerID, Model: model, Cached: true, Result: ParseResponse(raw)}, nil
		}
	}

	resp, err := s.gateway.SendAnalysisRequest(ctx, provider.AnalysisRequest{
		APIKey:          req.APIKey,
		SystemPrompt:    system,
		UserPrompt:      user,
		ProviderID:      providerID,
		AnalysisModelID: req.AnalysisModelID,
	})
	if err != nil {
		return Response{}, fmt.Errorf("deep analysis via %s: %w", providerID, err)
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, key, providerID, model, resp.Content); err != nil {
			s.logger.Warn("analysis cache write failed", "error", err)
		}
	}

	return Response{
		Content:  resp.Content,
		Provider: resp.Provider,
		Model:    resp.Model,
		Result:   ParseResponse(resp.Content),
	}, nil
}

// CacheKey identifies an analysis request by everything sent upstream,
// including where it is sent. An empty endpoint means the provider default.
func CacheKey(providerID, endpoint, model, system, user string) string {
	h := sha256.New()
	for _, part := range []string{providerID, endpoint, model, system, user} {
		h.Write([]byte(part))
		h.Write([]byte{'|'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
