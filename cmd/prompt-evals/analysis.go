package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/thinkwright/prompt-evals/internal/cache"
	"github.com/thinkwright/prompt-evals/internal/config"
	"github.com/thinkwright/prompt-evals/internal/deepanalysis"
	"github.com/thinkwright/prompt-evals/internal/provider"
	"github.com/thinkwright/prompt-evals/internal/rubric"
)

// analysisCacheMaxAge bounds how long a cached reply is reused.
const analysisCacheMaxAge = 30 * 24 * time.Hour

// gatewayFlags override the analysis settings for one run.
type gatewayFlags struct {
	provider      string
	analysisModel string
	apiKeyEnv     string
	baseURL       string
	rpm           float64
	cachePath     string
	noCache       bool
}

func (f *gatewayFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.provider, "provider", "", "Analysis provider (anthropic, openai, google, mistral, deepseek, xai, meta, openai-compatible)")
	cmd.Flags().StringVar(&f.analysisModel, "analysis-model", "", "Provider model that performs the analysis")
	cmd.Flags().StringVar(&f.apiKeyEnv, "api-key-env", "", "Environment variable holding the provider API key")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "Provider base URL override (required for openai-compatible)")
	cmd.Flags().Float64Var(&f.rpm, "rpm", 0, "Client-side request limit per minute (0 = unlimited)")
	cmd.Flags().StringVar(&f.cachePath, "cache", "", "SQLite cache of analysis replies")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "Disable the analysis cache")
}

// apply folds explicitly set flags into the analysis settings.
func (f *gatewayFlags) apply(cmd *cobra.Command, s *config.AnalysisSettings) error {
	flags := cmd.Flags()
	if flags.Changed("provider") {
		if !provider.IsKnown(f.provider) {
			return fmt.Errorf("%w: %s", provider.ErrUnknownProvider, f.provider)
		}
		if f.provider != s.Provider {
			// A configured model belongs to the configured provider.
			s.Model = ""
		}
		s.Provider = f.provider
	}
	if flags.Changed("analysis-model") {
		s.Model = f.analysisModel
	}
	if flags.Changed("api-key-env") {
		s.APIKeyEnv = f.apiKeyEnv
	}
	if flags.Changed("base-url") {
		s.BaseURL = f.baseURL
	}
	if flags.Changed("rpm") {
		s.RequestsPerMinute = f.rpm
	}
	if flags.Changed("cache") {
		s.CachePath = f.cachePath
	}
	if f.noCache {
		s.CachePath = ""
	}
	return nil
}

// analysisStack is the gateway, cache and service built from settings.
type analysisStack struct {
	service *deepanalysis.Service
	cache   *cache.AnalysisCache
}

func (s *analysisStack) Close() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Close()
}

// newAnalysisStack wires the provider gateway, the optional reply cache and
// the deep-analysis service.
func newAnalysisStack(a *app) (*analysisStack, error) {
	settings := a.settings.Analysis

	gwCfg := provider.GatewayConfig{
		MaxTokens:         settings.MaxTokens,
		RequestsPerMinute: int(settings.RequestsPerMinute),
		HTTPClient:        &http.Client{Timeout: settings.Timeout},
	}
	if settings.BaseURL != "" {
		p := settings.Provider
		if p == "" {
			p = provider.Anthropic
		}
		gwCfg.BaseURLs = map[string]string{p: settings.BaseURL}
	}
	gw := provider.NewGateway(gwCfg, a.logger)

	stack := &analysisStack{}
	svcCfg := deepanalysis.ServiceConfig{
		Levers:    func() []rubric.Lever { return a.engine.Snapshot().Levers() },
		Logger:    a.logger,
		Endpoints: gwCfg.BaseURLs,
	}
	if settings.CachePath != "" {
		c, err := cache.Open(settings.CachePath, analysisCacheMaxAge)
		if err != nil {
			return nil, fmt.Errorf("open analysis cache: %w", err)
		}
		stack.cache = c
		svcCfg.Cache = c
	}
	stack.service = deepanalysis.NewService(gw, svcCfg)
	return stack, nil
}

// apiKey reads the key from the configured env var. An empty name defers
// to the provider's own env var inside the gateway.
func apiKey(settings config.AnalysisSettings) (string, error) {
	if settings.APIKeyEnv == "" {
		return "", nil
	}
	key := os.Getenv(settings.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%w: environment variable %s is not set", provider.ErrMissingAPIKey, settings.APIKeyEnv)
	}
	return key, nil
}
