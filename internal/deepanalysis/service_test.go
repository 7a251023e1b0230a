package deepanalysis

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thinkwright/prompt-evals/internal/provider"
	"github.com/thinkwright/prompt-evals/internal/rubric"
)

type fakeGateway struct {
	mu    sync.Mutex
	calls []provider.AnalysisRequest
	reply string
	err   error
}

func (g *fakeGateway) SendAnalysisRequest(ctx context.Context, req provider.AnalysisRequest) (provider.AnalysisResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	if g.err != nil {
		return provider.AnalysisResponse{}, g.err
	}
	providerID := req.ProviderID
	if providerID == "" {
		providerID = provider.Anthropic
	}
	return provider.AnalysisResponse{Content: g.reply, Provider: providerID, Model: "m"}, nil
}

type memCache struct {
	entries map[string]string
	getErr  error
	puts    int
}

func newMemCache() *memCache { return &memCache{entries: map[string]string{}} }

func (c *memCache) Get(ctx context.Context, key string) (string, bool, error) {
	if c.getErr != nil {
		return "", false, c.getErr
	}
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *memCache) Put(ctx context.Context, key, providerID, model, response string) error {
	c.puts++
	c.entries[key] = response
	return nil
}

const shortReply = "Strengths\n- States the goal clearly and early\n"

func TestAnalyzeMissingPrompt(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewService(gw, ServiceConfig{})

	_, err := svc.Analyze(context.Background(), Request{APIKey: "k", Prompt: "   "})
	assert.ErrorIs(t, err, ErrMissingPrompt)
	assert.Empty(t, gw.calls)
}

func TestAnalyzeBuildsRequest(t *testing.T) {
	gw := &fakeGateway{reply: shortReply}
	svc := NewService(gw, ServiceConfig{})

	resp, err := svc.Analyze(context.Background(), Request{APIKey: "k", Prompt: "Write a poem", ModelName: "Claude"})
	require.NoError(t, err)
	require.Len(t, gw.calls, 1)

	sent := gw.calls[0]
	assert.Equal(t, provider.Anthropic, sent.ProviderID)
	assert.Equal(t, "k", sent.APIKey)
	assert.Equal(t, SystemPrompt("Claude"), sent.SystemPrompt)
	assert.Contains(t, sent.UserPrompt, "<prompt>\nWrite a poem\n</prompt>")
	assert.Contains(t, sent.UserPrompt, "intended for Claude:")

	assert.Equal(t, shortReply, resp.Content)
	assert.Equal(t, provider.Anthropic, resp.Provider)
	assert.False(t, resp.Cached)
	assert.Equal(t, []string{"States the goal clearly and early"}, resp.Result.Strengths)
}

func TestAnalyzeCustomSystemPromptAndLevers(t *testing.T) {
	gw := &fakeGateway{reply: "ok"}
	levers := func() []rubric.Lever {
		return []rubric.Lever{{Name: "Tone", Description: "Checks tone", Weight: 1, Enabled: true}}
	}
	svc := NewService(gw, ServiceConfig{Levers: levers})

	_, err := svc.Analyze(context.Background(), Request{
		Prompt:          "p",
		SystemPrompt:    "custom system",
		ProviderID:      provider.OpenAI,
		AnalysisModelID: "gpt-4.1",
	})
	require.NoError(t, err)

	sent := gw.calls[0]
	assert.Equal(t, "custom system", sent.SystemPrompt)
	assert.Equal(t, provider.OpenAI, sent.ProviderID)
	assert.Equal(t, "gpt-4.1", sent.AnalysisModelID)
	assert.Contains(t, sent.UserPrompt, "**Tone (100%)** - Checks tone")
}

func TestAnalyzeWrapsAPIError(t *testing.T) {
	gw := &fakeGateway{err: &provider.APIError{Provider: provider.Anthropic, StatusCode: http.StatusUnauthorized, Details: "bad key"}}
	svc := NewService(gw, ServiceConfig{})

	_, err := svc.Analyze(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)

	var apiErr *provider.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.True(t, strings.HasPrefix(err.Error(), "deep analysis via anthropic:"))
}

func TestAnalyzeUsesCache(t *testing.T) {
	gw := &fakeGateway{reply: shortReply}
	cache := newMemCache()
	svc := NewService(gw, ServiceConfig{Cache: cache})
	req := Request{Prompt: "Write a poem", ProviderID: provider.Mistral}

	first, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, cache.puts)

	second, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, "mistral-small-latest", second.Model)
	assert.Equal(t, first.Result, second.Result)
	assert.Len(t, gw.calls, 1)

	// A different prompt misses.
	_, err = svc.Analyze(context.Background(), Request{Prompt: "Write a story", ProviderID: provider.Mistral})
	require.NoError(t, err)
	assert.Len(t, gw.calls, 2)
}

func TestAnalyzeCacheErrorFallsThrough(t *testing.T) {
	gw := &fakeGateway{reply: "ok"}
	cache := newMemCache()
	cache.getErr = errors.New("disk gone")
	svc := NewService(gw, ServiceConfig{Cache: cache})

	resp, err := svc.Analyze(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Len(t, gw.calls, 1)
}

func TestCacheKey(t *testing.T) {
	a := CacheKey("anthropic", "", "m", "sys", "user")
	assert.Len(t, a, 64)
	assert.Equal(t, a, CacheKey("anthropic", "", "m", "sys", "user"))
	assert.NotEqual(t, a, CacheKey("openai", "", "m", "sys", "user"))
	assert.NotEqual(t, a, CacheKey("anthropic", "https://proxy.internal/v1", "m", "sys", "user"))
	assert.NotEqual(t, CacheKey("a", "", "bc", "", ""), CacheKey("ab", "", "c", "", ""))
}

func TestAnalyzeCacheSeparatesEndpoints(t *testing.T) {
	gw := &fakeGateway{reply: shortReply}
	cache := newMemCache()
	req := Request{Prompt: "Write a poem", ProviderID: provider.OpenAICompatible, AnalysisModelID: "llama-3"}

	local := NewService(gw, ServiceConfig{Cache: cache, Endpoints: map[string]string{
		provider.OpenAICompatible: "http://localhost:11434/v1",
	}})
	hosted := NewService(gw, ServiceConfig{Cache: cache, Endpoints: map[string]string{
		provider.OpenAICompatible: "https://llm.example.com/v1",
	}})

	first, err := local.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := hosted.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, second.Cached, "a different base URL must not reuse the cached reply")
	assert.Len(t, gw.calls, 2)
	assert.Len(t, cache.entries, 2)

	again, err := local.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Len(t, gw.calls, 2)
}

func TestRequestFor(t *testing.T) {
	assert.Equal(t, Request{Prompt: "p"}, RequestFor("p", nil))

	models := rubric.DefaultModels()
	m := models[0]
	m.AnalysisModelID = "claude-sonnet"
	req := RequestFor("p", &m)
	assert.Equal(t, m.Name, req.ModelName)
	assert.Equal(t, m.ProviderID, req.ProviderID)
	assert.Equal(t, "claude-sonnet", req.AnalysisModelID)
}
