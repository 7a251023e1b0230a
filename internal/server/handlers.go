package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/thinkwright/prompt-evals/internal/deepanalysis"
	"github.com/thinkwright/prompt-evals/internal/provider"
)

type evaluateRequest struct {
	Prompt  string `json:"prompt"`
	ModelID string `json:"modelId"`
}

// handleEvaluate scores a prompt with the heuristic engine.
func (s *Server) handleEvaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		errorJSON(c, http.StatusBadRequest, "Prompt is required")
		return
	}
	c.JSON(http.StatusOK, s.engine.Evaluate(req.Prompt, req.ModelID))
}

// handleAnalyze proxies a deep-analysis request to the chosen provider.
func (s *Server) handleAnalyze(c *gin.Context) {
	var req deepanalysis.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	s.analyze(c, req)
}

// handleLegacyAnalyze is the older Anthropic-only route.
func (s *Server) handleLegacyAnalyze(c *gin.Context) {
	var req deepanalysis.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ProviderID = provider.Anthropic
	req.AnalysisModelID = ""
	s.analyze(c, req)
}

func (s *Server) analyze(c *gin.Context, req deepanalysis.Request) {
	if req.APIKey == "" {
		errorJSON(c, http.StatusBadRequest, "API key is required")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		errorJSON(c, http.StatusBadRequest, "Prompt is required")
		return
	}
	providerID := req.ProviderID
	if providerID == "" {
		providerID = provider.Anthropic
	}
	if !provider.IsKnown(providerID) {
		errorJSON(c, http.StatusBadRequest, fmt.Sprintf("Unsupported provider: %s", providerID))
		return
	}
	if s.analyzer == nil {
		errorJSON(c, http.StatusServiceUnavailable, "Deep analysis is not configured")
		return
	}

	resp, err := s.analyzer.Analyze(c.Request.Context(), req)
	if err != nil {
		var apiErr *provider.APIError
		if errors.As(err, &apiErr) {
			status := apiErr.StatusCode
			if status < 400 || status > 599 {
				status = http.StatusBadGateway
			}
			c.JSON(status, gin.H{"error": apiErr.Error(), "details": apiErr.Details})
			return
		}
		s.logger.Error("analysis proxy failed", "provider", providerID, "error", err)
		errorJSON(c, http.StatusInternalServerError, "Failed to proxy request to AI API")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"content":  resp.Content,
		"provider": resp.Provider,
		"model":    resp.Model,
		"cached":   resp.Cached,
		"result":   resp.Result,
	})
}
