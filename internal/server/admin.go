package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/encoding/json"

	"github.com/thinkwright/prompt-evals/internal/rubric"
	"github.com/thinkwright/prompt-evals/internal/store"
)

// storeError maps a store failure to a response. action completes
// "Failed to ..." for unexpected errors.
func (s *Server) storeError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, store.ErrLeverNotFound):
		errorJSON(c, http.StatusNotFound, "Lever not found")
	case errors.Is(err, store.ErrModelNotFound):
		errorJSON(c, http.StatusNotFound, "Model not found")
	case errors.Is(err, store.ErrInvalidConfig):
		errorJSON(c, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("rubric store error", "action", action, "error", err)
		errorJSON(c, http.StatusInternalServerError, "Failed to "+action)
	}
}

// toggleTarget reads {"enabled": bool}. A missing body or field flips current.
func toggleTarget(c *gin.Context, current bool) (bool, bool) {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		errorJSON(c, http.StatusBadRequest, "enabled must be a boolean")
		return false, false
	}
	if body.Enabled == nil {
		return !current, true
	}
	return *body.Enabled, true
}

// ── Levers ──────────────────────────────────────────────────

func (s *Server) listLevers(c *gin.Context) {
	levers, err := s.store.Levers()
	if err != nil {
		s.storeError(c, err, "fetch levers")
		return
	}
	c.JSON(http.StatusOK, levers)
}

func (s *Server) getLever(c *gin.Context) {
	lever, err := s.store.Lever(c.Param("id"))
	if err != nil {
		s.storeError(c, err, "fetch lever")
		return
	}
	c.JSON(http.StatusOK, lever)
}

func (s *Server) updateLever(c *gin.Context) {
	var patch store.LeverPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		errorJSON(c, http.StatusBadRequest, "Invalid lever update")
		return
	}
	if patch.Weight != nil && *patch.Weight <= 0 {
		errorJSON(c, http.StatusBadRequest, "weight must be positive")
		return
	}
	lever, err := s.store.UpdateLever(c.Param("id"), patch)
	if err != nil {
		s.storeError(c, err, "update lever")
		return
	}
	s.reload()
	c.JSON(http.StatusOK, lever)
}

func (s *Server) toggleLever(c *gin.Context) {
	id := c.Param("id")
	current, err := s.store.Lever(id)
	if err != nil {
		s.storeError(c, err, "toggle lever")
		return
	}
	enabled, ok := toggleTarget(c, current.Enabled)
	if !ok {
		return
	}
	lever, err := s.store.ToggleLever(id, enabled)
	if err != nil {
		s.storeError(c, err, "toggle lever")
		return
	}
	s.reload()
	c.JSON(http.StatusOK, lever)
}

func (s *Server) reorderLevers(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		errorJSON(c, http.StatusBadRequest, "orderedIds must be an array")
		return
	}
	raw, ok := body["orderedIds"].([]any)
	if !ok {
		errorJSON(c, http.StatusBadRequest, "orderedIds must be an array")
		return
	}
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		id, ok := v.(string)
		if !ok {
			errorJSON(c, http.StatusBadRequest, "orderedIds must contain lever ids")
			return
		}
		ids = append(ids, id)
	}

	levers, err := s.store.ReorderLevers(ids)
	if err != nil {
		s.storeError(c, err, "reorder levers")
		return
	}
	s.reload()
	c.JSON(http.StatusOK, levers)
}

// ── Models ──────────────────────────────────────────────────

func (s *Server) listModels(c *gin.Context) {
	models, err := s.store.Models()
	if err != nil {
		s.storeError(c, err, "fetch models")
		return
	}
	c.JSON(http.StatusOK, models)
}

func (s *Server) getModel(c *gin.Context) {
	model, err := s.store.Model(c.Param("id"))
	if err != nil {
		s.storeError(c, err, "fetch model")
		return
	}
	c.JSON(http.StatusOK, model)
}

func (s *Server) updateModel(c *gin.Context) {
	var patch store.ModelPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		errorJSON(c, http.StatusBadRequest, "Invalid model update")
		return
	}
	model, err := s.store.UpdateModel(c.Param("id"), patch)
	if err != nil {
		s.storeError(c, err, "update model")
		return
	}
	s.reload()
	c.JSON(http.StatusOK, model)
}

func (s *Server) toggleModel(c *gin.Context) {
	id := c.Param("id")
	current, err := s.store.Model(id)
	if err != nil {
		s.storeError(c, err, "toggle model")
		return
	}
	enabled, ok := toggleTarget(c, current.Enabled)
	if !ok {
		return
	}
	model, err := s.store.ToggleModel(id, enabled)
	if err != nil {
		s.storeError(c, err, "toggle model")
		return
	}
	s.reload()
	c.JSON(http.StatusOK, model)
}

func (s *Server) setLeverWeights(c *gin.Context) {
	var body struct {
		LeverWeights map[string]float64 `json:"leverWeights"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.LeverWeights == nil {
		errorJSON(c, http.StatusBadRequest, "leverWeights must be an object")
		return
	}
	for _, w := range body.LeverWeights {
		if w < 0 {
			errorJSON(c, http.StatusBadRequest, "leverWeights must be non-negative")
			return
		}
	}
	model, err := s.store.SetLeverWeights(c.Param("id"), body.LeverWeights)
	if err != nil {
		s.storeError(c, err, "update lever weights")
		return
	}
	s.reload()
	c.JSON(http.StatusOK, model)
}

// ── System ──────────────────────────────────────────────────

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"version":   s.cfg.Version,
	})
}

func (s *Server) exportConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Export())
}

func (s *Server) importConfig(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "Invalid configuration format")
		return
	}
	var bundle rubric.Bundle
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) || json.Unmarshal(data, &bundle) != nil {
		errorJSON(c, http.StatusBadRequest, "Invalid configuration format")
		return
	}
	if err := s.store.Import(bundle); err != nil {
		s.storeError(c, err, "import configuration")
		return
	}
	s.reload()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Configuration imported successfully"})
}
