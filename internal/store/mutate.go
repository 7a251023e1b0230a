package store

import (
	"fmt"

	"github.com/thinkwright/prompt-evals/internal/rubric"
)

// LeverPatch is a partial lever update. Nil fields are left unchanged; the
// id can never be changed.
type LeverPatch struct {
	Name        *string            `json:"name,omitempty"`
	Description *string            `json:"description,omitempty"`
	Weight      *float64           `json:"weight,omitempty"`
	Enabled     *bool              `json:"enabled,omitempty"`
	Thresholds  *rubric.Thresholds `json:"thresholds,omitempty"`
	Patterns    []string           `json:"patterns,omitempty"`
	Feedback    *rubric.Feedback   `json:"feedback,omitempty"`
	Priority    *int               `json:"priority,omitempty"`
}

func (p LeverPatch) apply(l *rubric.Lever) {
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.Weight != nil {
		l.Weight = *p.Weight
	}
	if p.Enabled != nil {
		l.Enabled = *p.Enabled
	}
	if p.Thresholds != nil {
		l.Thresholds = *p.Thresholds
	}
	if p.Patterns != nil {
		l.Patterns = append([]string(nil), p.Patterns...)
	}
	if p.Feedback != nil {
		l.Feedback = *p.Feedback
	}
	if p.Priority != nil {
		l.Priority = *p.Priority
	}
}

// ModelPatch is a partial model-profile update with the same rules as
// LeverPatch.
type ModelPatch struct {
	Name               *string               `json:"name,omitempty"`
	Provider           *string               `json:"provider,omitempty"`
	ProviderID         *string               `json:"providerId,omitempty"`
	Description        *string               `json:"description,omitempty"`
	Enabled            *bool                 `json:"enabled,omitempty"`
	LeverWeights       map[string]float64    `json:"leverWeights,omitempty"`
	BestPractices      []rubric.BestPractice `json:"bestPractices,omitempty"`
	PreferredStructure []string              `json:"preferredStructure,omitempty"`
	DeepAnalysisPrompt *string               `json:"deepAnalysisPrompt,omitempty"`
	AnalysisModelID    *string               `json:"analysisModelId,omitempty"`
}

func (p ModelPatch) apply(m *rubric.ModelConfig) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&m.Name, p.Name)
	setString(&m.Provider, p.Provider)
	setString(&m.ProviderID, p.ProviderID)
	setString(&m.Description, p.Description)
	setString(&m.DeepAnalysisPrompt, p.DeepAnalysisPrompt)
	setString(&m.AnalysisModelID, p.AnalysisModelID)
	if p.Enabled != nil {
		m.Enabled = *p.Enabled
	}
	if p.LeverWeights != nil {
		m.LeverWeights = copyWeights(p.LeverWeights)
	}
	if p.BestPractices != nil {
		m.BestPractices = rubric.ModelConfig{BestPractices: p.BestPractices}.Clone().BestPractices
	}
	if p.PreferredStructure != nil {
		m.PreferredStructure = append([]string(nil), p.PreferredStructure...)
	}
}

// UpdateLever merges patch into the lever and persists the result. A result
// that would not pass the levers file schema is rejected with ErrInvalidConfig.
func (s *Store) UpdateLever(id string, patch LeverPatch) (rubric.Lever, error) {
	return s.mutateLever(id, patch.apply)
}

// ToggleLever sets whether a lever participates in scoring.
func (s *Store) ToggleLever(id string, enabled bool) (rubric.Lever, error) {
	return s.mutateLever(id, func(l *rubric.Lever) { l.Enabled = enabled })
}

func (s *Store) mutateLever(id string, fn func(*rubric.Lever)) (rubric.Lever, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.leverIndex(id)
	if i < 0 {
		return rubric.Lever{}, fmt.Errorf("%w: %s", ErrLeverNotFound, id)
	}
	next := cloneLevers(s.levers)
	fn(&next[i])
	next[i].ID = id

	if err := s.saveLevers(next); err != nil {
		return rubric.Lever{}, err
	}
	s.levers = next
	s.logger.Info("lever updated", "id", id)
	return next[i].Clone(), nil
}

// ReorderLevers moves the listed levers to the front in the given order and
// sets their priority to their 1-based position. Unknown and repeated ids
// are ignored; levers not listed follow in their previous order with their
// priority unchanged.
func (s *Store) ReorderLevers(orderedIDs []string) ([]rubric.Lever, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := cloneLevers(s.levers)
	byID := make(map[string]int, len(current))
	for i, l := range current {
		byID[l.ID] = i
	}

	listed := make(map[string]bool, len(orderedIDs))
	next := make([]rubric.Lever, 0, len(current))
	for pos, id := range orderedIDs {
		i, ok := byID[id]
		if !ok || listed[id] {
			continue
		}
		listed[id] = true
		l := current[i]
		l.Priority = pos + 1
		next = append(next, l)
	}
	for _, l := range current {
		if !listed[l.ID] {
			next = append(next, l)
		}
	}

	if err := s.saveLevers(next); err != nil {
		return nil, err
	}
	s.levers = next
	s.logger.Info("levers reordered", "count", len(listed))
	return cloneLevers(next), nil
}

// UpdateModel merges patch into the profile and persists the result.
func (s *Store) UpdateModel(id string, patch ModelPatch) (rubric.ModelConfig, error) {
	return s.mutateModel(id, patch.apply)
}

// ToggleModel sets whether a profile is offered for selection.
func (s *Store) ToggleModel(id string, enabled bool) (rubric.ModelConfig, error) {
	return s.mutateModel(id, func(m *rubric.ModelConfig) { m.Enabled = enabled })
}

// SetLeverWeights replaces the profile's lever-weight overrides.
func (s *Store) SetLeverWeights(id string, weights map[string]float64) (rubric.ModelConfig, error) {
	return s.mutateModel(id, func(m *rubric.ModelConfig) { m.LeverWeights = copyWeights(weights) })
}

func (s *Store) mutateModel(id string, fn func(*rubric.ModelConfig)) (rubric.ModelConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.modelIndex(id)
	if i < 0 {
		return rubric.ModelConfig{}, fmt.Errorf("%w: %s", ErrModelNotFound, id)
	}
	m := s.models[i].Clone()
	fn(&m)
	m.ID = id

	if err := s.saveModel(m); err != nil {
		return rubric.ModelConfig{}, err
	}
	s.models[i] = m
	s.logger.Info("model updated", "id", id)
	return m.Clone(), nil
}

// Import validates the whole bundle before writing anything, then replaces
// the levers when b carries any and inserts or replaces each model profile
// in b. Models not named in b are kept.
func (s *Store) Import(b rubric.Bundle) error {
	for i, l := range b.Levers {
		if l.ID == "" {
			return fmt.Errorf("%w: lever %d has no id", ErrInvalidConfig, i)
		}
		if l.Weight <= 0 {
			return fmt.Errorf("%w: lever %s weight must be positive", ErrInvalidConfig, l.ID)
		}
	}
	if b.Levers != nil {
		if err := checkLevers(b.Levers); err != nil {
			return err
		}
	}
	for i, m := range b.Models {
		if !idRe.MatchString(m.ID) {
			return fmt.Errorf("%w: model %d has invalid id %q", ErrInvalidConfig, i, m.ID)
		}
		if err := checkModel(m); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if b.Levers != nil {
		next := cloneLevers(b.Levers)
		for i := range next {
			if next[i].Name == "" {
				next[i].Name = rubric.NameFromID(next[i].ID)
			}
		}
		if err := s.saveLevers(next); err != nil {
			return err
		}
		s.levers = next
	}

	for _, m := range b.Models {
		m = m.Clone()
		if m.Name == "" {
			m.Name = rubric.NameFromID(m.ID)
		}
		if err := s.saveModel(m); err != nil {
			return err
		}
		if i := s.modelIndex(m.ID); i >= 0 {
			s.models[i] = m
		} else {
			s.models = append(s.models, m)
		}
	}

	s.logger.Info("configuration imported", "levers", len(b.Levers), "models", len(b.Models))
	return nil
}

func copyWeights(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
