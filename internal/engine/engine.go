package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/thinkwright/prompt-evals/internal/rubric"
)

// EvaluationResult is the full outcome of evaluating one prompt.
type EvaluationResult struct {
	OverallScore     int               `json:"overallScore"`
	StrengthLevel    StrengthLevel     `json:"strengthLevel"`
	HeuristicResults []HeuristicResult `json:"heuristicResults"`
	Suggestions      []Suggestion      `json:"suggestions"`
	ModelTips        []string          `json:"modelTips"`
}

// Evaluate runs the evaluator and aggregator with an explicit rubric and model.
func Evaluate(prompt string, levers []rubric.Lever, model *rubric.ModelConfig) EvaluationResult {
	results := EvaluateLevers(prompt, levers, model)
	sum := Aggregate(results, levers, model)
	return EvaluationResult{
		OverallScore:     sum.OverallScore,
		StrengthLevel:    sum.StrengthLevel,
		HeuristicResults: results,
		Suggestions:      sum.Suggestions,
		ModelTips:        sum.ModelTips,
	}
}

// Snapshot is an immutable rubric and model set. It is the evaluation
// context passed to each call; callers never mutate it in place.
type Snapshot struct {
	levers []rubric.Lever
	models []rubric.ModelConfig
	byID   map[string]int
}

// NewSnapshot deep-copies the given levers and models.
func NewSnapshot(levers []rubric.Lever, models []rubric.ModelConfig) *Snapshot {
	s := &Snapshot{
		levers: make([]rubric.Lever, len(levers)),
		models: make([]rubric.ModelConfig, len(models)),
		byID:   make(map[string]int, len(models)),
	}
	for i, l := range levers {
		s.levers[i] = l.Clone()
	}
	for i, m := range models {
		s.models[i] = m.Clone()
		if _, dup := s.byID[m.ID]; !dup {
			s.byID[m.ID] = i
		}
	}
	return s
}

// Levers returns a copy of the rubric in order.
func (s *Snapshot) Levers() []rubric.Lever {
	out := make([]rubric.Lever, len(s.levers))
	for i, l := range s.levers {
		out[i] = l.Clone()
	}
	return out
}

// Models returns a copy of the model profiles in order.
func (s *Snapshot) Models() []rubric.ModelConfig {
	out := make([]rubric.ModelConfig, len(s.models))
	for i, m := range s.models {
		out[i] = m.Clone()
	}
	return out
}

// Model returns a copy of the profile with the given id.
func (s *Snapshot) Model(id string) (rubric.ModelConfig, bool) {
	i, ok := s.byID[id]
	if !ok {
		return rubric.ModelConfig{}, false
	}
	return s.models[i].Clone(), true
}

// Evaluate scores prompt for the given model id. An unknown id evaluates with
// default lever weights and no model tips.
func (s *Snapshot) Evaluate(prompt, modelID string) EvaluationResult {
	var model *rubric.ModelConfig
	if i, ok := s.byID[modelID]; ok {
		model = &s.models[i]
	}
	return Evaluate(prompt, s.levers, model)
}

// Source supplies rubric data, typically a config store.
type Source interface {
	Levers() ([]rubric.Lever, error)
	Models() ([]rubric.ModelConfig, error)
}

// Engine holds the live snapshot. Swap and Reload replace it wholesale;
// in-flight evaluations keep the snapshot they started with.
type Engine struct {
	current atomic.Pointer[Snapshot]
}

// New returns an engine seeded with the given snapshot.
func New(snap *Snapshot) *Engine {
	e := &Engine{}
	if snap == nil {
		snap = NewSnapshot(rubric.DefaultLevers(), rubric.DefaultModels())
	}
	e.current.Store(snap)
	return e
}

// NewDefault returns an engine using the built-in rubric and models.
func NewDefault() *Engine {
	return New(nil)
}

// Snapshot returns the current snapshot.
func (e *Engine) Snapshot() *Snapshot {
	return e.current.Load()
}

// Swap installs a new snapshot.
func (e *Engine) Swap(snap *Snapshot) {
	if snap != nil {
		e.current.Store(snap)
	}
}

// Reload rebuilds the snapshot from src. On error the current snapshot is kept.
func (e *Engine) Reload(src Source) error {
	levers, err := src.Levers()
	if err != nil {
		return fmt.Errorf("reloading levers: %w", err)
	}
	models, err := src.Models()
	if err != nil {
		return fmt.Errorf("reloading models: %w", err)
	}
	e.Swap(NewSnapshot(levers, models))
	return nil
}

// Evaluate scores prompt against the current snapshot.
func (e *Engine) Evaluate(prompt, modelID string) EvaluationResult {
	return e.Snapshot().Evaluate(prompt, modelID)
}
