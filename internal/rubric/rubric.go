// Package rubric holds the lever and model-profile definitions that drive
// prompt evaluation. Values here are read-only inputs to the engine.
package rubric

import "strings"

// Well-known lever identifiers. Each maps to exactly one evaluation strategy.
const (
	LeverPromptLength         = "prompt-length"
	LeverContextInclusion     = "context-inclusion"
	LeverPersonaSpecification = "persona-specification"
	LeverTaskClarity          = "task-clarity"
	LeverExamplesPresence     = "examples-presence"
	LeverFormatSpecification  = "format-specification"
	LeverConstraintsDefined   = "constraints-defined"
)

// Band is an inclusive numeric range.
type Band struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Thresholds configures length-style levers. Nil fields fall back to defaults.
type Thresholds struct {
	Min     *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Optimal *Band    `json:"optimal,omitempty" yaml:"optimal,omitempty"`
}

// Feedback holds the three fixed message slots of a lever.
type Feedback struct {
	Missing string `json:"missing" yaml:"missing"`
	Weak    string `json:"weak" yaml:"weak"`
	Good    string `json:"good" yaml:"good"`
}

// Lever is a single weighted scoring rule.
type Lever struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	Weight      float64    `json:"weight" yaml:"weight"`
	Enabled     bool       `json:"enabled" yaml:"enabled"`
	Thresholds  Thresholds `json:"thresholds" yaml:"thresholds"`
	Patterns    []string   `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	Feedback    Feedback   `json:"feedback" yaml:"feedback"`
	Priority    int        `json:"priority" yaml:"priority"`
}

// TipExamples pairs a good and a bad prompt illustrating a best practice.
type TipExamples struct {
	Good string `json:"good" yaml:"good"`
	Bad  string `json:"bad" yaml:"bad"`
}

// BestPractice is a model-specific prompting tip.
type BestPractice struct {
	Tip      string       `json:"tip" yaml:"tip"`
	Examples *TipExamples `json:"examples,omitempty" yaml:"examples,omitempty"`
}

// ModelConfig is a target-model profile.
type ModelConfig struct {
	ID                 string             `json:"id" yaml:"id"`
	Name               string             `json:"name" yaml:"name"`
	Provider           string             `json:"provider" yaml:"provider"`
	ProviderID         string             `json:"providerId,omitempty" yaml:"providerId,omitempty"`
	Description        string             `json:"description,omitempty" yaml:"description,omitempty"`
	Enabled            bool               `json:"enabled" yaml:"enabled"`
	LeverWeights       map[string]float64 `json:"leverWeights,omitempty" yaml:"leverWeights,omitempty"`
	BestPractices      []BestPractice     `json:"bestPractices,omitempty" yaml:"bestPractices,omitempty"`
	PreferredStructure []string           `json:"preferredStructure,omitempty" yaml:"preferredStructure,omitempty"`
	DeepAnalysisPrompt string             `json:"deepAnalysisPrompt,omitempty" yaml:"deepAnalysisPrompt,omitempty"`
	AnalysisModelID    string             `json:"analysisModelId,omitempty" yaml:"analysisModelId,omitempty"`
}

// WeightFor returns the model's override weight for a lever, if any.
func (m *ModelConfig) WeightFor(leverID string) (float64, bool) {
	if m == nil || m.LeverWeights == nil {
		return 0, false
	}
	w, ok := m.LeverWeights[leverID]
	return w, ok
}

// Tips returns the best-practice tip texts in order.
func (m *ModelConfig) Tips() []string {
	if m == nil {
		return nil
	}
	tips := make([]string, 0, len(m.BestPractices))
	for _, bp := range m.BestPractices {
		tips = append(tips, bp.Tip)
	}
	return tips
}

// Bundle is the full exportable configuration.
type Bundle struct {
	Levers []Lever       `json:"levers,omitempty" yaml:"levers,omitempty"`
	Models []ModelConfig `json:"models,omitempty" yaml:"models,omitempty"`
}

// FindLever returns the lever with the given id.
func FindLever(levers []Lever, id string) (Lever, bool) {
	for _, l := range levers {
		if l.ID == id {
			return l, true
		}
	}
	return Lever{}, false
}

// Clone returns a deep copy of the lever.
func (l Lever) Clone() Lever {
	c := l
	if l.Patterns != nil {
		c.Patterns = append([]string(nil), l.Patterns...)
	}
	if l.Thresholds.Min != nil {
		v := *l.Thresholds.Min
		c.Thresholds.Min = &v
	}
	if l.Thresholds.Max != nil {
		v := *l.Thresholds.Max
		c.Thresholds.Max = &v
	}
	if l.Thresholds.Optimal != nil {
		b := *l.Thresholds.Optimal
		c.Thresholds.Optimal = &b
	}
	return c
}

// Clone returns a deep copy of the model profile.
func (m ModelConfig) Clone() ModelConfig {
	c := m
	if m.LeverWeights != nil {
		c.LeverWeights = make(map[string]float64, len(m.LeverWeights))
		for k, v := range m.LeverWeights {
			c.LeverWeights[k] = v
		}
	}
	if m.BestPractices != nil {
		c.BestPractices = make([]BestPractice, len(m.BestPractices))
		for i, bp := range m.BestPractices {
			c.BestPractices[i] = bp
			if bp.Examples != nil {
				ex := *bp.Examples
				c.BestPractices[i].Examples = &ex
			}
		}
	}
	if m.PreferredStructure != nil {
		c.PreferredStructure = append([]string(nil), m.PreferredStructure...)
	}
	return c
}

// NameFromID turns "task-clarity" into "Task Clarity".
func NameFromID(id string) string {
	words := strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(id))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
