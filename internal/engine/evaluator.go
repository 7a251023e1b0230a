// Package engine scores prompt text against a rubric of weighted levers.
//
// Evaluation and aggregation are pure functions of their inputs. The
// Engine type only adds a swappable Snapshot on top of them.
package engine

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/thinkwright/prompt-evals/internal/rubric"
)

// Length-strategy defaults and fixed messages.
const (
	DefaultMinLength = 50
	DefaultMaxLength = 4000

	TooLongFeedback = "Prompt is quite long - consider being more concise."
	VerboseFeedback = "Good length, though a bit verbose."
	UnknownFeedback = "Unknown lever"
)

// HeuristicResult is the outcome of one lever against one prompt.
type HeuristicResult struct {
	LeverID     string   `json:"leverId"`
	Score       float64  `json:"score"`
	Matched     bool     `json:"matched"`
	Feedback    string   `json:"feedback"`
	Suggestions []string `json:"suggestions"`
}

type outcome struct {
	score    float64
	matched  bool
	feedback string
	weak     bool // feedback came from the lever's weak slot
}

// strategy scores one lever. lower is the prompt already lowercased.
type strategy func(prompt, lower string, lever *rubric.Lever) outcome

var strategies = map[string]strategy{
	rubric.LeverPromptLength:         evaluateLength,
	rubric.LeverContextInclusion:     evaluatePatterns,
	rubric.LeverPersonaSpecification: evaluatePatterns,
	rubric.LeverTaskClarity:          evaluatePatterns,
	rubric.LeverExamplesPresence:     evaluatePatterns,
	rubric.LeverFormatSpecification:  evaluatePatterns,
	rubric.LeverConstraintsDefined:   evaluatePatterns,
}

// HasStrategy reports whether a lever id has a scoring strategy.
func HasStrategy(leverID string) bool {
	_, ok := strategies[leverID]
	return ok
}

// EvaluateLevers scores the prompt against every enabled lever, in rubric order.
// The model profile does not change per-lever scores; it is accepted so
// callers can pass the same context to evaluation and aggregation.
func EvaluateLevers(prompt string, levers []rubric.Lever, model *rubric.ModelConfig) []HeuristicResult {
	lower := strings.ToLower(prompt)
	results := make([]HeuristicResult, 0, len(levers))
	for i := range levers {
		if !levers[i].Enabled {
			continue
		}
		results = append(results, evaluateLever(prompt, lower, &levers[i]))
	}
	return results
}

func evaluateLever(prompt, lower string, lever *rubric.Lever) HeuristicResult {
	res := HeuristicResult{LeverID: lever.ID, Suggestions: []string{}}

	fn, ok := strategies[lever.ID]
	if !ok {
		res.Score = 50
		res.Feedback = UnknownFeedback
		return res
	}

	out := fn(prompt, lower, lever)
	res.Score = out.score
	res.Matched = out.matched
	res.Feedback = out.feedback

	switch {
	case !out.matched:
		res.Suggestions = append(res.Suggestions, lever.Feedback.Missing)
	case out.weak && out.score < 70:
		res.Suggestions = append(res.Suggestions, lever.Feedback.Weak)
	}
	return res
}

// evaluateLength scores by character count against the lever thresholds.
func evaluateLength(prompt, _ string, lever *rubric.Lever) outcome {
	l := float64(utf8.RuneCountInString(prompt))

	lo, hi := float64(DefaultMinLength), float64(DefaultMaxLength)
	if lever.Thresholds.Min != nil {
		lo = *lever.Thresholds.Min
	}
	if lever.Thresholds.Max != nil {
		hi = *lever.Thresholds.Max
	}

	if l < lo {
		return outcome{
			score:    clamp((l/lo)*40, 0, 40),
			feedback: lever.Feedback.Missing,
		}
	}

	if l > hi {
		return outcome{
			score:    math.Max(50, 100-((l-hi)/hi)*50),
			matched:  true,
			feedback: TooLongFeedback,
		}
	}

	opt := lever.Thresholds.Optimal
	if opt == nil {
		return outcome{score: 70, matched: true, feedback: lever.Feedback.Good}
	}

	switch {
	case l >= opt.Min && l <= opt.Max:
		return outcome{score: 100, matched: true, feedback: lever.Feedback.Good}
	case l < opt.Min:
		return outcome{
			score:    60 + ((l-lo)/(opt.Min-lo))*40,
			matched:  true,
			feedback: lever.Feedback.Weak,
			weak:     true,
		}
	default:
		return outcome{score: 80, matched: true, feedback: VerboseFeedback}
	}
}

// evaluatePatterns scores by the number of distinct patterns present.
func evaluatePatterns(_, lower string, lever *rubric.Lever) outcome {
	switch n := countMatches(lower, lever.Patterns); {
	case n == 0:
		return outcome{score: 0, feedback: lever.Feedback.Missing}
	case n == 1:
		return outcome{score: 60, matched: true, feedback: lever.Feedback.Weak, weak: true}
	case n == 2:
		return outcome{score: 80, matched: true, feedback: lever.Feedback.Good}
	default:
		return outcome{score: 100, matched: true, feedback: lever.Feedback.Good}
	}
}

// countMatches counts distinct non-empty patterns found in lower.
func countMatches(lower string, patterns []string) int {
	seen := make(map[string]bool, len(patterns))
	n := 0
	for _, p := range patterns {
		p = strings.ToLower(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		if strings.Contains(lower, p) {
			n++
		}
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
