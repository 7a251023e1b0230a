package engine

import (
	"math"
	"sort"
	"strings"

	"github.com/thinkwright/prompt-evals/internal/rubric"
)

// StrengthLevel is the qualitative label for an overall score.
type StrengthLevel string

const (
	StrengthWeak      StrengthLevel = "weak"
	StrengthFair      StrengthLevel = "fair"
	StrengthGood      StrengthLevel = "good"
	StrengthStrong    StrengthLevel = "strong"
	StrengthExcellent StrengthLevel = "excellent"
)

const (
	maxSuggestions = 5
	maxModelTips   = 3

	// Levers below this score contribute suggestions.
	suggestionCutoff = 70
	// Levers below this score pull model-specific tips.
	tipCutoff = 60
)

// Suggestion is a ranked improvement hint.
type Suggestion struct {
	Text     string `json:"text"`
	Priority int    `json:"priority"`
	LeverID  string `json:"leverId"`
}

// Summary is the aggregate view of a set of heuristic results.
type Summary struct {
	OverallScore  int           `json:"overallScore"`
	StrengthLevel StrengthLevel `json:"strengthLevel"`
	Suggestions   []Suggestion  `json:"suggestions"`
	ModelTips     []string      `json:"modelTips"`
}

// Aggregate combines per-lever results into a score, label, ranked
// suggestions and model tips. A nil model uses default lever weights and
// yields no tips.
func Aggregate(results []HeuristicResult, levers []rubric.Lever, model *rubric.ModelConfig) Summary {
	score := OverallScore(results, levers, model)
	tips := ModelTips(results, model)
	if tips == nil {
		tips = []string{}
	}
	return Summary{
		OverallScore:  score,
		StrengthLevel: StrengthFor(score),
		Suggestions:   RankSuggestions(results, levers),
		ModelTips:     tips,
	}
}

// OverallScore is the weighted mean of the result scores, rounded half up.
// Results whose lever is not in the rubric are skipped.
func OverallScore(results []HeuristicResult, levers []rubric.Lever, model *rubric.ModelConfig) int {
	index := indexLevers(levers)

	var total, sum float64
	for _, r := range results {
		lever, ok := index[r.LeverID]
		if !ok {
			continue
		}
		w := lever.Weight
		if mw, ok := model.WeightFor(r.LeverID); ok {
			w = mw
		}
		total += w
		sum += r.Score * w
	}
	if total <= 0 {
		return 0
	}
	return int(clamp(math.Floor(sum/total+0.5), 0, 100))
}

// StrengthFor maps a score to its strength level. Lower bounds are inclusive.
func StrengthFor(score int) StrengthLevel {
	switch {
	case score < 30:
		return StrengthWeak
	case score < 50:
		return StrengthFair
	case score < 70:
		return StrengthGood
	case score < 85:
		return StrengthStrong
	default:
		return StrengthExcellent
	}
}

// RankSuggestions collects suggestions from low-scoring levers, orders them by
// lever priority (stable for ties) and keeps the first five.
func RankSuggestions(results []HeuristicResult, levers []rubric.Lever) []Suggestion {
	index := indexLevers(levers)

	all := []Suggestion{}
	for _, r := range results {
		lever, ok := index[r.LeverID]
		if !ok || r.Score >= suggestionCutoff {
			continue
		}
		for _, text := range r.Suggestions {
			all = append(all, Suggestion{Text: text, Priority: lever.Priority, LeverID: lever.ID})
		}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Priority < all[j].Priority })
	if len(all) > maxSuggestions {
		all = all[:maxSuggestions]
	}
	return all
}

// ModelTips picks best-practice tips relevant to the weakest levers, falling
// back to the model's first tip when none relate.
func ModelTips(results []HeuristicResult, model *rubric.ModelConfig) []string {
	if model == nil {
		return nil
	}

	var tips []string
	seen := make(map[string]bool)
	for _, r := range results {
		if r.Score >= tipCutoff {
			continue
		}
		spaced := strings.Replace(r.LeverID, "-", " ", 1)
		head, _, _ := strings.Cut(r.LeverID, "-")
		for _, bp := range model.BestPractices {
			tip := strings.ToLower(bp.Tip)
			if strings.Contains(tip, spaced) || strings.Contains(tip, head) {
				if !seen[bp.Tip] {
					seen[bp.Tip] = true
					tips = append(tips, bp.Tip)
				}
				break
			}
		}
	}

	if len(tips) == 0 && len(model.BestPractices) > 0 {
		tips = append(tips, model.BestPractices[0].Tip)
	}
	if len(tips) > maxModelTips {
		tips = tips[:maxModelTips]
	}
	return tips
}

func indexLevers(levers []rubric.Lever) map[string]*rubric.Lever {
	index := make(map[string]*rubric.Lever, len(levers))
	for i := range levers {
		if _, dup := index[levers[i].ID]; !dup {
			index[levers[i].ID] = &levers[i]
		}
	}
	return index
}
