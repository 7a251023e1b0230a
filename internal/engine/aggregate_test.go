package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thinkwright/prompt-evals/internal/rubric"
)

func defaultModel(t *testing.T, id string) *rubric.ModelConfig {
	t.Helper()
	for _, m := range rubric.DefaultModels() {
		if m.ID == id {
			return &m
		}
	}
	t.Fatalf("model %q not in defaults", id)
	return nil
}

func resultsWithScore(levers []rubric.Lever, score float64) []HeuristicResult {
	out := make([]HeuristicResult, len(levers))
	for i, l := range levers {
		out[i] = HeuristicResult{LeverID: l.ID, Score: score, Suggestions: []string{l.Feedback.Missing}}
	}
	return out
}

func TestOverallScoreExtremes(t *testing.T) {
	levers := rubric.DefaultLevers()
	for _, model := range []*rubric.ModelConfig{nil, defaultModel(t, "claude"), defaultModel(t, "gemini")} {
		name := "no model"
		if model != nil {
			name = model.ID
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, 100, OverallScore(resultsWithScore(levers, 100), levers, model))
			assert.Equal(t, 0, OverallScore(resultsWithScore(levers, 0), levers, model))
		})
	}
}

func TestOverallScoreRoundsHalfUp(t *testing.T) {
	levers := []rubric.Lever{
		patternLever(rubric.LeverContextInclusion),
		patternLever(rubric.LeverTaskClarity),
	}
	tests := []struct {
		a, b float64
		want int
	}{
		{50, 51, 51},
		{50, 50, 50},
		{60, 61.2, 61},
		{0, 0.9, 0},
		{99, 100, 100},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v_%v", tt.a, tt.b), func(t *testing.T) {
			results := []HeuristicResult{
				{LeverID: rubric.LeverContextInclusion, Score: tt.a},
				{LeverID: rubric.LeverTaskClarity, Score: tt.b},
			}
			assert.Equal(t, tt.want, OverallScore(results, levers, nil))
		})
	}
}

func TestOverallScoreUsesModelWeights(t *testing.T) {
	levers := []rubric.Lever{
		patternLever(rubric.LeverContextInclusion),
		patternLever(rubric.LeverTaskClarity),
	}
	results := []HeuristicResult{
		{LeverID: rubric.LeverContextInclusion, Score: 100},
		{LeverID: rubric.LeverTaskClarity, Score: 0},
	}

	assert.Equal(t, 50, OverallScore(results, levers, nil))

	model := &rubric.ModelConfig{ID: "m", LeverWeights: map[string]float64{rubric.LeverContextInclusion: 30}}
	assert.Equal(t, 75, OverallScore(results, levers, model))

	// A present zero override is used as-is.
	model.LeverWeights[rubric.LeverTaskClarity] = 0
	assert.Equal(t, 100, OverallScore(results, levers, model))

	model.LeverWeights[rubric.LeverContextInclusion] = 0
	assert.Equal(t, 0, OverallScore(results, levers, model))
}

func TestOverallScoreSkipsUnknownResults(t *testing.T) {
	levers := []rubric.Lever{patternLever(rubric.LeverTaskClarity)}
	results := []HeuristicResult{
		{LeverID: rubric.LeverTaskClarity, Score: 80},
		{LeverID: "not-in-rubric", Score: 0},
	}
	assert.Equal(t, 80, OverallScore(results, levers, nil))
	assert.Equal(t, 0, OverallScore(nil, levers, nil))
}

func TestStrengthFor(t *testing.T) {
	tests := []struct {
		score int
		want  StrengthLevel
	}{
		{0, StrengthWeak},
		{29, StrengthWeak},
		{30, StrengthFair},
		{49, StrengthFair},
		{50, StrengthGood},
		{69, StrengthGood},
		{70, StrengthStrong},
		{84, StrengthStrong},
		{85, StrengthExcellent},
		{100, StrengthExcellent},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.score), func(t *testing.T) {
			assert.Equal(t, tt.want, StrengthFor(tt.score))
		})
	}
}

func TestRankSuggestionsOrdersByPriorityStable(t *testing.T) {
	levers := rubric.DefaultLevers()
	results := resultsWithScore(levers, 0)

	got := RankSuggestions(results, levers)
	require.Len(t, got, 5)

	var ids []string
	for _, s := range got {
		ids = append(ids, s.LeverID)
	}
	// prompt-length and task-clarity share priority 1; rubric order breaks the tie.
	assert.Equal(t, []string{
		rubric.LeverPromptLength,
		rubric.LeverTaskClarity,
		rubric.LeverContextInclusion,
		rubric.LeverPersonaSpecification,
		rubric.LeverExamplesPresence,
	}, ids)

	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Priority, got[i].Priority)
	}
}

func TestRankSuggestionsOnlyLowScores(t *testing.T) {
	levers := []rubric.Lever{
		patternLever(rubric.LeverContextInclusion),
		patternLever(rubric.LeverTaskClarity),
	}
	results := []HeuristicResult{
		{LeverID: rubric.LeverContextInclusion, Score: 70, Suggestions: []string{"ignored"}},
		{LeverID: rubric.LeverTaskClarity, Score: 69.9, Suggestions: []string{"kept"}},
		{LeverID: "unknown", Score: 0, Suggestions: []string{"orphan"}},
	}

	got := RankSuggestions(results, levers)
	require.Len(t, got, 1)
	assert.Equal(t, Suggestion{Text: "kept", Priority: 1, LeverID: rubric.LeverTaskClarity}, got[0])
}

func TestRankSuggestionsEmpty(t *testing.T) {
	got := RankSuggestions(nil, rubric.DefaultLevers())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestModelTips(t *testing.T) {
	t.Run("no model", func(t *testing.T) {
		assert.Nil(t, ModelTips(resultsWithScore(rubric.DefaultLevers(), 0), nil))
	})

	t.Run("matches by lever prefix and dedups", func(t *testing.T) {
		claude := defaultModel(t, "claude")
		tips := ModelTips(resultsWithScore(rubric.DefaultLevers(), 0), claude)
		// "prompt", "context" and "constraints" all hit the XML-tags tip.
		assert.Equal(t, []string{claude.BestPractices[0].Tip}, tips)
	})

	t.Run("matches spaced lever id", func(t *testing.T) {
		model := &rubric.ModelConfig{BestPractices: []rubric.BestPractice{
			{Tip: "Unrelated advice"},
			{Tip: "Improve Task Clarity by leading with a verb"},
		}}
		results := []HeuristicResult{{LeverID: rubric.LeverTaskClarity, Score: 10}}
		assert.Equal(t, []string{"Improve Task Clarity by leading with a verb"}, ModelTips(results, model))
	})

	t.Run("falls back to first tip", func(t *testing.T) {
		model := &rubric.ModelConfig{BestPractices: []rubric.BestPractice{{Tip: "first"}, {Tip: "second"}}}
		results := []HeuristicResult{{LeverID: rubric.LeverTaskClarity, Score: 100}}
		assert.Equal(t, []string{"first"}, ModelTips(results, model))
	})

	t.Run("no best practices", func(t *testing.T) {
		model := &rubric.ModelConfig{}
		assert.Empty(t, ModelTips(resultsWithScore(rubric.DefaultLevers(), 0), model))
	})

	t.Run("caps at three", func(t *testing.T) {
		model := &rubric.ModelConfig{BestPractices: []rubric.BestPractice{
			{Tip: "prompt tip"},
			{Tip: "context tip"},
			{Tip: "persona tip"},
			{Tip: "task tip"},
			{Tip: "examples tip"},
		}}
		tips := ModelTips(resultsWithScore(rubric.DefaultLevers(), 0), model)
		assert.Equal(t, []string{"prompt tip", "context tip", "persona tip"}, tips)
	})

	t.Run("score 60 does not pull tips", func(t *testing.T) {
		model := &rubric.ModelConfig{BestPractices: []rubric.BestPractice{{Tip: "fallback"}, {Tip: "task tip"}}}
		results := []HeuristicResult{{LeverID: rubric.LeverTaskClarity, Score: 60}}
		assert.Equal(t, []string{"fallback"}, ModelTips(results, model))
	})
}

func TestAggregateWithoutModelHasNoTips(t *testing.T) {
	levers := rubric.DefaultLevers()
	sum := Aggregate(resultsWithScore(levers, 0), levers, nil)
	assert.Equal(t, 0, sum.OverallScore)
	assert.Equal(t, StrengthWeak, sum.StrengthLevel)
	assert.NotNil(t, sum.ModelTips)
	assert.Empty(t, sum.ModelTips)
	assert.Len(t, sum.Suggestions, 5)
}
