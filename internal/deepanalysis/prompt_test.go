package deepanalysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thinkwright/prompt-evals/internal/rubric"
)

func TestSystemPrompt(t *testing.T) {
	assert.Equal(t,
		"You are an expert prompt engineer. Analyze prompts and provide actionable feedback to improve them for Claude.",
		SystemPrompt("Claude"))
	assert.True(t, strings.HasSuffix(SystemPrompt("  "), "for AI assistants."))
}

func TestSystemPromptFor(t *testing.T) {
	assert.Equal(t, SystemPrompt(""), SystemPromptFor(nil))

	m := &rubric.ModelConfig{Name: "Gemini"}
	assert.Equal(t, SystemPrompt("Gemini"), SystemPromptFor(m))

	m.DeepAnalysisPrompt = "Critique prompts for Gemini."
	assert.Equal(t, "Critique prompts for Gemini.", SystemPromptFor(m))
}

func TestBuildUserPromptDefaults(t *testing.T) {
	got := BuildUserPrompt("Summarize this article", "", rubric.DefaultLevers())

	assert.True(t, strings.HasPrefix(got, "Analyze this prompt intended for an AI assistant:\n\n<prompt>\nSummarize this article\n</prompt>\n"))
	assert.Contains(t, got, "<evaluation-criteria>")
	assert.Contains(t, got, "1. **Context Inclusion (20%)** - Include phrases like: \"context:\"")
	assert.Contains(t, got, "2. **Task Clarity (20%)**")
	assert.Contains(t, got, "3. **Prompt Length (15%)** - Aim for 100-2000 characters with substance")
	assert.Contains(t, got, "<placeholder-rules>")
	assert.Contains(t, got, `**[Title]**: "[Complete prompt text all on one line]"`)
	assert.True(t, strings.HasSuffix(got, "Keep your response concise and actionable."))

	criteria := got[strings.Index(got, "<evaluation-criteria>"):strings.Index(got, "</evaluation-criteria>")]
	assert.Contains(t, criteria, `"review"`)
	assert.NotContains(t, criteria, `"help me"`, "patterns past the cap are omitted")
}

func TestBuildUserPromptModelName(t *testing.T) {
	got := BuildUserPrompt("p", "GPT-4", nil)
	assert.True(t, strings.HasPrefix(got, "Analyze this prompt intended for GPT-4:"))
	assert.NotContains(t, got, "<evaluation-criteria>")
}

func TestBuildUserPromptSkipsDisabledLevers(t *testing.T) {
	levers := rubric.DefaultLevers()
	for i := range levers {
		if levers[i].ID != rubric.LeverPersonaSpecification {
			levers[i].Enabled = false
		}
	}

	got := BuildUserPrompt("p", "", levers)
	assert.Contains(t, got, "1. **Persona Specification (100%)**")
	assert.NotContains(t, got, "Context Inclusion")
}

func TestCriterionHintFallsBackToDescription(t *testing.T) {
	l := rubric.Lever{Name: "Tone", Description: "Checks tone", Weight: 1, Enabled: true}
	assert.Equal(t, "Checks tone", criterionHint(l))
}
