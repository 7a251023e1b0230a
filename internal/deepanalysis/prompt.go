package deepanalysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/thinkwright/prompt-evals/internal/rubric"
)

const (
	fallbackSystemTarget = "AI assistants"
	fallbackUserTarget   = "an AI assistant"

	// maxCriteriaPatterns caps how many example phrases each criterion lists.
	maxCriteriaPatterns = 8
)

// SystemPrompt returns the analyst system prompt for a target model name.
func SystemPrompt(modelName string) string {
	if strings.TrimSpace(modelName) == "" {
		modelName = fallbackSystemTarget
	}
	return fmt.Sprintf("You are an expert prompt engineer. Analyze prompts and provide actionable feedback to improve them for %s.", modelName)
}

// SystemPromptFor prefers the model's own deep-analysis prompt.
func SystemPromptFor(model *rubric.ModelConfig) string {
	if model == nil {
		return SystemPrompt("")
	}
	if model.DeepAnalysisPrompt != "" {
		return model.DeepAnalysisPrompt
	}
	return SystemPrompt(model.Name)
}

const userPromptHeader = `Analyze this prompt intended for %s:

<prompt>
%s
</prompt>
`

const placeholderRules = `<placeholder-rules>
Use [PLACEHOLDER] markers ONLY for content the user needs to customize:
- [YOUR TOPIC] - the subject they're working on
- [YOUR TECHNOLOGY/LANGUAGE] - specific tech stack
- [YOUR REQUIREMENTS] - specific requirements or goals
- [YOUR CONSTRAINTS] - specific limitations
- [NUMBER] - specific quantities

DO NOT put brackets around:
- Action verbs (write, create, explain)
- Structural phrases (act as, step by step)
- Common patterns the judge looks for
</placeholder-rules>
`

const outputContract = `Provide a structured analysis with:

1. **Strengths** (2-3 bullet points of what the prompt already does well)

2. **Areas to Improve** (2-3 bullet points - reference which evaluation criteria above are missing)

3. **Improved Version** (rewrite their SPECIFIC prompt, keeping their topic/intent but adding the missing criteria patterns. This should score highly on our judge.)

4. **Example Prompts** (provide exactly 2 complete template prompts related to their topic)

CRITICAL FORMAT FOR EXAMPLES - follow this EXACTLY:
- Each example must be a complete, standalone prompt (not a list of features)
- Write the full prompt text on a single line after the title
- Do NOT use sub-bullets or numbered lists inside examples
- Format: **[Title]**: "[Complete prompt text all on one line]"

Example of CORRECT format:
- **[API Integration]**: "Act as a senior backend developer. I'm building a Node.js application and need to implement a REST API endpoint for user authentication. Please create the code step by step, including input validation, error handling, and JWT token generation. The response should be in JSON format."

Example of WRONG format (do not do this):
- **[API Integration]**: "Create an API including:
  - Authentication
  - Validation"

Keep your response concise and actionable.`

// BuildUserPrompt renders the analysis request for prompt. The evaluation
// criteria block is generated from the enabled levers so the analyst aims at
// the same rubric the heuristic engine scores against.
func BuildUserPrompt(prompt, modelName string, levers []rubric.Lever) string {
	if strings.TrimSpace(modelName) == "" {
		modelName = fallbackUserTarget
	}

	var b strings.Builder
	fmt.Fprintf(&b, userPromptHeader, modelName, prompt)
	b.WriteString("\n")
	if criteria := criteriaBlock(levers); criteria != "" {
		b.WriteString(criteria)
		b.WriteString("\n")
	}
	b.WriteString(placeholderRules)
	b.WriteString("\n")
	b.WriteString(outputContract)
	return b.String()
}

func criteriaBlock(levers []rubric.Lever) string {
	var enabled []rubric.Lever
	var total float64
	for _, l := range levers {
		if l.Enabled && l.Weight > 0 {
			enabled = append(enabled, l)
			total += l.Weight
		}
	}
	if len(enabled) == 0 {
		return ""
	}
	sort.SliceStable(enabled, func(i, j int) bool { return enabled[i].Weight > enabled[j].Weight })

	var b strings.Builder
	b.WriteString("<evaluation-criteria>\n")
	b.WriteString("Our prompt judge evaluates prompts based on these criteria. Your improved prompts MUST score well by including these patterns:\n")
	for i, l := range enabled {
		pct := int(math.Floor(l.Weight/total*100 + 0.5))
		fmt.Fprintf(&b, "\n%d. **%s (%d%%)** - %s\n", i+1, l.Name, pct, criterionHint(l))
	}
	b.WriteString("</evaluation-criteria>\n")
	return b.String()
}

func criterionHint(l rubric.Lever) string {
	if len(l.Patterns) == 0 {
		if opt := l.Thresholds.Optimal; opt != nil {
			return fmt.Sprintf("Aim for %d-%d characters with substance", int(opt.Min), int(opt.Max))
		}
		return l.Description
	}
	patterns := l.Patterns
	if len(patterns) > maxCriteriaPatterns {
		patterns = patterns[:maxCriteriaPatterns]
	}
	quoted := make([]string, len(patterns))
	for i, p := range patterns {
		quoted[i] = fmt.Sprintf("%q", p)
	}
	return "Include phrases like: " + strings.Join(quoted, ", ")
}
