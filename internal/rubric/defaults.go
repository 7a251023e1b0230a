package rubric

// DefaultModelID is the profile used when a caller does not pick one.
const DefaultModelID = "claude"

func f64(v float64) *float64 { return &v }

// DefaultLevers returns a fresh copy of the built-in rubric.
func DefaultLevers() []Lever {
	return []Lever{
		{
			ID:          LeverPromptLength,
			Name:        "Prompt Length",
			Description: "Checks for sufficient detail in the prompt",
			Weight:      15,
			Enabled:     true,
			Thresholds: Thresholds{
				Min:     f64(50),
				Max:     f64(4000),
				Optimal: &Band{Min: 100, Max: 2000},
			},
			Feedback: Feedback{
				Missing: "Your prompt is too short. Add more context and details.",
				Weak:    "Your prompt could use more detail to get better results.",
				Good:    "Good prompt length with adequate detail.",
			},
			Priority: 1,
		},
		{
			ID:          LeverContextInclusion,
			Name:        "Context Inclusion",
			Description: "Detects background information and context markers",
			Weight:      20,
			Enabled:     true,
			Patterns:    []string{"context:", "background:", "situation:", "for context", "currently", "we have", "our", "my project", "i'm working on", "i am building"},
			Feedback: Feedback{
				Missing: "Add context about your situation or project to get more relevant responses.",
				Weak:    "Consider adding more background information for better results.",
				Good:    "Good context provided!",
			},
			Priority: 2,
		},
		{
			ID:          LeverPersonaSpecification,
			Name:        "Persona Specification",
			Description: "Checks for role or persona assignment",
			Weight:      15,
			Enabled:     true,
			Patterns:    []string{"act as", "you are", "you're a", "as a", "imagine you're", "expert in", "specialist", "senior", "experienced"},
			Feedback: Feedback{
				Missing: "Consider assigning a persona or role (e.g., 'Act as a senior developer...').",
				Weak:    "Your persona could be more specific to the task.",
				Good:    "Good persona specification!",
			},
			Priority: 3,
		},
		{
			ID:          LeverTaskClarity,
			Name:        "Task Clarity",
			Description: "Evaluates clear task definition and action words",
			Weight:      20,
			Enabled:     true,
			Patterns:    []string{"create", "write", "generate", "explain", "analyze", "summarize", "compare", "review", "help me", "build", "implement", "design", "fix", "debug"},
			Feedback: Feedback{
				Missing: "Clearly state what you want the AI to do (e.g., 'Write...', 'Explain...', 'Create...').",
				Weak:    "Be more specific about the task you want completed.",
				Good:    "Clear task definition!",
			},
			Priority: 1,
		},
		{
			ID:          LeverExamplesPresence,
			Name:        "Examples Presence",
			Description: "Detects example patterns for better understanding",
			Weight:      10,
			Enabled:     true,
			Patterns:    []string{"for example", "such as", "like this", "example:", "sample:", "similar to", "for instance", "e.g."},
			Feedback: Feedback{
				Missing: "Adding examples can significantly improve response quality.",
				Weak:    "Consider adding more examples to clarify your expectations.",
				Good:    "Great use of examples!",
			},
			Priority: 4,
		},
		{
			ID:          LeverFormatSpecification,
			Name:        "Format Specification",
			Description: "Checks for output format requests",
			Weight:      10,
			Enabled:     true,
			Patterns:    []string{"format:", "in json", "as a list", "bullet points", "numbered list", "markdown", "table format", "step by step", "output as"},
			Feedback: Feedback{
				Missing: "Specify your desired output format (e.g., list, JSON, markdown).",
				Weak:    "Be more specific about the format you want.",
				Good:    "Good format specification!",
			},
			Priority: 5,
		},
		{
			ID:          LeverConstraintsDefined,
			Name:        "Constraints Defined",
			Description: "Detects limits and boundaries in the prompt",
			Weight:      10,
			Enabled:     true,
			Patterns:    []string{"must", "should", "don't", "do not", "avoid", "limit", "maximum", "minimum", "only", "at least", "at most", "ensure", "without"},
			Feedback: Feedback{
				Missing: "Define constraints or boundaries for more focused results.",
				Weak:    "Consider adding more specific constraints.",
				Good:    "Good constraints defined!",
			},
			Priority: 6,
		},
	}
}

// weights builds a lever-weight map in the canonical lever order.
func weights(length, context, persona, task, examples, format, constraints float64) map[string]float64 {
	return map[string]float64{
		LeverPromptLength:         length,
		LeverContextInclusion:     context,
		LeverPersonaSpecification: persona,
		LeverTaskClarity:          task,
		LeverExamplesPresence:     examples,
		LeverFormatSpecification:  format,
		LeverConstraintsDefined:   constraints,
	}
}

func tips(texts ...string) []BestPractice {
	out := make([]BestPractice, len(texts))
	for i, t := range texts {
		out[i] = BestPractice{Tip: t}
	}
	return out
}

// DefaultModels returns a fresh copy of the built-in model profiles.
func DefaultModels() []ModelConfig {
	return []ModelConfig{
		{
			ID:           "claude",
			Name:         "Claude",
			Provider:     "Anthropic",
			ProviderID:   "anthropic",
			Description:  "Anthropic's Claude models",
			Enabled:      true,
			LeverWeights: weights(15, 25, 15, 20, 10, 5, 10),
			BestPractices: tips(
				"Use XML tags to structure your prompt (e.g., <context>, <task>, <constraints>)",
				"Claude responds well to explicit role assignments with 'You are...'",
				"Be explicit about what you want Claude to avoid or include",
			),
			PreferredStructure: []string{"Context/Background", "Task Definition", "Constraints/Requirements", "Output Format"},
		},
		{
			ID:           "gpt4",
			Name:         "GPT-4",
			Provider:     "OpenAI",
			ProviderID:   "openai",
			Description:  "OpenAI's GPT-4",
			Enabled:      true,
			LeverWeights: weights(15, 20, 20, 20, 10, 10, 5),
			BestPractices: tips(
				"GPT-4 excels when you specify numeric constraints (length, count, etc.)",
				"Request JSON output for structured data",
				"Use clear section headers with markdown formatting",
			),
			PreferredStructure: []string{"System Context", "Background Information", "Specific Task", "Format Requirements"},
		},
		{
			ID:           "gemini",
			Name:         "Gemini",
			Provider:     "Google",
			ProviderID:   "google",
			Description:  "Google's Gemini",
			Enabled:      true,
			LeverWeights: weights(15, 20, 10, 25, 15, 10, 5),
			BestPractices: tips(
				"Gemini excels at multi-step reasoning - break complex tasks into steps",
				"Gemini responds well to examples with clear input/output pairs",
			),
			PreferredStructure: []string{"Clear Task Statement", "Step-by-Step Instructions", "Examples", "Output Format"},
		},
		{
			ID:           "llama3",
			Name:         "Llama 3",
			Provider:     "Meta",
			ProviderID:   "meta",
			Description:  "Meta's Llama 3",
			Enabled:      true,
			LeverWeights: weights(20, 20, 15, 25, 10, 5, 5),
			BestPractices: tips(
				"Llama 3 benefits from explicit, direct instructions without ambiguity",
				"Keep context concise - Llama 3 performs best with focused prompts",
			),
			PreferredStructure: []string{"Direct Task Statement", "Specific Requirements", "Concise Context", "Expected Output"},
		},
		{
			ID:           "mistral",
			Name:         "Mistral",
			Provider:     "Mistral AI",
			ProviderID:   "mistral",
			Description:  "Mistral AI models",
			Enabled:      true,
			LeverWeights: weights(15, 15, 15, 25, 15, 10, 5),
			BestPractices: tips(
				"Mistral excels with clear, well-structured instructions",
				"Use few-shot examples to establish the pattern you want",
			),
			PreferredStructure: []string{"Task Definition", "Few-Shot Examples", "Specific Requirements", "Output Format"},
		},
		{
			ID:           "deepseek",
			Name:         "DeepSeek",
			Provider:     "DeepSeek",
			ProviderID:   "deepseek",
			Description:  "DeepSeek chat models",
			Enabled:      true,
			LeverWeights: weights(15, 20, 10, 25, 10, 10, 10),
			BestPractices: tips(
				"DeepSeek follows explicit constraints closely - state limits and exclusions directly",
				"Ask for step-by-step reasoning on analytical tasks",
			),
			PreferredStructure: []string{"Task Definition", "Context", "Constraints", "Output Format"},
		},
	}
}

// DefaultBundle returns the built-in rubric and model profiles together.
func DefaultBundle() Bundle {
	return Bundle{Levers: DefaultLevers(), Models: DefaultModels()}
}
