package deepanalysis

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReply = `## Strengths
- Clearly states the desired output language
- **Specifies a target audience of beginners**
1. Uses concrete nouns throughout the request
• Keeps the request to a single focused task
- short

## Areas to Improve
* Add a persona such as a senior data engineer
2) Specify the output format, for example a numbered list

## Improved Version
> Act as a senior data engineer. I'm building a pipeline.
> Explain step by step how to dedupe records.

## Example Prompts
- **[API Integration]**: "Act as a senior backend developer. I'm building a REST API."
- **[Data Cleanup]**: "You are an experienced analyst. Create a plan to clean CSV files."
- not an example
`

func TestParseResponseFullReply(t *testing.T) {
	res := ParseResponse(sampleReply)

	assert.Equal(t, sampleReply, res.Analysis)
	assert.Equal(t, []string{
		"Clearly states the desired output language",
		"Specifies a target audience of beginners",
		"Uses concrete nouns throughout the request",
		"Keeps the request to a single focused task",
	}, res.Strengths)
	assert.Equal(t, []string{
		"Add a persona such as a senior data engineer",
		"Specify the output format, for example a numbered list",
	}, res.Improvements)
	assert.Equal(t,
		"Act as a senior data engineer. I'm building a pipeline. Explain step by step how to dedupe records.",
		res.RewrittenPrompt)
	assert.Equal(t, []ExamplePrompt{
		{Title: "API Integration", Prompt: "Act as a senior backend developer. I'm building a REST API."},
		{Title: "Data Cleanup", Prompt: "You are an experienced analyst. Create a plan to clean CSV files."},
	}, res.ExamplePrompts)
	assert.False(t, res.Empty())
}

func TestParseResponseSingleExample(t *testing.T) {
	raw := "Example Prompts\n" +
		`- **[API Integration]**: "Act as a senior backend developer. I'm building a Node.js service and need an auth endpoint."`

	res := ParseResponse(raw)
	require.Len(t, res.ExamplePrompts, 1)
	assert.Equal(t, "API Integration", res.ExamplePrompts[0].Title)
	assert.True(t, strings.HasPrefix(res.ExamplePrompts[0].Prompt, "Act as a senior backend developer."))
	assert.False(t, strings.HasSuffix(res.ExamplePrompts[0].Prompt, `"`))
}

func TestParseResponseExampleVariants(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		title string
		ok    bool
	}{
		{"bold without brackets", `**Code Review**: "Review this Go function for race conditions please."`, "Code Review", true},
		{"plain title", `Bug Triage: Explain the root cause of this stack trace in detail.`, "Bug Triage", true},
		{"single quotes", `- [Docs]: 'Write a README section that explains configuration.'`, "Docs", true},
		{"prompt too short", `- **[Short]**: "Too short"`, "", false},
		{"title too long", `- **[This title is far too long to be accepted as one]**: "This prompt is definitely long enough to count."`, "", false},
		{"no colon", `- **[Title]** "This prompt is definitely long enough to count."`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseResponse("Template Prompts\n" + tt.line)
			if !tt.ok {
				assert.Empty(t, res.ExamplePrompts)
				return
			}
			require.Len(t, res.ExamplePrompts, 1)
			assert.Equal(t, tt.title, res.ExamplePrompts[0].Title)
		})
	}
}

func TestParseResponseIsTotal(t *testing.T) {
	inputs := []string{
		"",
		"word",
		"**",
		"- - -",
		"\n\n\n",
		"Strengths\n",
		"Improved Version\n\n",
		"Example Prompts\n- **[",
		"\x00\xff\xfe",
		strings.Repeat("- ", 5000),
		"# Strengths\r\n- Windows line endings are handled\r\n",
	}
	for i, in := range inputs {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			var res Result
			require.NotPanics(t, func() { res = ParseResponse(in) })
			assert.Equal(t, in, res.Analysis)
			assert.NotNil(t, res.Strengths)
			assert.NotNil(t, res.Improvements)
			assert.LessOrEqual(t, len(res.Strengths), 5)
			assert.LessOrEqual(t, len(res.Improvements), 5)
			assert.LessOrEqual(t, len(res.ExamplePrompts), 3)
		})
	}
}

func TestParseResponseCRLF(t *testing.T) {
	res := ParseResponse("# Strengths\r\n- Windows line endings are handled\r\n")
	assert.Equal(t, []string{"Windows line endings are handled"}, res.Strengths)
}

func TestParseResponseNoSections(t *testing.T) {
	raw := "This prompt is fine.\nNothing else to say here."
	res := ParseResponse(raw)
	assert.True(t, res.Empty())
	assert.Empty(t, res.Strengths)
	assert.Empty(t, res.Improvements)
	assert.Equal(t, "", res.RewrittenPrompt)
	assert.Nil(t, res.ExamplePrompts)
	assert.Equal(t, raw, res.Analysis)
}

func TestParseResponseTruncates(t *testing.T) {
	var b strings.Builder
	b.WriteString("Strengths\n")
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&b, "- Positive item number %d is long enough\n", i)
	}
	b.WriteString("Improvements\n")
	for i := 0; i < 7; i++ {
		fmt.Fprintf(&b, "- Change item number %d is long enough\n", i)
	}
	b.WriteString("Example Prompts\n")
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&b, "- **[Title %d]**: \"A complete sample request number %d for testing.\"\n", i, i)
	}

	res := ParseResponse(b.String())
	require.Len(t, res.Strengths, 5)
	require.Len(t, res.Improvements, 5)
	require.Len(t, res.ExamplePrompts, 3)
	assert.Equal(t, "Positive item number 0 is long enough", res.Strengths[0])
	assert.Equal(t, "Title 2", res.ExamplePrompts[2].Title)
}

func TestParseResponseHeaderClassification(t *testing.T) {
	tests := []struct {
		name   string
		header string
		field  string
	}{
		{"strength header", "**Strengths:**", "strengths"},
		{"prompt strengths is not a strengths header", "Prompt Strengths", "none"},
		{"areas to improve", "### Areas to Improve", "improvements"},
		{"improvements", "Suggested improvements", "improvements"},
		{"improve with colon", "How to improve:", "improvements"},
		{"improve without colon is content", "Ways to improve", "none"},
		{"rewritten", "Rewritten prompt", "rewritten"},
		{"revised version", "Revised Version", "rewritten"},
		{"revised prompt", "REVISED PROMPT", "rewritten"},
		{"example templates", "Example templates", "examples"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := tt.header + "\n" +
				"- This line is long enough to be an item\n" +
				`- **[Sample Title]**: "This line is long enough to be a sample request."`
			res := ParseResponse(raw)

			switch tt.field {
			case "strengths":
				assert.NotEmpty(t, res.Strengths)
			case "improvements":
				assert.NotEmpty(t, res.Improvements)
				assert.Empty(t, res.Strengths)
			case "rewritten":
				assert.Contains(t, res.RewrittenPrompt, "This line is long enough to be an item")
			case "examples":
				require.Len(t, res.ExamplePrompts, 1)
				assert.Equal(t, "Sample Title", res.ExamplePrompts[0].Title)
			case "none":
				assert.True(t, res.Empty())
			}
		})
	}
}

func TestParseResponseRewrittenCleanup(t *testing.T) {
	raw := strings.Join([]string{
		"Improved Version",
		`"Write a haiku about autumn leaves."`,
		"**Summarize the result in bullet points**",
		">> Keep it under fifty words",
		"Hi.",
		"**4. Notes**",
		"5. **Extra section**",
		"",
		"Template Prompts",
		`- **[Poetry]**: "Write a sonnet about the sea in iambic pentameter."`,
	}, "\n")

	res := ParseResponse(raw)
	assert.Equal(t,
		"Write a haiku about autumn leaves. Summarize the result in bullet points Keep it under fifty words",
		res.RewrittenPrompt)
	require.Len(t, res.ExamplePrompts, 1)
	assert.Equal(t, "Poetry", res.ExamplePrompts[0].Title)
}

func TestParseResponseListItemFilter(t *testing.T) {
	raw := strings.Join([]string{
		"Strengths",
		"- tiny",
		"-   exactly10c",
		"- exactly11ch",
		"Not a bullet but long enough to count",
		"10. Numbered with two digits works",
		"* **Bold bullet with stars stripped**",
	}, "\n")
	res := ParseResponse(raw)
	assert.Equal(t, []string{
		"exactly11ch",
		"Numbered with two digits works",
		"Bold bullet with stars stripped",
	}, res.Strengths)
}
