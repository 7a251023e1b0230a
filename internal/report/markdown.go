package report

import (
	"fmt"
	"strings"
)

// FormatMarkdown produces markdown for PR comments.
func FormatMarkdown(r *Report) string {
	var b strings.Builder

	status := "❌ Fail"
	switch r.verdict() {
	case verdictPass:
		status = "✅ Pass"
	case verdictWarn:
		status = "⚠️ Warning"
	}
	fmt.Fprintf(&b, "## prompt-evals: %s (avg %.0f, min %d)\n\n", status, r.AverageScore(), r.MinScore)

	b.WriteString("### Prompts\n\n")
	b.WriteString("| Prompt | Model | Score | Strength | Top suggestion |\n")
	b.WriteString("|--------|-------|-------|----------|----------------|\n")
	for _, p := range r.Prompts {
		ev := p.Evaluation
		top := "—"
		if len(ev.Suggestions) > 0 {
			top = ev.Suggestions[0].Text
		}
		fmt.Fprintf(&b, "| %s | %s | %d | %s | %s |\n",
			cell(p.ID), cell(displayModel(p)), ev.OverallScore, ev.StrengthLevel, cell(top))
	}
	b.WriteString("\n")

	for _, p := range r.Prompts {
		writePromptMarkdown(&b, r, p)
	}

	return b.String()
}

func writePromptMarkdown(b *strings.Builder, r *Report, p PromptReport) {
	ev := p.Evaluation
	fmt.Fprintf(b, "### %s\n\n", p.ID)
	if p.Source != "" {
		fmt.Fprintf(b, "*%s*\n\n", p.Source)
	}

	if len(ev.HeuristicResults) > 0 {
		b.WriteString("| Lever | Score | Feedback |\n")
		b.WriteString("|-------|-------|----------|\n")
		for _, hr := range ev.HeuristicResults {
			fmt.Fprintf(b, "| %s | %.0f | %s |\n", cell(r.leverName(hr.LeverID)), hr.Score, cell(hr.Feedback))
		}
		b.WriteString("\n")
	}

	if len(ev.Suggestions) > 0 {
		b.WriteString("**Suggestions**\n\n")
		for _, s := range ev.Suggestions {
			fmt.Fprintf(b, "- %s\n", s.Text)
		}
		b.WriteString("\n")
	}

	if len(ev.ModelTips) > 0 {
		fmt.Fprintf(b, "**%s tips**\n\n", displayModel(p))
		for _, tip := range ev.ModelTips {
			fmt.Fprintf(b, "- %s\n", tip)
		}
		b.WriteString("\n")
	}

	if p.AnalysisError != "" {
		fmt.Fprintf(b, "> ❌ Deep analysis failed: %s\n\n", p.AnalysisError)
	}
	if p.Analysis == nil {
		return
	}

	res := p.Analysis.Result
	fmt.Fprintf(b, "#### Deep analysis (%s)\n\n", p.Analysis.Provider)
	if res.Empty() {
		fmt.Fprintf(b, "```\n%s\n```\n\n", strings.TrimSpace(res.Analysis))
		return
	}
	if len(res.Strengths) > 0 {
		b.WriteString("**Strengths**\n\n")
		for _, s := range res.Strengths {
			fmt.Fprintf(b, "- %s\n", s)
		}
		b.WriteString("\n")
	}
	if len(res.Improvements) > 0 {
		b.WriteString("**Areas to improve**\n\n")
		for _, s := range res.Improvements {
			fmt.Fprintf(b, "- %s\n", s)
		}
		b.WriteString("\n")
	}
	if res.RewrittenPrompt != "" {
		fmt.Fprintf(b, "**Improved version**\n\n```\n%s\n```\n\n", res.RewrittenPrompt)
	}
	if len(res.ExamplePrompts) > 0 {
		b.WriteString("**Example prompts**\n\n")
		for _, ex := range res.ExamplePrompts {
			fmt.Fprintf(b, "- **%s**: %s\n", ex.Title, ex.Prompt)
		}
		b.WriteString("\n")
	}
}

// FormatTranscript produces a markdown transcript of every raw deep-analysis
// reply, useful for manual review. It is empty when nothing was analyzed.
func FormatTranscript(r *Report) string {
	var b strings.Builder
	analyzed := 0

	b.WriteString("# Analysis Transcript\n\n")
	for _, p := range r.Prompts {
		if p.Analysis == nil && p.AnalysisError == "" {
			continue
		}
		analyzed++

		fmt.Fprintf(&b, "## %s\n\n", p.ID)
		if p.Source != "" {
			fmt.Fprintf(&b, "**Source:** %s\n\n", p.Source)
		}
		fmt.Fprintf(&b, "**Model:** %s\n\n", displayModel(p))
		fmt.Fprintf(&b, "**Heuristic score:** %d (%s)\n\n", p.Evaluation.OverallScore, p.Evaluation.StrengthLevel)

		if p.AnalysisError != "" {
			fmt.Fprintf(&b, "#### Response - ERROR\n\n```\n%s\n```\n\n", p.AnalysisError)
		} else {
			label := p.Analysis.Provider
			if p.Analysis.Model != "" {
				label += ", " + p.Analysis.Model
			}
			if p.Analysis.Cached {
				label += ", cached"
			}
			fmt.Fprintf(&b, "#### Response (%s)\n\n", label)
			fmt.Fprintf(&b, "```\n%s\n```\n\n", p.Analysis.Content)
		}
		b.WriteString("---\n\n")
	}

	if analyzed == 0 {
		return ""
	}
	fmt.Fprintf(&b, "*%d prompts analyzed*\n", analyzed)
	return b.String()
}

// cell makes text safe for a single markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
