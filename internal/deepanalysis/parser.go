// Package deepanalysis requests free-text prompt critiques from an LLM and
// turns the reply into structured feedback.
package deepanalysis

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxListItems = 5
	maxExamples  = 3

	minItemLen    = 10
	minRewriteLen = 5
)

// ExamplePrompt is a titled template prompt suggested by the analyst model.
type ExamplePrompt struct {
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}

// Result is the structured form of an analysis reply. Analysis always holds
// the raw text so callers can fall back to showing it.
type Result struct {
	Analysis        string          `json:"analysis"`
	Strengths       []string        `json:"strengths"`
	Improvements    []string        `json:"improvements"`
	RewrittenPrompt string          `json:"rewrittenPrompt,omitempty"`
	ExamplePrompts  []ExamplePrompt `json:"examplePrompts,omitempty"`
}

type section int

const (
	sectionNone section = iota
	sectionStrengths
	sectionImprovements
	sectionRewritten
	sectionExamples
)

var (
	numberedRe     = regexp.MustCompile(`^\d+[.)]`)
	bulletPrefixRe = regexp.MustCompile(`^[-•*]+\s*`)
	numberPrefixRe = regexp.MustCompile(`^\d+[.)]\s*`)
	boldOpenRe     = regexp.MustCompile(`^\*\*`)
	boldCloseRe    = regexp.MustCompile(`\*\*$`)

	boldNumberedRe  = regexp.MustCompile(`^\*\*\d+\.`)
	numberedBoldRe  = regexp.MustCompile(`^\d+\.\s*\*\*`)
	edgeQuotesRe    = regexp.MustCompile(`^["']|["']$`)
	edgeBoldRe      = regexp.MustCompile(`^\*\*|\*\*$`)
	blockquoteRe    = regexp.MustCompile(`^>+\s*`)
	edgeBracketsRe  = regexp.MustCompile(`^\[|\]$`)
	examplePromptRe = regexp.MustCompile(`^[-•*]?\s*\*?\*?\[?([^\]:\n]{3,40})\]?\*?\*?:\s*["']?(.{20,})["']?$`)
)

// ParseResponse extracts strengths, improvements, a rewritten prompt and
// example prompts from raw analysis text. It is best-effort and never fails;
// unrecognized input yields empty fields.
func ParseResponse(raw string) Result {
	res := Result{
		Analysis:     raw,
		Strengths:    []string{},
		Improvements: []string{},
	}

	var rewritten []string
	current := sectionNone

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)

		if next, ok := headerSection(lower); ok {
			current = next
			continue
		}

		switch current {
		case sectionStrengths:
			if item, ok := listItem(trimmed); ok {
				res.Strengths = append(res.Strengths, item)
			}
		case sectionImprovements:
			if item, ok := listItem(trimmed); ok {
				res.Improvements = append(res.Improvements, item)
			}
		case sectionRewritten:
			if trimmed == "" || boldNumberedRe.MatchString(trimmed) || numberedBoldRe.MatchString(lower) {
				continue
			}
			cleaned := edgeQuotesRe.ReplaceAllString(trimmed, "")
			cleaned = edgeBoldRe.ReplaceAllString(cleaned, "")
			cleaned = blockquoteRe.ReplaceAllString(cleaned, "")
			if utf8.RuneCountInString(cleaned) > minRewriteLen {
				rewritten = append(rewritten, cleaned)
			}
		case sectionExamples:
			if ex, ok := exampleItem(trimmed); ok {
				res.ExamplePrompts = append(res.ExamplePrompts, ex)
			}
		}
	}

	if len(res.Strengths) > maxListItems {
		res.Strengths = res.Strengths[:maxListItems]
	}
	if len(res.Improvements) > maxListItems {
		res.Improvements = res.Improvements[:maxListItems]
	}
	if len(res.ExamplePrompts) > maxExamples {
		res.ExamplePrompts = res.ExamplePrompts[:maxExamples]
	}
	res.RewrittenPrompt = strings.Join(rewritten, " ")
	return res
}

// headerSection classifies a lowercased line as a section header. Checks run
// in priority order and the first hit wins.
func headerSection(lower string) (section, bool) {
	switch {
	case strings.Contains(lower, "strength") && !strings.Contains(lower, "prompt"):
		return sectionStrengths, true
	case strings.Contains(lower, "areas to improve"),
		strings.Contains(lower, "improvements"),
		strings.Contains(lower, "improve") && strings.Contains(lower, ":"):
		return sectionImprovements, true
	case strings.Contains(lower, "improved version"),
		strings.Contains(lower, "rewritten"),
		strings.Contains(lower, "revised prompt"),
		strings.Contains(lower, "revised version"):
		return sectionRewritten, true
	case strings.Contains(lower, "example prompt"),
		strings.Contains(lower, "template prompt"),
		strings.Contains(lower, "example templates"):
		return sectionExamples, true
	}
	return sectionNone, false
}

// listItem strips bullet, number and bold markers from a list line.
func listItem(trimmed string) (string, bool) {
	isBullet := strings.HasPrefix(trimmed, "-") ||
		strings.HasPrefix(trimmed, "•") ||
		strings.HasPrefix(trimmed, "*") ||
		numberedRe.MatchString(trimmed)
	if !isBullet {
		return "", false
	}

	item := bulletPrefixRe.ReplaceAllString(trimmed, "")
	item = numberPrefixRe.ReplaceAllString(item, "")
	item = boldOpenRe.ReplaceAllString(item, "")
	item = boldCloseRe.ReplaceAllString(item, "")
	item = strings.TrimSpace(item)

	if utf8.RuneCountInString(item) <= minItemLen {
		return "", false
	}
	return item, true
}

// exampleItem parses `- **[Title]**: "prompt text"` style lines.
func exampleItem(trimmed string) (ExamplePrompt, bool) {
	m := examplePromptRe.FindStringSubmatch(trimmed)
	if m == nil {
		return ExamplePrompt{}, false
	}

	title := strings.TrimSpace(m[1])
	title = edgeBoldRe.ReplaceAllString(title, "")
	title = edgeBracketsRe.ReplaceAllString(title, "")

	prompt := strings.TrimSpace(m[2])
	prompt = edgeQuotesRe.ReplaceAllString(prompt, "")

	return ExamplePrompt{Title: title, Prompt: prompt}, true
}

// Empty reports whether nothing structured was recovered.
func (r Result) Empty() bool {
	return len(r.Strengths) == 0 && len(r.Improvements) == 0 &&
		r.RewrittenPrompt == "" && len(r.ExamplePrompts) == 0
}
