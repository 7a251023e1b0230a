// Package report renders evaluation and deep-analysis results for the
// terminal, CI artifacts, PR comments and browsers.
package report

import (
	"time"

	"github.com/thinkwright/prompt-evals/internal/deepanalysis"
	"github.com/thinkwright/prompt-evals/internal/engine"
	"github.com/thinkwright/prompt-evals/internal/rubric"
)

// PromptReport is everything rendered for one prompt.
type PromptReport struct {
	ID          string
	Name        string
	Source      string
	AlsoFoundIn []string
	ModelID     string
	ModelName   string
	WordCount   int
	Evaluation  engine.EvaluationResult

	// Analysis is set when deep analysis ran and succeeded.
	Analysis *deepanalysis.Response
	// AnalysisError is set when deep analysis ran and failed.
	AnalysisError string
}

// Report is one run over a set of prompts.
type Report struct {
	Prompts     []PromptReport
	Levers      []rubric.Lever
	MinScore    int
	Version     string
	GeneratedAt time.Time
}

// Pass reports whether every prompt reached MinScore.
func (r *Report) Pass() bool {
	for _, p := range r.Prompts {
		if p.Evaluation.OverallScore < r.MinScore {
			return false
		}
	}
	return true
}

// Failing returns the prompts scoring below MinScore.
func (r *Report) Failing() []PromptReport {
	var out []PromptReport
	for _, p := range r.Prompts {
		if p.Evaluation.OverallScore < r.MinScore {
			out = append(out, p)
		}
	}
	return out
}

// AverageScore is the mean overall score, or 0 for an empty report.
func (r *Report) AverageScore() float64 {
	if len(r.Prompts) == 0 {
		return 0
	}
	var sum int
	for _, p := range r.Prompts {
		sum += p.Evaluation.OverallScore
	}
	return float64(sum) / float64(len(r.Prompts))
}

func (r *Report) leverName(id string) string {
	if l, ok := rubric.FindLever(r.Levers, id); ok && l.Name != "" {
		return l.Name
	}
	return rubric.NameFromID(id)
}

func (r *Report) timestamp() time.Time {
	if r.GeneratedAt.IsZero() {
		return time.Now()
	}
	return r.GeneratedAt
}

type verdict int

const (
	verdictFail verdict = iota
	verdictWarn
	verdictPass
)

// warnMargin is how far below the minimum a score still counts as a warning.
const warnMargin = 15

func verdictFor(score float64, minScore int) verdict {
	switch {
	case score >= float64(minScore):
		return verdictPass
	case score >= float64(minScore-warnMargin):
		return verdictWarn
	default:
		return verdictFail
	}
}

func (r *Report) verdict() verdict {
	if r.Pass() {
		return verdictPass
	}
	// Some prompt failed, so an average above the bar is still a warning.
	if v := verdictFor(r.AverageScore(), r.MinScore); v != verdictPass {
		return v
	}
	return verdictWarn
}

func displayModel(p PromptReport) string {
	if p.ModelName != "" {
		return p.ModelName
	}
	if p.ModelID != "" {
		return p.ModelID
	}
	return "default"
}
