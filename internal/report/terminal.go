package report

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/thinkwright/prompt-evals/internal/deepanalysis"
	"github.com/thinkwright/prompt-evals/internal/engine"
)

// Muted 256-color palette
const (
	bold  = "\033[1m"
	dim   = "\033[2m"
	reset = "\033[0m"

	rose  = "\033[38;5;174m" // soft red/pink
	amber = "\033[38;5;179m" // warm yellow
	sage  = "\033[38;5;108m" // muted green
	slate = "\033[38;5;110m" // muted blue
	lilac = "\033[38;5;139m" // soft purple
	stone = "\033[38;5;245m" // medium gray
	chalk = "\033[38;5;188m" // off-white
)

const (
	ruler     = "────────────────────────────────────────────────────────"
	wrapWidth = 68
	nameWidth = 22
)

var (
	printer    = message.NewPrinter(language.English)
	titleCaser = cases.Title(language.English)
)

func sectionHeader(title string) string {
	return fmt.Sprintf("\n  %s%s%s\n  %s%s%s\n", bold+chalk, strings.ToUpper(title), reset, stone, ruler, reset)
}

// FormatTerminal produces human-readable terminal output.
func FormatTerminal(r *Report) string {
	var b strings.Builder

	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s%sprompt-evals report%s\n", bold, chalk, reset)
	fmt.Fprintf(&b, "  %s%s%s\n", stone, ruler, reset)

	b.WriteString(sectionHeader(printer.Sprintf("Prompts (%d)", len(r.Prompts))))

	for i, p := range r.Prompts {
		writePrompt(&b, r, p)
		if i < len(r.Prompts)-1 {
			b.WriteString("\n")
		}
	}

	// ── Overall ─────────────────────────────────────────────
	avg := r.AverageScore()
	var statusLabel, statusColor string
	switch r.verdict() {
	case verdictPass:
		statusLabel, statusColor = "PASS ✔", sage
	case verdictWarn:
		statusLabel, statusColor = "WARN ⚠", amber
	default:
		statusLabel, statusColor = "FAIL ✘", rose
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s%s%s\n", stone, ruler, reset)
	fmt.Fprintf(&b, "  %s%sOverall%s   %s  %s%3.0f%s   %s%s%s  %s(min %d)%s\n\n",
		bold, chalk, reset,
		colorBar(avg),
		chalk, avg, reset,
		statusColor, statusLabel, reset,
		stone, r.MinScore, reset)

	return b.String()
}

func writePrompt(b *strings.Builder, r *Report, p PromptReport) {
	ev := p.Evaluation

	fmt.Fprintf(b, "  %s%s%s", chalk, p.ID, reset)
	if p.Name != "" && p.Name != p.ID {
		fmt.Fprintf(b, "  %s%s%s", stone, p.Name, reset)
	}
	b.WriteString("\n")
	fmt.Fprintf(b, "    %smodel%s     %s%s%s   %s%s words%s\n",
		stone, reset, slate, displayModel(p), reset,
		stone, printer.Sprintf("%d", p.WordCount), reset)
	if len(p.AlsoFoundIn) > 0 {
		fmt.Fprintf(b, "    %salso in%s   %s%s%s\n", stone, reset, stone, strings.Join(p.AlsoFoundIn, ", "), reset)
	}
	fmt.Fprintf(b, "    %sscore%s     %s  %s%3d%s  %s%s%s\n",
		stone, reset,
		colorBar(float64(ev.OverallScore)),
		chalk, ev.OverallScore, reset,
		strengthColor(ev.StrengthLevel), titleCaser.String(string(ev.StrengthLevel)), reset)

	if len(ev.HeuristicResults) > 0 {
		b.WriteString("\n")
		for _, hr := range ev.HeuristicResults {
			icon := sage + "✔" + reset
			switch {
			case hr.Score < 50:
				icon = rose + "✘" + reset
			case hr.Score < 70:
				icon = amber + "●" + reset
			}
			fmt.Fprintf(b, "    %s  %s %s%3.0f%s  %s%s%s\n",
				icon,
				padRight(truncate(r.leverName(hr.LeverID), nameWidth), nameWidth),
				scoreColor(hr.Score), hr.Score, reset,
				stone, hr.Feedback, reset)
		}
	}

	if len(ev.Suggestions) > 0 {
		fmt.Fprintf(b, "\n    %ssuggestions%s\n", lilac, reset)
		for i, s := range ev.Suggestions {
			writeWrapped(b, fmt.Sprintf("    %s%d.%s ", stone, i+1, reset), "       ", s.Text)
		}
	}

	if len(ev.ModelTips) > 0 {
		fmt.Fprintf(b, "\n    %s%s tips%s\n", lilac, displayModel(p), reset)
		for _, tip := range ev.ModelTips {
			writeWrapped(b, fmt.Sprintf("    %s•%s  ", slate, reset), "       ", tip)
		}
	}

	if p.AnalysisError != "" {
		fmt.Fprintf(b, "\n    %s✘  deep analysis failed%s\n", rose, reset)
		writeWrapped(b, "       ", "       ", p.AnalysisError)
	}
	if p.Analysis != nil {
		writeAnalysis(b, p.Analysis)
	}
}

func writeAnalysis(b *strings.Builder, resp *deepanalysis.Response) {
	res := resp.Result
	source := resp.Provider
	if resp.Model != "" {
		source += ", " + resp.Model
	}
	if resp.Cached {
		source += ", cached"
	}
	fmt.Fprintf(b, "\n    %sdeep analysis%s %s(%s)%s\n", lilac, reset, stone, source, reset)

	if res.Empty() {
		for _, line := range strings.Split(strings.TrimSpace(res.Analysis), "\n") {
			fmt.Fprintf(b, "      %s%s%s\n", dim, line, reset)
		}
		return
	}

	if len(res.Strengths) > 0 {
		fmt.Fprintf(b, "      %sstrengths%s\n", sage, reset)
		for _, s := range res.Strengths {
			writeWrapped(b, "      "+sage+"+"+reset+"  ", "         ", s)
		}
	}
	if len(res.Improvements) > 0 {
		fmt.Fprintf(b, "      %sareas to improve%s\n", amber, reset)
		for _, s := range res.Improvements {
			writeWrapped(b, "      "+amber+"→"+reset+"  ", "         ", s)
		}
	}
	if res.RewrittenPrompt != "" {
		fmt.Fprintf(b, "      %simproved version%s\n", slate, reset)
		for _, line := range strings.Split(res.RewrittenPrompt, "\n") {
			fmt.Fprintf(b, "      %s│%s %s\n", stone, reset, line)
		}
	}
	if len(res.ExamplePrompts) > 0 {
		fmt.Fprintf(b, "      %sexample prompts%s\n", slate, reset)
		for _, ex := range res.ExamplePrompts {
			fmt.Fprintf(b, "      %s%s%s\n", chalk, ex.Title, reset)
			writeWrapped(b, "         ", "         ", ex.Prompt)
		}
	}
}

// writeWrapped writes text word-wrapped, with prefix on the first line and
// indent on the rest.
func writeWrapped(b *strings.Builder, prefix, indent, text string) {
	for i, line := range wordWrap(text, wrapWidth) {
		if i == 0 {
			fmt.Fprintf(b, "%s%s\n", prefix, line)
		} else {
			fmt.Fprintf(b, "%s%s\n", indent, line)
		}
	}
}

func strengthColor(level engine.StrengthLevel) string {
	switch level {
	case engine.StrengthExcellent, engine.StrengthStrong:
		return sage
	case engine.StrengthGood:
		return slate
	case engine.StrengthFair:
		return amber
	default:
		return rose
	}
}

func scoreColor(score float64) string {
	switch {
	case score >= 70:
		return sage
	case score >= 50:
		return amber
	default:
		return rose
	}
}

// colorBar renders a 0-100 score as a progress bar.
func colorBar(score float64) string {
	width := 16
	filled := int(score / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return scoreColor(score) + strings.Repeat("█", filled) + stone + strings.Repeat("░", width-filled) + reset
}

// wordWrap breaks text into lines no wider than maxWidth terminal cells,
// splitting at word boundaries.
func wordWrap(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	line := words[0]
	width := runewidth.StringWidth(line)
	for _, w := range words[1:] {
		ww := runewidth.StringWidth(w)
		if width+1+ww > maxWidth {
			lines = append(lines, line)
			line, width = w, ww
		} else {
			line += " " + w
			width += 1 + ww
		}
	}
	lines = append(lines, line)
	return lines
}

// padRight pads s with spaces so its display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

// truncate shortens s to at most width cells, ending in "…" when cut.
func truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
