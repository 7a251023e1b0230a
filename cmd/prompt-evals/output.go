package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/thinkwright/prompt-evals/internal/report"
)

// reportFlags are the output flags shared by check and analyze.
type reportFlags struct {
	ci       bool
	format   string
	output   string
	noPager  bool
	minScore int
}

func (f *reportFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.ci, "ci", false, "CI mode: JSON output, no pager, exit 1 when a prompt scores below --min-score")
	cmd.Flags().StringVar(&f.format, "format", "terminal", "Output format: terminal, json, markdown, html")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Write report to file")
	cmd.Flags().BoolVar(&f.noPager, "no-pager", false, "Disable automatic paging")
	cmd.Flags().IntVar(&f.minScore, "min-score", 0, "Minimum overall score per prompt (default from thresholds.min_score)")
}

// resolve applies CI defaults and the configured minimum score.
func (f *reportFlags) resolve(cmd *cobra.Command, configuredMin int) {
	applyCIDefaults(cmd, &f.format, &f.noPager, f.ci)
	if !cmd.Flags().Changed("min-score") {
		f.minScore = configuredMin
	}
}

// emit renders and writes the report, then enforces --ci.
func (f *reportFlags) emit(rep *report.Report) error {
	output, err := formatReport(rep, f.format)
	if err != nil {
		return err
	}
	if err := writeOutput(output, f.output, f.format, f.noPager); err != nil {
		return err
	}
	if f.ci {
		return checkCIResult(rep)
	}
	return nil
}

func formatReport(rep *report.Report, format string) (string, error) {
	switch format {
	case "json":
		return report.FormatJSON(rep), nil
	case "markdown", "md":
		return report.FormatMarkdown(rep), nil
	case "html":
		return report.FormatHTML(rep)
	case "terminal", "":
		return report.FormatTerminal(rep), nil
	default:
		return "", fmt.Errorf("unknown format %q (want terminal, json, markdown or html)", format)
	}
}

func writeOutput(output, path, format string, noPager bool) error {
	// Write to file
	if path != "" {
		if err := os.WriteFile(path, []byte(output), 0644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Report written to %s\n", path)
		return nil
	}

	// Use pager for terminal format when stdout is a TTY
	if format == "terminal" && !noPager && isTerminal() {
		return outputWithPager(output)
	}

	fmt.Print(output)
	return nil
}

// isTerminal returns true if stdout is connected to a terminal.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// stdinIsTerminal reports whether stdin is interactive.
func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// outputWithPager pipes output through a pager (less -R by default).
func outputWithPager(output string) error {
	pager := os.Getenv("PAGER")
	if pager == "" {
		pager = "less"
	}

	// Build args: for less, -R preserves ANSI colors,
	// -X leaves output on screen after quit
	var args []string
	if pager == "less" {
		args = []string{"-R", "-X"}
	}

	cmd := exec.Command(pager, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		fmt.Print(output)
		return nil
	}

	if err := cmd.Start(); err != nil {
		// Pager not available, fall back to direct output
		fmt.Print(output)
		return nil
	}

	io.WriteString(stdin, output)
	stdin.Close()

	// Ignore pager exit errors (e.g. user quits with 'q')
	cmd.Wait()
	return nil
}

func checkCIResult(rep *report.Report) error {
	failing := rep.Failing()
	if len(failing) == 0 {
		return nil
	}
	worst := failing[0]
	for _, p := range failing[1:] {
		if p.Evaluation.OverallScore < worst.Evaluation.OverallScore {
			worst = p
		}
	}
	return fmt.Errorf("check failed: %d prompt(s) below minimum score %d (lowest: %s at %d)",
		len(failing), rep.MinScore, worst.ID, worst.Evaluation.OverallScore)
}

// applyCIDefaults sets machine-friendly defaults when --ci is used:
// JSON format and no pager, unless the user explicitly overrode them.
func applyCIDefaults(cmd *cobra.Command, format *string, noPager *bool, ci bool) {
	if !ci {
		return
	}
	if !cmd.Flags().Changed("format") {
		*format = "json"
	}
	*noPager = true
}

// printTable writes rows as left-aligned columns sized by display width.
func printTable(w io.Writer, header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, c := range row {
			if cw := runewidth.StringWidth(c); i < len(widths) && cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	line := func(cells []string) {
		var b strings.Builder
		for i, c := range cells {
			if i == len(cells)-1 {
				b.WriteString(c)
				break
			}
			b.WriteString(padRight(c, widths[i]+2))
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}
	line(header)
	for _, row := range rows {
		line(row)
	}
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}
