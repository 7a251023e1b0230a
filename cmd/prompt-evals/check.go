package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/thinkwright/prompt-evals/internal/report"
)

func newCheckCmd(g *globalFlags) *cobra.Command {
	var (
		pf promptFlags
		rf reportFlags
	)

	cmd := &cobra.Command{
		Use:   "check [file|dir|-]...",
		Short: "Score prompts against the lever rubric (heuristics only)",
		Long: `Score prompts with the heuristic levers and report per-lever feedback,
ranked suggestions and model-specific tips. No network calls are made.

Files may be .txt or .md (optional YAML frontmatter), .yaml/.yml or .json.
Use '-' to read a prompt from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(g, nil)
			if err != nil {
				return err
			}
			rf.resolve(cmd, a.settings.Thresholds.MinScore)

			snap := a.engine.Snapshot()
			prompts, err := gatherPrompts(cmd, &pf, snap, args)
			if err != nil {
				return err
			}

			rep := &report.Report{
				Levers:      snap.Levers(),
				MinScore:    rf.minScore,
				Version:     version,
				GeneratedAt: time.Now(),
			}
			for _, p := range prompts {
				modelID := resolveModel(cmd, &pf, p, a.settings.DefaultModel, snap)
				rep.Prompts = append(rep.Prompts, promptReport(p, modelID, snap))
			}
			return rf.emit(rep)
		},
	}

	pf.register(cmd)
	rf.register(cmd)
	return cmd
}
