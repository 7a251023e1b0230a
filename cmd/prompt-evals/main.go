package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	config  string
	rubric  string
	verbose bool
}

func main() {
	var g globalFlags

	root := &cobra.Command{
		Use:           "prompt-evals",
		Short:         "Heuristic scoring, LLM deep analysis and rubric management for prompts",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&g.config, "config", "", "Path to prompt-evals.yaml settings")
	root.PersistentFlags().StringVar(&g.rubric, "rubric", "", "Rubric directory (levers file + models/)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Verbose logging to stderr")

	root.AddCommand(
		newCheckCmd(&g),
		newAnalyzeCmd(&g),
		newServeCmd(&g),
		newInitCmd(),
		newLeversCmd(&g),
		newModelsCmd(&g),
		newConfigCmd(&g),
		newCacheCmd(&g),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
