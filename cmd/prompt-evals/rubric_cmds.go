package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thinkwright/prompt-evals/internal/rubric"
	"github.com/thinkwright/prompt-evals/internal/store"
)

func newInitCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "init DIR",
		Short: "Create a rubric directory seeded with the built-in levers and model profiles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := store.ParseFormat(format)
			if err != nil {
				return err
			}
			if err := store.Init(args[0], f); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Rubric initialized in %s (%d levers, %d models)\n",
				args[0], len(rubric.DefaultLevers()), len(rubric.DefaultModels()))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "File format: yaml or json")
	return cmd
}

// ── levers ──────────────────────────────────────────────────

func newLeversCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "levers",
		Short: "List and edit scoring levers",
	}
	cmd.AddCommand(newLeversListCmd(g), newLeversToggleCmd(g), newLeversReorderCmd(g))
	return cmd
}

func newLeversListCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List levers in priority order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(g, nil)
			if err != nil {
				return err
			}
			levers, err := a.store.Levers()
			if err != nil {
				return err
			}
			printLevers(cmd, levers)
			return nil
		},
	}
}

func newLeversToggleCmd(g *globalFlags) *cobra.Command {
	var on, off bool

	cmd := &cobra.Command{
		Use:   "toggle ID",
		Short: "Enable or disable a lever (flips it without --on/--off)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(g, nil)
			if err != nil {
				return err
			}
			if err := a.requireRubricDir(); err != nil {
				return err
			}
			current, err := a.store.Lever(args[0])
			if err != nil {
				return fmt.Errorf("lever %s: %w", args[0], err)
			}
			lever, err := a.store.ToggleLever(args[0], toggleValue(current.Enabled, on, off))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", lever.ID, enabledLabel(lever.Enabled))
			return nil
		},
	}
	cmd.Flags().BoolVar(&on, "on", false, "Enable the lever")
	cmd.Flags().BoolVar(&off, "off", false, "Disable the lever")
	cmd.MarkFlagsMutuallyExclusive("on", "off")
	return cmd
}

func newLeversReorderCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder ID...",
		Short: "Put the named levers first, in the given order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(g, nil)
			if err != nil {
				return err
			}
			if err := a.requireRubricDir(); err != nil {
				return err
			}
			levers, err := a.store.ReorderLevers(args)
			if err != nil {
				return err
			}
			printLevers(cmd, levers)
			return nil
		},
	}
}

func printLevers(cmd *cobra.Command, levers []rubric.Lever) {
	rows := make([][]string, 0, len(levers))
	for _, l := range levers {
		rows = append(rows, []string{
			strconv.Itoa(l.Priority),
			l.ID,
			l.Name,
			strconv.FormatFloat(l.Weight, 'g', -1, 64),
			enabledLabel(l.Enabled),
		})
	}
	printTable(cmd.OutOrStdout(), []string{"PRIORITY", "ID", "NAME", "WEIGHT", "STATUS"}, rows)
}

// ── models ──────────────────────────────────────────────────

func newModelsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List and edit target model profiles",
	}
	cmd.AddCommand(newModelsListCmd(g), newModelsToggleCmd(g), newModelsWeightsCmd(g))
	return cmd
}

func newModelsListCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List model profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(g, nil)
			if err != nil {
				return err
			}
			models, err := a.store.Models()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(models))
			for _, m := range models {
				analysis := m.ProviderID
				if analysis == "" {
					analysis = "-"
				}
				rows = append(rows, []string{m.ID, m.Name, m.Provider, analysis, enabledLabel(m.Enabled)})
			}
			printTable(cmd.OutOrStdout(), []string{"ID", "NAME", "PROVIDER", "ANALYSIS", "STATUS"}, rows)
			return nil
		},
	}
}

func newModelsToggleCmd(g *globalFlags) *cobra.Command {
	var on, off bool

	cmd := &cobra.Command{
		Use:   "toggle ID",
		Short: "Enable or disable a model profile (flips it without --on/--off)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(g, nil)
			if err != nil {
				return err
			}
			if err := a.requireRubricDir(); err != nil {
				return err
			}
			current, err := a.store.Model(args[0])
			if err != nil {
				return fmt.Errorf("model %s: %w", args[0], err)
			}
			model, err := a.store.ToggleModel(args[0], toggleValue(current.Enabled, on, off))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", model.ID, enabledLabel(model.Enabled))
			return nil
		},
	}
	cmd.Flags().BoolVar(&on, "on", false, "Enable the model")
	cmd.Flags().BoolVar(&off, "off", false, "Disable the model")
	cmd.MarkFlagsMutuallyExclusive("on", "off")
	return cmd
}

func newModelsWeightsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "weights ID [lever=weight]...",
		Short: "Show or replace a model's per-lever weight overrides",
		Long: `Without assignments, print the effective weight of every lever for the
model. With assignments, replace the model's override map with them.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(g, nil)
			if err != nil {
				return err
			}
			model, err := a.store.Model(args[0])
			if err != nil {
				return fmt.Errorf("model %s: %w", args[0], err)
			}

			if len(args) > 1 {
				if err := a.requireRubricDir(); err != nil {
					return err
				}
				weights, err := parseWeights(args[1:])
				if err != nil {
					return err
				}
				if model, err = a.store.SetLeverWeights(args[0], weights); err != nil {
					return err
				}
			}

			levers, err := a.store.Levers()
			if err != nil {
				return err
			}
			printWeights(cmd, &model, levers)
			return nil
		},
	}
}

func printWeights(cmd *cobra.Command, model *rubric.ModelConfig, levers []rubric.Lever) {
	rows := make([][]string, 0, len(levers))
	for _, l := range levers {
		w, source := l.Weight, "base"
		if mw, ok := model.WeightFor(l.ID); ok {
			w, source = mw, "model"
		}
		rows = append(rows, []string{l.ID, strconv.FormatFloat(w, 'g', -1, 64), source})
	}

	// Overrides for levers the rubric no longer has.
	var orphans []string
	for id := range model.LeverWeights {
		if _, ok := rubric.FindLever(levers, id); !ok {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	for _, id := range orphans {
		rows = append(rows, []string{id, strconv.FormatFloat(model.LeverWeights[id], 'g', -1, 64), "unknown lever"})
	}

	printTable(cmd.OutOrStdout(), []string{"LEVER", "WEIGHT", "SOURCE"}, rows)
}

// parseWeights parses lever=weight assignments.
func parseWeights(args []string) (map[string]float64, error) {
	weights := make(map[string]float64, len(args))
	for _, arg := range args {
		id, raw, ok := strings.Cut(arg, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid weight %q: want lever=weight", arg)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q: %w", arg, err)
		}
		if w < 0 {
			return nil, fmt.Errorf("invalid weight %q: must be non-negative", arg)
		}
		weights[id] = w
	}
	return weights, nil
}

// toggleValue resolves --on/--off, flipping current when neither is set.
func toggleValue(current, on, off bool) bool {
	switch {
	case on:
		return true
	case off:
		return false
	}
	return !current
}

func enabledLabel(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
