package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/thinkwright/prompt-evals/internal/engine"
	"github.com/thinkwright/prompt-evals/internal/loader"
	"github.com/thinkwright/prompt-evals/internal/report"
)

// promptFlags choose where prompts come from and which model scores them.
type promptFlags struct {
	prompt      string
	model       string
	interactive bool
	recursive   bool
	dedup       bool
}

func (f *promptFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.prompt, "prompt", "", "Prompt text to evaluate (instead of files)")
	cmd.Flags().StringVar(&f.model, "model", "", "Target model profile id (overrides per-file model)")
	cmd.Flags().BoolVarP(&f.interactive, "interactive", "i", false, "Enter the prompt and pick the model interactively")
	cmd.Flags().BoolVarP(&f.recursive, "recursive", "r", false, "Walk directories recursively")
	cmd.Flags().BoolVar(&f.dedup, "dedup", false, "Collapse prompts with identical content (implies --recursive)")
}

// gatherPrompts collects prompts from --prompt, the interactive form, stdin
// ("-") or file and directory arguments, in that order of preference.
func gatherPrompts(cmd *cobra.Command, f *promptFlags, snap *engine.Snapshot, args []string) ([]loader.PromptFile, error) {
	if f.interactive {
		p, err := promptInteractively(cmd, f, snap)
		if err != nil {
			return nil, err
		}
		return []loader.PromptFile{p}, nil
	}

	if f.prompt != "" {
		return requireText([]loader.PromptFile{{ID: "prompt", Name: "Prompt", SourcePath: "--prompt", Prompt: f.prompt}})
	}

	if len(args) == 0 {
		return nil, errors.New("nothing to evaluate: pass prompt files, '-' for stdin, --prompt or --interactive")
	}

	var prompts []loader.PromptFile
	for _, arg := range args {
		if arg == "-" {
			p, err := loader.ReadPrompt(cmd.InOrStdin(), "stdin")
			if err != nil {
				return nil, fmt.Errorf("read stdin: %w", err)
			}
			p.SourcePath = "stdin"
			prompts = append(prompts, p)
			continue
		}

		var loaded []loader.PromptFile
		var err error
		if f.recursive || f.dedup {
			loaded, err = loader.LoadPromptsRecursive(arg, f.dedup)
		} else {
			loaded, err = loader.LoadPrompts(arg)
		}
		if err != nil {
			return nil, err
		}
		if len(loaded) == 0 {
			fmt.Fprintf(os.Stderr, "Warning: no prompts found in %s\n", arg)
		}
		prompts = append(prompts, loaded...)
	}
	return requireText(prompts)
}

// requireText rejects blank prompts and an empty result.
func requireText(prompts []loader.PromptFile) ([]loader.PromptFile, error) {
	if len(prompts) == 0 {
		return nil, errors.New("no prompts found")
	}
	for _, p := range prompts {
		if strings.TrimSpace(p.Prompt) == "" {
			return nil, fmt.Errorf("prompt %q is empty", p.ID)
		}
	}
	return prompts, nil
}

// promptInteractively shows a model picker and a multi-line prompt editor.
// Without a TTY on stdin the form falls back to accessible line mode.
func promptInteractively(cmd *cobra.Command, f *promptFlags, snap *engine.Snapshot) (loader.PromptFile, error) {
	models := snap.Models()
	modelID := f.model
	var options []huh.Option[string]
	for _, m := range models {
		options = append(options, huh.NewOption(m.Name, m.ID))
	}
	text := f.prompt

	fields := []huh.Field{
		huh.NewText().
			Title("Prompt").
			Description("The prompt to evaluate").
			Value(&text).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("prompt is required")
				}
				return nil
			}),
	}
	if modelID == "" && len(options) > 0 {
		fields = append([]huh.Field{
			huh.NewSelect[string]().
				Title("Target model").
				Options(options...).
				Value(&modelID),
		}, fields...)
	}

	form := huh.NewForm(huh.NewGroup(fields...)).
		WithInput(cmd.InOrStdin()).
		WithOutput(cmd.ErrOrStderr())
	if !stdinIsTerminal() {
		form = form.WithAccessible(true)
	}
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return loader.PromptFile{}, errors.New("aborted")
		}
		return loader.PromptFile{}, fmt.Errorf("interactive input: %w", err)
	}

	return loader.PromptFile{
		ID:         "interactive",
		Name:       "Interactive prompt",
		SourcePath: "interactive",
		Prompt:     text,
		Model:      modelID,
	}, nil
}

// resolveModel picks the scoring profile: an explicit --model wins, then the
// prompt's own model, then the configured default. Unknown ids warn and fall
// back to the base lever weights.
func resolveModel(cmd *cobra.Command, f *promptFlags, p loader.PromptFile, defaultModel string, snap *engine.Snapshot) string {
	id := defaultModel
	switch {
	case cmd.Flags().Changed("model"):
		id = f.model
	case p.Model != "":
		id = p.Model
	}
	if id != "" {
		if _, ok := snap.Model(id); !ok {
			fmt.Fprintf(os.Stderr, "Warning: unknown model %q for %s, using base lever weights\n", id, p.ID)
		}
	}
	return id
}

// promptReport evaluates one prompt against the snapshot.
func promptReport(p loader.PromptFile, modelID string, snap *engine.Snapshot) report.PromptReport {
	pr := report.PromptReport{
		ID:          p.ID,
		Name:        p.Name,
		Source:      p.SourcePath,
		AlsoFoundIn: p.AlsoFoundIn,
		ModelID:     modelID,
		WordCount:   p.WordCount(),
		Evaluation:  snap.Evaluate(p.Prompt, modelID),
	}
	if m, ok := snap.Model(modelID); ok {
		pr.ModelName = m.Name
	}
	return pr
}

// readAll reads a file, or stdin when path is "-".
func readAll(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
