package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thinkwright/prompt-evals/internal/deepanalysis"
	"github.com/thinkwright/prompt-evals/internal/engine"
	"github.com/thinkwright/prompt-evals/internal/loader"
	"github.com/thinkwright/prompt-evals/internal/report"
)

func newAnalyzeCmd(g *globalFlags) *cobra.Command {
	var (
		pf          promptFlags
		rf          reportFlags
		gf          gatewayFlags
		concurrency int
		transcript  string
	)

	cmd := &cobra.Command{
		Use:   "analyze [file|dir|-]...",
		Short: "Score prompts and request an LLM deep analysis of each",
		Long: `Run the heuristic levers and then ask an LLM provider for a structured
critique of every prompt: analysis, strengths, improvements, a rewritten
prompt and example prompts.

The provider comes from --provider, then the target model profile, then
analysis.provider in prompt-evals.yaml. API keys are read from the
provider's environment variable (ANTHROPIC_API_KEY, OPENAI_API_KEY, ...)
or from --api-key-env.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(g, nil)
			if err != nil {
				return err
			}
			rf.resolve(cmd, a.settings.Thresholds.MinScore)
			if err := gf.apply(cmd, &a.settings.Analysis); err != nil {
				return err
			}
			if cmd.Flags().Changed("concurrency") {
				a.settings.Analysis.Concurrency = concurrency
			}
			key, err := apiKey(a.settings.Analysis)
			if err != nil {
				return err
			}

			snap := a.engine.Snapshot()
			prompts, err := gatherPrompts(cmd, &pf, snap, args)
			if err != nil {
				return err
			}

			stack, err := newAnalysisStack(a)
			if err != nil {
				return err
			}
			defer stack.Close()

			rep := &report.Report{
				Levers:      snap.Levers(),
				MinScore:    rf.minScore,
				Version:     version,
				GeneratedAt: time.Now(),
			}
			items := make([]deepanalysis.BatchItem, len(prompts))
			for i, p := range prompts {
				modelID := resolveModel(cmd, &pf, p, a.settings.DefaultModel, snap)
				rep.Prompts = append(rep.Prompts, promptReport(p, modelID, snap))
				items[i] = deepanalysis.BatchItem{
					ID:      p.ID,
					Request: analysisRequest(cmd, p, modelID, key, a, snap),
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(os.Stderr, "Analyzing %d prompt(s) with concurrency %d...\n", len(items), max(a.settings.Analysis.Concurrency, 1))
			batch := deepanalysis.RunBatch(ctx, stack.service, items, deepanalysis.BatchConfig{
				Concurrency: a.settings.Analysis.Concurrency,
			}, func(done, total int, id string) {
				fmt.Fprintf(os.Stderr, "  [%d/%d] %s\n", done, total, id)
			})

			for i, r := range batch.Results {
				if r.Response != nil {
					rep.Prompts[i].Analysis = r.Response
				} else {
					rep.Prompts[i].AnalysisError = r.Error
				}
			}

			if batch.Failed > 0 {
				fmt.Fprintf(os.Stderr, "Deep analysis: %d succeeded, %d failed\n", batch.Succeeded, batch.Failed)
			} else {
				fmt.Fprintf(os.Stderr, "Deep analysis: %d succeeded\n", batch.Succeeded)
			}

			if transcript != "" {
				if err := writeTranscript(rep, transcript); err != nil {
					return err
				}
			}

			if err := rf.emit(rep); err != nil {
				return err
			}
			if batch.Succeeded == 0 && batch.Failed > 0 {
				return fmt.Errorf("deep analysis failed for every prompt")
			}
			return nil
		},
	}

	pf.register(cmd)
	rf.register(cmd)
	gf.register(cmd)
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Parallel analysis requests (default from analysis.concurrency)")
	cmd.Flags().StringVar(&transcript, "transcript", "", "Write raw analysis replies to a markdown transcript")
	return cmd
}

// analysisRequest builds the deep-analysis request for one prompt. The
// provider comes from --provider, then the prompt file, then the model
// profile, then settings.
func analysisRequest(cmd *cobra.Command, p loader.PromptFile, modelID, key string, a *app, snap *engine.Snapshot) deepanalysis.Request {
	var req deepanalysis.Request
	if m, ok := snap.Model(modelID); ok {
		req = deepanalysis.RequestFor(p.Prompt, &m)
	} else {
		req = deepanalysis.RequestFor(p.Prompt, nil)
		req.ModelName = modelID
	}
	req.APIKey = key

	settings := a.settings.Analysis
	switch {
	case cmd.Flags().Changed("provider"):
		req.ProviderID = settings.Provider
		req.AnalysisModelID = ""
	case p.Provider != "":
		req.ProviderID = p.Provider
		req.AnalysisModelID = ""
	case req.ProviderID == "":
		req.ProviderID = settings.Provider
	}
	if cmd.Flags().Changed("analysis-model") || (req.AnalysisModelID == "" && req.ProviderID == settings.Provider) {
		req.AnalysisModelID = settings.Model
	}
	return req
}

func writeTranscript(rep *report.Report, path string) error {
	text := report.FormatTranscript(rep)
	if text == "" {
		fmt.Fprintf(os.Stderr, "Warning: no analysis replies, transcript not written\n")
		return nil
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Transcript written to %s\n", path)
	return nil
}
