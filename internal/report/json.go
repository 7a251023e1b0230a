package report

import (
	"fmt"
	"time"

	"github.com/segmentio/encoding/json"
)

// FormatJSON produces machine-readable JSON for CI artifacts.
func FormatJSON(r *Report) string {
	report := map[string]any{
		"timestamp":     r.timestamp().Format(time.RFC3339),
		"version":       r.Version,
		"min_score":     r.MinScore,
		"average_score": round1(r.AverageScore()),
		"pass":          r.Pass(),
	}

	prompts := []map[string]any{}
	for _, p := range r.Prompts {
		entry := map[string]any{
			"id":         p.ID,
			"name":       p.Name,
			"source":     p.Source,
			"model":      p.ModelID,
			"word_count": p.WordCount,
			"evaluation": p.Evaluation,
			"pass":       p.Evaluation.OverallScore >= r.MinScore,
		}
		if len(p.AlsoFoundIn) > 0 {
			entry["also_found_in"] = p.AlsoFoundIn
			entry["instance_count"] = 1 + len(p.AlsoFoundIn)
		}
		if p.Analysis != nil {
			entry["deep_analysis"] = map[string]any{
				"provider": p.Analysis.Provider,
				"model":    p.Analysis.Model,
				"cached":   p.Analysis.Cached,
				"result":   p.Analysis.Result,
			}
		}
		if p.AnalysisError != "" {
			entry["deep_analysis_error"] = p.AnalysisError
		}
		prompts = append(prompts, entry)
	}
	report["prompts"] = prompts

	// Scan metadata (populated when recursive dedup was used)
	totalFiles := 0
	duplicatesCollapsed := 0
	for _, p := range r.Prompts {
		totalFiles += 1 + len(p.AlsoFoundIn)
		duplicatesCollapsed += len(p.AlsoFoundIn)
	}
	if duplicatesCollapsed > 0 {
		report["scan_metadata"] = map[string]any{
			"total_files_scanned":  totalFiles,
			"unique_prompts":       len(r.Prompts),
			"duplicates_collapsed": duplicatesCollapsed,
			"dedup_method":         "sha256-prompt",
		}
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": "failed to marshal report: %s"}`, err)
	}
	return string(data)
}

func round1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}
