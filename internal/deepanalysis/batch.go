package deepanalysis

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// BatchItem is one prompt to analyze in a batch.
type BatchItem struct {
	ID      string
	Request Request
}

// BatchResult is the outcome for one item. Exactly one of Response and
// Error is set.
type BatchResult struct {
	ID         string
	Response   *Response
	Error      string
	DurationMs int64
}

// BatchReport holds results in input order.
type BatchReport struct {
	Results   []BatchResult
	Succeeded int
	Failed    int
	Timestamp string
}

// ProgressCallback is called after each item completes.
type ProgressCallback func(done, total int, id string)

// BatchConfig holds configuration for running a batch.
type BatchConfig struct {
	Concurrency int
	Delay       time.Duration // pause after each call, per worker
}

// RunBatch analyzes every item with bounded concurrency. Per-item failures,
// including panics, are recorded on the item and never abort the batch.
func RunBatch(ctx context.Context, analyzer Analyzer, items []BatchItem, cfg BatchConfig, progress ProgressCallback) *BatchReport {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	results := make([]BatchResult, len(items))
	total := len(items)

	var mu sync.Mutex
	completed := 0
	finish := func(i int, r BatchResult) {
		mu.Lock()
		defer mu.Unlock()
		results[i] = r
		completed++
		if progress != nil {
			progress(completed, total, r.ID)
		}
	}

	sem := make(chan struct{}, cfg.Concurrency)

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, item BatchItem) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					finish(i, BatchResult{ID: item.ID, Error: fmt.Sprintf("panic: %v", r)})
				}
			}()

			start := time.Now()
			res := BatchResult{ID: item.ID}
			if err := ctx.Err(); err != nil {
				res.Error = err.Error()
			} else if resp, err := analyzer.Analyze(ctx, item.Request); err != nil {
				res.Error = err.Error()
			} else {
				res.Response = &resp
			}
			res.DurationMs = time.Since(start).Milliseconds()
			finish(i, res)

			if cfg.Delay > 0 {
				select {
				case <-ctx.Done():
				case <-time.After(cfg.Delay):
				}
			}
		}(i, item)
	}

	wg.Wait()

	report := &BatchReport{
		Results:   results,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	for _, r := range results {
		if r.Error != "" {
			report.Failed++
		} else {
			report.Succeeded++
		}
	}
	return report
}
