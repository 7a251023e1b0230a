package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/thinkwright/prompt-evals/internal/config"
	"github.com/thinkwright/prompt-evals/internal/engine"
	"github.com/thinkwright/prompt-evals/internal/rubric"
	"github.com/thinkwright/prompt-evals/internal/store"
)

// app is the loaded settings, rubric store and engine for one command run.
type app struct {
	settings config.Settings
	store    *store.Store
	engine   *engine.Engine
	logger   *slog.Logger
}

// loadApp resolves settings (flags over env over file over defaults), opens
// the rubric and seeds the engine from it.
func loadApp(g *globalFlags, logger *slog.Logger) (*app, error) {
	searchDirs := []string{"."}
	if g.rubric != "" {
		searchDirs = append(searchDirs, g.rubric)
	}
	settings, err := config.LoadSettings(g.config, searchDirs...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if g.rubric != "" {
		settings.RubricDir = g.rubric
	}
	if logger == nil {
		logger = newLogger("text", g.verbose, slog.LevelWarn)
	}

	var st *store.Store
	if settings.RubricDir == "" {
		st = store.NewMemory(rubric.DefaultBundle(), logger)
	} else {
		st, err = store.Open(settings.RubricDir, logger)
		if err != nil {
			return nil, fmt.Errorf("load rubric: %w", err)
		}
	}

	eng := engine.NewDefault()
	if err := eng.Reload(st); err != nil {
		return nil, err
	}
	return &app{settings: settings, store: st, engine: eng, logger: logger}, nil
}

// requireRubricDir refuses mutations that would only change in-memory defaults.
func (a *app) requireRubricDir() error {
	if a.store.Dir() == "" {
		return fmt.Errorf("no rubric directory: pass --rubric or set rubric_dir (create one with `prompt-evals init DIR`)")
	}
	return nil
}

// newLogger builds the stderr logger. verbose lowers the level to debug.
func newLogger(format string, verbose bool, level slog.Level) *slog.Logger {
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
