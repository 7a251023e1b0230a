package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/segmentio/encoding/json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/thinkwright/prompt-evals/internal/cache"
	"github.com/thinkwright/prompt-evals/internal/rubric"
)

func newConfigCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Export and import the full rubric (levers and model profiles)",
	}
	cmd.AddCommand(newConfigExportCmd(g), newConfigImportCmd(g))
	return cmd
}

func newConfigExportCmd(g *globalFlags) *cobra.Command {
	var (
		format   string
		output   string
		compress bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the rubric as a single JSON or YAML document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(g, nil)
			if err != nil {
				return err
			}
			data, err := encodeBundle(a.store.Export(), format)
			if err != nil {
				return err
			}
			if compress {
				if data, err = gzipBytes(data); err != nil {
					return err
				}
			}

			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Rubric exported to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "Export format: json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	cmd.Flags().BoolVar(&compress, "gzip", false, "Gzip the export")
	return cmd
}

func newConfigImportCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the rubric with an exported document (JSON, YAML, optionally gzipped)",
		Long: `Replace every lever and model profile with the contents of FILE.
Gzipped exports are detected automatically. Use '-' to read stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(g, nil)
			if err != nil {
				return err
			}
			if err := a.requireRubricDir(); err != nil {
				return err
			}
			data, err := readAll(cmd, args[0])
			if err != nil {
				return fmt.Errorf("read import: %w", err)
			}
			bundle, err := decodeBundle(data)
			if err != nil {
				return err
			}
			if err := a.store.Import(bundle); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Imported %d levers and %d models into %s\n",
				len(bundle.Levers), len(bundle.Models), a.store.Dir())
			return nil
		},
	}
}

func encodeBundle(b rubric.Bundle, format string) ([]byte, error) {
	switch format {
	case "json", "":
		data, err := json.MarshalIndent(b, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode export: %w", err)
		}
		return append(data, '\n'), nil
	case "yaml", "yml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(b); err != nil {
			return nil, fmt.Errorf("encode export: %w", err)
		}
		enc.Close()
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown export format %q (want json or yaml)", format)
	}
}

// decodeBundle accepts JSON or YAML, gzipped or not. JSON parses as YAML.
func decodeBundle(data []byte) (rubric.Bundle, error) {
	if isGzip(data) {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return rubric.Bundle{}, fmt.Errorf("open gzip: %w", err)
		}
		defer zr.Close()
		if data, err = io.ReadAll(zr); err != nil {
			return rubric.Bundle{}, fmt.Errorf("read gzip: %w", err)
		}
	}

	var b rubric.Bundle
	if err := yaml.Unmarshal(data, &b); err != nil {
		return rubric.Bundle{}, fmt.Errorf("parse import: %w", err)
	}
	if len(b.Levers) == 0 && len(b.Models) == 0 {
		return rubric.Bundle{}, fmt.Errorf("parse import: no levers or models found")
	}
	return b, nil
}

func isGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("gzip export: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip export: %w", err)
	}
	return buf.Bytes(), nil
}

// ── cache ───────────────────────────────────────────────────

func newCacheCmd(g *globalFlags) *cobra.Command {
	var path string

	open := func() (*cache.AnalysisCache, error) {
		if path == "" {
			a, err := loadApp(g, nil)
			if err != nil {
				return nil, err
			}
			path = a.settings.Analysis.CachePath
		}
		if path == "" {
			return nil, fmt.Errorf("no analysis cache: pass --cache or set analysis.cache_path")
		}
		return cache.Open(path, analysisCacheMaxAge)
	}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the deep-analysis reply cache",
	}
	cmd.PersistentFlags().StringVar(&path, "cache", "", "SQLite cache path (default analysis.cache_path)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Show cache entry count and size",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := open()
				if err != nil {
					return err
				}
				defer c.Close()
				st, err := c.Stats(context.Background())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries, %d bytes\n", path, st.Entries, st.TotalBytes)
				return nil
			},
		},
		&cobra.Command{
			Use:   "prune",
			Short: "Delete entries older than the cache max age",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := open()
				if err != nil {
					return err
				}
				defer c.Close()
				n, err := c.Prune(context.Background())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d entries\n", n)
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every cached reply",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := open()
				if err != nil {
					return err
				}
				defer c.Close()
				if err := c.Clear(context.Background()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
				return nil
			},
		},
	)
	return cmd
}
