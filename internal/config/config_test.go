package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeSettings(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadDiscovers(t *testing.T) {
	empty := t.TempDir()
	dir := t.TempDir()
	writeSettings(t, dir, "prompt-evals.yml", "default_model: gpt4\n")

	raw, err := Load("", empty, dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw["default_model"] != "gpt4" {
		t.Errorf("default_model = %v, want gpt4", raw["default_model"])
	}
}

func TestLoadNothingFound(t *testing.T) {
	raw, err := Load("", t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raw) != 0 {
		t.Errorf("expected empty map, got %v", raw)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	p := writeSettings(t, t.TempDir(), "custom.yaml", "")
	raw, err := Load(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw == nil {
		t.Error("expected non-nil map for empty file")
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestDecodeDefaults(t *testing.T) {
	s, err := Decode(map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Server.Addr != ":3005" || s.Server.CORSOrigin != "*" {
		t.Errorf("server = %+v", s.Server)
	}
	if s.Analysis.Provider != "anthropic" || s.Analysis.MaxTokens != 1500 {
		t.Errorf("analysis = %+v", s.Analysis)
	}
	if s.DefaultModel != "claude" {
		t.Errorf("DefaultModel = %q", s.DefaultModel)
	}
}

func TestDecodeOverlay(t *testing.T) {
	raw := map[string]any{
		"rubric_dir": "rubric",
		"server":     map[string]any{"addr": ":8080"},
		"analysis": map[string]any{
			"provider":            "openai",
			"requests_per_minute": 30,
			"timeout":             "45s",
			"max_tokens":          "2000",
		},
		"thresholds": map[string]any{"min_score": 75},
	}
	s, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"rubric_dir", s.RubricDir, "rubric"},
		{"server.addr", s.Server.Addr, ":8080"},
		{"server.cors_origin kept", s.Server.CORSOrigin, "*"},
		{"analysis.provider", s.Analysis.Provider, "openai"},
		{"analysis.requests_per_minute", s.Analysis.RequestsPerMinute, 30.0},
		{"analysis.timeout", s.Analysis.Timeout, 45 * time.Second},
		{"analysis.max_tokens", s.Analysis.MaxTokens, 2000},
		{"thresholds.min_score", s.Thresholds.MinScore, 75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestDecodeUnknownKey(t *testing.T) {
	_, err := Decode(map[string]any{"rubrik_dir": "x"})
	if err == nil || !strings.Contains(err.Error(), "rubrik_dir") {
		t.Errorf("err = %v, want unknown key error", err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PORT":                    "9090",
		"ADMIN_SECRET":            "s3cret",
		"CORS_ORIGIN":             "https://example.com",
		"PROMPT_EVALS_RUBRIC_DIR": "/etc/rubric",
	}
	s := Defaults()
	s.ApplyEnv(func(k string) string { return env[k] })

	if s.Server.Addr != ":9090" {
		t.Errorf("Addr = %q", s.Server.Addr)
	}
	if s.Server.AdminSecret != "s3cret" {
		t.Errorf("AdminSecret = %q", s.Server.AdminSecret)
	}
	if s.Server.CORSOrigin != "https://example.com" {
		t.Errorf("CORSOrigin = %q", s.Server.CORSOrigin)
	}
	if s.RubricDir != "/etc/rubric" {
		t.Errorf("RubricDir = %q", s.RubricDir)
	}

	unset := Defaults()
	unset.ApplyEnv(func(string) string { return "" })
	if unset.Server.Addr != ":3005" {
		t.Errorf("empty env changed Addr to %q", unset.Server.Addr)
	}
}

func TestLoadSettingsResolvesPaths(t *testing.T) {
	t.Setenv("PROMPT_EVALS_RUBRIC_DIR", "")
	t.Setenv("PORT", "")
	dir := t.TempDir()
	writeSettings(t, dir, "prompt-evals.yaml", "rubric_dir: rubric\nanalysis:\n  cache_path: /tmp/abs.db\n")

	s, err := LoadSettings("", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.RubricDir != filepath.Join(dir, "rubric") {
		t.Errorf("RubricDir = %q", s.RubricDir)
	}
	if s.Analysis.CachePath != "/tmp/abs.db" {
		t.Errorf("CachePath = %q", s.Analysis.CachePath)
	}
	if s.Path != filepath.Join(dir, "prompt-evals.yaml") {
		t.Errorf("Path = %q", s.Path)
	}
}

func TestLoadSettingsBadFile(t *testing.T) {
	p := writeSettings(t, t.TempDir(), "prompt-evals.yaml", "server: [unclosed\n")
	if _, err := LoadSettings(p); err == nil {
		t.Error("expected parse error")
	}
}
