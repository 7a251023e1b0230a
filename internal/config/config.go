package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// FileNames are the settings file names looked up during discovery.
var FileNames = []string{"prompt-evals.yaml", "prompt-evals.yml"}

// Settings is the typed form of prompt-evals.yaml.
type Settings struct {
	RubricDir    string            `mapstructure:"rubric_dir"`
	DefaultModel string            `mapstructure:"default_model"`
	Server       ServerSettings    `mapstructure:"server"`
	Analysis     AnalysisSettings  `mapstructure:"analysis"`
	Thresholds   ThresholdSettings `mapstructure:"thresholds"`

	// Path is the settings file that was loaded, if any.
	Path string `mapstructure:"-"`
}

type ServerSettings struct {
	Addr        string `mapstructure:"addr"`
	AdminSecret string `mapstructure:"admin_secret"`
	CORSOrigin  string `mapstructure:"cors_origin"`
}

type AnalysisSettings struct {
	Provider          string        `mapstructure:"provider"`
	Model             string        `mapstructure:"model"`
	BaseURL           string        `mapstructure:"base_url"`
	APIKeyEnv         string        `mapstructure:"api_key_env"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	RequestsPerMinute float64       `mapstructure:"requests_per_minute"`
	Concurrency       int           `mapstructure:"concurrency"`
	Timeout           time.Duration `mapstructure:"timeout"`
	CachePath         string        `mapstructure:"cache_path"`
}

type ThresholdSettings struct {
	MinScore int `mapstructure:"min_score"`
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	return Settings{
		DefaultModel: "claude",
		Server: ServerSettings{
			Addr:       ":3005",
			CORSOrigin: "*",
		},
		Analysis: AnalysisSettings{
			Provider:    "anthropic",
			MaxTokens:   1500,
			Concurrency: 2,
			Timeout:     2 * time.Minute,
		},
		Thresholds: ThresholdSettings{MinScore: 60},
	}
}

// Load loads configuration from a file path or discovers it in searchDirs.
func Load(configPath string, searchDirs ...string) (map[string]any, error) {
	if configPath != "" {
		return loadFile(configPath)
	}
	if p := Discover(searchDirs...); p != "" {
		return loadFile(p)
	}
	return make(map[string]any), nil
}

// Discover returns the first settings file found in dirs, or "".
func Discover(dirs ...string) string {
	for _, dir := range dirs {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}

func loadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if result == nil {
		return make(map[string]any), nil
	}
	return result, nil
}

// Decode overlays raw onto Defaults. Unknown keys are an error so typos do
// not silently fall back to defaults.
func Decode(raw map[string]any) (Settings, error) {
	s := Defaults()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &s,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return Settings{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Settings{}, fmt.Errorf("decoding settings: %w", err)
	}
	return s, nil
}

// ApplyEnv overrides settings from PORT, ADMIN_SECRET, CORS_ORIGIN and
// PROMPT_EVALS_RUBRIC_DIR.
func (s *Settings) ApplyEnv(getenv func(string) string) {
	if port := getenv("PORT"); port != "" {
		s.Server.Addr = ":" + port
	}
	if v := getenv("ADMIN_SECRET"); v != "" {
		s.Server.AdminSecret = v
	}
	if v := getenv("CORS_ORIGIN"); v != "" {
		s.Server.CORSOrigin = v
	}
	if v := getenv("PROMPT_EVALS_RUBRIC_DIR"); v != "" {
		s.RubricDir = v
	}
}

// LoadSettings loads, decodes and env-overrides the settings. A relative
// rubric_dir or cache_path is resolved against the settings file's directory.
func LoadSettings(configPath string, searchDirs ...string) (Settings, error) {
	path := configPath
	if path == "" {
		path = Discover(searchDirs...)
	}

	raw := map[string]any{}
	if path != "" {
		var err error
		if raw, err = loadFile(path); err != nil {
			return Settings{}, err
		}
	}

	s, err := Decode(raw)
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", displayPath(path), err)
	}
	s.Path = path
	if path != "" {
		base := filepath.Dir(path)
		s.RubricDir = resolve(base, s.RubricDir)
		s.Analysis.CachePath = resolve(base, s.Analysis.CachePath)
	}

	s.ApplyEnv(os.Getenv)
	return s, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func displayPath(p string) string {
	if p == "" {
		return "settings"
	}
	return p
}
