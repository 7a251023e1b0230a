package loader

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/segmentio/encoding/json"
	"gopkg.in/yaml.v3"
)

// PromptFile is one prompt to evaluate, with optional per-prompt targeting.
type PromptFile struct {
	ID          string
	Name        string
	SourcePath  string
	Prompt      string
	Model       string // target model profile id
	Provider    string // deep-analysis provider id
	Metadata    map[string]any
	ContentHash string   // SHA-256 hex of Prompt
	AlsoFoundIn []string // other source paths with identical content (populated by dedup)
}

// WordCount returns the number of words in the prompt.
func (p *PromptFile) WordCount() int {
	return len(strings.Fields(p.Prompt))
}

// skipNames are settings and rubric files that live next to prompts.
var skipNames = map[string]bool{
	"prompt-evals.yaml": true,
	"prompt-evals.yml":  true,
	"levers.yaml":       true,
	"levers.yml":        true,
	"levers.json":       true,
}

var promptKeys = []string{"prompt", "content", "text"}

// LoadPrompts loads prompts from a path. A file yields its prompts; a
// directory yields the prompts of the supported files directly inside it.
func LoadPrompts(path string) ([]PromptFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("prompt path not found: %s", path)
	}

	if !info.IsDir() {
		return loadSingleFile(path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	var prompts []PromptFile
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") || skipNames[entry.Name()] {
			continue
		}
		p := filepath.Join(path, entry.Name())
		loaded, err := loadSingleFile(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipped %s: %v\n", p, err)
			continue
		}
		prompts = append(prompts, loaded...)
	}
	return prompts, nil
}

// ReadPrompt reads a single prompt from r, such as stdin. Markdown
// frontmatter is honored.
func ReadPrompt(r io.Reader, id string) (PromptFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return PromptFile{}, fmt.Errorf("reading prompt: %w", err)
	}
	p := fromText(string(data), id)
	p.SourcePath = "-"
	return p, nil
}

func loadSingleFile(path string) ([]PromptFile, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return loadYAML(path)
	case ".json":
		return loadJSON(path)
	case ".md", ".txt", ".prompt":
		return loadText(path)
	}
	return nil, nil
}

func loadYAML(path string) ([]PromptFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return fromDocument(raw, path), nil
}

func loadJSON(path string) ([]PromptFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return fromDocument(raw, path), nil
}

// fromDocument accepts either a single prompt document or a "prompts" list
// of them. Entries without prompt text are dropped.
func fromDocument(raw map[string]any, path string) []PromptFile {
	if raw == nil {
		return nil
	}
	stem := filenameStem(path)

	list, isList := raw["prompts"].([]any)
	if !isList {
		p, ok := fromFields(raw, stem)
		if !ok {
			return nil
		}
		p.SourcePath = path
		return []PromptFile{p}
	}

	// File-level targeting applies to entries that don't set their own.
	defaultModel := getString(raw, "model")
	defaultProvider := getString(raw, "provider")

	var prompts []PromptFile
	for i, item := range list {
		var p PromptFile
		var ok bool
		switch v := item.(type) {
		case string:
			p, ok = fromFields(map[string]any{"prompt": v}, fmt.Sprintf("%s-%d", stem, i+1))
		case map[string]any:
			p, ok = fromFields(v, fmt.Sprintf("%s-%d", stem, i+1))
		}
		if !ok {
			continue
		}
		p.Model = coalesce(p.Model, defaultModel)
		p.Provider = coalesce(p.Provider, defaultProvider)
		p.SourcePath = path
		prompts = append(prompts, p)
	}
	return prompts
}

func fromFields(raw map[string]any, fallbackID string) (PromptFile, bool) {
	prompt := strings.TrimSpace(firstString(raw, promptKeys...))
	if prompt == "" {
		return PromptFile{}, false
	}
	id := coalesce(getString(raw, "id"), fallbackID)
	return PromptFile{
		ID:       id,
		Name:     coalesce(getString(raw, "name"), nameFromStem(id)),
		Prompt:   prompt,
		Model:    getString(raw, "model"),
		Provider: getString(raw, "provider"),
		Metadata: filterKeys(raw, append([]string{"id", "name", "model", "provider"}, promptKeys...)...),
	}, true
}

func loadText(path string) ([]PromptFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p := fromText(string(data), filenameStem(path))
	if p.Prompt == "" {
		return nil, nil
	}
	p.SourcePath = path
	return []PromptFile{p}, nil
}

func fromText(text, id string) PromptFile {
	content := strings.TrimSpace(text)
	p := PromptFile{ID: id, Name: nameFromStem(id)}

	// Check for YAML frontmatter in markdown
	if strings.HasPrefix(content, "---") {
		parts := strings.SplitN(content, "---", 3)
		if len(parts) >= 3 {
			var fm map[string]any
			if err := yaml.Unmarshal([]byte(parts[1]), &fm); err == nil && fm != nil {
				content = strings.TrimSpace(parts[2])
				p.ID = coalesce(getString(fm, "id"), p.ID)
				p.Name = coalesce(getString(fm, "name"), p.Name)
				p.Model = getString(fm, "model")
				p.Provider = getString(fm, "provider")
				p.Metadata = fm
			}
		}
	}

	p.Prompt = content
	return p
}

// helpers

func filenameStem(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext)
}

func nameFromStem(stem string) string {
	s := strings.ReplaceAll(stem, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func getString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := getString(m, k); s != "" {
			return s
		}
	}
	return ""
}

func coalesce(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func filterKeys(m map[string]any, exclude ...string) map[string]any {
	ex := make(map[string]bool, len(exclude))
	for _, k := range exclude {
		ex[k] = true
	}
	result := make(map[string]any)
	for k, v := range m {
		if !ex[k] {
			result[k] = v
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// LoadPromptsRecursive walks the directory tree rooted at path, loading
// prompts from all supported file types. When dedup is true, prompts with
// identical text are collapsed into a single representative with
// AlsoFoundIn populated.
func LoadPromptsRecursive(path string, dedup bool) ([]PromptFile, error) {
	absRoot, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("prompt path not found: %s", path)
	}
	if !info.IsDir() {
		return LoadPrompts(path)
	}

	var all []PromptFile

	err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != absRoot && (strings.HasPrefix(d.Name(), ".") || d.Name() == "models") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || skipNames[d.Name()] {
			return nil
		}
		loaded, loadErr := loadSingleFile(p)
		if loadErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipped %s: %v\n", p, loadErr)
			return nil
		}
		relPath, _ := filepath.Rel(absRoot, p)
		for _, pf := range loaded {
			pf.SourcePath = relPath
			pf.ContentHash = computeContentHash(pf.Prompt)
			all = append(all, pf)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if dedup {
		all = deduplicatePrompts(all)
	} else {
		all = qualifyConflictingIDs(all)
	}

	return all, nil
}

func computeContentHash(prompt string) string {
	h := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(h[:])
}

func deduplicatePrompts(prompts []PromptFile) []PromptFile {
	groups := make(map[string][]int) // hash -> indices
	var order []string

	for i, p := range prompts {
		if _, seen := groups[p.ContentHash]; !seen {
			order = append(order, p.ContentHash)
		}
		groups[p.ContentHash] = append(groups[p.ContentHash], i)
	}

	var result []PromptFile
	for _, hash := range order {
		indices := groups[hash]
		rep := prompts[indices[0]]
		for _, idx := range indices[1:] {
			rep.AlsoFoundIn = append(rep.AlsoFoundIn, prompts[idx].SourcePath)
		}
		result = append(result, rep)
	}

	return qualifyConflictingIDs(result)
}

func qualifyConflictingIDs(prompts []PromptFile) []PromptFile {
	idCount := make(map[string]int)
	for _, p := range prompts {
		idCount[p.ID]++
	}

	for i := range prompts {
		if idCount[prompts[i].ID] > 1 {
			dir := filepath.Dir(prompts[i].SourcePath)
			if dir != "." && dir != "" {
				prompts[i].ID = filepath.ToSlash(dir) + "/" + prompts[i].ID
			}
		}
	}

	return prompts
}
