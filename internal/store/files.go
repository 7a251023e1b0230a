package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/segmentio/encoding/json"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/thinkwright/prompt-evals/internal/rubric"
)

// Format is the on-disk encoding of rubric files.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat accepts "yaml", "yml" or "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown rubric format %q (want yaml or json)", s)
}

func formatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".json":
		return FormatJSON, true
	}
	return "", false
}

var leversFileNames = []string{"levers.yaml", "levers.yml", "levers.json"}

// maxParallelLoads bounds concurrent model-file reads.
const maxParallelLoads = 8

type leversDocument struct {
	Levers []rubric.Lever `json:"levers" yaml:"levers"`
}

func (s *Store) load() error {
	for _, name := range leversFileNames {
		p := filepath.Join(s.dir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		var doc leversDocument
		if err := readDocument(p, leversSchema, &doc); err != nil {
			return err
		}
		for i := range doc.Levers {
			if doc.Levers[i].Name == "" {
				doc.Levers[i].Name = rubric.NameFromID(doc.Levers[i].ID)
			}
		}
		s.levers = doc.Levers
		s.leversFile = p
		s.format, _ = formatOf(p)
		break
	}
	if s.leversFile == "" {
		s.logger.Info("no levers file, using built-in rubric", "dir", s.dir)
		s.levers = rubric.DefaultLevers()
	}

	models, files, err := loadModels(s.modelsDir())
	if os.IsNotExist(err) {
		s.logger.Info("no models directory, using built-in profiles", "dir", s.dir)
		s.models = rubric.DefaultModels()
		return nil
	}
	if err != nil {
		return err
	}
	s.models = models
	s.modelFiles = files
	s.logger.Debug("rubric loaded", "dir", s.dir, "levers", len(s.levers), "models", len(s.models))
	return nil
}

// loadModels reads every model file in dir in parallel. Results keep the
// directory's name order.
func loadModels(dir string) ([]rubric.ModelConfig, map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if _, ok := formatOf(e.Name()); ok {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}

	models := make([]rubric.ModelConfig, len(paths))
	var g errgroup.Group
	g.SetLimit(maxParallelLoads)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			var m rubric.ModelConfig
			if err := readDocument(p, modelSchema, &m); err != nil {
				return err
			}
			if m.ID == "" {
				m.ID = filenameStem(p)
			}
			if m.Name == "" {
				m.Name = rubric.NameFromID(m.ID)
			}
			models[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	files := make(map[string]string, len(models))
	for i, m := range models {
		if prev, dup := files[m.ID]; dup {
			return nil, nil, fmt.Errorf("duplicate model id %q in %s and %s", m.ID, prev, paths[i])
		}
		files[m.ID] = paths[i]
	}
	return models, files, nil
}

// readDocument validates the file against sch, then decodes it into v.
func readDocument(path string, sch *jsonschema.Schema, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	format, _ := formatOf(path)

	var doc any
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	default:
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	if err := validateDocument(sch, filepath.Base(path), doc); err != nil {
		return err
	}

	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, v)
	default:
		err = yaml.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func encode(format Format, v any) ([]byte, error) {
	if format == FormatJSON {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

func (s *Store) saveLevers(levers []rubric.Lever) error {
	if err := checkLevers(levers); err != nil {
		return err
	}
	if s.dir == "" {
		return nil
	}
	path := s.leversFile
	if path == "" {
		path = filepath.Join(s.dir, "levers."+string(s.format))
	}
	data, err := encode(s.format, leversDocument{Levers: levers})
	if err != nil {
		return fmt.Errorf("encoding levers: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return err
	}
	s.leversFile = path
	return nil
}

func (s *Store) saveModel(m rubric.ModelConfig) error {
	if err := checkModel(m); err != nil {
		return err
	}
	if s.dir == "" {
		return nil
	}
	path, ok := s.modelFiles[m.ID]
	if !ok {
		path = filepath.Join(s.modelsDir(), m.ID+"."+string(s.format))
	}
	format, _ := formatOf(path)
	data, err := encode(format, m)
	if err != nil {
		return fmt.Errorf("encoding model %s: %w", m.ID, err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return err
	}
	s.modelFiles[m.ID] = path
	return nil
}

// Init seeds dir with the built-in rubric and model profiles. It refuses to
// overwrite an existing levers file.
func Init(dir string, format Format) error {
	for _, name := range leversFileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return fmt.Errorf("rubric already initialized in %s", dir)
		}
	}

	s := newStore(dir, nil)
	s.format = format
	if err := os.MkdirAll(s.modelsDir(), 0o755); err != nil {
		return fmt.Errorf("creating rubric dir: %w", err)
	}
	if err := s.saveLevers(rubric.DefaultLevers()); err != nil {
		return err
	}
	for _, m := range rubric.DefaultModels() {
		if err := s.saveModel(m); err != nil {
			return err
		}
	}
	return nil
}

func filenameStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
