// Package store is the file-backed rubric configuration: a levers file and a
// directory of model profiles, validated on load and rewritten atomically on
// every mutation.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/thinkwright/prompt-evals/internal/rubric"
)

var (
	ErrLeverNotFound = errors.New("lever not found")
	ErrModelNotFound = errors.New("model not found")
	// ErrInvalidConfig marks a mutation or import that fails validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

var idRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Store holds the current rubric. It is safe for concurrent use. A Store
// opened without a directory keeps everything in memory.
type Store struct {
	dir    string
	format Format
	logger *slog.Logger

	mu         sync.RWMutex
	levers     []rubric.Lever
	models     []rubric.ModelConfig
	leversFile string
	modelFiles map[string]string
}

// Open loads the rubric in dir. A missing levers file or models directory
// falls back to the built-in defaults, which are written out on the first
// mutation.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("rubric dir not found: %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("rubric path is not a directory: %s", dir)
	}

	s := newStore(dir, logger)
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewMemory returns a Store seeded with b that never touches disk.
func NewMemory(b rubric.Bundle, logger *slog.Logger) *Store {
	s := newStore("", logger)
	s.levers = cloneLevers(b.Levers)
	s.models = cloneModels(b.Models)
	return s
}

func newStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dir:        dir,
		format:     FormatYAML,
		logger:     logger,
		modelFiles: make(map[string]string),
	}
}

// Dir returns the backing directory, or "" for an in-memory store.
func (s *Store) Dir() string { return s.dir }

// Levers returns a copy of the levers in stored order.
func (s *Store) Levers() ([]rubric.Lever, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneLevers(s.levers), nil
}

// Lever returns one lever by id.
func (s *Store) Lever(id string) (rubric.Lever, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.leverIndex(id)
	if i < 0 {
		return rubric.Lever{}, fmt.Errorf("%w: %s", ErrLeverNotFound, id)
	}
	return s.levers[i].Clone(), nil
}

// Models returns a copy of every model profile.
func (s *Store) Models() ([]rubric.ModelConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneModels(s.models), nil
}

// Model returns one model profile by id.
func (s *Store) Model(id string) (rubric.ModelConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.modelIndex(id)
	if i < 0 {
		return rubric.ModelConfig{}, fmt.Errorf("%w: %s", ErrModelNotFound, id)
	}
	return s.models[i].Clone(), nil
}

// Export returns the full configuration.
func (s *Store) Export() rubric.Bundle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rubric.Bundle{Levers: cloneLevers(s.levers), Models: cloneModels(s.models)}
}

func (s *Store) leverIndex(id string) int {
	for i, l := range s.levers {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) modelIndex(id string) int {
	for i, m := range s.models {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) modelsDir() string {
	return filepath.Join(s.dir, "models")
}

func cloneLevers(in []rubric.Lever) []rubric.Lever {
	if in == nil {
		return nil
	}
	out := make([]rubric.Lever, len(in))
	for i, l := range in {
		out[i] = l.Clone()
	}
	return out
}

func cloneModels(in []rubric.ModelConfig) []rubric.ModelConfig {
	if in == nil {
		return nil
	}
	out := make([]rubric.ModelConfig, len(in))
	for i, m := range in {
		out[i] = m.Clone()
	}
	return out
}
