package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gate-labs/qualgate/config"
	"github.com/gate-labs/qualgate/core"
)

// Definition is a persisted tool registration. Stored definitions extend
// the static configuration: teams register project tools once and every
// run picks them up.
type Definition struct {
	Name          string    `json:"name"`
	Dimension     string    `json:"dimension"`
	Args          []string  `json:"args,omitempty"`
	TimeoutMS     int       `json:"timeout_ms,omitempty"`
	Prerequisites []string  `json:"prerequisites,omitempty"`
	Alternatives  []string  `json:"alternatives,omitempty"`
	Critical      bool      `json:"critical,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Validate checks the fields every backend requires.
func (d Definition) Validate() error {
	if d.Name == "" {
		return errors.New("tool definition name is required")
	}
	if d.Dimension == "" {
		return errors.New("tool definition dimension is required")
	}
	return nil
}

// ErrDefinitionNotFound is returned when a named definition does not exist.
var ErrDefinitionNotFound = errors.New("tool definition not found")

// Store persists tool definitions. Implementations are safe for
// concurrent use.
type Store interface {
	List(ctx context.Context) ([]Definition, error)
	Get(ctx context.Context, name string) (Definition, bool, error)
	Upsert(ctx context.Context, def Definition) error
	Delete(ctx context.Context, name string) error
}

// ApplyDefinitions merges stored definitions into a config: each
// definition becomes a dimension/all mapping entry plus per-tool
// settings. Stored settings win over static config for the same tool.
func ApplyDefinitions(cfg *config.Config, defs []Definition) {
	for _, def := range defs {
		if cfg.Dimensions == nil {
			cfg.Dimensions = make(map[string]map[string][]string)
		}
		scopes := cfg.Dimensions[def.Dimension]
		if scopes == nil {
			scopes = make(map[string][]string)
			cfg.Dimensions[def.Dimension] = scopes
		}
		if !containsString(scopes[core.ScopeAll.String()], def.Name) {
			scopes[core.ScopeAll.String()] = append(scopes[core.ScopeAll.String()], def.Name)
		}

		if cfg.Tools == nil {
			cfg.Tools = make(map[string]config.ToolSettings)
		}
		cfg.Tools[def.Name] = config.ToolSettings{
			Args:          def.Args,
			TimeoutMS:     def.TimeoutMS,
			Prerequisites: def.Prerequisites,
			Alternatives:  def.Alternatives,
			Critical:      def.Critical,
		}
	}
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// FileStore persists definitions as one JSON document on disk.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a file-backed definition store at path. The
// parent directory is created on demand.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("tool file store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("tool file store create dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) List(ctx context.Context) ([]Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defs, err := s.load()
	if err != nil {
		return nil, err
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs, nil
}

func (s *FileStore) Get(ctx context.Context, name string) (Definition, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defs, err := s.load()
	if err != nil {
		return Definition{}, false, err
	}
	for _, def := range defs {
		if def.Name == name {
			return def, true, nil
		}
	}
	return Definition{}, false, nil
}

func (s *FileStore) Upsert(ctx context.Context, def Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defs, err := s.load()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	def.UpdatedAt = now
	replaced := false
	for i, existing := range defs {
		if existing.Name == def.Name {
			def.CreatedAt = existing.CreatedAt
			defs[i] = def
			replaced = true
			break
		}
	}
	if !replaced {
		def.CreatedAt = now
		defs = append(defs, def)
	}
	return s.save(defs)
}

func (s *FileStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defs, err := s.load()
	if err != nil {
		return err
	}
	for i, def := range defs {
		if def.Name == name {
			return s.save(append(defs[:i], defs[i+1:]...))
		}
	}
	return ErrDefinitionNotFound
}

func (s *FileStore) load() ([]Definition, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("tool file store read: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var defs []Definition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("tool file store decode: %w", err)
	}
	return defs, nil
}

func (s *FileStore) save(defs []Definition) error {
	data, err := json.MarshalIndent(defs, "", "  ")
	if err != nil {
		return fmt.Errorf("tool file store encode: %w", err)
	}

	// Write-then-rename keeps the store readable if the process dies
	// mid-save.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("tool file store write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("tool file store rename: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
