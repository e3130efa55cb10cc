// Package config defines the resolved configuration the engine consumes
// and its YAML loader. The engine itself never touches the file format;
// it receives the in-memory shape produced here.
package config

import (
	"fmt"
	"time"

	"github.com/gate-labs/qualgate/core"
)

// ToolSettings carries per-tool overrides.
type ToolSettings struct {
	Args          []string `yaml:"args"`
	TimeoutMS     int      `yaml:"timeout_ms"`
	Prerequisites []string `yaml:"prerequisites"`
	Alternatives  []string `yaml:"alternatives"`
	Critical      bool     `yaml:"critical"`
	Slow          bool     `yaml:"slow"`
}

// Timeout resolves the effective timeout for a tool.
func (s ToolSettings) Timeout() time.Duration {
	if s.TimeoutMS <= 0 {
		return core.DefaultToolTimeout
	}
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

// ModePreset names a run profile: which dimensions run, whether only
// changed files are checked, and whether slow tools are skipped.
type ModePreset struct {
	Dimensions  []string `yaml:"dimensions"`
	ChangedOnly bool     `yaml:"changed_only"`
	SkipSlow    bool     `yaml:"skip_slow"`
}

// Config is the resolved engine configuration.
type Config struct {
	// Concurrency bounds the execution worker pool. Kept conservative by
	// default so shared CI hosts are not exhausted.
	Concurrency int `yaml:"concurrency"`

	// Dimensions maps dimension -> scope -> tool names.
	Dimensions map[string]map[string][]string `yaml:"dimensions"`

	// Tools carries per-tool settings keyed by tool name.
	Tools map[string]ToolSettings `yaml:"tools"`

	// Modes maps mode names to presets (fast/full/dimension/scope/dod).
	Modes map[string]ModePreset `yaml:"modes"`

	// Scopes maps scope names to doublestar glob lists.
	Scopes map[string][]string `yaml:"scopes"`

	// Substitutions maps an unavailable tool to configured equivalents,
	// merged over per-tool Alternatives for validation reports.
	Substitutions map[string][]string `yaml:"substitutions"`
}

// DefaultConcurrency is the worker-pool bound applied when unset.
const DefaultConcurrency = 2

// Default returns a configuration with built-in mode presets and no tool
// mappings. The "dod" preset is an explicit dimension list, not logic.
func Default() *Config {
	return &Config{
		Concurrency: DefaultConcurrency,
		Dimensions:  map[string]map[string][]string{},
		Tools:       map[string]ToolSettings{},
		Modes: map[string]ModePreset{
			"fast": {
				Dimensions:  []string{"lint", "format"},
				ChangedOnly: true,
				SkipSlow:    true,
			},
			"full": {
				Dimensions: []string{"lint", "format", "test", "security", "build", "docs"},
			},
			"dod": {
				Dimensions: []string{"lint", "format", "test", "security"},
			},
		},
		Scopes:        map[string][]string{},
		Substitutions: map[string][]string{},
	}
}

// Validate checks the configuration shape. Violations are integration
// errors: the collaborator handed the engine a malformed contract, so
// the run must fail immediately rather than limp along.
func (c *Config) Validate() error {
	if c == nil {
		return core.NewError(core.CodeIntegration, "config: nil configuration", true, nil)
	}
	if c.Concurrency < 0 {
		return core.NewError(core.CodeIntegration,
			fmt.Sprintf("config: concurrency must be >= 0, got %d", c.Concurrency), true, nil)
	}
	for dim, scopes := range c.Dimensions {
		if dim == "" {
			return core.NewError(core.CodeIntegration, "config: empty dimension name", true, nil)
		}
		for sc, tools := range scopes {
			if sc == "" {
				return core.WithDetails(
					core.NewError(core.CodeIntegration, "config: empty scope name", true, nil),
					map[string]any{"dimension": dim})
			}
			for _, tool := range tools {
				if tool == "" {
					return core.WithDetails(
						core.NewError(core.CodeIntegration, "config: empty tool name in mapping", true, nil),
						map[string]any{"dimension": dim, "scope": sc})
				}
			}
		}
	}
	for name, preset := range c.Modes {
		if len(preset.Dimensions) == 0 {
			return core.WithDetails(
				core.NewError(core.CodeIntegration, "config: mode preset has no dimensions", true, nil),
				map[string]any{"mode": name})
		}
	}
	for tool, settings := range c.Tools {
		if settings.TimeoutMS < 0 {
			return core.WithDetails(
				core.NewError(core.CodeIntegration, "config: negative timeout", true, nil),
				map[string]any{"tool": tool})
		}
	}
	return nil
}

// Mappings converts the dimension table into the typed form the mapper
// consumes.
func (c *Config) Mappings() map[core.Dimension]map[core.Scope][]string {
	out := make(map[core.Dimension]map[core.Scope][]string, len(c.Dimensions))
	for dim, scopes := range c.Dimensions {
		inner := make(map[core.Scope][]string, len(scopes))
		for sc, tools := range scopes {
			inner[core.Scope(sc)] = append([]string(nil), tools...)
		}
		out[core.Dimension(dim)] = inner
	}
	return out
}

// Mode resolves a mode preset by name.
func (c *Config) Mode(name string) (ModePreset, bool) {
	preset, ok := c.Modes[name]
	return preset, ok
}

// EffectiveConcurrency returns the configured bound with the default
// applied for the zero value.
func (c *Config) EffectiveConcurrency() int {
	if c.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return c.Concurrency
}

// AlternativesFor merges the substitution table with per-tool settings
// for one tool name.
func (c *Config) AlternativesFor(tool string) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(names []string) {
		for _, n := range names {
			if _, dup := seen[n]; dup || n == "" || n == tool {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	add(c.Substitutions[tool])
	add(c.Tools[tool].Alternatives)
	return out
}
