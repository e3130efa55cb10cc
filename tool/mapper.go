package tool

import (
	"log/slog"
	"sort"

	"github.com/gate-labs/qualgate/config"
	"github.com/gate-labs/qualgate/core"
)

// Mapper resolves configured dimension→scope→tool mappings into concrete
// descriptors.
type Mapper struct {
	mappings map[core.Dimension]map[core.Scope][]string
	cfg      *config.Config
	logger   *slog.Logger
}

// NewMapper creates a mapper over a validated configuration.
func NewMapper(cfg *config.Config, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{
		mappings: cfg.Mappings(),
		cfg:      cfg,
		logger:   logger,
	}
}

// Map translates the requested dimensions and scope into descriptors.
// A dimension with no tool list for the scope falls back to its "all"
// list; one with neither contributes zero tools with a warning — an
// inapplicable dimension is a configuration gap, not a failure. The
// returned slice is ordered by dimension then tool name.
func (m *Mapper) Map(dimensions []core.Dimension, scope core.Scope) []core.Descriptor {
	var out []core.Descriptor
	for _, dim := range dimensions {
		names, found := m.toolsFor(dim, scope)
		if !found {
			// Configuration gap: nothing mapped. Distinct from the
			// environment gap the validator reports for unavailable tools.
			m.logger.Warn("no tools configured for dimension",
				"dimension", dim.String(),
				"scope", scope.String(),
				"reason", core.CodeConfiguration)
			continue
		}
		for _, name := range names {
			out = append(out, m.describe(name, dim, scope))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// toolsFor resolves the tool list for a dimension/scope pair.
func (m *Mapper) toolsFor(dim core.Dimension, scope core.Scope) ([]string, bool) {
	scopes, ok := m.mappings[dim]
	if !ok {
		return nil, false
	}
	if names, ok := scopes[scope]; ok && len(names) > 0 {
		return names, true
	}
	if names, ok := scopes[core.ScopeAll]; ok && len(names) > 0 {
		return names, true
	}
	return nil, false
}

// describe builds the immutable descriptor for one mapped tool name.
// A name equal to its dimension (or the literal "auto") requests
// stack auto-detection; everything else names a specific tool.
func (m *Mapper) describe(name string, dim core.Dimension, scope core.Scope) core.Descriptor {
	mode := core.ModeSpecificTool
	if name == dim.String() || name == "auto" {
		name = dim.String()
		mode = core.ModeStackAutoDetect
	}
	settings := m.cfg.Tools[name]
	return core.Descriptor{
		Name:      name,
		Dimension: dim,
		Scope:     scope,
		Args:      append([]string(nil), settings.Args...),
		Timeout:   settings.Timeout(),
		Mode:      mode,
	}
}

// Compatibility reports which requested dimensions have tools for a scope.
type Compatibility struct {
	Compatible   []core.Dimension
	Incompatible []core.Dimension
	Available    map[core.Dimension][]string
}

// ValidateDimensionScopeCompatibility lets callers warn before wasted
// execution when a requested dimension has nothing to run for a scope.
func (m *Mapper) ValidateDimensionScopeCompatibility(dimensions []core.Dimension, scope core.Scope) Compatibility {
	result := Compatibility{Available: map[core.Dimension][]string{}}
	for _, dim := range dimensions {
		names, found := m.toolsFor(dim, scope)
		if !found {
			result.Incompatible = append(result.Incompatible, dim)
			continue
		}
		result.Compatible = append(result.Compatible, dim)
		result.Available[dim] = append([]string(nil), names...)
	}
	return result
}
