// Package scope resolves which project files belong to a named scope.
// Scopes are defined as doublestar glob lists; the engine uses the
// resolver to narrow a changed-file set before handing it to wrappers.
package scope

import (
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/gate-labs/qualgate/core"
)

// Patterns maps scope names to glob pattern lists.
type Patterns map[core.Scope][]string

// DefaultPatterns covers the common frontend/backend split. Projects
// override these in configuration.
func DefaultPatterns() Patterns {
	return Patterns{
		core.ScopeFrontend: {
			"**/*.{js,jsx,ts,tsx,vue,svelte}",
			"**/*.{css,scss,less}",
			"**/*.html",
		},
		core.ScopeBackend: {
			"**/*.go",
			"**/*.py",
			"**/*.rs",
			"**/*.{java,kt}",
		},
	}
}

// Resolver answers scope-membership questions for file paths.
type Resolver struct {
	patterns Patterns
	logger   *slog.Logger
}

// NewResolver creates a resolver. Nil patterns fall back to defaults.
func NewResolver(patterns Patterns, logger *slog.Logger) *Resolver {
	if patterns == nil {
		patterns = DefaultPatterns()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{patterns: patterns, logger: logger}
}

// Matches reports whether the file belongs to the scope. ScopeAll and
// scopes with no configured patterns match everything: an unconstrained
// scope must never silently drop files.
func (r *Resolver) Matches(s core.Scope, file string) bool {
	if s == core.ScopeAll {
		return true
	}
	globs, ok := r.patterns[s]
	if !ok || len(globs) == 0 {
		return true
	}
	clean := filepath.ToSlash(file)
	for _, g := range globs {
		if ok, err := doublestar.Match(g, clean); err == nil && ok {
			return true
		} else if err != nil {
			r.logger.Warn("invalid scope pattern", "scope", s.String(), "pattern", g, "error", err)
		}
	}
	return false
}

// Filter returns the subset of files belonging to the scope, sorted for
// deterministic wrapper invocations.
func (r *Resolver) Filter(s core.Scope, files []string) []string {
	if len(files) == 0 {
		return nil
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		if r.Matches(s, f) {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// Known returns the configured scope names plus ScopeAll, sorted.
func (r *Resolver) Known() []core.Scope {
	out := []core.Scope{core.ScopeAll}
	for s := range r.patterns {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
