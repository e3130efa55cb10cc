package tool

import (
	"strings"
	"sync"

	"github.com/gate-labs/qualgate/core"
)

// Classifier infers a tool's functional category from its bare name.
// Classification order: package-manager match, exact dimension-name
// match, pattern registry lookup, then generic. The registry is
// runtime-extensible; the algorithm never changes for new categories.
type Classifier struct {
	mu              sync.RWMutex
	packageManagers map[string]struct{}
	dimensions      map[string]struct{}
	order           []core.ToolCategory
	patterns        map[core.ToolCategory][]string
	actions         map[core.ToolCategory]string
	memo            map[string]core.ToolCategory
}

// NewClassifier creates a classifier seeded with the built-in registry.
func NewClassifier() *Classifier {
	c := &Classifier{
		packageManagers: map[string]struct{}{},
		dimensions:      map[string]struct{}{},
		patterns:        map[core.ToolCategory][]string{},
		actions:         map[core.ToolCategory]string{},
		memo:            map[string]core.ToolCategory{},
	}

	for _, pm := range []string{"npm", "yarn", "pnpm", "pip", "poetry", "cargo", "bundler-gem", "composer"} {
		c.packageManagers[pm] = struct{}{}
	}
	for _, d := range core.KnownDimensions() {
		c.dimensions[d.String()] = struct{}{}
	}

	c.registerLocked(core.CategoryLinter, "lint", "eslint", "ruff", "flake8", "pylint", "clippy", "vet", "staticcheck", "oxlint", "biome")
	c.registerLocked(core.CategoryFormatter, "fmt", "format", "prettier", "black", "isort", "rustfmt")
	c.registerLocked(core.CategoryTestRunner, "test", "jest", "pytest", "vitest", "mocha", "rspec", "ginkgo")
	c.registerLocked(core.CategorySecurityScanner, "audit", "gosec", "bandit", "trivy", "semgrep", "snyk", "safety", "gitleaks")
	c.registerLocked(core.CategoryCompiler, "tsc", "gcc", "clang", "javac", "rustc")
	c.registerLocked(core.CategoryBundler, "webpack", "vite", "rollup", "esbuild", "parcel")
	c.registerLocked(core.CategoryDependencyManager, "renovate", "depcheck", "dependabot")

	c.actions = map[core.ToolCategory]string{
		core.CategoryPackageManager:    "install",
		core.CategoryCompiler:          "check",
		core.CategoryBundler:           "check",
		core.CategoryDependencyManager: "check",
		core.CategoryLinter:            "lint",
		core.CategoryFormatter:         "format",
		core.CategoryTestRunner:        "test",
		core.CategorySecurityScanner:   "scan",
		core.CategoryDimension:         "validate",
		core.CategoryGeneric:           "validate",
	}
	return c
}

// RegisterPattern adds name patterns for a category at runtime. A new
// category joins the lookup order after the existing ones.
func (c *Classifier) RegisterPattern(category core.ToolCategory, patterns ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registerLocked(category, patterns...)
	// Classification depends on the registry, so memoized answers are stale.
	c.memo = map[string]core.ToolCategory{}
}

// RegisterDimension teaches the classifier a project-specific dimension
// name so it classifies as CategoryDimension.
func (c *Classifier) RegisterDimension(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dimensions[strings.ToLower(name)] = struct{}{}
	c.memo = map[string]core.ToolCategory{}
}

// RegisterAction sets the default action for a category.
func (c *Classifier) RegisterAction(category core.ToolCategory, action string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions[category] = action
}

func (c *Classifier) registerLocked(category core.ToolCategory, patterns ...string) {
	if _, exists := c.patterns[category]; !exists {
		c.order = append(c.order, category)
	}
	c.patterns[category] = append(c.patterns[category], patterns...)
}

// Classify returns the category for a tool name. Results are memoized
// per name: classification is pure given the registry.
func (c *Classifier) Classify(name string) core.ToolCategory {
	lower := strings.ToLower(strings.TrimSpace(name))

	c.mu.RLock()
	if cat, ok := c.memo[lower]; ok {
		c.mu.RUnlock()
		return cat
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if cat, ok := c.memo[lower]; ok {
		return cat
	}
	cat := c.classifyLocked(lower)
	c.memo[lower] = cat
	return cat
}

func (c *Classifier) classifyLocked(lower string) core.ToolCategory {
	if lower == "" {
		return core.CategoryGeneric
	}
	if _, ok := c.packageManagers[lower]; ok {
		return core.CategoryPackageManager
	}
	if _, ok := c.dimensions[lower]; ok {
		return core.CategoryDimension
	}
	for _, category := range c.order {
		for _, pattern := range c.patterns[category] {
			if lower == pattern || strings.Contains(lower, pattern) {
				return category
			}
		}
	}
	return core.CategoryGeneric
}

// DefaultAction returns the default action verb for a category.
func (c *Classifier) DefaultAction(category core.ToolCategory) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if action, ok := c.actions[category]; ok {
		return action
	}
	return "validate"
}
